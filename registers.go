package pcf85263a

// Register addresses (RTC mode register file, 0x00..0x2F).
const (
	// I2C address for the PCF85263A: 0xA2 (W) / 0xA3 (R).
	Address = 0x51

	regSeconds100th = 0x00 // 100th seconds, 00-99 BCD
	regSeconds      = 0x01 // bit 7 is the oscillator-stop flag
	regMinutes      = 0x02
	regHours        = 0x03 // 24h: 6-bit BCD; 12h: 5-bit BCD + AM/PM bit
	regDays         = 0x04
	regWeekdays     = 0x05
	regMonths       = 0x06
	regYears        = 0x07

	regSecondAlarm1  = 0x08
	regMinuteAlarm1  = 0x09
	regHourAlarm1    = 0x0A
	regDayAlarm1     = 0x0B
	regMonthAlarm1   = 0x0C
	regMinuteAlarm2  = 0x0D
	regHourAlarm2    = 0x0E
	regWeekdayAlarm2 = 0x0F
	regAlarmEnables  = 0x10

	regTimestamp1 = 0x11 // six registers each: seconds..years
	regTimestamp2 = 0x17
	regTimestamp3 = 0x1D
	regTSRMode    = 0x23

	regOffset        = 0x24
	regOscillator    = 0x25
	regBatterySwitch = 0x26
	regPinIO         = 0x27
	regFunction      = 0x28
	regINTAEnable    = 0x29
	regINTBEnable    = 0x2A
	regFlags         = 0x2B
	regRAMByte       = 0x2C
	regWatchdog      = 0x2D
	regStopEnable    = 0x2E
	regResets        = 0x2F
)

// Value masks. Unused bits in the time/date registers read undefined and must
// be masked off before BCD decoding.
const (
	maskSeconds  = 0x7F
	maskMinutes  = 0x7F
	maskHours24  = 0x3F
	maskHours12  = 0x1F
	maskDays     = 0x3F
	maskWeekdays = 0x07
	maskMonths   = 0x1F

	hourAMFlag = 1 << 5 // set for AM in 12-hour mode

	osFlag = 1 << 7 // oscillator stop, seconds register

	stopBit = 1 << 0 // STOP in the stop_enable register
)

// Reset register command codes.
const (
	cmdClearPrescaler  = 0xA4
	cmdClearTimestamps = 0x25
	cmdSoftwareReset   = 0x2C
)

// Alarm_enables register bits (0x10). Alarm1 owns bits 0..4, alarm2 bits 5..7.
const (
	enSecondAlarm1  = 1 << 0
	enMinuteAlarm1  = 1 << 1
	enHourAlarm1    = 1 << 2
	enDayAlarm1     = 1 << 3
	enMonthAlarm1   = 1 << 4
	enMinuteAlarm2  = 1 << 5
	enHourAlarm2    = 1 << 6
	enWeekdayAlarm2 = 1 << 7

	alarm1EnableMask = 0x1F
	alarm2EnableMask = 0xE0
)

// TSR_mode register fields (0x23).
const (
	tsr1ModeShift = 0
	tsr1ModeMask  = 0x03
	tsr2ModeShift = 2
	tsr2ModeMask  = 0x07
	tsr3ModeShift = 6
	tsr3ModeMask  = 0x03
)

// Oscillator is the in-memory value of the oscillator control register (0x25).
// Mutators return the modified value; nothing is written until the value is
// handed to WriteOscillator.
type Oscillator uint8

const (
	oscClockInvert = 1 << 7
	oscOffsetMode  = 1 << 6
	osc12Hour      = 1 << 5
	oscLowJitter   = 1 << 4
	oscDriveShift  = 2
	oscDriveMask   = 0x03
	oscLoadShift   = 0
	oscLoadMask    = 0x03
)

// LoadCapacitance selects the quartz load capacitance.
type LoadCapacitance uint8

const (
	Load7pF LoadCapacitance = iota // power-on default
	Load6pF
	Load12p5pF
	Load12p5pFAlt // same capacitance, alternate code
)

// CrystalDrive selects the oscillator drive strength.
type CrystalDrive uint8

const (
	DriveNormal CrystalDrive = iota // R_S(max) = 100 kOhm
	DriveLow                        // R_S(max) = 60 kOhm, lower I_dd
	DriveHigh                       // R_S(max) = 500 kOhm, higher I_dd
)

func (o Oscillator) TwelveHour() bool { return o&osc12Hour != 0 }

func (o Oscillator) LoadCapacitance() LoadCapacitance {
	return LoadCapacitance(uint8(o) >> oscLoadShift & oscLoadMask)
}

func (o Oscillator) CrystalDrive() CrystalDrive {
	return CrystalDrive(uint8(o) >> oscDriveShift & oscDriveMask)
}

func (o Oscillator) WithTwelveHour(on bool) Oscillator { return o.withBit(osc12Hour, on) }

func (o Oscillator) WithLoadCapacitance(lc LoadCapacitance) Oscillator {
	return o&^(oscLoadMask<<oscLoadShift) | Oscillator(lc&oscLoadMask)<<oscLoadShift
}

func (o Oscillator) WithCrystalDrive(cd CrystalDrive) Oscillator {
	return o&^(oscDriveMask<<oscDriveShift) | Oscillator(cd&oscDriveMask)<<oscDriveShift
}

func (o Oscillator) WithOffsetMode(m OffsetMode) Oscillator {
	return o.withBit(oscOffsetMode, m == OffsetModeFast)
}

func (o Oscillator) WithLowJitter(on bool) Oscillator { return o.withBit(oscLowJitter, on) }

func (o Oscillator) WithInvertedClockOut(on bool) Oscillator { return o.withBit(oscClockInvert, on) }

func (o Oscillator) withBit(bit uint8, on bool) Oscillator {
	if on {
		return o | Oscillator(bit)
	}
	return o &^ Oscillator(bit)
}

// Function is the in-memory value of the function control register (0x28).
type Function uint8

const (
	fnHundredths  = 1 << 7
	fnPIShift     = 5
	fnPIMask      = 0x03
	fnRTCM        = 1 << 4
	fnStopMode    = 1 << 3
	fnClkOutShift = 0
	fnClkOutMask  = 0x07
)

// PeriodicInterrupt selects the periodic interrupt rate.
type PeriodicInterrupt uint8

const (
	PeriodicNone PeriodicInterrupt = iota
	PeriodicSecond
	PeriodicMinute
	PeriodicHour
)

// ClockOutputFrequency selects the CLK pin output frequency.
type ClockOutputFrequency uint8

const (
	ClockOut32768Hz ClockOutputFrequency = iota
	ClockOut16384Hz
	ClockOut8192Hz
	ClockOut4096Hz
	ClockOut2048Hz
	ClockOut1024Hz
	ClockOut1Hz
	ClockOutStaticLow
)

func (f Function) HundredthsEnabled() bool { return f&fnHundredths != 0 }

func (f Function) ClockOutput() ClockOutputFrequency {
	return ClockOutputFrequency(uint8(f) >> fnClkOutShift & fnClkOutMask)
}

func (f Function) WithHundredths(on bool) Function { return f.withBit(fnHundredths, on) }

func (f Function) WithPeriodicInterrupt(pi PeriodicInterrupt) Function {
	return f&^(fnPIMask<<fnPIShift) | Function(pi&fnPIMask)<<fnPIShift
}

func (f Function) WithClockOutput(cof ClockOutputFrequency) Function {
	return f&^(fnClkOutMask<<fnClkOutShift) | Function(cof&fnClkOutMask)<<fnClkOutShift
}

func (f Function) withBit(bit uint8, on bool) Function {
	if on {
		return f | Function(bit)
	}
	return f &^ Function(bit)
}

// PinIO is the in-memory value of the pin IO control register (0x27).
type PinIO uint8

const (
	pioCLKPM       = 1 << 7
	pioTSPMShift   = 4
	pioTSPMMask    = 0x03
	pioTSIM        = 1 << 3
	pioTSL         = 1 << 2
	pioINTAPMShift = 0
	pioINTAPMMask  = 0x03
)

// INTAPinMode selects the function of the INTA pin.
type INTAPinMode uint8

const (
	INTAClockOut INTAPinMode = iota
	INTABatteryIndication
	INTAInterrupt
	INTAHiZ
)

// TSPinMode selects the function of the TS pin.
type TSPinMode uint8

const (
	TSDisabled TSPinMode = iota
	TSIntBInput
	TSClockOut
	TSInputMode
)

func (p PinIO) WithINTAPinMode(m INTAPinMode) PinIO {
	return p&^(pioINTAPMMask<<pioINTAPMShift) | PinIO(m&pioINTAPMMask)<<pioINTAPMShift
}

func (p PinIO) WithTSPinMode(m TSPinMode) PinIO {
	return p&^(pioTSPMMask<<pioTSPMShift) | PinIO(m&pioTSPMMask)<<pioTSPMShift
}

// WithTSMechanicalSwitch enables debounced sampling for a mechanical switch on
// the TS pin.
func (p PinIO) WithTSMechanicalSwitch(on bool) PinIO { return p.withBit(pioTSIM, on) }

// WithTSActiveHigh sets the active level of the TS pin input.
func (p PinIO) WithTSActiveHigh(on bool) PinIO { return p.withBit(pioTSL, on) }

// WithClockPinDisabled switches the CLK pin to high impedance.
func (p PinIO) WithClockPinDisabled(on bool) PinIO { return p.withBit(pioCLKPM, on) }

func (p PinIO) withBit(bit uint8, on bool) PinIO {
	if on {
		return p | PinIO(bit)
	}
	return p &^ PinIO(bit)
}

// IntEnable is the in-memory value of the INTA_enable (0x29) or INTB_enable
// (0x2A) register. Both share the same layout.
type IntEnable uint8

const (
	IntLevelMode        IntEnable = 1 << 7 // level instead of pulse
	IntPeriodic         IntEnable = 1 << 6
	IntOffsetCorrection IntEnable = 1 << 5
	IntAlarm1           IntEnable = 1 << 4
	IntAlarm2           IntEnable = 1 << 3
	IntTimestamp        IntEnable = 1 << 2
	IntBatterySwitch    IntEnable = 1 << 1
	IntWatchdog         IntEnable = 1 << 0
)

func (e IntEnable) Has(flag IntEnable) bool { return e&flag != 0 }

// Flags is the value of the flags register (0x2B). Bits are set by the chip
// and stay set until cleared.
type Flags uint8

const (
	FlagPeriodic      Flags = 1 << 7
	FlagAlarm2        Flags = 1 << 6
	FlagAlarm1        Flags = 1 << 5
	FlagWatchdog      Flags = 1 << 4
	FlagBatterySwitch Flags = 1 << 3
	FlagTimestamp3    Flags = 1 << 2
	FlagTimestamp2    Flags = 1 << 1
	FlagTimestamp1    Flags = 1 << 0
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Battery switch register bits (0x26). Bits 7:5 are reserved and always
// written as zero.
const (
	bswOff       = 1 << 4
	bswLowRate   = 1 << 3
	bswModeShift = 1
	bswModeMask  = 0x03
	bswThreshold = 1 << 0

	bswReservedMask = 0xE0
)
