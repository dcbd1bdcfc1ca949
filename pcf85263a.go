// Package pcf85263a implements a driver for the PCF85263A Real-Time Clock
// (RTC). It covers time/date keeping, the two alarms, the three timestamp
// capture registers, battery switch-over, clock offset correction and the
// interrupt/pin plumbing around them.
//
// All reads of rolling registers span a single contiguous bus transaction,
// so a value can never tear across a rollover. Setting the time suspends the
// clock, writes, and resumes it; the resume is attempted even when the write
// fails.
//
// The driver performs no locking and no caching. A Device must be owned by a
// single goroutine (or serialized externally): the chip's shared control
// registers are updated with read-modify-write sequences that are not safe to
// interleave.
//
// Datasheet: https://www.nxp.com/docs/en/data-sheet/PCF85263A.pdf
package pcf85263a

import (
	"tinygo.org/x/drivers"
)

type Device struct {
	bus     drivers.I2C
	Address uint16

	twelveHour bool

	// Fixed write buffer to avoid per-call heap allocations.
	w [9]byte
}

type Config struct {
	// Address defaults to 0x51 if zero.
	Address uint16
	// TwelveHour selects the chip's 12-hour mode. The driver API always
	// uses 0-23 hours; this only changes the register representation.
	TwelveHour bool
	// Hundredths enables the 100th-seconds counter.
	Hundredths bool
	// LoadCapacitance and CrystalDrive tune the oscillator for the fitted
	// quartz. Zero values are the chip defaults (7 pF, normal drive).
	LoadCapacitance LoadCapacitance
	CrystalDrive    CrystalDrive
}

// New creates a driver on the given preconfigured I2C bus. The datasheet
// allows up to 400 kHz.
func New(bus drivers.I2C) *Device {
	return &Device{
		bus:     bus,
		Address: Address,
	}
}

// Configure applies the oscillator and counter configuration. It leaves the
// time registers and any armed alarms/timestamps alone.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	osc, err := d.ReadOscillator()
	if err != nil {
		return err
	}
	osc = osc.WithTwelveHour(cfg.TwelveHour).
		WithLoadCapacitance(cfg.LoadCapacitance).
		WithCrystalDrive(cfg.CrystalDrive)
	if err := d.WriteOscillator(osc); err != nil {
		return err
	}
	fn, err := d.ReadFunction()
	if err != nil {
		return err
	}
	return d.WriteFunction(fn.WithHundredths(cfg.Hundredths))
}

// ---------------- Time and date ----------------

// ReadTime returns the current time of day. The four time registers are
// fetched in one bus transaction.
func (d *Device) ReadTime() (Time, error) {
	var buf [4]byte
	if err := d.readRegs(regSeconds100th, buf[:]); err != nil {
		return Time{}, &TransactionError{Step: StepRead, Err: err}
	}
	return decodeTime(buf, d.twelveHour)
}

// SetTime sets the time of day. The clock is stopped and its prescaler
// cleared before the write so the new time starts on a whole tick, then
// restarted. See the datasheet's "setting and reading the time" section.
func (d *Device) SetTime(t Time) error {
	buf, err := encodeTime(t, d.twelveHour)
	if err != nil {
		return err
	}
	return d.withClockStopped(true, func() error {
		return d.writeRegs(regSeconds100th, buf[:])
	})
}

// ReadDate returns the current date in one bus transaction.
func (d *Device) ReadDate() (Date, error) {
	var buf [4]byte
	if err := d.readRegs(regDays, buf[:]); err != nil {
		return Date{}, &TransactionError{Step: StepRead, Err: err}
	}
	return decodeDate(buf)
}

// SetDate sets the date. The day is validated against the month length and
// the chip's leap-year rule before anything is written.
func (d *Device) SetDate(date Date) error {
	buf, err := encodeDate(date)
	if err != nil {
		return err
	}
	return d.withClockStopped(false, func() error {
		return d.writeRegs(regDays, buf[:])
	})
}

// ReadDateTime returns time and date from a single contiguous read of the
// 0x00..0x07 block. Reading them separately could observe a rollover in
// between; the chip only guarantees a consistent snapshot within one
// transaction.
func (d *Device) ReadDateTime() (DateTime, error) {
	var buf [8]byte
	if err := d.readRegs(regSeconds100th, buf[:]); err != nil {
		return DateTime{}, &TransactionError{Step: StepRead, Err: err}
	}
	return decodeDateTime(buf, d.twelveHour)
}

// SetDateTime sets time and date in one stop/write/resume cycle.
func (d *Device) SetDateTime(dt DateTime) error {
	buf, err := encodeDateTime(dt, d.twelveHour)
	if err != nil {
		return err
	}
	return d.withClockStopped(true, func() error {
		return d.writeRegs(regSeconds100th, buf[:])
	})
}

// ---------------- Oscillator stop detection ----------------

// OscillatorStopped reports whether the oscillator stopped at some point
// since the flag was last cleared, meaning the time can not be trusted.
func (d *Device) OscillatorStopped() (bool, error) {
	sec, err := d.readReg(regSeconds)
	if err != nil {
		return false, err
	}
	return sec&osFlag != 0, nil
}

// SetTimeAndClearOscillatorStop establishes a fresh time and clears the
// oscillator-stop flag in the same operation. The flag is cleared by the
// seconds write itself, so it can only ever be cleared together with
// setting a correct time.
func (d *Device) SetTimeAndClearOscillatorStop(t Time) error {
	return d.SetTime(t)
}

// SetDateTimeAndClearOscillatorStop is SetTimeAndClearOscillatorStop for a
// combined time and date write.
func (d *Device) SetDateTimeAndClearOscillatorStop(dt DateTime) error {
	return d.SetDateTime(dt)
}

// ---------------- Alarms ----------------

// ConfigureAlarm1 writes the alarm 1 match values and enables exactly the
// fields set in a. The shared alarm_enables register is updated with a
// read-modify-write, leaving the alarm 2 bits untouched.
func (d *Device) ConfigureAlarm1(a Alarm1) error {
	buf, enables, err := encodeAlarm1(a, d.twelveHour)
	if err != nil {
		return err
	}
	if err := d.writeRegs(regSecondAlarm1, buf[:]); err != nil {
		return &TransactionError{Step: StepWrite, Err: err}
	}
	if err := d.updateReg(regAlarmEnables, alarm1EnableMask, enables); err != nil {
		return &TransactionError{Step: StepModify, Err: err}
	}
	return nil
}

// ConfigureAlarm2 is ConfigureAlarm1 for the second alarm (minute, hour,
// weekday).
func (d *Device) ConfigureAlarm2(a Alarm2) error {
	buf, enables, err := encodeAlarm2(a, d.twelveHour)
	if err != nil {
		return err
	}
	if err := d.writeRegs(regMinuteAlarm2, buf[:]); err != nil {
		return &TransactionError{Step: StepWrite, Err: err}
	}
	if err := d.updateReg(regAlarmEnables, alarm2EnableMask, enables); err != nil {
		return &TransactionError{Step: StepModify, Err: err}
	}
	return nil
}

// ReadAlarm1 returns the armed alarm 1 configuration. Disabled fields come
// back disabled with their value zeroed, regardless of register content.
func (d *Device) ReadAlarm1() (Alarm1, error) {
	// 0x08..0x10: both alarms plus the enables register in one read.
	var buf [9]byte
	if err := d.readRegs(regSecondAlarm1, buf[:]); err != nil {
		return Alarm1{}, &TransactionError{Step: StepRead, Err: err}
	}
	return decodeAlarm1([5]byte(buf[:5]), buf[8], d.twelveHour)
}

// ReadAlarm2 returns the armed alarm 2 configuration.
func (d *Device) ReadAlarm2() (Alarm2, error) {
	// 0x0D..0x10: values plus the enables register in one read.
	var buf [4]byte
	if err := d.readRegs(regMinuteAlarm2, buf[:]); err != nil {
		return Alarm2{}, &TransactionError{Step: StepRead, Err: err}
	}
	return decodeAlarm2([3]byte(buf[:3]), buf[3], d.twelveHour)
}

// ---------------- Timestamp capture ----------------

// EnableTimestamp arms a capture register on the given trigger, or disarms
// it with TimestampOff. Only the register's own mode field in TSR_mode is
// touched.
func (d *Device) EnableTimestamp(reg TimestampRegister, src TimestampSource) error {
	shift, mask, code, err := timestampMode(reg, src)
	if err != nil {
		return err
	}
	if err := d.updateReg(regTSRMode, mask<<shift, code<<shift); err != nil {
		return &TransactionError{Step: StepModify, Err: err}
	}
	return nil
}

// ReadTimestamp returns the capture held in the given register as one
// contiguous six-byte read. The capture has no weekday or hundredths.
func (d *Device) ReadTimestamp(reg TimestampRegister) (DateTime, error) {
	base, err := timestampBase(reg)
	if err != nil {
		return DateTime{}, err
	}
	var buf [6]byte
	if err := d.readRegs(base, buf[:]); err != nil {
		return DateTime{}, &TransactionError{Step: StepRead, Err: err}
	}
	return decodeTimestamp(buf, d.twelveHour)
}

// ClearTimestamps resets all three capture registers.
func (d *Device) ClearTimestamps() error {
	return d.writeReg(regResets, cmdClearTimestamps)
}

func timestampBase(reg TimestampRegister) (uint8, error) {
	switch reg {
	case Timestamp1:
		return regTimestamp1, nil
	case Timestamp2:
		return regTimestamp2, nil
	case Timestamp3:
		return regTimestamp3, nil
	}
	return 0, ErrBadTimestampSource
}

// ---------------- Battery switch-over ----------------

// ConfigureBatterySwitchOver sets the battery switch-over mode and threshold.
// Reserved bits are written as zero.
func (d *Device) ConfigureBatterySwitchOver(cfg BatterySwitchConfig) error {
	v, err := encodeBatterySwitch(cfg)
	if err != nil {
		return err
	}
	return d.writeReg(regBatterySwitch, v)
}

// BatterySwitchOver returns the current battery switch-over configuration.
func (d *Device) BatterySwitchOver() (BatterySwitchConfig, error) {
	v, err := d.readReg(regBatterySwitch)
	if err != nil {
		return BatterySwitchConfig{}, err
	}
	return decodeBatterySwitch(v), nil
}

// ---------------- Flags and interrupts ----------------

// ReadFlags returns the event flag register (alarms, watchdog, battery
// switch, timestamps).
func (d *Device) ReadFlags() (Flags, error) {
	v, err := d.readReg(regFlags)
	return Flags(v), err
}

// ClearFlags clears the given flags and leaves the others set.
func (d *Device) ClearFlags(mask Flags) error {
	return d.updateReg(regFlags, uint8(mask), 0)
}

// EnableInterruptsA routes the given events to the INTA pin. The pin itself
// must be switched to interrupt output via the pin IO register.
func (d *Device) EnableInterruptsA(e IntEnable) error {
	return d.writeReg(regINTAEnable, uint8(e))
}

// EnableInterruptsB routes the given events to the INTB/TS pin.
func (d *Device) EnableInterruptsB(e IntEnable) error {
	return d.writeReg(regINTBEnable, uint8(e))
}

// ---------------- Control registers ----------------

func (d *Device) ReadOscillator() (Oscillator, error) {
	v, err := d.readReg(regOscillator)
	return Oscillator(v), err
}

// WriteOscillator writes the oscillator control register. The driver tracks
// the 12/24-hour bit so later time codecs agree with the chip.
func (d *Device) WriteOscillator(o Oscillator) error {
	if err := d.writeReg(regOscillator, uint8(o)); err != nil {
		return err
	}
	d.twelveHour = o.TwelveHour()
	return nil
}

func (d *Device) ReadFunction() (Function, error) {
	v, err := d.readReg(regFunction)
	return Function(v), err
}

func (d *Device) WriteFunction(f Function) error {
	return d.writeReg(regFunction, uint8(f))
}

func (d *Device) ReadPinIO() (PinIO, error) {
	v, err := d.readReg(regPinIO)
	return PinIO(v), err
}

func (d *Device) WritePinIO(p PinIO) error {
	return d.writeReg(regPinIO, uint8(p))
}

// SetOffset writes the aging/temperature offset correction in steps. Use
// OffsetValueForPPB to derive the step value, and the oscillator register's
// offset mode to pick the correction cadence.
func (d *Device) SetOffset(steps int8) error {
	return d.writeReg(regOffset, uint8(steps))
}

func (d *Device) Offset() (int8, error) {
	v, err := d.readReg(regOffset)
	return int8(v), err
}

// RAMByte reads the chip's single byte of battery-backed scratch RAM.
func (d *Device) RAMByte() (uint8, error) {
	return d.readReg(regRAMByte)
}

func (d *Device) SetRAMByte(v uint8) error {
	return d.writeReg(regRAMByte, v)
}

// Stop suspends the clock. Prefer the Set* operations, which pair stop and
// resume; this exists for test rigs and host-controlled bring-up.
func (d *Device) Stop() error {
	return d.writeReg(regStopEnable, stopBit)
}

// Start resumes a stopped clock.
func (d *Device) Start() error {
	return d.writeReg(regStopEnable, 0)
}

// Reset performs a software reset. All configuration is lost.
func (d *Device) Reset() error {
	return d.writeReg(regResets, cmdSoftwareReset)
}

// ---------------- Sequencing ----------------

// withClockStopped runs fn with the clock suspended. The resume write is
// issued on every exit path: a failed set must not leave the clock stopped.
func (d *Device) withClockStopped(clearPrescaler bool, fn func() error) error {
	if err := d.writeReg(regStopEnable, stopBit); err != nil {
		return &TransactionError{Step: StepStop, Err: err}
	}
	step := StepWrite
	var err error
	if clearPrescaler {
		if err = d.writeReg(regResets, cmdClearPrescaler); err != nil {
			step = StepPrescaler
		}
	}
	if err == nil {
		err = fn()
	}
	resumeErr := d.writeReg(regStopEnable, 0)
	if err != nil {
		return &TransactionError{Step: step, Err: err, ClockStopped: resumeErr != nil}
	}
	if resumeErr != nil {
		return &TransactionError{Step: StepResume, Err: resumeErr, ClockStopped: true}
	}
	return nil
}

// ---------------- Low-level register access ----------------

func (d *Device) readRegs(reg uint8, buf []byte) error {
	d.w[0] = reg
	return d.bus.Tx(d.Address, d.w[:1], buf)
}

func (d *Device) readReg(reg uint8) (uint8, error) {
	var b [1]byte
	err := d.readRegs(reg, b[:])
	return b[0], err
}

func (d *Device) writeRegs(reg uint8, data []byte) error {
	d.w[0] = reg
	n := copy(d.w[1:], data)
	return d.bus.Tx(d.Address, d.w[:1+n], nil)
}

func (d *Device) writeReg(reg, val uint8) error {
	d.w[0], d.w[1] = reg, val
	return d.bus.Tx(d.Address, d.w[:2], nil)
}

// updateReg clears the bits in mask and sets the bits in val, leaving the
// rest of the register untouched.
func (d *Device) updateReg(reg, mask, val uint8) error {
	cur, err := d.readReg(reg)
	if err != nil {
		return err
	}
	return d.writeReg(reg, cur&^mask|val)
}
