package pcf85263a

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	"tinygo.org/x/drivers"
)

// txCallEquals compares txCall values despite their unexported fields.
var txCallEquals = qt.CmpEquals(cmp.AllowUnexported(txCall{}))

// Compile-time check.
var _ drivers.I2C = (*fakeI2C)(nil)

type txCall struct {
	reg   uint8
	wrote []byte
	read  int
}

// fakeI2C is a register-file-backed bus. Every Tx is logged so tests can
// assert on the exact transaction sequence, and individual calls can be made
// to fail.
type fakeI2C struct {
	mem    [0x30]byte
	addr   uint16
	calls  []txCall
	failOn map[int]error // 1-based Tx index -> injected error
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	call := txCall{read: len(r)}
	if len(w) > 0 {
		call.reg = w[0]
		call.wrote = append([]byte(nil), w[1:]...)
	}
	f.calls = append(f.calls, call)
	if err := f.failOn[len(f.calls)]; err != nil {
		return err
	}
	reg := int(call.reg)
	for i, b := range call.wrote {
		f.mem[(reg+i)%len(f.mem)] = b
	}
	for i := range r {
		r[i] = f.mem[(reg+i)%len(f.mem)]
	}
	return nil
}

func newDevice() (*Device, *fakeI2C) {
	bus := &fakeI2C{}
	return New(bus), bus
}

func TestReadDateTimeIsOneTransaction(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	bus.mem = [0x30]byte{0x25, 0x59, 0x58, 0x13, 0x29, 0x04, 0x02, 0x24}
	dt, err := d.ReadDateTime()
	c.Assert(err, qt.IsNil)
	c.Assert(dt, qt.Equals, DateTime{
		Time: Time{Hours: 13, Minutes: 58, Seconds: 59, Hundredths: 25},
		Date: Date{Year: 2024, Month: 2, Day: 29, Weekday: 4},
	})

	// A combined fetch must never be split: the chip only guarantees a
	// consistent snapshot within one contiguous read.
	c.Assert(bus.calls, qt.HasLen, 1)
	c.Assert(bus.calls[0].reg, qt.Equals, uint8(regSeconds100th))
	c.Assert(bus.calls[0].read, qt.Equals, 8)
	c.Assert(bus.addr, qt.Equals, uint16(Address))
}

func TestReadTimeIsOneTransaction(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	bus.mem[regSeconds] = 0x59
	bus.mem[regMinutes] = 0x59
	bus.mem[regHours] = 0x23
	tod, err := d.ReadTime()
	c.Assert(err, qt.IsNil)
	c.Assert(tod, qt.Equals, Time{Hours: 23, Minutes: 59, Seconds: 59})
	c.Assert(bus.calls, qt.HasLen, 1)
	c.Assert(bus.calls[0].read, qt.Equals, 4)
}

func TestSetDateTimeSequence(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	err := d.SetDateTime(DateTime{
		Time: Time{Hours: 15, Minutes: 4, Seconds: 5},
		Date: Date{Year: 2006, Month: 1, Day: 2, Weekday: 1},
	})
	c.Assert(err, qt.IsNil)

	// stop, clear prescaler, one contiguous write, resume.
	c.Assert(bus.calls, qt.HasLen, 4)
	c.Assert(bus.calls[0], txCallEquals, txCall{reg: regStopEnable, wrote: []byte{stopBit}})
	c.Assert(bus.calls[1], txCallEquals, txCall{reg: regResets, wrote: []byte{cmdClearPrescaler}})
	c.Assert(bus.calls[2].reg, qt.Equals, uint8(regSeconds100th))
	c.Assert(bus.calls[2].wrote, qt.DeepEquals, []byte{0x00, 0x05, 0x04, 0x15, 0x02, 0x01, 0x01, 0x06})
	c.Assert(bus.calls[3], txCallEquals, txCall{reg: regStopEnable, wrote: []byte{0}})
}

func TestSetDateSkipsPrescalerClear(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	err := d.SetDate(Date{Year: 2024, Month: 2, Day: 29, Weekday: 4})
	c.Assert(err, qt.IsNil)
	c.Assert(bus.calls, qt.HasLen, 3)
	c.Assert(bus.calls[0].reg, qt.Equals, uint8(regStopEnable))
	c.Assert(bus.calls[1].reg, qt.Equals, uint8(regDays))
	c.Assert(bus.calls[2], txCallEquals, txCall{reg: regStopEnable, wrote: []byte{0}})
}

func TestSetTimeResumesAfterWriteFailure(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	// Fail the data write (third transaction). The clock was stopped by
	// then, so the driver must still try to restart it.
	boom := errors.New("nak")
	bus.failOn = map[int]error{3: boom}

	err := d.SetDateTime(DateTime{
		Time: Time{Hours: 1},
		Date: Date{Year: 2024, Month: 1, Day: 1},
	})
	var terr *TransactionError
	c.Assert(errors.As(err, &terr), qt.IsTrue)
	c.Assert(terr.Step, qt.Equals, StepWrite)
	c.Assert(terr.ClockStopped, qt.IsFalse)
	c.Assert(errors.Is(err, boom), qt.IsTrue)

	last := bus.calls[len(bus.calls)-1]
	c.Assert(last, txCallEquals, txCall{reg: regStopEnable, wrote: []byte{0}})
}

func TestSetTimeReportsStoppedClock(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	boom := errors.New("bus gone")
	bus.failOn = map[int]error{3: boom, 4: boom}

	err := d.SetTime(Time{Hours: 1})
	var terr *TransactionError
	c.Assert(errors.As(err, &terr), qt.IsTrue)
	c.Assert(terr.Step, qt.Equals, StepWrite)
	// Both the write and the resume attempt failed: the clock may well be
	// left stopped and the caller needs to know.
	c.Assert(terr.ClockStopped, qt.IsTrue)
}

func TestSetTimeValidatesBeforeAnyTraffic(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	err := d.SetTime(Time{Hours: 24})
	c.Assert(err, qt.ErrorIs, ErrOutOfRange)
	c.Assert(bus.calls, qt.HasLen, 0)

	err = d.SetDate(Date{Year: 2023, Month: 2, Day: 29})
	c.Assert(err, qt.ErrorIs, ErrInvalidDate)
	c.Assert(bus.calls, qt.HasLen, 0)
}

func TestOscillatorStopLifecycle(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	// Chip lost power at some point: the flag rides on the seconds register.
	bus.mem[regSeconds] = 0x00 | osFlag

	stopped, err := d.OscillatorStopped()
	c.Assert(err, qt.IsNil)
	c.Assert(stopped, qt.IsTrue)

	newTime := Time{Hours: 10, Minutes: 4, Seconds: 5}
	err = d.SetTimeAndClearOscillatorStop(newTime)
	c.Assert(err, qt.IsNil)

	stopped, err = d.OscillatorStopped()
	c.Assert(err, qt.IsNil)
	c.Assert(stopped, qt.IsFalse)

	got, err := d.ReadTime()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, newTime)
}

func TestConfigureAlarm1EnableBits(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	// Alarm 2 bits already set in the shared enables register; they must
	// survive an alarm 1 configuration untouched.
	bus.mem[regAlarmEnables] = enMinuteAlarm2 | enWeekdayAlarm2

	err := d.ConfigureAlarm1(Alarm1{Minute: At(30)})
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regAlarmEnables], qt.Equals, uint8(enMinuteAlarm2|enWeekdayAlarm2|enMinuteAlarm1))
	c.Assert(bus.mem[regMinuteAlarm1], qt.Equals, uint8(0x30))

	got, err := d.ReadAlarm1()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, Alarm1{Minute: At(30)})
}

func TestConfigureAlarm2EnableBits(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	bus.mem[regAlarmEnables] = alarm1EnableMask

	a := Alarm2{Hour: At(7), Weekday: At(3)}
	err := d.ConfigureAlarm2(a)
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regAlarmEnables], qt.Equals, uint8(alarm1EnableMask|enHourAlarm2|enWeekdayAlarm2))

	got, err := d.ReadAlarm2()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, a)

	// Disarming clears only this alarm's bits.
	err = d.ConfigureAlarm2(Alarm2{})
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regAlarmEnables], qt.Equals, uint8(alarm1EnableMask))
}

func TestReadAlarmIsOneTransaction(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	_, err := d.ReadAlarm1()
	c.Assert(err, qt.IsNil)
	c.Assert(bus.calls, qt.HasLen, 1)
	c.Assert(bus.calls[0].reg, qt.Equals, uint8(regSecondAlarm1))
	c.Assert(bus.calls[0].read, qt.Equals, 9)
}

func TestEnableTimestamp(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	// Timestamp 1 and 3 already armed; arming 2 must not disturb them.
	bus.mem[regTSRMode] = 0x41

	err := d.EnableTimestamp(Timestamp2, TimestampLastBattery)
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regTSRMode], qt.Equals, uint8(0x41|2<<tsr2ModeShift))

	err = d.EnableTimestamp(Timestamp2, TimestampOff)
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regTSRMode], qt.Equals, uint8(0x41))

	err = d.EnableTimestamp(Timestamp1, TimestampFirstBattery)
	c.Assert(err, qt.ErrorIs, ErrBadTimestampSource)
}

func TestReadTimestamp(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	copy(bus.mem[regTimestamp2:], []byte{0x07, 0x30, 0x23, 0x29, 0x02, 0x24})
	bus.calls = nil

	dt, err := d.ReadTimestamp(Timestamp2)
	c.Assert(err, qt.IsNil)
	c.Assert(dt, qt.Equals, DateTime{
		Time: Time{Hours: 23, Minutes: 30, Seconds: 7},
		Date: Date{Year: 2024, Month: 2, Day: 29},
	})
	c.Assert(bus.calls, qt.HasLen, 1)
	c.Assert(bus.calls[0].reg, qt.Equals, uint8(regTimestamp2))
	c.Assert(bus.calls[0].read, qt.Equals, 6)
}

func TestClearTimestamps(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	err := d.ClearTimestamps()
	c.Assert(err, qt.IsNil)
	c.Assert(bus.calls[0], txCallEquals, txCall{reg: regResets, wrote: []byte{cmdClearTimestamps}})
}

func TestBatterySwitchOver(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	cfg := BatterySwitchConfig{Mode: SwitchAtLower, Threshold: Threshold2V8}
	err := d.ConfigureBatterySwitchOver(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regBatterySwitch]&bswReservedMask, qt.Equals, uint8(0))

	got, err := d.BatterySwitchOver()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, cfg)
}

func TestClearFlags(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	bus.mem[regFlags] = 0xFF
	err := d.ClearFlags(FlagAlarm1 | FlagTimestamp1)
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regFlags], qt.Equals, uint8(0xFF&^(uint8(FlagAlarm1)|uint8(FlagTimestamp1))))

	flags, err := d.ReadFlags()
	c.Assert(err, qt.IsNil)
	c.Assert(flags.Has(FlagAlarm1), qt.IsFalse)
	c.Assert(flags.Has(FlagAlarm2), qt.IsTrue)
}

func TestConfigure(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	err := d.Configure(Config{
		TwelveHour:      true,
		Hundredths:      true,
		LoadCapacitance: Load12p5pF,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regOscillator], qt.Equals, uint8(osc12Hour|uint8(Load12p5pF)))
	c.Assert(bus.mem[regFunction], qt.Equals, uint8(fnHundredths))

	// The codec now uses the 12-hour register representation.
	err = d.SetTime(Time{Hours: 13})
	c.Assert(err, qt.IsNil)
	c.Assert(bus.mem[regHours], qt.Equals, uint8(0x01))

	got, err := d.ReadTime()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Hours, qt.Equals, uint8(13))
}

func TestTransportErrorPassesThrough(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	boom := errors.New("arbitration lost")
	bus.failOn = map[int]error{1: boom}

	_, err := d.ReadDateTime()
	c.Assert(errors.Is(err, boom), qt.IsTrue)
	var terr *TransactionError
	c.Assert(errors.As(err, &terr), qt.IsTrue)
	c.Assert(terr.Step, qt.Equals, StepRead)

	// Single-register reads forward the transport error unchanged.
	bus.failOn = map[int]error{2: boom}
	_, err = d.OscillatorStopped()
	c.Assert(err, qt.Equals, boom)
}

func TestRAMByte(t *testing.T) {
	c := qt.New(t)
	d, bus := newDevice()

	c.Assert(d.SetRAMByte(0x5A), qt.IsNil)
	c.Assert(bus.mem[regRAMByte], qt.Equals, uint8(0x5A))
	v, err := d.RAMByte()
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint8(0x5A))
}
