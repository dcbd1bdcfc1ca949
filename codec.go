package pcf85263a

import "time"

// Time is a time of day as stored by the chip. Hours are always 0-23 here;
// the 12-hour representation is handled at encode/decode time when the chip
// is configured for it. Hundredths only advance when the hundredths counter
// is enabled.
type Time struct {
	Hours      uint8
	Minutes    uint8
	Seconds    uint8
	Hundredths uint8
}

// Date is a calendar date. The chip stores a two-digit year; this driver
// anchors it to the 2000-2099 window, matching the chip's leap-year rule
// (every fourth year, no century exception).
type Date struct {
	Year    uint16 // 2000-2099
	Month   uint8  // 1-12
	Day     uint8
	Weekday uint8 // 0-6, chip does not assign meaning to the values
}

// DateTime combines Date and Time, mirroring the contiguous 0x00..0x07
// register block.
type DateTime struct {
	Time
	Date
}

// FromTime converts a time.Time to a DateTime, rounding to hundredths.
func FromTime(t time.Time) DateTime {
	return DateTime{
		Time: Time{
			Hours:      uint8(t.Hour()),
			Minutes:    uint8(t.Minute()),
			Seconds:    uint8(t.Second()),
			Hundredths: uint8(t.Nanosecond() / 1e7),
		},
		Date: Date{
			Year:    uint16(t.Year()),
			Month:   uint8(t.Month()),
			Day:     uint8(t.Day()),
			Weekday: uint8(t.Weekday()),
		},
	}
}

// AsTime converts a DateTime to a time.Time in UTC.
func (dt DateTime) AsTime() time.Time {
	return time.Date(int(dt.Year), time.Month(dt.Month), int(dt.Day),
		int(dt.Hours), int(dt.Minutes), int(dt.Seconds), int(dt.Hundredths)*1e7, time.UTC)
}

// decToBcd converts a decimal value 0-99 to BCD.
func decToBcd(dec uint8) uint8 {
	return dec + 6*(dec/10)
}

// bcdToDec converts BCD to a decimal value.
func bcdToDec(bcd uint8) uint8 {
	return bcd - 6*(bcd>>4)
}

// bcdValid reports whether both nibbles are decimal digits.
func bcdValid(bcd uint8) bool {
	return bcd&0x0F <= 9 && bcd>>4 <= 9
}

func encodeTime(t Time, twelveHour bool) ([4]byte, error) {
	if t.Hours > 23 || t.Minutes > 59 || t.Seconds > 59 || t.Hundredths > 99 {
		return [4]byte{}, ErrOutOfRange
	}
	return [4]byte{
		decToBcd(t.Hundredths),
		decToBcd(t.Seconds),
		decToBcd(t.Minutes),
		encodeHours(t.Hours, twelveHour),
	}, nil
}

func decodeTime(buf [4]byte, twelveHour bool) (Time, error) {
	var t Time
	hours, err := decodeHours(buf[3], twelveHour)
	if err != nil {
		return Time{}, err
	}
	t.Hours = hours
	for _, f := range [3]struct {
		raw   uint8
		max   uint8
		field *uint8
	}{
		{buf[0], 99, &t.Hundredths},
		{buf[1] & maskSeconds, 59, &t.Seconds},
		{buf[2] & maskMinutes, 59, &t.Minutes},
	} {
		if !bcdValid(f.raw) {
			return Time{}, ErrBadBCD
		}
		v := bcdToDec(f.raw)
		if v > f.max {
			return Time{}, ErrBadBCD
		}
		*f.field = v
	}
	return t, nil
}

// encodeHours produces the hours register byte. In 12-hour mode the value is
// 1-12 BCD with the AM flag in bit 5 (set for AM, matching the chip's
// representation of 12:xx AM as BCD 12 with the flag set).
func encodeHours(hours uint8, twelveHour bool) uint8 {
	if !twelveHour {
		return decToBcd(hours)
	}
	switch {
	case hours == 0:
		return decToBcd(12) | hourAMFlag
	case hours < 12:
		return decToBcd(hours) | hourAMFlag
	case hours == 12:
		return decToBcd(12)
	default:
		return decToBcd(hours - 12)
	}
}

func decodeHours(raw uint8, twelveHour bool) (uint8, error) {
	if !twelveHour {
		raw &= maskHours24
		if !bcdValid(raw) {
			return 0, ErrBadBCD
		}
		h := bcdToDec(raw)
		if h > 23 {
			return 0, ErrBadBCD
		}
		return h, nil
	}
	am := raw&hourAMFlag != 0
	raw &= maskHours12
	if !bcdValid(raw) {
		return 0, ErrBadBCD
	}
	h := bcdToDec(raw)
	if h < 1 || h > 12 {
		return 0, ErrBadBCD
	}
	if am {
		if h == 12 {
			h = 0
		}
	} else if h != 12 {
		h += 12
	}
	return h, nil
}

// monthDays holds the length of each month in a non-leap year; index 0 unused.
var monthDays = [13]uint8{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// daysIn returns the length of a month using the chip's leap-year rule:
// every year divisible by 4 is a leap year, with no century exception.
func daysIn(month uint8, year uint16) uint8 {
	if month == 2 && year%4 == 0 {
		return 29
	}
	return monthDays[month]
}

func validateDate(d Date) error {
	if d.Year < 2000 || d.Year > 2099 || d.Month < 1 || d.Month > 12 || d.Weekday > 6 || d.Day < 1 || d.Day > 31 {
		return ErrOutOfRange
	}
	if d.Day > daysIn(d.Month, d.Year) {
		return ErrInvalidDate
	}
	return nil
}

func encodeDate(d Date) ([4]byte, error) {
	if err := validateDate(d); err != nil {
		return [4]byte{}, err
	}
	return [4]byte{
		decToBcd(d.Day),
		decToBcd(d.Weekday),
		decToBcd(d.Month),
		decToBcd(uint8(d.Year - 2000)),
	}, nil
}

func decodeDate(buf [4]byte) (Date, error) {
	var d Date
	for _, f := range [4]struct {
		raw      uint8
		min, max uint8
		field    *uint8
	}{
		{buf[0] & maskDays, 1, 31, &d.Day},
		{buf[1] & maskWeekdays, 0, 6, &d.Weekday},
		{buf[2] & maskMonths, 1, 12, &d.Month},
		{buf[3], 0, 99, nil},
	} {
		if !bcdValid(f.raw) {
			return Date{}, ErrBadBCD
		}
		v := bcdToDec(f.raw)
		if v < f.min || v > f.max {
			return Date{}, ErrBadBCD
		}
		if f.field != nil {
			*f.field = v
		}
	}
	d.Year = 2000 + uint16(bcdToDec(buf[3]))
	return d, nil
}

func encodeDateTime(dt DateTime, twelveHour bool) ([8]byte, error) {
	t, err := encodeTime(dt.Time, twelveHour)
	if err != nil {
		return [8]byte{}, err
	}
	d, err := encodeDate(dt.Date)
	if err != nil {
		return [8]byte{}, err
	}
	var buf [8]byte
	copy(buf[:4], t[:])
	copy(buf[4:], d[:])
	return buf, nil
}

func decodeDateTime(buf [8]byte, twelveHour bool) (DateTime, error) {
	t, err := decodeTime([4]byte(buf[:4]), twelveHour)
	if err != nil {
		return DateTime{}, err
	}
	d, err := decodeDate([4]byte(buf[4:]))
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{Time: t, Date: d}, nil
}

// AlarmField is one optional alarm match value. A disabled field is
// "don't care": the chip ignores it when matching, and its stored value is
// meaningless.
type AlarmField struct {
	Enabled bool
	Value   uint8
}

// At is a convenience constructor for an enabled field.
func At(value uint8) AlarmField {
	return AlarmField{Enabled: true, Value: value}
}

// Alarm1 matches on any combination of second, minute, hour, day-of-month
// and month. With every field disabled the alarm never fires.
type Alarm1 struct {
	Second AlarmField
	Minute AlarmField
	Hour   AlarmField
	Day    AlarmField
	Month  AlarmField
}

// Alarm2 matches on any combination of minute, hour and weekday.
type Alarm2 struct {
	Minute  AlarmField
	Hour    AlarmField
	Weekday AlarmField
}

// alarmValue encodes one alarm register byte. Disabled fields are written as
// zero so reserved patterns never reach the chip.
func alarmValue(f AlarmField, min, max uint8) (uint8, error) {
	if !f.Enabled {
		return 0, nil
	}
	if f.Value < min || f.Value > max {
		return 0, ErrOutOfRange
	}
	return decToBcd(f.Value), nil
}

func encodeAlarm1(a Alarm1, twelveHour bool) (buf [5]byte, enables uint8, err error) {
	fields := [5]struct {
		f        AlarmField
		min, max uint8
		bit      uint8
	}{
		{a.Second, 0, 59, enSecondAlarm1},
		{a.Minute, 0, 59, enMinuteAlarm1},
		{a.Hour, 0, 23, enHourAlarm1},
		{a.Day, 1, 31, enDayAlarm1},
		{a.Month, 1, 12, enMonthAlarm1},
	}
	for i, f := range fields {
		b, err := alarmValue(f.f, f.min, f.max)
		if err != nil {
			return [5]byte{}, 0, err
		}
		buf[i] = b
		if f.f.Enabled {
			enables |= f.bit
		}
	}
	if a.Hour.Enabled && twelveHour {
		buf[2] = encodeHours(a.Hour.Value, true)
	}
	return buf, enables, nil
}

func decodeAlarm1(buf [5]byte, enables uint8, twelveHour bool) (Alarm1, error) {
	var a Alarm1
	var err error
	if enables&enSecondAlarm1 != 0 {
		a.Second, err = decodeAlarmField(buf[0]&maskSeconds, 59)
	}
	if err == nil && enables&enMinuteAlarm1 != 0 {
		a.Minute, err = decodeAlarmField(buf[1]&maskMinutes, 59)
	}
	if err == nil && enables&enHourAlarm1 != 0 {
		var h uint8
		h, err = decodeHours(buf[2], twelveHour)
		a.Hour = AlarmField{Enabled: true, Value: h}
	}
	if err == nil && enables&enDayAlarm1 != 0 {
		a.Day, err = decodeAlarmField(buf[3]&maskDays, 31)
	}
	if err == nil && enables&enMonthAlarm1 != 0 {
		a.Month, err = decodeAlarmField(buf[4]&maskMonths, 12)
	}
	if err != nil {
		return Alarm1{}, err
	}
	return a, nil
}

func encodeAlarm2(a Alarm2, twelveHour bool) (buf [3]byte, enables uint8, err error) {
	fields := [3]struct {
		f        AlarmField
		min, max uint8
		bit      uint8
	}{
		{a.Minute, 0, 59, enMinuteAlarm2},
		{a.Hour, 0, 23, enHourAlarm2},
		{a.Weekday, 0, 6, enWeekdayAlarm2},
	}
	for i, f := range fields {
		b, err := alarmValue(f.f, f.min, f.max)
		if err != nil {
			return [3]byte{}, 0, err
		}
		buf[i] = b
		if f.f.Enabled {
			enables |= f.bit
		}
	}
	if a.Hour.Enabled && twelveHour {
		buf[1] = encodeHours(a.Hour.Value, true)
	}
	return buf, enables, nil
}

func decodeAlarm2(buf [3]byte, enables uint8, twelveHour bool) (Alarm2, error) {
	var a Alarm2
	var err error
	if enables&enMinuteAlarm2 != 0 {
		a.Minute, err = decodeAlarmField(buf[0]&maskMinutes, 59)
	}
	if err == nil && enables&enHourAlarm2 != 0 {
		var h uint8
		h, err = decodeHours(buf[1], twelveHour)
		a.Hour = AlarmField{Enabled: true, Value: h}
	}
	if err == nil && enables&enWeekdayAlarm2 != 0 {
		a.Weekday, err = decodeAlarmField(buf[2]&maskWeekdays, 6)
	}
	if err != nil {
		return Alarm2{}, err
	}
	return a, nil
}

func decodeAlarmField(raw, max uint8) (AlarmField, error) {
	if !bcdValid(raw) {
		return AlarmField{}, ErrBadBCD
	}
	v := bcdToDec(raw)
	if v > max {
		return AlarmField{}, ErrBadBCD
	}
	return AlarmField{Enabled: true, Value: v}, nil
}

// decodeTimestamp decodes a six-byte capture block (seconds..years). The
// capture registers have no weekday or hundredths, so those stay zero.
func decodeTimestamp(buf [6]byte, twelveHour bool) (DateTime, error) {
	var full [8]byte
	copy(full[1:5], buf[:4]) // 100th stays zero; sec, min, hr, day
	full[5] = 0              // no weekday in the capture block
	full[6] = buf[4]
	full[7] = buf[5]
	return decodeDateTime(full, twelveHour)
}

// TimestampRegister identifies one of the three capture register sets.
type TimestampRegister uint8

const (
	Timestamp1 TimestampRegister = iota
	Timestamp2
	Timestamp3
)

// TimestampSource selects which event a capture register records. Not every
// source is available on every register: Timestamp1 records TS pin events
// only, Timestamp3 battery switch events only, Timestamp2 either.
type TimestampSource uint8

const (
	// TimestampOff disables the capture register.
	TimestampOff TimestampSource = iota
	// TimestampFirstEvent records the first TS pin event since clearing.
	TimestampFirstEvent
	// TimestampLastEvent records the most recent TS pin event.
	TimestampLastEvent
	// TimestampFirstBattery records the first switch to battery supply.
	TimestampFirstBattery
	// TimestampLastBattery records the most recent switch to battery supply.
	TimestampLastBattery
	// TimestampBatteryRestore records the most recent switch back from
	// battery to VDD supply.
	TimestampBatteryRestore
)

// timestampMode maps a register/source pair onto the TSR_mode register
// field. Returns the field's shift and mask plus the mode code.
func timestampMode(reg TimestampRegister, src TimestampSource) (shift, mask, code uint8, err error) {
	switch reg {
	case Timestamp1:
		shift, mask = tsr1ModeShift, tsr1ModeMask
		switch src {
		case TimestampOff:
			code = 0
		case TimestampFirstEvent:
			code = 1
		case TimestampLastEvent:
			code = 2
		default:
			err = ErrBadTimestampSource
		}
	case Timestamp2:
		shift, mask = tsr2ModeShift, tsr2ModeMask
		switch src {
		case TimestampOff:
			code = 0
		case TimestampFirstBattery:
			code = 1
		case TimestampLastBattery:
			code = 2
		case TimestampBatteryRestore:
			code = 3
		case TimestampFirstEvent:
			code = 4
		case TimestampLastEvent:
			code = 5
		default:
			err = ErrBadTimestampSource
		}
	case Timestamp3:
		shift, mask = tsr3ModeShift, tsr3ModeMask
		switch src {
		case TimestampOff:
			code = 0
		case TimestampFirstBattery:
			code = 1
		case TimestampLastBattery:
			code = 2
		case TimestampBatteryRestore:
			code = 3
		default:
			err = ErrBadTimestampSource
		}
	default:
		err = ErrBadTimestampSource
	}
	return shift, mask, code, err
}

// SwitchOverMode selects when the chip switches to the battery supply.
type SwitchOverMode uint8

const (
	// SwitchAtThreshold is the standard mode: switch when VDD drops below
	// the selected threshold voltage.
	SwitchAtThreshold SwitchOverMode = iota
	// SwitchAtVbat switches directly when VDD drops below VBAT.
	SwitchAtVbat
	// SwitchAtHigher switches at the higher of threshold and VBAT.
	SwitchAtHigher
	// SwitchAtLower switches at the lower of threshold and VBAT.
	SwitchAtLower
)

// SwitchThreshold selects the threshold voltage for SwitchAtThreshold
// (and the mixed modes).
type SwitchThreshold uint8

const (
	Threshold1V5 SwitchThreshold = iota
	Threshold2V8
)

// BatterySwitchConfig configures battery switch-over behavior. The zero
// value is the chip's power-on default: standard switching at 1.5 V.
type BatterySwitchConfig struct {
	Mode      SwitchOverMode
	Threshold SwitchThreshold
	// Disabled turns battery switch-over off entirely.
	Disabled bool
	// LowRefreshRate reduces how often the switch comparator samples,
	// saving power at the cost of response time.
	LowRefreshRate bool
}

func encodeBatterySwitch(cfg BatterySwitchConfig) (uint8, error) {
	if cfg.Mode > SwitchAtLower || cfg.Threshold > Threshold2V8 {
		return 0, ErrOutOfRange
	}
	v := uint8(cfg.Mode) << bswModeShift
	if cfg.Threshold == Threshold2V8 {
		v |= bswThreshold
	}
	if cfg.Disabled {
		v |= bswOff
	}
	if cfg.LowRefreshRate {
		v |= bswLowRate
	}
	return v, nil
}

func decodeBatterySwitch(v uint8) BatterySwitchConfig {
	return BatterySwitchConfig{
		Mode:           SwitchOverMode(v >> bswModeShift & bswModeMask),
		Threshold:      SwitchThreshold(v & bswThreshold),
		Disabled:       v&bswOff != 0,
		LowRefreshRate: v&bswLowRate != 0,
	}
}

// OffsetMode selects how often the chip applies aging/temperature offset
// correction pulses.
type OffsetMode uint8

const (
	// OffsetModeNormal corrects every 4 hours, 2.170 ppm per step.
	OffsetModeNormal OffsetMode = iota
	// OffsetModeFast corrects every 8 minutes, 2.0345 ppm per step.
	OffsetModeFast
)

// OffsetValueForPPB returns the offset register value closest to the wanted
// clock correction in parts per billion, for the given correction mode.
func OffsetValueForPPB(offsetPPB int32, mode OffsetMode) int8 {
	step := int64(21700) // tenths of ppb per step
	if mode == OffsetModeFast {
		step = 20345
	}
	var half int64
	switch {
	case offsetPPB > 0:
		half = step / 2
	case offsetPPB < 0:
		half = -step / 2
	}
	v := (int64(offsetPPB)*10 + half) / step
	if v > 127 {
		v = 127
	}
	if v < -128 {
		v = -128
	}
	return int8(v)
}
