package pcf85263a

import "errors"

// Encoding errors. These are detected before any bus traffic happens, so a
// failed encode never leaves the chip half-written.
var (
	// ErrOutOfRange means a field value exceeds its register bound.
	ErrOutOfRange = errors.New("pcf85263a: value out of range")
	// ErrInvalidDate means the day does not exist in the given month/year.
	ErrInvalidDate = errors.New("pcf85263a: invalid date")
	// ErrBadBCD means a register read back a nibble that is not a decimal
	// digit. This usually indicates a bus fault or an uninitialized chip.
	ErrBadBCD = errors.New("pcf85263a: malformed BCD value")
	// ErrBadTimestampSource means the requested trigger is not available on
	// the selected timestamp register.
	ErrBadTimestampSource = errors.New("pcf85263a: source not available on this timestamp register")
)

// Step names for TransactionError.
const (
	StepStop      = "stop clock"
	StepPrescaler = "clear prescaler"
	StepWrite     = "write"
	StepResume    = "resume clock"
	StepRead      = "read"
	StepModify    = "read-modify-write"
)

// TransactionError reports a multi-step bus sequence that aborted partway
// through. Err is the transport error exactly as the bus returned it; no
// retry is attempted. ClockStopped is true when the sequence had suspended
// the clock and the best-effort resume write failed too, meaning the chip
// may have been left with a stopped clock.
type TransactionError struct {
	Step         string
	Err          error
	ClockStopped bool
}

func (e *TransactionError) Error() string {
	return "pcf85263a: " + e.Step + " failed: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error { return e.Err }
