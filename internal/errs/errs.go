package errs

import "errors"

// Booking-path errors. Services wrap these with fmt.Errorf("...: %w", ...)
// and callers branch with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientCapacity   = errors.New("not enough tickets available")
	ErrPerOrderLimitExceeded  = errors.New("ticket quantity exceeds per-order limit")
	ErrInvalidTransition      = errors.New("invalid ticket state transition")
	ErrAlreadyCancelled       = errors.New("ticket is already cancelled")
	ErrCannotCancelUsedTicket = errors.New("cannot cancel a used ticket")
	ErrPaymentAmountMismatch  = errors.New("payment amount mismatch")

	// ErrConcurrencyConflict means the caller lost a race for the same
	// ticket type. It is safe to retry.
	ErrConcurrencyConflict = errors.New("concurrent reservation conflict")
)
