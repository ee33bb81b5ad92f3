package payroll

import (
	"errors"
	"fmt"
)

var (
	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrTeacherNotFound is returned when a referenced teacher doesn't exist.
	ErrTeacherNotFound = errors.New("teacher not found")

	// ErrInvalidTransition is returned for disallowed payment status changes.
	ErrInvalidTransition = errors.New("invalid payment status transition")

	// ErrSettlementExists is returned when the same period is settled twice
	// for the same teacher. Normally the engine skips such teachers before
	// writing; the store surfaces this when a concurrent run slips past the
	// in-process check and hits the unique index.
	ErrSettlementExists = errors.New("settlement payment already exists for period")
)

// SettlementError marks a failed settlement run. The whole run is rolled
// back; nothing from it is visible afterward.
type SettlementError struct {
	Year  int
	Month int
	Stage string // "collect", "aggregate", "persist"
	Err   error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement %d/%d failed during %s: %v", e.Month, e.Year, e.Stage, e.Err)
}

func (e *SettlementError) Unwrap() error { return e.Err }
