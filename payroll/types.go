/*
Package payroll converts a period's lesson occurrences into payable amounts.

PURPOSE:
  Implements the monthly settlement pipeline: expand each active lesson's
  schedule slots into concrete occurrences, aggregate per-teacher earnings
  with decimal arithmetic, and write pending Payment records in one atomic
  batch per run.

KEY CONCEPTS:
  - Payment: a payable row tagged with its (month, year) period
  - LessonOccurrences: how many times one lesson actually happened
  - Engine: the settlement orchestrator with idempotency and atomicity
    guarantees

SEE ALSO:
  - aggregate.go: earnings arithmetic and rounding policy
  - settlement.go: the settlement engine
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harmonia/lesson-engine/schedule"
)

// =============================================================================
// PAYMENT - Payable record with a simple state machine
// =============================================================================

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusPaid      PaymentStatus = "paid"
	StatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	return s == StatusPending || s == StatusPaid || s == StatusCancelled
}

// PaymentSource distinguishes settlement-generated rows from staff-entered
// ones. The idempotency guard only looks at settlement rows, so manual
// corrections for the same period stay possible.
type PaymentSource string

const (
	SourceSettlement PaymentSource = "settlement"
	SourceManual     PaymentSource = "manual"
)

// Payment is one payable amount for a teacher. The settlement engine only
// ever creates pending payments; status transitions are staff actions.
type Payment struct {
	ID          string
	TeacherID   string
	Amount      decimal.Decimal
	PaymentDate schedule.Date
	Month       int // 1-12
	Year        int
	Status      PaymentStatus
	Source      PaymentSource
	Notes       string
	CreatedAt   time.Time
}

// TransitionTo applies the payment state machine:
// pending -> paid, pending -> cancelled; paid and cancelled are terminal.
func (p *Payment) TransitionTo(next PaymentStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if p.Status != StatusPending || next == StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	return nil
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// PaymentStore is the persistence capability set for payments. The engine
// only ever creates new rows; updates and deletes exist for staff actions
// at the HTTP boundary.
type PaymentStore interface {
	// GetPayment returns the payment or ErrPaymentNotFound.
	GetPayment(ctx context.Context, id string) (*Payment, error)

	ListPayments(ctx context.Context) ([]Payment, error)
	ListPaymentsForPeriod(ctx context.Context, year, month int) ([]Payment, error)
	ListPaymentsForTeacher(ctx context.Context, teacherID string) ([]Payment, error)

	CreatePayment(ctx context.Context, p Payment) error
	UpdatePayment(ctx context.Context, p Payment) error
	DeletePayment(ctx context.Context, id string) error
}

// TxPaymentStore adds atomic execution, so a settlement run commits all of
// its payments or none of them.
type TxPaymentStore interface {
	PaymentStore

	WithTx(ctx context.Context, fn func(PaymentStore) error) error
}

// SlotSource is the slice of the schedule store the engine reads.
type SlotSource interface {
	ListSlotsForLesson(ctx context.Context, lessonID string) ([]schedule.Slot, error)
}

// TeacherDirectory labels payments with teacher names.
type TeacherDirectory interface {
	// GetTeacherName returns the teacher's display name or ErrTeacherNotFound.
	GetTeacherName(ctx context.Context, id string) (string, error)
}
