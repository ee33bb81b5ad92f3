package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmonia/lesson-engine/schedule"
)

// =============================================================================
// SETTLEMENT ENGINE
// =============================================================================

// Engine turns a calendar month's slot assignments into pending Payment
// records. Each run is atomic (one store transaction) and idempotent per
// (teacher, month, year): teachers already settled for the period are
// skipped, never double-paid.
type Engine struct {
	lessons  schedule.LessonStore
	slots    SlotSource
	teachers TeacherDirectory
	payments TxPaymentStore
	log      *zap.Logger

	// One mutex per (year, month) so concurrent runs for the same period
	// serialize; runs for different periods proceed in parallel.
	mu      sync.Mutex
	periods map[periodKey]*sync.Mutex
}

type periodKey struct {
	Year  int
	Month int
}

func NewEngine(lessons schedule.LessonStore, slots SlotSource, teachers TeacherDirectory, payments TxPaymentStore, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		lessons:  lessons,
		slots:    slots,
		teachers: teachers,
		payments: payments,
		log:      log,
		periods:  make(map[periodKey]*sync.Mutex),
	}
}

// SettlementResult summarizes one settlement run.
type SettlementResult struct {
	Year            int
	Month           int
	CreatedPayments []Payment
	TeacherCount    int // teachers with earnings > 0 in the period
	SkippedTeachers int // already settled for the period
}

// GenerateMonthlySettlement settles the calendar month [first day, first
// day of next month). It reads lessons and slots, expands occurrences,
// aggregates per-teacher earnings, and writes one pending payment per
// qualifying teacher inside a single transaction. It never mutates lesson,
// slot, or existing payment state.
func (e *Engine) GenerateMonthlySettlement(ctx context.Context, year, month int) (*SettlementResult, error) {
	if month < 1 || month > 12 {
		return nil, &schedule.ValidationError{Field: "month", Message: "must be between 1 and 12"}
	}
	if year < 1 {
		return nil, &schedule.ValidationError{Field: "year", Message: "must be positive"}
	}

	lock := e.periodLock(year, month)
	lock.Lock()
	defer lock.Unlock()

	period := schedule.MonthPeriod(year, time.Month(month))

	lines, err := e.collectOccurrences(ctx, period)
	if err != nil {
		return nil, &SettlementError{Year: year, Month: month, Stage: "collect", Err: err}
	}

	totals := Aggregate(lines)

	result := &SettlementResult{Year: year, Month: month, TeacherCount: len(totals)}
	if len(totals) == 0 {
		e.log.Info("settlement produced no earnings",
			zap.Int("year", year), zap.Int("month", month))
		return result, nil
	}

	// Deterministic write order.
	teacherIDs := make([]string, 0, len(totals))
	for id := range totals {
		teacherIDs = append(teacherIDs, id)
	}
	sort.Strings(teacherIDs)

	// Resolve names before the transaction; WithTx holds the store's write
	// lock and directory reads would re-enter it.
	names := make(map[string]string, len(teacherIDs))
	for _, teacherID := range teacherIDs {
		name, err := e.teachers.GetTeacherName(ctx, teacherID)
		if err != nil {
			return nil, &SettlementError{Year: year, Month: month, Stage: "collect",
				Err: fmt.Errorf("labeling payment for teacher %s: %w", teacherID, err)}
		}
		names[teacherID] = name
	}

	today := schedule.Today()
	err = e.payments.WithTx(ctx, func(store PaymentStore) error {
		existing, err := store.ListPaymentsForPeriod(ctx, year, month)
		if err != nil {
			return fmt.Errorf("loading prior settlements: %w", err)
		}
		settled := make(map[string]bool)
		for _, p := range existing {
			if p.Source == SourceSettlement {
				settled[p.TeacherID] = true
			}
		}

		for _, teacherID := range teacherIDs {
			if settled[teacherID] {
				result.SkippedTeachers++
				continue
			}
			p := Payment{
				ID:          uuid.NewString(),
				TeacherID:   teacherID,
				Amount:      totals[teacherID],
				PaymentDate: today,
				Month:       month,
				Year:        year,
				Status:      StatusPending,
				Source:      SourceSettlement,
				Notes:       fmt.Sprintf("Auto-generated settlement for %s, %d/%d", names[teacherID], month, year),
				CreatedAt:   time.Now().UTC(),
			}
			if err := store.CreatePayment(ctx, p); err != nil {
				return fmt.Errorf("creating payment for teacher %s: %w", teacherID, err)
			}
			result.CreatedPayments = append(result.CreatedPayments, p)
		}
		return nil
	})
	if err != nil {
		return nil, &SettlementError{Year: year, Month: month, Stage: "persist", Err: err}
	}

	e.log.Info("settlement complete",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("teachers", result.TeacherCount),
		zap.Int("created", len(result.CreatedPayments)),
		zap.Int("skipped", result.SkippedTeachers))
	return result, nil
}

// collectOccurrences counts, per active lesson, how many times it actually
// happens in the period. Expansion is pure, so lessons share no state here.
func (e *Engine) collectOccurrences(ctx context.Context, period schedule.Period) ([]LessonOccurrences, error) {
	lessons, err := e.lessons.ListActiveLessons(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active lessons: %w", err)
	}

	var lines []LessonOccurrences
	for _, lesson := range lessons {
		slots, err := e.slots.ListSlotsForLesson(ctx, lesson.ID)
		if err != nil {
			return nil, fmt.Errorf("listing slots for lesson %s: %w", lesson.ID, err)
		}
		count := 0
		for _, slot := range slots {
			count += len(schedule.Expand(slot, period))
		}
		lines = append(lines, LessonOccurrences{Lesson: lesson, Count: count})
	}
	return lines, nil
}

// periodLock returns the mutex serializing settlement runs for one period.
// The map keeps one entry per distinct period ever settled and entries are
// never removed; at twelve periods per year that stays tiny for the life of
// the process.
func (e *Engine) periodLock(year, month int) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := periodKey{Year: year, Month: month}
	if _, ok := e.periods[k]; !ok {
		e.periods[k] = &sync.Mutex{}
	}
	return e.periods[k]
}
