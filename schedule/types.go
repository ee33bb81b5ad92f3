/*
Package schedule implements the recurring lesson scheduler.

PURPOSE:
  This package contains the scheduling core for the lesson school: placing
  weekly recurring or one-off time slots into shared rooms without overlap,
  and expanding slots into concrete calendar occurrences for a reporting
  period.

KEY CONCEPTS:
  - Window: the (weekday, time range, validity range) shape of a slot,
    the unit the overlap predicate reasons about
  - Slot: a persisted schedule entry binding a lesson to a window
  - Occurrence: a concrete date instantiated from a slot, never persisted
  - Period: a half-open date range [start, end) occurrences are expanded over

DESIGN PRINCIPLES:
  1. Purity: overlap, conflict checking, and expansion are pure functions
     with no store access, so they are independently testable
  2. Precision: rates and amounts use decimal.Decimal, never float64
  3. Atomicity: slot writes go through Service, which runs
     conflict-check-then-persist inside one store transaction

SEE ALSO:
  - overlap.go: the interval-overlap predicate
  - conflict.go: room conflict checking
  - expand.go: occurrence expansion
  - service.go: validated, transactional slot write operations
*/
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME OF DAY - Minutes since midnight
// =============================================================================

// TimeOfDay is a clock time expressed as minutes since midnight.
// Slots are same-day only, so a value is always in [0, 1440).
type TimeOfDay int

const MinutesPerDay = 24 * 60

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) Valid() bool { return t >= 0 && t < MinutesPerDay }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// =============================================================================
// WINDOW - What the overlap predicate sees
// =============================================================================

// Window is the (weekday, time range, validity range) footprint of a slot.
// End is exclusive on the time axis; ValidTo is inclusive and nil means
// unbounded future.
type Window struct {
	Day       time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
	ValidFrom Date
	ValidTo   *Date
}

// =============================================================================
// SLOT - Persisted schedule entry
// =============================================================================

// Slot binds a lesson to a weekly recurring or one-off window in the
// lesson's room. The room is reached through the lesson, exactly as rows
// relate in the store.
type Slot struct {
	ID        string
	LessonID  string
	Day       time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
	Recurring bool
	ValidFrom Date
	ValidTo   *Date // nil = open-ended
	CreatedAt time.Time
}

// Window returns the slot's footprint for overlap checks.
func (s Slot) Window() Window {
	return Window{Day: s.Day, Start: s.Start, End: s.End, ValidFrom: s.ValidFrom, ValidTo: s.ValidTo}
}

// =============================================================================
// OCCURRENCE - Derived calendar instance (never persisted)
// =============================================================================

// Occurrence is one concrete date a slot takes place on within a period.
type Occurrence struct {
	SlotID   string
	LessonID string
	Date     Date
	Start    TimeOfDay
	End      TimeOfDay
}

// =============================================================================
// LESSON & ROOM RECORDS
// =============================================================================

type LessonCategory string

const (
	CategoryInstrument LessonCategory = "instrument"
	CategoryArt        LessonCategory = "art"
)

func (c LessonCategory) Valid() bool {
	return c == CategoryInstrument || c == CategoryArt
}

// Lesson is the record slots hang off of. Lessons are deactivated when
// discontinued, never hard-deleted.
type Lesson struct {
	ID              string
	TeacherID       string
	StudentID       string
	RoomID          string
	Category        LessonCategory
	Instrument      string // only for instrument lessons
	DurationMinutes int
	HourlyRate      decimal.Decimal
	Active          bool
	CreatedAt       time.Time
}

// Room is a shared classroom. Category gates which lessons may book it:
// art lessons only in art rooms, instrument lessons never in art rooms.
type Room struct {
	ID          string
	Name        string
	Category    LessonCategory
	Capacity    int
	Description string
	CreatedAt   time.Time
}

// AllowsLesson reports whether a lesson of the given category may be
// taught in this room.
func (r Room) AllowsLesson(c LessonCategory) bool {
	if c == CategoryArt {
		return r.Category == CategoryArt
	}
	return r.Category != CategoryArt
}
