package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia/lesson-engine/schedule"
)

func recurringSlot(t *testing.T, day time.Weekday, start, end string, from schedule.Date, to *schedule.Date) schedule.Slot {
	t.Helper()
	return schedule.Slot{
		ID:        "slot-1",
		LessonID:  "lesson-1",
		Day:       day,
		Start:     mustTime(t, start),
		End:       mustTime(t, end),
		Recurring: true,
		ValidFrom: from,
		ValidTo:   to,
	}
}

// =============================================================================
// RECURRING EXPANSION TESTS
// =============================================================================

func TestExpand_MondaysInJanuary2024(t *testing.T) {
	// GIVEN: A recurring Monday slot valid through all of January 2024
	// WHEN: Expanding over the month
	// THEN: January 2024 has five Mondays: 1, 8, 15, 22, 29

	slot := recurringSlot(t, time.Monday, "10:00", "11:00", date(2023, time.September, 1), nil)
	period := schedule.MonthPeriod(2024, time.January)

	occs := schedule.Expand(slot, period)
	require.Len(t, occs, 5)

	for i, day := range []int{1, 8, 15, 22, 29} {
		assert.Equal(t, date(2024, time.January, day), occs[i].Date)
		assert.Equal(t, time.Monday, occs[i].Date.Weekday())
		assert.Equal(t, slot.Start, occs[i].Start)
		assert.Equal(t, slot.End, occs[i].End)
	}
}

func TestExpand_ValidFromInsidePeriod(t *testing.T) {
	// GIVEN: A Monday slot starting mid-month (Jan 10, a Wednesday)
	// THEN: The first occurrence is the first Monday on or after Jan 10

	slot := recurringSlot(t, time.Monday, "10:00", "11:00", date(2024, time.January, 10), nil)
	occs := schedule.Expand(slot, schedule.MonthPeriod(2024, time.January))

	require.Len(t, occs, 3)
	assert.Equal(t, date(2024, time.January, 15), occs[0].Date)
	assert.Equal(t, date(2024, time.January, 29), occs[2].Date)
}

func TestExpand_ValidToClampsExpansion(t *testing.T) {
	// GIVEN: A Monday slot whose validity ends Jan 15
	// THEN: Jan 15 itself is excluded; only Jan 1 and Jan 8 remain

	validTo := date(2024, time.January, 15)
	slot := recurringSlot(t, time.Monday, "10:00", "11:00", date(2023, time.September, 1), &validTo)

	occs := schedule.Expand(slot, schedule.MonthPeriod(2024, time.January))
	require.Len(t, occs, 2)
	assert.Equal(t, date(2024, time.January, 1), occs[0].Date)
	assert.Equal(t, date(2024, time.January, 8), occs[1].Date)
}

func TestExpand_NoValidDaysInPeriod(t *testing.T) {
	// GIVEN: A slot that only becomes valid after the period ends
	slot := recurringSlot(t, time.Monday, "10:00", "11:00", date(2024, time.March, 1), nil)

	occs := schedule.Expand(slot, schedule.MonthPeriod(2024, time.January))
	assert.Empty(t, occs)
}

func TestExpand_EmptyPeriod(t *testing.T) {
	slot := recurringSlot(t, time.Monday, "10:00", "11:00", date(2024, time.January, 1), nil)
	period := schedule.Period{Start: date(2024, time.January, 15), End: date(2024, time.January, 15)}

	assert.Empty(t, schedule.Expand(slot, period))
}

// =============================================================================
// ONE-OFF EXPANSION TESTS
// =============================================================================

func TestExpand_OneOffInsidePeriod(t *testing.T) {
	// GIVEN: A non-recurring slot dated Jan 20
	// THEN: Exactly one occurrence, on that date

	slot := recurringSlot(t, time.Saturday, "14:00", "15:30", date(2024, time.January, 20), nil)
	slot.Recurring = false

	occs := schedule.Expand(slot, schedule.MonthPeriod(2024, time.January))
	require.Len(t, occs, 1)
	assert.Equal(t, date(2024, time.January, 20), occs[0].Date)
}

func TestExpand_OneOffOutsidePeriod(t *testing.T) {
	slot := recurringSlot(t, time.Saturday, "14:00", "15:30", date(2024, time.February, 3), nil)
	slot.Recurring = false

	assert.Empty(t, schedule.Expand(slot, schedule.MonthPeriod(2024, time.January)))
}

func TestExpand_OneOffOnPeriodEnd_Excluded(t *testing.T) {
	// Period end is exclusive: a one-off on Feb 1 is not part of January.
	slot := recurringSlot(t, time.Thursday, "14:00", "15:30", date(2024, time.February, 1), nil)
	slot.Recurring = false

	assert.Empty(t, schedule.Expand(slot, schedule.MonthPeriod(2024, time.January)))
}
