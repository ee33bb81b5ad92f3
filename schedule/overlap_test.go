package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harmonia/lesson-engine/schedule"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func mustTime(t *testing.T, s string) schedule.TimeOfDay {
	t.Helper()
	tod, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("bad time %q: %v", s, err)
	}
	return tod
}

func date(y int, m time.Month, d int) schedule.Date {
	return schedule.NewDate(y, m, d)
}

func window(t *testing.T, day time.Weekday, start, end string, from schedule.Date, to *schedule.Date) schedule.Window {
	t.Helper()
	return schedule.Window{
		Day:       day,
		Start:     mustTime(t, start),
		End:       mustTime(t, end),
		ValidFrom: from,
		ValidTo:   to,
	}
}

// =============================================================================
// TIME-OF-DAY OVERLAP TESTS
// =============================================================================

func TestOverlaps_SameDayOverlappingTimes(t *testing.T) {
	// GIVEN: Two Monday windows, 10:00-11:00 and 10:30-11:30
	// WHEN: Checking for overlap
	// THEN: They overlap

	from := date(2024, time.January, 1)
	a := window(t, time.Monday, "10:00", "11:00", from, nil)
	b := window(t, time.Monday, "10:30", "11:30", from, nil)

	assert.True(t, schedule.Overlaps(a, b))
	assert.True(t, schedule.Overlaps(b, a), "overlap must be symmetric")
}

func TestOverlaps_TouchingEdges_NoOverlap(t *testing.T) {
	// GIVEN: Back-to-back windows 10:00-11:00 and 11:00-12:00
	// WHEN: Checking for overlap
	// THEN: Half-open intervals: the shared boundary minute is fine

	from := date(2024, time.January, 1)
	a := window(t, time.Monday, "10:00", "11:00", from, nil)
	b := window(t, time.Monday, "11:00", "12:00", from, nil)

	assert.False(t, schedule.Overlaps(a, b))
	assert.False(t, schedule.Overlaps(b, a))
}

func TestOverlaps_Containment(t *testing.T) {
	// GIVEN: 09:00-12:00 fully containing 10:00-10:30
	from := date(2024, time.January, 1)
	a := window(t, time.Monday, "09:00", "12:00", from, nil)
	b := window(t, time.Monday, "10:00", "10:30", from, nil)

	assert.True(t, schedule.Overlaps(a, b))
	assert.True(t, schedule.Overlaps(b, a))
}

func TestOverlaps_DifferentDays(t *testing.T) {
	// GIVEN: Identical times on Monday and Tuesday
	from := date(2024, time.January, 1)
	a := window(t, time.Monday, "10:00", "11:00", from, nil)
	b := window(t, time.Tuesday, "10:00", "11:00", from, nil)

	assert.False(t, schedule.Overlaps(a, b))
}

// =============================================================================
// VALIDITY WINDOW TESTS
// =============================================================================

func TestOverlaps_DisjointValidity(t *testing.T) {
	// GIVEN: Same Monday time, but one slot ends before the other begins
	// WHEN: a valid Jan-Mar, b valid from Apr
	// THEN: No overlap

	aEnd := date(2024, time.March, 31)
	a := window(t, time.Monday, "10:00", "11:00", date(2024, time.January, 1), &aEnd)
	b := window(t, time.Monday, "10:00", "11:00", date(2024, time.April, 1), nil)

	assert.False(t, schedule.Overlaps(a, b))
	assert.False(t, schedule.Overlaps(b, a))
}

func TestOverlaps_ValidityTouchingDates_Overlap(t *testing.T) {
	// GIVEN: a ends exactly the day b begins
	// THEN: Validity dates are inclusive, so they share one Monday

	aEnd := date(2024, time.April, 1)
	a := window(t, time.Monday, "10:00", "11:00", date(2024, time.January, 1), &aEnd)
	b := window(t, time.Monday, "10:00", "11:00", date(2024, time.April, 1), nil)

	assert.True(t, schedule.Overlaps(a, b))
}

func TestOverlaps_OpenEndedBothSides(t *testing.T) {
	// GIVEN: Two open-ended slots (nil ValidTo) starting far apart
	// THEN: Open-ended means they eventually coexist

	a := window(t, time.Monday, "10:00", "11:00", date(2024, time.January, 1), nil)
	b := window(t, time.Monday, "10:30", "11:30", date(2026, time.June, 1), nil)

	assert.True(t, schedule.Overlaps(a, b))
}
