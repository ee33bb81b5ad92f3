package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia/lesson-engine/schedule"
)

func slotWith(t *testing.T, id string, day time.Weekday, start, end string) schedule.Slot {
	t.Helper()
	return schedule.Slot{
		ID:        id,
		LessonID:  "lesson-" + id,
		Day:       day,
		Start:     mustTime(t, start),
		End:       mustTime(t, end),
		Recurring: true,
		ValidFrom: date(2024, time.January, 1),
	}
}

func TestCheckConflict_NoActiveSlots(t *testing.T) {
	candidate := slotWith(t, "new", time.Monday, "10:00", "11:00")
	assert.NoError(t, schedule.CheckConflict(candidate, nil))
}

func TestCheckConflict_OverlapRejected(t *testing.T) {
	// GIVEN: A room with a Monday 10:00-11:00 booking
	// WHEN: Booking Monday 10:30-11:30 in the same room
	// THEN: Rejected with a ConflictError naming the existing slot

	existing := slotWith(t, "slot-a", time.Monday, "10:00", "11:00")
	candidate := slotWith(t, "", time.Monday, "10:30", "11:30")

	err := schedule.CheckConflict(candidate, []schedule.Slot{existing})
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrSlotConflict)

	var confErr *schedule.ConflictError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "slot-a", confErr.ConflictingSlotID)
}

func TestCheckConflict_ReportsLowestConflictingID(t *testing.T) {
	// GIVEN: Two existing slots both overlapping the candidate
	// THEN: The reported conflict is deterministic: lowest ID wins

	b := slotWith(t, "slot-b", time.Monday, "10:30", "11:30")
	a := slotWith(t, "slot-a", time.Monday, "10:00", "11:00")
	candidate := slotWith(t, "", time.Monday, "10:15", "11:15")

	err := schedule.CheckConflict(candidate, []schedule.Slot{b, a})
	var confErr *schedule.ConflictError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "slot-a", confErr.ConflictingSlotID)
}

func TestCheckConflict_ExcludesSelfOnUpdate(t *testing.T) {
	// GIVEN: Updating slot-a to a time that only overlaps itself
	// THEN: No conflict; a slot never conflicts with its own old position

	existing := slotWith(t, "slot-a", time.Monday, "10:00", "11:00")
	moved := slotWith(t, "slot-a", time.Monday, "10:30", "11:30")

	assert.NoError(t, schedule.CheckConflict(moved, []schedule.Slot{existing}))
}

func TestCheckConflict_BackToBackAllowed(t *testing.T) {
	existing := slotWith(t, "slot-a", time.Monday, "10:00", "11:00")
	candidate := slotWith(t, "", time.Monday, "11:00", "12:00")

	assert.NoError(t, schedule.CheckConflict(candidate, []schedule.Slot{existing}))
}
