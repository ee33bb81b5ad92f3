package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia/lesson-engine/schedule"
	"github.com/harmonia/lesson-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*schedule.Service, *memory.Store) {
	t.Helper()
	store := memory.New()

	store.PutTeacher(memory.Teacher{ID: "teacher-1", Name: "Anna Keller"})
	store.PutLesson(schedule.Lesson{
		ID:              "lesson-1",
		TeacherID:       "teacher-1",
		StudentID:       "student-1",
		RoomID:          "room-1",
		Category:        schedule.CategoryInstrument,
		Instrument:      "piano",
		DurationMinutes: 60,
		HourlyRate:      decimal.NewFromInt(400),
		Active:          true,
	})
	store.PutLesson(schedule.Lesson{
		ID:              "lesson-2",
		TeacherID:       "teacher-1",
		StudentID:       "student-2",
		RoomID:          "room-1",
		Category:        schedule.CategoryInstrument,
		Instrument:      "violin",
		DurationMinutes: 45,
		HourlyRate:      decimal.NewFromInt(400),
		Active:          true,
	})

	return schedule.NewService(store), store
}

func slotInput(t *testing.T, lessonID string, day time.Weekday, start, end string) schedule.SlotInput {
	t.Helper()
	return schedule.SlotInput{
		LessonID:  lessonID,
		Day:       day,
		Start:     mustTime(t, start),
		End:       mustTime(t, end),
		Recurring: true,
		ValidFrom: date(2024, time.January, 1),
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestService_CreateSlot_Success(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, slotInput(t, "lesson-1", time.Monday, "10:00", "11:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, slot.ID)
	assert.Equal(t, "lesson-1", slot.LessonID)

	stored, err := store.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.ID, stored.ID)
}

func TestService_CreateSlot_ConflictRejected(t *testing.T) {
	// GIVEN: lesson-1 holds Monday 10:00-11:00 in room-1
	// WHEN: lesson-2 (same room) books Monday 10:30-11:30
	// THEN: Rejected with a conflict and nothing new is stored

	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateSlot(ctx, slotInput(t, "lesson-1", time.Monday, "10:00", "11:00"))
	require.NoError(t, err)

	_, err = svc.CreateSlot(ctx, slotInput(t, "lesson-2", time.Monday, "10:30", "11:30"))
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrSlotConflict)

	var confErr *schedule.ConflictError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, first.ID, confErr.ConflictingSlotID)

	slots, err := store.ListSlotsForRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Len(t, slots, 1, "rejected slot must not be stored")
}

func TestService_CreateSlot_UnknownLesson(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateSlot(context.Background(), slotInput(t, "no-such-lesson", time.Monday, "10:00", "11:00"))
	assert.ErrorIs(t, err, schedule.ErrLessonNotFound)
}

func TestService_CreateSlot_InvalidTimes(t *testing.T) {
	svc, _ := newTestService(t)

	input := slotInput(t, "lesson-1", time.Monday, "11:00", "10:00")
	_, err := svc.CreateSlot(context.Background(), input)

	var valErr *schedule.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func TestService_UpdateSlot_MoveWithoutConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, slotInput(t, "lesson-1", time.Monday, "10:00", "11:00"))
	require.NoError(t, err)

	moved, err := svc.UpdateSlot(ctx, slot.ID, slotInput(t, "lesson-1", time.Tuesday, "10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, moved.Day)
	assert.Equal(t, slot.ID, moved.ID)
}

func TestService_UpdateSlot_SelfOverlapAllowed(t *testing.T) {
	// GIVEN: A slot at Monday 10:00-11:00
	// WHEN: Nudging it to 10:30-11:30
	// THEN: The slot's old position must not block its own move

	svc, _ := newTestService(t)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, slotInput(t, "lesson-1", time.Monday, "10:00", "11:00"))
	require.NoError(t, err)

	moved, err := svc.UpdateSlot(ctx, slot.ID, slotInput(t, "lesson-1", time.Monday, "10:30", "11:30"))
	require.NoError(t, err)
	assert.Equal(t, mustTime(t, "10:30"), moved.Start)
}

func TestService_UpdateSlot_ConflictLeavesSlotUnchanged(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSlot(ctx, slotInput(t, "lesson-1", time.Monday, "10:00", "11:00"))
	require.NoError(t, err)
	second, err := svc.CreateSlot(ctx, slotInput(t, "lesson-2", time.Monday, "12:00", "13:00"))
	require.NoError(t, err)

	_, err = svc.UpdateSlot(ctx, second.ID, slotInput(t, "lesson-2", time.Monday, "10:30", "11:30"))
	require.ErrorIs(t, err, schedule.ErrSlotConflict)

	unchanged, err := store.GetSlot(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, mustTime(t, "12:00"), unchanged.Start, "failed update must roll back")
}

func TestService_UpdateSlot_ChecksLessonsCurrentRoom(t *testing.T) {
	// GIVEN: lesson-2 moves to room-2, where another lesson holds
	//        Monday 10:00-11:00
	// WHEN: lesson-2's slot is nudged into that window
	// THEN: The conflict check must follow the room move, not the room
	//       the slot was created in

	svc, store := newTestService(t)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, slotInput(t, "lesson-2", time.Monday, "12:00", "13:00"))
	require.NoError(t, err)

	store.PutLesson(schedule.Lesson{
		ID:              "lesson-3",
		TeacherID:       "teacher-1",
		StudentID:       "student-3",
		RoomID:          "room-2",
		Category:        schedule.CategoryInstrument,
		Instrument:      "cello",
		DurationMinutes: 60,
		HourlyRate:      decimal.NewFromInt(400),
		Active:          true,
	})
	occupied, err := svc.CreateSlot(ctx, slotInput(t, "lesson-3", time.Monday, "10:00", "11:00"))
	require.NoError(t, err)

	store.PutLesson(schedule.Lesson{
		ID:              "lesson-2",
		TeacherID:       "teacher-1",
		StudentID:       "student-2",
		RoomID:          "room-2",
		Category:        schedule.CategoryInstrument,
		Instrument:      "violin",
		DurationMinutes: 45,
		HourlyRate:      decimal.NewFromInt(400),
		Active:          true,
	})

	_, err = svc.UpdateSlot(ctx, slot.ID, slotInput(t, "lesson-2", time.Monday, "10:30", "11:30"))
	require.ErrorIs(t, err, schedule.ErrSlotConflict)

	var confErr *schedule.ConflictError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, occupied.ID, confErr.ConflictingSlotID)
}

func TestService_DeleteSlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	slot, err := svc.CreateSlot(ctx, slotInput(t, "lesson-1", time.Monday, "10:00", "11:00"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSlot(ctx, slot.ID))

	_, err = store.GetSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, schedule.ErrSlotNotFound)

	assert.ErrorIs(t, svc.DeleteSlot(ctx, slot.ID), schedule.ErrSlotNotFound)
}
