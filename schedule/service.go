package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SLOT INPUT - Validated write request
// =============================================================================

// SlotInput is the validated structure a slot write starts from. The HTTP
// layer parses loose request bodies into it; Validate runs before any
// domain logic or store access.
type SlotInput struct {
	LessonID  string
	Day       time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
	Recurring bool
	ValidFrom Date
	ValidTo   *Date
}

// Validate checks field constraints. It has no store access; referential
// checks (lesson exists) happen in the service.
func (in SlotInput) Validate() error {
	if in.Day < time.Sunday || in.Day > time.Saturday {
		return &ValidationError{Field: "day_of_week", Message: "must be between 0 and 6"}
	}
	if !in.Start.Valid() || !in.End.Valid() {
		return &ValidationError{Field: "time", Message: "must be within a single day"}
	}
	if in.Start >= in.End {
		return &ValidationError{Field: "time", Message: "start_time must be before end_time"}
	}
	if in.ValidFrom.IsZero() {
		return &ValidationError{Field: "start_date", Message: "is required"}
	}
	if in.ValidTo != nil && in.ValidTo.Before(in.ValidFrom) {
		return &ValidationError{Field: "end_date", Message: "must not be before start_date"}
	}
	return nil
}

// =============================================================================
// SERVICE - Conflict-gated slot operations
// =============================================================================

// Service exposes the schedule-write operations. Every create and update
// runs validation, then conflict-check-then-persist inside one store
// transaction.
type Service struct {
	slots TxSlotStore
}

func NewService(slots TxSlotStore) *Service {
	return &Service{slots: slots}
}

// CreateSlot places a new slot, rejecting it with a *ConflictError if it
// overlaps any active slot in the same room.
func (s *Service) CreateSlot(ctx context.Context, in SlotInput) (*Slot, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.LessonID == "" {
		return nil, &ValidationError{Field: "lesson_id", Message: "is required"}
	}

	slot := Slot{
		ID:        uuid.NewString(),
		LessonID:  in.LessonID,
		Day:       in.Day,
		Start:     in.Start,
		End:       in.End,
		Recurring: in.Recurring,
		ValidFrom: in.ValidFrom,
		ValidTo:   in.ValidTo,
		CreatedAt: time.Now().UTC(),
	}

	err := s.slots.WithTx(ctx, func(store TxView) error {
		lesson, err := store.GetLesson(ctx, in.LessonID)
		if err != nil {
			return err
		}
		active, err := store.ListSlotsForRoom(ctx, lesson.RoomID)
		if err != nil {
			return fmt.Errorf("listing room slots: %w", err)
		}
		if err := CheckConflict(slot, active); err != nil {
			return err
		}
		return store.CreateSlot(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// UpdateSlot rewrites an existing slot's window, excluding the slot's own
// prior version from the conflict comparison.
func (s *Service) UpdateSlot(ctx context.Context, id string, in SlotInput) (*Slot, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated Slot
	err := s.slots.WithTx(ctx, func(store TxView) error {
		existing, err := store.GetSlot(ctx, id)
		if err != nil {
			return err
		}

		updated = *existing
		updated.Day = in.Day
		updated.Start = in.Start
		updated.End = in.End
		updated.Recurring = in.Recurring
		updated.ValidFrom = in.ValidFrom
		updated.ValidTo = in.ValidTo

		// The lesson's room is read inside the transaction so a concurrent
		// room move cannot point the conflict check at a stale room.
		lesson, err := store.GetLesson(ctx, existing.LessonID)
		if err != nil {
			return err
		}
		active, err := store.ListSlotsForRoom(ctx, lesson.RoomID)
		if err != nil {
			return fmt.Errorf("listing room slots: %w", err)
		}
		if err := CheckConflict(updated, active); err != nil {
			return err
		}
		return store.UpdateSlot(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSlot removes a slot for good.
func (s *Service) DeleteSlot(ctx context.Context, id string) error {
	return s.slots.DeleteSlot(ctx, id)
}

// ListSlotsForRoom returns the active slots currently booked in a room.
func (s *Service) ListSlotsForRoom(ctx context.Context, roomID string) ([]Slot, error) {
	return s.slots.ListSlotsForRoom(ctx, roomID)
}
