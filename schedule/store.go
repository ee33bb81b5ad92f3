package schedule

import "context"

// =============================================================================
// STORE INTERFACES - Injected persistence capabilities
// =============================================================================

// SlotStore is the persistence capability set for schedule slots. The
// write path never touches it directly; all mutations go through Service
// so conflict checking and persistence share one transaction.
type SlotStore interface {
	// GetSlot returns the slot or ErrSlotNotFound.
	GetSlot(ctx context.Context, id string) (*Slot, error)

	// ListSlotsForRoom returns slots whose lesson is active and booked in
	// the given room, ordered by slot id ascending.
	ListSlotsForRoom(ctx context.Context, roomID string) ([]Slot, error)

	// ListSlotsForLesson returns all slots belonging to one lesson.
	ListSlotsForLesson(ctx context.Context, lessonID string) ([]Slot, error)

	CreateSlot(ctx context.Context, slot Slot) error
	UpdateSlot(ctx context.Context, slot Slot) error

	// DeleteSlot hard-deletes the slot or returns ErrSlotNotFound.
	DeleteSlot(ctx context.Context, id string) error
}

// TxView is what a slot transaction sees: the slot operations plus the
// lesson read, so the lesson's current room can be resolved inside the
// same transaction that runs the conflict check.
type TxView interface {
	SlotStore

	// GetLesson returns the lesson or ErrLessonNotFound.
	GetLesson(ctx context.Context, id string) (*Lesson, error)
}

// TxSlotStore adds transactional execution. Writers targeting the same
// room are serialized by the implementation, so check-then-commit inside
// fn cannot interleave with a concurrent conflicting write.
type TxSlotStore interface {
	SlotStore

	// WithTx executes fn atomically: rolled back if fn errors, committed
	// otherwise.
	WithTx(ctx context.Context, fn func(TxView) error) error
}

// LessonStore is the read capability for lesson records, owned by the
// record store outside this core.
type LessonStore interface {
	// GetLesson returns the lesson or ErrLessonNotFound.
	GetLesson(ctx context.Context, id string) (*Lesson, error)

	// ListActiveLessons returns all lessons with the active flag set.
	ListActiveLessons(ctx context.Context) ([]Lesson, error)
}
