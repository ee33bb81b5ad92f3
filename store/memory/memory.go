// Package memory provides an in-memory store for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/harmonia/lesson-engine/payroll"
	"github.com/harmonia/lesson-engine/schedule"
)

// Teacher is the minimal teacher record the engine needs for labeling.
type Teacher struct {
	ID   string
	Name string
}

// Store keeps every record in maps. WithTx is simulated with a full
// snapshot restored on error, mirroring rollback semantics.
type Store struct {
	mu       sync.RWMutex
	teachers map[string]Teacher
	lessons  map[string]schedule.Lesson
	slots    map[string]schedule.Slot
	payments map[string]payroll.Payment
}

func New() *Store {
	return &Store{
		teachers: make(map[string]Teacher),
		lessons:  make(map[string]schedule.Lesson),
		slots:    make(map[string]schedule.Slot),
		payments: make(map[string]payroll.Payment),
	}
}

// =============================================================================
// SEEDING (tests and dev fixtures)
// =============================================================================

func (s *Store) PutTeacher(t Teacher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teachers[t.ID] = t
}

func (s *Store) PutLesson(l schedule.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[l.ID] = l
}

// =============================================================================
// LESSONS (schedule.LessonStore)
// =============================================================================

func (s *Store) GetLesson(_ context.Context, id string) (*schedule.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lessons[id]
	if !ok {
		return nil, schedule.ErrLessonNotFound
	}
	return &l, nil
}

func (s *Store) ListActiveLessons(_ context.Context) ([]schedule.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schedule.Lesson
	for _, l := range s.lessons {
		if l.Active {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// TEACHERS (payroll.TeacherDirectory)
// =============================================================================

func (s *Store) GetTeacherName(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teachers[id]
	if !ok {
		return "", payroll.ErrTeacherNotFound
	}
	return t.Name, nil
}

// =============================================================================
// SLOTS (schedule.TxSlotStore)
// =============================================================================

func (s *Store) GetSlot(_ context.Context, id string) (*schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSlotLocked(id)
}

func (s *Store) getSlotLocked(id string) (*schedule.Slot, error) {
	slot, ok := s.slots[id]
	if !ok {
		return nil, schedule.ErrSlotNotFound
	}
	return &slot, nil
}

func (s *Store) ListSlotsForRoom(_ context.Context, roomID string) ([]schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSlotsForRoomLocked(roomID), nil
}

func (s *Store) listSlotsForRoomLocked(roomID string) []schedule.Slot {
	var out []schedule.Slot
	for _, slot := range s.slots {
		lesson, ok := s.lessons[slot.LessonID]
		if !ok || !lesson.Active || lesson.RoomID != roomID {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListSlotsForLesson(_ context.Context, lessonID string) ([]schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schedule.Slot
	for _, slot := range s.slots {
		if slot.LessonID == lessonID {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateSlot(_ context.Context, slot schedule.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.ID] = slot
	return nil
}

func (s *Store) UpdateSlot(_ context.Context, slot schedule.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[slot.ID]; !ok {
		return schedule.ErrSlotNotFound
	}
	s.slots[slot.ID] = slot
	return nil
}

func (s *Store) DeleteSlot(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[id]; !ok {
		return schedule.ErrSlotNotFound
	}
	delete(s.slots, id)
	return nil
}

// WithTx runs fn against a snapshot-backed view; any error restores the
// pre-transaction state. The store lock is held throughout, which also
// serializes concurrent room writers.
func (s *Store) WithTx(_ context.Context, fn func(schedule.TxView) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&slotTxView{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type slotTxView struct{ s *Store }

func (v *slotTxView) GetLesson(_ context.Context, id string) (*schedule.Lesson, error) {
	l, ok := v.s.lessons[id]
	if !ok {
		return nil, schedule.ErrLessonNotFound
	}
	return &l, nil
}

func (v *slotTxView) GetSlot(_ context.Context, id string) (*schedule.Slot, error) {
	return v.s.getSlotLocked(id)
}

func (v *slotTxView) ListSlotsForRoom(_ context.Context, roomID string) ([]schedule.Slot, error) {
	return v.s.listSlotsForRoomLocked(roomID), nil
}

func (v *slotTxView) ListSlotsForLesson(_ context.Context, lessonID string) ([]schedule.Slot, error) {
	var out []schedule.Slot
	for _, slot := range v.s.slots {
		if slot.LessonID == lessonID {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *slotTxView) CreateSlot(_ context.Context, slot schedule.Slot) error {
	v.s.slots[slot.ID] = slot
	return nil
}

func (v *slotTxView) UpdateSlot(_ context.Context, slot schedule.Slot) error {
	if _, ok := v.s.slots[slot.ID]; !ok {
		return schedule.ErrSlotNotFound
	}
	v.s.slots[slot.ID] = slot
	return nil
}

func (v *slotTxView) DeleteSlot(_ context.Context, id string) error {
	if _, ok := v.s.slots[id]; !ok {
		return schedule.ErrSlotNotFound
	}
	delete(v.s.slots, id)
	return nil
}

// =============================================================================
// PAYMENTS (payroll.PaymentStore)
// =============================================================================

func (s *Store) GetPayment(_ context.Context, id string) (*payroll.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, payroll.ErrPaymentNotFound
	}
	return &p, nil
}

func (s *Store) ListPayments(_ context.Context) ([]payroll.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortPayments(s.payments, func(payroll.Payment) bool { return true }), nil
}

func (s *Store) ListPaymentsForPeriod(_ context.Context, year, month int) ([]payroll.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPaymentsForPeriodLocked(year, month), nil
}

func (s *Store) listPaymentsForPeriodLocked(year, month int) []payroll.Payment {
	return sortPayments(s.payments, func(p payroll.Payment) bool {
		return p.Year == year && p.Month == month
	})
}

func (s *Store) ListPaymentsForTeacher(_ context.Context, teacherID string) ([]payroll.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortPayments(s.payments, func(p payroll.Payment) bool {
		return p.TeacherID == teacherID
	}), nil
}

func (s *Store) CreatePayment(_ context.Context, p payroll.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createPaymentLocked(p)
}

func (s *Store) createPaymentLocked(p payroll.Payment) error {
	if p.Source == payroll.SourceSettlement {
		for _, existing := range s.payments {
			if existing.Source == payroll.SourceSettlement &&
				existing.TeacherID == p.TeacherID &&
				existing.Year == p.Year && existing.Month == p.Month {
				return payroll.ErrSettlementExists
			}
		}
	}
	s.payments[p.ID] = p
	return nil
}

func (s *Store) UpdatePayment(_ context.Context, p payroll.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		return payroll.ErrPaymentNotFound
	}
	s.payments[p.ID] = p
	return nil
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return payroll.ErrPaymentNotFound
	}
	delete(s.payments, id)
	return nil
}

func sortPayments(m map[string]payroll.Payment, keep func(payroll.Payment) bool) []payroll.Payment {
	var out []payroll.Payment
	for _, p := range m {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// PAYMENT TRANSACTIONS (payroll.TxPaymentStore)
// =============================================================================

// PaymentTx adapts the store for the settlement engine: same data, a
// payment-scoped WithTx.
type PaymentTx struct{ *Store }

func (p PaymentTx) WithTx(_ context.Context, fn func(payroll.PaymentStore) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.snapshot()
	if err := fn(&paymentTxView{p.Store}); err != nil {
		p.restore(snap)
		return err
	}
	return nil
}

type paymentTxView struct{ s *Store }

func (v *paymentTxView) GetPayment(_ context.Context, id string) (*payroll.Payment, error) {
	p, ok := v.s.payments[id]
	if !ok {
		return nil, payroll.ErrPaymentNotFound
	}
	return &p, nil
}

func (v *paymentTxView) ListPayments(_ context.Context) ([]payroll.Payment, error) {
	return sortPayments(v.s.payments, func(payroll.Payment) bool { return true }), nil
}

func (v *paymentTxView) ListPaymentsForPeriod(_ context.Context, year, month int) ([]payroll.Payment, error) {
	return v.s.listPaymentsForPeriodLocked(year, month), nil
}

func (v *paymentTxView) ListPaymentsForTeacher(_ context.Context, teacherID string) ([]payroll.Payment, error) {
	return sortPayments(v.s.payments, func(p payroll.Payment) bool {
		return p.TeacherID == teacherID
	}), nil
}

func (v *paymentTxView) CreatePayment(_ context.Context, p payroll.Payment) error {
	return v.s.createPaymentLocked(p)
}

func (v *paymentTxView) UpdatePayment(_ context.Context, p payroll.Payment) error {
	if _, ok := v.s.payments[p.ID]; !ok {
		return payroll.ErrPaymentNotFound
	}
	v.s.payments[p.ID] = p
	return nil
}

func (v *paymentTxView) DeletePayment(_ context.Context, id string) error {
	if _, ok := v.s.payments[id]; !ok {
		return payroll.ErrPaymentNotFound
	}
	delete(v.s.payments, id)
	return nil
}

// =============================================================================
// SNAPSHOT / RESTORE
// =============================================================================

type storeSnapshot struct {
	slots    map[string]schedule.Slot
	payments map[string]payroll.Payment
}

func (s *Store) snapshot() storeSnapshot {
	slots := make(map[string]schedule.Slot, len(s.slots))
	for k, v := range s.slots {
		slots[k] = v
	}
	payments := make(map[string]payroll.Payment, len(s.payments))
	for k, v := range s.payments {
		payments[k] = v
	}
	return storeSnapshot{slots: slots, payments: payments}
}

func (s *Store) restore(snap storeSnapshot) {
	s.slots = snap.slots
	s.payments = snap.payments
}
