/*
handlers.go - HTTP API handlers for the lesson scheduling system

PURPOSE:
  Exposes the scheduler and payroll engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Rooms:
    GET    /api/rooms                  List rooms
    POST   /api/rooms                  Create room
    GET    /api/rooms/{id}             Get room
    PUT    /api/rooms/{id}             Update room
    DELETE /api/rooms/{id}             Delete room

  Teachers / Students:
    Standard CRUD under /api/teachers and /api/students, plus
    GET /api/teachers/{id}/schedule for one teacher's slots.

  Lessons:
    GET    /api/lessons                List lessons
    POST   /api/lessons                Create lesson (room category checked)
    DELETE /api/lessons/{id}           Deactivate (soft delete)

  Schedule:
    GET    /api/schedule               Whole-school slot list
    GET    /api/schedule/range         Dated occurrences for ?start_date&end_date
    GET    /api/schedule/room/{id}     One room's active slots
    GET    /api/schedule/teacher/{id}  One teacher's active slots
    POST   /api/schedule               Create slot (conflict-checked)
    PUT    /api/schedule/{id}          Update slot (conflict-checked)
    DELETE /api/schedule/{id}          Delete slot

  Payments:
    GET    /api/payments               List payments
    POST   /api/payments               Record a manual payment
    GET    /api/payments/month/{year}/{month}
    GET    /api/payments/teacher/{id}
    PUT    /api/payments/{id}/status   pending -> paid | cancelled
    DELETE /api/payments/{id}
    POST   /api/payments/generate-monthly  Run monthly settlement

  Reports:
    GET    /api/reports/earnings       Paid revenue per teacher per month

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad status transition
  - 404: Resource not found
  - 409: Slot conflict, duplicate settlement
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harmonia/lesson-engine/payroll"
	"github.com/harmonia/lesson-engine/schedule"
	"github.com/harmonia/lesson-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Scheduler *schedule.Service
	Engine    *payroll.Engine
}

// NewHandler creates a new handler with the given store and domain services.
func NewHandler(store *sqlite.Store, scheduler *schedule.Service, engine *payroll.Engine) *Handler {
	return &Handler{Store: store, Scheduler: scheduler, Engine: engine}
}

// =============================================================================
// ROOM HANDLERS
// =============================================================================

// ListRooms returns all rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Store.ListRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rooms", err)
		return
	}

	dtos := make([]RoomDTO, len(rooms))
	for i, room := range rooms {
		dtos[i] = toRoomDTO(room)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRoom returns a single room.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Store.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get room", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(*room))
}

// CreateRoom creates a new room.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req SaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	room, err := roomFromRequest(uuid.NewString(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room", err)
		return
	}
	if err := h.Store.SaveRoom(r.Context(), room); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(room))
}

// UpdateRoom replaces a room's attributes.
func (h *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.Store.GetRoom(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get room", err)
		return
	}

	var req SaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	room, err := roomFromRequest(id, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room", err)
		return
	}
	room.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveRoom(r.Context(), room); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update room", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(room))
}

// DeleteRoom removes a room.
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteRoom(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete room", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func roomFromRequest(id string, req SaveRoomRequest) (schedule.Room, error) {
	if req.Name == "" {
		return schedule.Room{}, fmt.Errorf("name is required")
	}
	category := schedule.LessonCategory(req.Category)
	if category != schedule.CategoryInstrument && category != schedule.CategoryArt {
		return schedule.Room{}, fmt.Errorf("category must be %q or %q",
			schedule.CategoryInstrument, schedule.CategoryArt)
	}
	capacity := req.Capacity
	if capacity <= 0 {
		capacity = 1
	}
	return schedule.Room{
		ID:          id,
		Name:        req.Name,
		Category:    category,
		Capacity:    capacity,
		Description: req.Description,
	}, nil
}

func toRoomDTO(room schedule.Room) RoomDTO {
	return RoomDTO{
		ID:          room.ID,
		Name:        room.Name,
		Category:    string(room.Category),
		Capacity:    room.Capacity,
		Description: room.Description,
		CreatedAt:   room.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// TEACHER HANDLERS
// =============================================================================

// ListTeachers returns all teachers.
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.Store.ListTeachers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
		return
	}

	dtos := make([]TeacherDTO, len(teachers))
	for i, t := range teachers {
		dtos[i] = toTeacherDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTeacher returns a single teacher.
func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTeacher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get teacher", err)
		return
	}
	writeJSON(w, http.StatusOK, toTeacherDTO(*t))
}

// CreateTeacher creates a new teacher.
func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req SaveTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "first_name and last_name are required", nil)
		return
	}

	t := teacherFromRequest(uuid.NewString(), req)
	if err := h.Store.SaveTeacher(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create teacher", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeacherDTO(t))
}

// UpdateTeacher replaces a teacher's attributes.
func (h *Handler) UpdateTeacher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.Store.GetTeacher(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get teacher", err)
		return
	}

	var req SaveTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t := teacherFromRequest(id, req)
	t.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveTeacher(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update teacher", err)
		return
	}
	writeJSON(w, http.StatusOK, toTeacherDTO(t))
}

// DeleteTeacher removes a teacher.
func (h *Handler) DeleteTeacher(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTeacher(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete teacher", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTeacherSchedule returns one teacher's active slots.
func (h *Handler) GetTeacherSchedule(w http.ResponseWriter, r *http.Request) {
	slots, err := h.Store.ListSlotsForTeacher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teacher schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

func teacherFromRequest(id string, req SaveTeacherRequest) sqlite.Teacher {
	return sqlite.Teacher{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Instruments: req.Instruments,
		CanTeachArt: req.CanTeachArt,
	}
}

func toTeacherDTO(t sqlite.Teacher) TeacherDTO {
	return TeacherDTO{
		ID:          t.ID,
		FirstName:   t.FirstName,
		LastName:    t.LastName,
		Email:       t.Email,
		Phone:       t.Phone,
		Instruments: t.Instruments,
		CanTeachArt: t.CanTeachArt,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all students.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, st := range students {
		dtos[i] = toStudentDTO(st)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get student", err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*st))
}

// CreateStudent creates a new student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req SaveStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "first_name and last_name are required", nil)
		return
	}

	st := studentFromRequest(uuid.NewString(), req)
	if err := h.Store.SaveStudent(r.Context(), st); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(st))
}

// UpdateStudent replaces a student's attributes.
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.Store.GetStudent(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get student", err)
		return
	}

	var req SaveStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	st := studentFromRequest(id, req)
	st.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveStudent(r.Context(), st); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update student", err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(st))
}

// DeleteStudent removes a student.
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteStudent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func studentFromRequest(id string, req SaveStudentRequest) sqlite.Student {
	return sqlite.Student{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		BirthDate:   req.BirthDate,
		ParentName:  req.ParentName,
		ParentPhone: req.ParentPhone,
		Address:     req.Address,
	}
}

func toStudentDTO(st sqlite.Student) StudentDTO {
	return StudentDTO{
		ID:          st.ID,
		FirstName:   st.FirstName,
		LastName:    st.LastName,
		Email:       st.Email,
		Phone:       st.Phone,
		BirthDate:   st.BirthDate,
		ParentName:  st.ParentName,
		ParentPhone: st.ParentPhone,
		Address:     st.Address,
		CreatedAt:   st.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// LESSON HANDLERS
// =============================================================================

// ListLessons returns all lessons, active and inactive.
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.Store.ListLessons(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lessons", err)
		return
	}

	dtos := make([]LessonDTO, len(lessons))
	for i, l := range lessons {
		dtos[i] = toLessonDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLesson returns a single lesson.
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	l, err := h.Store.GetLesson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get lesson", err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonDTO(*l))
}

// CreateLesson creates a lesson after checking referenced records and the
// room's category rules.
func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	var req SaveLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lesson, err := h.lessonFromRequest(r, uuid.NewString(), req)
	if err != nil {
		writeDomainError(w, "Invalid lesson", err)
		return
	}
	if err := h.Store.SaveLesson(r.Context(), *lesson); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create lesson", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLessonDTO(*lesson))
}

// UpdateLesson replaces a lesson's attributes, re-running the room checks.
func (h *Handler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.Store.GetLesson(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get lesson", err)
		return
	}

	var req SaveLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	lesson, err := h.lessonFromRequest(r, id, req)
	if err != nil {
		writeDomainError(w, "Invalid lesson", err)
		return
	}
	lesson.Active = existing.Active
	lesson.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveLesson(r.Context(), *lesson); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update lesson", err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonDTO(*lesson))
}

// DeactivateLesson soft-deletes a lesson. Its slots stop appearing in room
// and schedule views, and future settlements exclude it.
func (h *Handler) DeactivateLesson(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeactivateLesson(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to deactivate lesson", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lessonFromRequest(r *http.Request, id string, req SaveLessonRequest) (*schedule.Lesson, error) {
	category := schedule.LessonCategory(req.Category)
	if category != schedule.CategoryInstrument && category != schedule.CategoryArt {
		return nil, &schedule.ValidationError{Field: "category",
			Message: fmt.Sprintf("must be %q or %q", schedule.CategoryInstrument, schedule.CategoryArt)}
	}
	if req.DurationMinutes <= 0 {
		return nil, &schedule.ValidationError{Field: "duration_minutes", Message: "must be positive"}
	}
	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil || rate.IsNegative() {
		return nil, &schedule.ValidationError{Field: "hourly_rate", Message: "must be a non-negative decimal"}
	}

	ctx := r.Context()
	if _, err := h.Store.GetTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}
	if _, err := h.Store.GetStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}
	room, err := h.Store.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.AllowsLesson(category) {
		return nil, &schedule.ValidationError{Field: "room_id",
			Message: fmt.Sprintf("room %q does not host %s lessons", room.Name, category)}
	}

	return &schedule.Lesson{
		ID:              id,
		TeacherID:       req.TeacherID,
		StudentID:       req.StudentID,
		RoomID:          req.RoomID,
		Category:        category,
		Instrument:      req.Instrument,
		DurationMinutes: req.DurationMinutes,
		HourlyRate:      rate,
		Active:          true,
	}, nil
}

func toLessonDTO(l schedule.Lesson) LessonDTO {
	return LessonDTO{
		ID:              l.ID,
		TeacherID:       l.TeacherID,
		StudentID:       l.StudentID,
		RoomID:          l.RoomID,
		Category:        string(l.Category),
		Instrument:      l.Instrument,
		DurationMinutes: l.DurationMinutes,
		HourlyRate:      l.HourlyRate.String(),
		IsActive:        l.Active,
		CreatedAt:       l.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// ListSchedule returns every active slot, ordered by day then start time.
func (h *Handler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	slots, err := h.Store.ListSlots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

// GetRoomSchedule returns one room's active slots.
func (h *Handler) GetRoomSchedule(w http.ResponseWriter, r *http.Request) {
	slots, err := h.Scheduler.ListSlotsForRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeDomainError(w, "Failed to list room schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

// GetTeacherScheduleView mirrors GetTeacherSchedule for the schedule-first
// URL shape.
func (h *Handler) GetTeacherScheduleView(w http.ResponseWriter, r *http.Request) {
	slots, err := h.Store.ListSlotsForTeacher(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teacher schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

// GetScheduleRange expands slots into dated occurrences over the
// inclusive ?start_date&end_date range (YYYY-MM-DD).
func (h *Handler) GetScheduleRange(w http.ResponseWriter, r *http.Request) {
	start, err := schedule.ParseDate(r.URL.Query().Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := schedule.ParseDate(r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not precede start", nil)
		return
	}

	slots, err := h.Store.ListSlotsInRange(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list slots", err)
		return
	}

	// Expansion uses half-open periods; the query range is inclusive.
	period := schedule.Period{Start: start, End: end.AddDays(1)}
	occurrences := []OccurrenceDTO{}
	for _, slot := range slots {
		for _, occ := range schedule.Expand(slot, period) {
			occurrences = append(occurrences, OccurrenceDTO{
				SlotID:    occ.SlotID,
				LessonID:  occ.LessonID,
				Date:      occ.Date.String(),
				StartTime: occ.Start.String(),
				EndTime:   occ.End.String(),
			})
		}
	}
	writeJSON(w, http.StatusOK, occurrences)
}

// CreateSlot books a weekly slot, rejecting room conflicts.
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	input, err := slotInputFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot", err)
		return
	}

	slot, err := h.Scheduler.CreateSlot(r.Context(), *input)
	if err != nil {
		writeDomainError(w, "Failed to create slot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSlotDTO(*slot))
}

// UpdateSlot moves a slot, re-running the conflict check against every
// other slot in the room.
func (h *Handler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	input, err := slotInputFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot", err)
		return
	}

	slot, err := h.Scheduler.UpdateSlot(r.Context(), chi.URLParam(r, "id"), *input)
	if err != nil {
		writeDomainError(w, "Failed to update slot", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTO(*slot))
}

// DeleteSlot removes a slot from the schedule.
func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	if err := h.Scheduler.DeleteSlot(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete slot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func slotInputFromRequest(r *http.Request) (*schedule.SlotInput, error) {
	var req SaveSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	start, err := schedule.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time: %w", err)
	}
	end, err := schedule.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time: %w", err)
	}
	validFrom, err := schedule.ParseDate(req.ValidFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid valid_from: %w", err)
	}

	input := schedule.SlotInput{
		LessonID:  req.LessonID,
		Day:       time.Weekday(req.DayOfWeek),
		Start:     start,
		End:       end,
		Recurring: req.Recurring == nil || *req.Recurring,
		ValidFrom: validFrom,
	}
	if req.ValidTo != "" {
		validTo, err := schedule.ParseDate(req.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("invalid valid_to: %w", err)
		}
		input.ValidTo = &validTo
	}
	return &input, nil
}

func toSlotDTO(slot schedule.Slot) SlotDTO {
	dto := SlotDTO{
		ID:        slot.ID,
		LessonID:  slot.LessonID,
		DayOfWeek: int(slot.Day),
		StartTime: slot.Start.String(),
		EndTime:   slot.End.String(),
		Recurring: slot.Recurring,
		ValidFrom: slot.ValidFrom.String(),
		CreatedAt: slot.CreatedAt.Format(time.RFC3339),
	}
	if slot.ValidTo != nil {
		dto.ValidTo = slot.ValidTo.String()
	}
	return dto
}

func toSlotDTOs(slots []schedule.Slot) []SlotDTO {
	dtos := make([]SlotDTO, len(slots))
	for i, slot := range slots {
		dtos[i] = toSlotDTO(slot)
	}
	return dtos
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns all payments, newest period first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.ListPayments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPaymentDTOs(r, payments))
}

// GetPayment returns a single payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get payment", err)
		return
	}
	name, _ := h.Store.GetTeacherName(r.Context(), p.TeacherID)
	writeJSON(w, http.StatusOK, toPaymentDTO(*p, name))
}

// ListPaymentsForMonth returns payments for one settlement period.
func (h *Handler) ListPaymentsForMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	payments, err := h.Store.ListPaymentsForPeriod(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPaymentDTOs(r, payments))
}

// ListPaymentsForTeacher returns one teacher's payment history.
func (h *Handler) ListPaymentsForTeacher(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.ListPaymentsForTeacher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPaymentDTOs(r, payments))
}

// CreatePayment records a staff-entered payment. Manual rows never block a
// settlement run for the same period.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	paymentDate, err := schedule.ParseDate(req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date (use YYYY-MM-DD)", err)
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", nil)
		return
	}
	if req.Year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", nil)
		return
	}
	teacher, err := h.Store.GetTeacher(r.Context(), req.TeacherID)
	if err != nil {
		writeDomainError(w, "Failed to resolve teacher", err)
		return
	}

	p := payroll.Payment{
		ID:          uuid.NewString(),
		TeacherID:   req.TeacherID,
		Amount:      amount,
		PaymentDate: paymentDate,
		Month:       req.Month,
		Year:        req.Year,
		Status:      payroll.StatusPending,
		Source:      payroll.SourceManual,
		Notes:       req.Notes,
	}
	if err := h.Store.CreatePayment(r.Context(), p); err != nil {
		writeDomainError(w, "Failed to create payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p, teacher.FirstName+" "+teacher.LastName))
}

// UpdatePaymentStatus moves a payment along the pending -> paid/cancelled
// state machine.
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Store.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get payment", err)
		return
	}
	if err := p.TransitionTo(payroll.PaymentStatus(req.Status)); err != nil {
		writeDomainError(w, "Invalid status transition", err)
		return
	}
	if err := h.Store.UpdatePayment(r.Context(), *p); err != nil {
		writeDomainError(w, "Failed to update payment", err)
		return
	}
	name, _ := h.Store.GetTeacherName(r.Context(), p.TeacherID)
	writeJSON(w, http.StatusOK, toPaymentDTO(*p, name))
}

// DeletePayment removes a payment record.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePayment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateMonthlySettlement runs the settlement engine for one period.
// Re-running for the same period is safe: already-settled teachers are
// skipped and reported.
func (h *Handler) GenerateMonthlySettlement(w http.ResponseWriter, r *http.Request) {
	var req GenerateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.GenerateMonthlySettlement(r.Context(), req.Year, req.Month)
	if err != nil {
		writeDomainError(w, "Settlement failed", err)
		return
	}

	resp := SettlementResponse{
		Year:            result.Year,
		Month:           result.Month,
		TeacherCount:    result.TeacherCount,
		SkippedTeachers: result.SkippedTeachers,
		CreatedPayments: h.toPaymentDTOs(r, result.CreatedPayments),
	}
	writeJSON(w, http.StatusCreated, resp)
}

func toPaymentDTO(p payroll.Payment, teacherName string) PaymentDTO {
	return PaymentDTO{
		ID:          p.ID,
		TeacherID:   p.TeacherID,
		TeacherName: teacherName,
		Amount:      p.Amount.String(),
		PaymentDate: p.PaymentDate.String(),
		Month:       p.Month,
		Year:        p.Year,
		Status:      string(p.Status),
		Source:      string(p.Source),
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

// toPaymentDTOs resolves all teacher names with a single query rather than
// one lookup per payment row.
func (h *Handler) toPaymentDTOs(r *http.Request, payments []payroll.Payment) []PaymentDTO {
	names, err := h.Store.TeacherNames(r.Context())
	if err != nil {
		names = nil
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p, names[p.TeacherID])
	}
	return dtos
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// EarningsReport returns paid revenue per teacher per settlement period.
func (h *Handler) EarningsReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.EarningsReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build earnings report", err)
		return
	}

	dtos := make([]EarningsRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = EarningsRowDTO{
			TeacherID:   row.TeacherID,
			TeacherName: row.FirstName + " " + row.LastName,
			Month:       row.Month,
			Year:        row.Year,
			Revenue:     row.Revenue.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses:
// not-found -> 404, conflicts and duplicates -> 409, validation and bad
// transitions -> 400, everything else -> 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case schedule.IsNotFound(err),
		errors.Is(err, payroll.ErrPaymentNotFound),
		errors.Is(err, payroll.ErrTeacherNotFound),
		errors.Is(err, sqlite.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, schedule.ErrSlotConflict),
		errors.Is(err, payroll.ErrSettlementExists):
		writeError(w, http.StatusConflict, message, err)
	case schedule.IsClientError(err),
		errors.Is(err, payroll.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
