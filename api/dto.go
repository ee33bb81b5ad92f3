/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/service.go: SlotInput, the domain-side input type
*/
package api

// =============================================================================
// ROOMS
// =============================================================================

// RoomDTO represents a room in API responses.
type RoomDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// SaveRoomRequest is the request to create or update a room.
type SaveRoomRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description"`
}

// =============================================================================
// TEACHERS / STUDENTS
// =============================================================================

// TeacherDTO represents a teacher in API responses.
type TeacherDTO struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Instruments string `json:"instruments,omitempty"`
	CanTeachArt bool   `json:"can_teach_art"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// SaveTeacherRequest is the request to create or update a teacher.
type SaveTeacherRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Instruments string `json:"instruments"`
	CanTeachArt bool   `json:"can_teach_art"`
}

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
	ParentName  string `json:"parent_name,omitempty"`
	ParentPhone string `json:"parent_phone,omitempty"`
	Address     string `json:"address,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// SaveStudentRequest is the request to create or update a student.
type SaveStudentRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	BirthDate   string `json:"birth_date"`
	ParentName  string `json:"parent_name"`
	ParentPhone string `json:"parent_phone"`
	Address     string `json:"address"`
}

// =============================================================================
// LESSONS
// =============================================================================

// LessonDTO represents a lesson definition in API responses.
type LessonDTO struct {
	ID              string `json:"id"`
	TeacherID       string `json:"teacher_id"`
	StudentID       string `json:"student_id"`
	RoomID          string `json:"room_id"`
	Category        string `json:"category"`
	Instrument      string `json:"instrument,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	HourlyRate      string `json:"hourly_rate"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// SaveLessonRequest is the request to create or update a lesson.
type SaveLessonRequest struct {
	TeacherID       string `json:"teacher_id"`
	StudentID       string `json:"student_id"`
	RoomID          string `json:"room_id"`
	Category        string `json:"category"`
	Instrument      string `json:"instrument"`
	DurationMinutes int    `json:"duration_minutes"`
	HourlyRate      string `json:"hourly_rate"`
}

// =============================================================================
// SCHEDULE
// =============================================================================

// SlotDTO represents a schedule slot in API responses.
type SlotDTO struct {
	ID        string `json:"id"`
	LessonID  string `json:"lesson_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Recurring bool   `json:"recurring"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SaveSlotRequest is the request to create or update a schedule slot.
type SaveSlotRequest struct {
	LessonID  string `json:"lesson_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Recurring *bool  `json:"recurring"` // nil defaults to true
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
}

// OccurrenceDTO is a single dated lesson occurrence in a range view.
type OccurrenceDTO struct {
	SlotID    string `json:"slot_id"`
	LessonID  string `json:"lesson_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID          string `json:"id"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name,omitempty"`
	Amount      string `json:"amount"`
	PaymentDate string `json:"payment_date"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Status      string `json:"status"`
	Source      string `json:"source"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreatePaymentRequest is the request to record a manual payment.
type CreatePaymentRequest struct {
	TeacherID   string `json:"teacher_id"`
	Amount      string `json:"amount"`
	PaymentDate string `json:"payment_date"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Notes       string `json:"notes"`
}

// UpdatePaymentStatusRequest moves a payment through its state machine.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status"`
}

// GenerateSettlementRequest triggers a monthly settlement run.
type GenerateSettlementRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// SettlementResponse summarizes a settlement run.
type SettlementResponse struct {
	Year            int          `json:"year"`
	Month           int          `json:"month"`
	TeacherCount    int          `json:"teacher_count"`
	SkippedTeachers int          `json:"skipped_teachers"`
	CreatedPayments []PaymentDTO `json:"created_payments"`
}

// =============================================================================
// REPORTS
// =============================================================================

// EarningsRowDTO is one line of the paid-revenue report.
type EarningsRowDTO struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Revenue     string `json:"revenue"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
