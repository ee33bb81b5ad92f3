/*
handlers_test.go - HTTP-level tests through the full router

Covers:
- Room category rules on lesson creation
- Slot booking conflicts surfacing as 409
- Monthly settlement endpoint, including idempotent re-runs
- Payment status transitions
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia/lesson-engine/api"
	"github.com/harmonia/lesson-engine/payroll"
	"github.com/harmonia/lesson-engine/schedule"
	"github.com/harmonia/lesson-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	scheduler := schedule.NewService(store)
	engine := payroll.NewEngine(store, store, store, sqlite.PaymentTx{Store: store}, nil)
	return api.NewRouter(api.NewHandler(store, scheduler, engine))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

// seedSchool creates a room, teacher, student, and lesson through the API
// and returns the lesson ID.
func seedSchool(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/rooms", map[string]any{
		"name": "Studio A", "category": "instrument", "capacity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode[map[string]any](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/teachers", map[string]any{
		"first_name": "Anna", "last_name": "Keller", "instruments": "piano",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	teacher := decode[map[string]any](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/students", map[string]any{
		"first_name": "Milo", "last_name": "Brandt",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	student := decode[map[string]any](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/lessons", map[string]any{
		"teacher_id":       teacher["id"],
		"student_id":       student["id"],
		"room_id":          room["id"],
		"category":         "instrument",
		"instrument":       "piano",
		"duration_minutes": 60,
		"hourly_rate":      "400",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lesson := decode[map[string]any](t, rec)
	return lesson["id"].(string)
}

func slotBody(lessonID, start, end string) map[string]any {
	return map[string]any{
		"lesson_id":   lessonID,
		"day_of_week": 1,
		"start_time":  start,
		"end_time":    end,
		"valid_from":  "2024-01-01",
	}
}

// =============================================================================
// ROOM CATEGORY TESTS
// =============================================================================

func TestAPI_ArtLessonRejectedInInstrumentRoom(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/rooms", map[string]any{
		"name": "Studio A", "category": "instrument",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	room := decode[map[string]any](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/teachers", map[string]any{
		"first_name": "Ben", "last_name": "Okafor", "can_teach_art": true,
	})
	teacher := decode[map[string]any](t, rec)
	rec = doJSON(t, router, http.MethodPost, "/api/students", map[string]any{
		"first_name": "Lea", "last_name": "Sommer",
	})
	student := decode[map[string]any](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/lessons", map[string]any{
		"teacher_id":       teacher["id"],
		"student_id":       student["id"],
		"room_id":          room["id"],
		"category":         "art",
		"duration_minutes": 90,
		"hourly_rate":      "300",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestAPI_RoomWithBadCategoryRejected(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/rooms", map[string]any{
		"name": "Studio X", "category": "dance",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SCHEDULE TESTS
// =============================================================================

func TestAPI_SlotConflictReturns409(t *testing.T) {
	// GIVEN: A booked Monday 10:00-11:00 slot
	// WHEN: Booking an overlapping slot in the same room
	// THEN: 409 Conflict

	router := newTestRouter(t)
	lessonID := seedSchool(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/schedule", slotBody(lessonID, "10:00", "11:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/schedule", slotBody(lessonID, "10:30", "11:30"))
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// Back-to-back is fine.
	rec = doJSON(t, router, http.MethodPost, "/api/schedule", slotBody(lessonID, "11:00", "12:00"))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAPI_ScheduleRangeExpandsOccurrences(t *testing.T) {
	// GIVEN: A weekly Monday slot
	// WHEN: Asking for January 2024 as a date range
	// THEN: Five dated occurrences

	router := newTestRouter(t)
	lessonID := seedSchool(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/schedule", slotBody(lessonID, "10:00", "11:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/schedule/range?start_date=2024-01-01&end_date=2024-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	occs := decode[[]map[string]any](t, rec)
	require.Len(t, occs, 5)
	assert.Equal(t, "2024-01-01", occs[0]["date"])
	assert.Equal(t, "2024-01-29", occs[4]["date"])
}

func TestAPI_ScheduleRangeBadDates(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/schedule/range?start_date=nope&end_date=2024-01-31", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SETTLEMENT TESTS
// =============================================================================

func TestAPI_GenerateMonthlySettlement(t *testing.T) {
	router := newTestRouter(t)
	lessonID := seedSchool(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/schedule", slotBody(lessonID, "10:00", "11:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/payments/generate-monthly",
		map[string]any{"year": 2024, "month": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	result := decode[map[string]any](t, rec)
	created := result["created_payments"].([]any)
	require.Len(t, created, 1)

	payment := created[0].(map[string]any)
	assert.Equal(t, "2000", payment["amount"])
	assert.Equal(t, "pending", payment["status"])
	assert.Equal(t, "settlement", payment["source"])
	assert.Contains(t, payment["notes"], "Anna Keller")

	// Re-run: nothing new, one teacher skipped.
	rec = doJSON(t, router, http.MethodPost, "/api/payments/generate-monthly",
		map[string]any{"year": 2024, "month": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	again := decode[map[string]any](t, rec)
	assert.Empty(t, again["created_payments"])
	assert.Equal(t, float64(1), again["skipped_teachers"])
}

func TestAPI_SettlementInvalidMonth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/payments/generate-monthly",
		map[string]any{"year": 2024, "month": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PAYMENT LIFECYCLE TESTS
// =============================================================================

func TestAPI_PaymentStatusTransitions(t *testing.T) {
	router := newTestRouter(t)
	lessonID := seedSchool(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/schedule", slotBody(lessonID, "10:00", "11:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/payments/generate-monthly",
		map[string]any{"year": 2024, "month": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	result := decode[map[string]any](t, rec)
	payment := result["created_payments"].([]any)[0].(map[string]any)
	paymentID := payment["id"].(string)

	// pending -> paid
	rec = doJSON(t, router, http.MethodPut,
		fmt.Sprintf("/api/payments/%s/status", paymentID),
		map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "paid", updated["status"])

	// paid is terminal
	rec = doJSON(t, router, http.MethodPut,
		fmt.Sprintf("/api/payments/%s/status", paymentID),
		map[string]any{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Paid payments feed the earnings report.
	rec = doJSON(t, router, http.MethodGet, "/api/reports/earnings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]map[string]any](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "2000", rows[0]["revenue"])
	assert.Equal(t, "Anna Keller", rows[0]["teacher_name"])
}

func TestAPI_ManualPayment(t *testing.T) {
	router := newTestRouter(t)
	_ = seedSchool(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/teachers", nil)
	teachers := decode[[]map[string]any](t, rec)
	require.NotEmpty(t, teachers)
	teacherID := teachers[0]["id"].(string)

	rec = doJSON(t, router, http.MethodPost, "/api/payments", map[string]any{
		"teacher_id":   teacherID,
		"amount":       "500",
		"payment_date": "2024-01-15",
		"month":        1,
		"year":         2024,
		"notes":        "advance",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := decode[map[string]any](t, rec)
	assert.Equal(t, "manual", payment["source"])
	assert.Equal(t, "Anna Keller", payment["teacher_name"])

	rec = doJSON(t, router, http.MethodGet, "/api/payments/month/2024/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payments := decode[[]map[string]any](t, rec)
	require.Len(t, payments, 1)
	assert.Equal(t, "Anna Keller", payments[0]["teacher_name"])
}

func TestAPI_ManualPaymentRejectsBadPeriod(t *testing.T) {
	router := newTestRouter(t)
	_ = seedSchool(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/teachers", nil)
	teachers := decode[[]map[string]any](t, rec)
	require.NotEmpty(t, teachers)
	teacherID := teachers[0]["id"].(string)

	body := func(year, month int) map[string]any {
		return map[string]any{
			"teacher_id":   teacherID,
			"amount":       "500",
			"payment_date": "2024-01-15",
			"month":        month,
			"year":         year,
		}
	}

	rec = doJSON(t, router, http.MethodPost, "/api/payments", body(0, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/payments", body(2024, 13))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, rec))
}

func TestAPI_UnknownPayment404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/payments/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
