/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/rooms/*      Room management
  /api/teachers/*   Teacher management
  /api/students/*   Student management
  /api/lessons/*    Lesson definitions
  /api/schedule/*   Weekly slots and dated occurrences
  /api/payments/*   Payments and monthly settlement
  /api/reports/*    Revenue reporting

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Room routes
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.ListRooms)
			r.Post("/", h.CreateRoom)
			r.Get("/{id}", h.GetRoom)
			r.Put("/{id}", h.UpdateRoom)
			r.Delete("/{id}", h.DeleteRoom)
		})

		// Teacher routes
		r.Route("/teachers", func(r chi.Router) {
			r.Get("/", h.ListTeachers)
			r.Post("/", h.CreateTeacher)
			r.Get("/{id}", h.GetTeacher)
			r.Put("/{id}", h.UpdateTeacher)
			r.Delete("/{id}", h.DeleteTeacher)
			r.Get("/{id}/schedule", h.GetTeacherSchedule)
		})

		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
		})

		// Lesson routes
		r.Route("/lessons", func(r chi.Router) {
			r.Get("/", h.ListLessons)
			r.Post("/", h.CreateLesson)
			r.Get("/{id}", h.GetLesson)
			r.Put("/{id}", h.UpdateLesson)
			r.Delete("/{id}", h.DeactivateLesson)
		})

		// Schedule routes
		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", h.ListSchedule)
			r.Post("/", h.CreateSlot)
			r.Get("/range", h.GetScheduleRange)
			r.Get("/room/{roomID}", h.GetRoomSchedule)
			r.Get("/teacher/{teacherID}", h.GetTeacherScheduleView)
			r.Put("/{id}", h.UpdateSlot)
			r.Delete("/{id}", h.DeleteSlot)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Post("/generate-monthly", h.GenerateMonthlySettlement)
			r.Get("/month/{year}/{month}", h.ListPaymentsForMonth)
			r.Get("/teacher/{id}", h.ListPaymentsForTeacher)
			r.Get("/{id}", h.GetPayment)
			r.Put("/{id}/status", h.UpdatePaymentStatus)
			r.Delete("/{id}", h.DeletePayment)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/earnings", h.EarningsReport)
		})
	})

	return r
}
