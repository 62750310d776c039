/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. zap logger: Structured request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/students/*   Students, wallets and adjustments
  /api/teachers/*   Teachers, schedules, conflicts, hours
  /api/packages/*   Purchases and generated schedules
  /api/lessons/*    Instance transitions
  /healthz          Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Get("/{id}/wallet", h.GetWallet)
			r.Get("/{id}/lessons", h.ListStudentLessons)
			r.Get("/{id}/packages", h.ListStudentPackages)
			r.Get("/{id}/counts", h.GetStudentCounts)
			r.Post("/{id}/adjustments", h.AdjustWallet)
			r.Get("/{id}/adjustments", h.ListAdjustments)
		})

		r.Route("/teachers", func(r chi.Router) {
			r.Get("/", h.ListTeachers)
			r.Post("/", h.CreateTeacher)
			r.Get("/{id}", h.GetTeacher)
			r.Get("/{id}/schedule", h.GetTeacherSchedule)
			r.Get("/{id}/conflicts", h.CheckConflict)
			r.Get("/{id}/hours", h.GetTeacherHours)
		})

		r.Route("/packages", func(r chi.Router) {
			r.Post("/", h.PurchasePackage)
			r.Get("/{id}", h.GetPackage)
			r.Get("/{id}/lessons", h.ListPackageLessons)
			r.Post("/{id}/lessons", h.CreateLesson)
			r.Post("/{id}/close", h.ClosePackage)
		})

		r.Route("/lessons", func(r chi.Router) {
			r.Get("/{id}", h.GetLesson)
			r.Post("/{id}/mark", h.MarkLesson)
			r.Post("/{id}/reschedule", h.RescheduleLesson)
			r.Delete("/{id}", h.DeleteLesson)
		})
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
