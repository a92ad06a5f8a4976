package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	Service     *schedule.Service
	Resolver    *schedule.Resolver
	PgPool      *pgxpool.Pool
	Redis       *redis.Client
	Env         string
	Version     string
	HorizonDays int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Slot browsing
	r.Get("/providers/{id}/slots", daySlotsHandler(cfg.Resolver))
	r.Get("/providers/{id}/slots/week", weekSlotsHandler(cfg.Resolver))

	// Availability windows
	r.Get("/availability/grid", gridOptionsHandler(cfg.Resolver))
	r.Post("/providers/{id}/availability", declareAvailabilityHandler(cfg.Service))
	r.Get("/providers/{id}/availability", listAvailabilityHandler(cfg.Service, cfg.HorizonDays))
	r.Get("/providers/{id}/appointments", providerAppointmentsHandler(cfg.Service, cfg.HorizonDays))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))

	// Patient history
	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Service))

	return r
}
