package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const probeTimeout = time.Second

type HealthHandler struct {
	pgPool  *pgxpool.Pool
	redis   *redis.Client
	env     string
	version string
	started time.Time
}

func NewHealthHandler(pgPool *pgxpool.Pool, redis *redis.Client, env, version string) *HealthHandler {
	return &HealthHandler{
		pgPool:  pgPool,
		redis:   redis,
		env:     env,
		version: version,
		started: time.Now(),
	}
}

// dependencyProbe checks one backing service. Critical probes gate readiness;
// non-critical ones only degrade it. Redis is non-critical because the
// database's unique index still prevents double-booking when the lock layer
// is down.
type dependencyProbe struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

func (h *HealthHandler) probes() []dependencyProbe {
	return []dependencyProbe{
		{
			name:     "postgres",
			critical: true,
			check:    func(ctx context.Context) error { return h.pgPool.Ping(ctx) },
		},
		{
			name:  "redis",
			check: func(ctx context.Context) error { return h.redis.Ping(ctx).Err() },
		},
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)
	status := "ok"

	for _, p := range h.probes() {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.check(ctx)
		cancel()

		if err != nil {
			deps[p.name] = "down"
			if p.critical {
				status = "error"
			} else if status == "ok" {
				status = "degraded"
			}
			continue
		}
		deps[p.name] = "ok"
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	})
}
