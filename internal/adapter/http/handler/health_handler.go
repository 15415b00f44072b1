package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 5 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependencyCheck struct {
	name  string
	check func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks []dependencyCheck
}

// NewHealthHandler creates a HealthHandler that reports ready only when both the
// ledger database and the catalog cache answer.
func NewHealthHandler(pool Pinger, redisClient redis.Cmdable) *HealthHandler {
	return &HealthHandler{
		checks: []dependencyCheck{
			{name: "postgres", check: pool.Ping},
			{name: "redis", check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	}
}

// Liveness always answers 200 while the process is serving.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness pings every dependency and answers 503 naming the ones that are down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.check(ctx); err != nil {
			checks[c.name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "unavailable"
	}

	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}
