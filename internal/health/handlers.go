package health

import (
	"context"
	"net/http"
	"time"

	"github.com/aloxstore/storefront/internal/common"
)

// Checker reports whether the store's backing services answer.
type Checker interface {
	PingDB(ctx context.Context) error
	PingRedis(ctx context.Context) error
}

const (
	defaultDBTimeout    = 500 * time.Millisecond
	defaultRedisTimeout = 300 * time.Millisecond
)

type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live answers as long as the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready probes Postgres and Redis with independent timeouts and reports
// per-dependency status. Any failing dependency turns the whole probe 503.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "health checker not configured", nil)
		return
	}

	deps := map[string]string{}
	healthy := true

	if err := h.probe(r.Context(), h.dbTimeout(), h.Checker.PingDB); err != nil {
		deps["postgres"] = err.Error()
		healthy = false
	} else {
		deps["postgres"] = "ok"
	}

	if err := h.probe(r.Context(), h.redisTimeout(), h.Checker.PingRedis); err != nil {
		deps["redis"] = err.Error()
		healthy = false
	} else {
		deps["redis"] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	common.JSON(w, status, map[string]any{
		"status":       overall,
		"dependencies": deps,
	})
}

func (h *Handler) probe(ctx context.Context, timeout time.Duration, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return ping(ctx)
}

func (h *Handler) dbTimeout() time.Duration {
	if h.DBTimeout > 0 {
		return h.DBTimeout
	}
	return defaultDBTimeout
}

func (h *Handler) redisTimeout() time.Duration {
	if h.RedisTimeout > 0 {
		return h.RedisTimeout
	}
	return defaultRedisTimeout
}
