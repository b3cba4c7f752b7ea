package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hostelhub/fee-ledger/internal/cascade"
	"github.com/hostelhub/fee-ledger/pkg/response"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// CascadeStats reports the state of the background cascade queue.
type CascadeStats interface {
	Stats() cascade.Stats
}

type HealthHandler struct {
	db       *sqlx.DB
	redis    *redis.Client
	cascades CascadeStats
	version  string
	timeout  time.Duration
}

// NewHealthHandler builds the health endpoints. db and redis may be nil when
// the process runs without them.
func NewHealthHandler(db *sqlx.DB, redis *redis.Client, cascades CascadeStats, version string, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		db:       db,
		redis:    redis,
		cascades: cascades,
		version:  version,
		timeout:  timeout,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Cascades  *cascade.Stats    `json:"cascades,omitempty"`
}

// Health performs a basic health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	response.Success(w, status)
}

// Ready performs readiness check including database and redis connectivity
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			status.Status = "error"
			status.Checks["database"] = "failed: " + err.Error()
		} else {
			status.Checks["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status.Status = "error"
			status.Checks["redis"] = "failed: " + err.Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	if h.cascades != nil {
		stats := h.cascades.Stats()
		status.Cascades = &stats
	}

	if status.Status == "error" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(w, status)
}

// Version reports the build version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"version": h.version})
}
