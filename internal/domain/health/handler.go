package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/servineo/servineo-api/internal/pkg/response"
)

// successCacheTTL is how long a healthy result is served without re-probing.
const successCacheTTL = 30 * time.Second

const probeTimeout = 5 * time.Second

// DependencyStatus reports one dependency's probe outcome.
type DependencyStatus struct {
	Healthy        bool      `json:"healthy"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	LastChecked    time.Time `json:"lastChecked"`
	Error          string    `json:"error,omitempty"`
}

// Report is the composite health response.
type Report struct {
	Status   string           `json:"status"` // "ok" or "degraded"
	Database DependencyStatus `json:"database"`
	Cache    DependencyStatus `json:"cache"`
}

// Handler probes the persistent store and cache, caching healthy results.
type Handler struct {
	db    *sqlx.DB
	redis *redis.Client
	now   func() time.Time

	mu         sync.Mutex
	lastReport *Report
	lastAt     time.Time
}

// NewHandler creates health handler
func NewHandler(db *sqlx.DB, redisClient *redis.Client) *Handler {
	return &Handler{db: db, redis: redisClient, now: time.Now}
}

// Check handles GET /health
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	report := h.report(r.Context())

	if report.Status == "ok" {
		response.OK(w, report)
		return
	}
	response.JSON(w, http.StatusServiceUnavailable, report)
}

// report returns the cached result while it is fresh and healthy, otherwise
// re-probes both dependencies. Failures are never cached, so a degraded
// service is re-checked on every request.
func (h *Handler) report(ctx context.Context) *Report {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if h.lastReport != nil && h.lastReport.Status == "ok" && now.Sub(h.lastAt) < successCacheTTL {
		return h.lastReport
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	report := &Report{
		Database: h.probeDatabase(probeCtx),
		Cache:    h.probeCache(probeCtx),
	}
	if report.Database.Healthy && report.Cache.Healthy {
		report.Status = "ok"
	} else {
		report.Status = "degraded"
	}

	h.lastReport = report
	h.lastAt = now
	return report
}

func (h *Handler) probeDatabase(ctx context.Context) DependencyStatus {
	start := h.now()
	status := DependencyStatus{LastChecked: start}

	if h.db == nil {
		status.Error = "not configured"
		return status
	}
	if err := h.db.PingContext(ctx); err != nil {
		status.Error = err.Error()
	} else {
		status.Healthy = true
	}
	status.ResponseTimeMs = time.Since(start).Milliseconds()
	return status
}

func (h *Handler) probeCache(ctx context.Context) DependencyStatus {
	start := h.now()
	status := DependencyStatus{LastChecked: start}

	if h.redis == nil {
		status.Error = "not configured"
		return status
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		status.Error = err.Error()
	} else {
		status.Healthy = true
	}
	status.ResponseTimeMs = time.Since(start).Milliseconds()
	return status
}
