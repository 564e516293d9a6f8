package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ignite/mailguard/internal/audit"
	"github.com/ignite/mailguard/internal/governor"
	"github.com/ignite/mailguard/internal/pkg/httputil"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/service/approval"
	"github.com/ignite/mailguard/internal/service/bounce"
	"github.com/ignite/mailguard/internal/service/preference"
	"github.com/ignite/mailguard/internal/warmup"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	gov       *governor.Governor
	bounces   *bounce.Service
	prefs     *preference.Service
	approvals *approval.Service
	audit     *audit.Recorder
	warmup    *warmup.Scheduler

	warmupIdentity string
	startedAt      time.Time
	log            *logger.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	gov *governor.Governor,
	bounces *bounce.Service,
	prefs *preference.Service,
	approvals *approval.Service,
	auditRec *audit.Recorder,
	warmupSched *warmup.Scheduler,
	warmupIdentity string,
) *Handlers {
	return &Handlers{
		gov:            gov,
		bounces:        bounces,
		prefs:          prefs,
		approvals:      approvals,
		audit:          auditRec,
		warmup:         warmupSched,
		warmupIdentity: warmupIdentity,
		startedAt:      time.Now().UTC(),
		log:            logger.Component("API"),
	}
}

// HealthCheck reports liveness. No auth so load balancers can probe it.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status":         "ok",
		"service":        "mailguard",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps service sentinel errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, approval.ErrNotFound),
		errors.Is(err, bounce.ErrNotFound),
		errors.Is(err, preference.ErrNotFound):
		httputil.NotFound(w, "not found")
	case errors.Is(err, approval.ErrAlreadyDecided):
		httputil.Conflict(w, "request already decided")
	case errors.Is(err, approval.ErrStillPending):
		httputil.Conflict(w, "request still pending review")
	case errors.Is(err, approval.ErrAlreadyResumed):
		httputil.Conflict(w, "request already dispatched")
	case errors.Is(err, approval.ErrRejected):
		httputil.Error(w, http.StatusGone, "request was rejected")
	case errors.Is(err, preference.ErrTokenInvalid):
		httputil.BadRequest(w, "invalid unsubscribe token")
	default:
		httputil.InternalError(w, err)
	}
}
