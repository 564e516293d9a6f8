package api

import (
	"net/http"
	"time"

	"github.com/ignite/mailguard/internal/audit"
	"github.com/ignite/mailguard/internal/pkg/httputil"
)

// ListDecisions returns recent send decisions, newest first. Filterable by
// tenant_id and outcome.
func (h *Handlers) ListDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := h.audit.ListRecent(r.Context(), audit.Filter{
		TenantID: r.URL.Query().Get("tenant_id"),
		Outcome:  r.URL.Query().Get("outcome"),
		Limit:    queryInt(r, "limit", 100),
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

// WarmupStatus reports where the sending identity sits on its ramp right
// now: day, caps, allowed scenarios.
func (h *Handlers) WarmupStatus(w http.ResponseWriter, r *http.Request) {
	phase, err := h.warmup.CurrentPhase(r.Context(), h.warmupIdentity, time.Now().UTC())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"identity": h.warmupIdentity,
		"phase":    phase,
	})
}
