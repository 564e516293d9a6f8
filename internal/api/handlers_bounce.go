package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/httputil"
	"github.com/ignite/mailguard/internal/service/bounce"
)

type bounceEvent struct {
	Recipient   string `json:"recipient"`
	TenantID    string `json:"tenant_id"`
	SMTPCode    int    `json:"smtp_code"`
	SMTPMessage string `json:"smtp_message"`
}

// BounceWebhook ingests a delivery failure reported by the provider. The
// reply is 202: classification happened, but the caller gets no say in it.
func (h *Handlers) BounceWebhook(w http.ResponseWriter, r *http.Request) {
	var ev bounceEvent
	if !httputil.Decode(w, r, &ev) {
		return
	}
	if ev.Recipient == "" || ev.TenantID == "" {
		httputil.BadRequest(w, "recipient and tenant_id are required")
		return
	}
	if ev.SMTPCode < 200 || ev.SMTPCode > 599 {
		httputil.BadRequest(w, "smtp_code out of range")
		return
	}

	rec, err := h.bounces.RecordSMTP(r.Context(), ev.Recipient, ev.TenantID, ev.SMTPCode, ev.SMTPMessage, time.Now().UTC())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	if rec.Blacklisted {
		h.log.Warn("recipient blacklisted",
			"recipient", rec.Recipient,
			"tenant_id", rec.TenantID,
			"bounce_count", rec.BounceCount,
			"smtp_code", ev.SMTPCode,
		)
	}

	httputil.Accepted(w, map[string]interface{}{
		"bounce_type":  rec.BounceType,
		"bounce_count": rec.BounceCount,
		"blacklisted":  rec.Blacklisted,
	})
}

// ListBlacklist returns blacklisted recipients for a tenant.
func (h *Handlers) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httputil.BadRequest(w, "tenant_id is required")
		return
	}

	records, err := h.bounces.List(r.Context(), tenantID, bounce.ListFilter{
		OnlyBlacklisted: true,
		Limit:           queryInt(r, "limit", 100),
		Offset:          queryInt(r, "offset", 0),
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"blacklist": records,
		"count":     len(records),
	})
}

// Unblacklist clears the blacklist flag for one recipient. The bounce
// counter survives, so the next hard bounce re-blacklists immediately.
func (h *Handlers) Unblacklist(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	recipient := domain.NormalizeEmail(chi.URLParam(r, "recipient"))

	if err := h.bounces.Unblacklist(r.Context(), recipient, tenantID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.log.Info("blacklist cleared",
		"recipient", recipient,
		"tenant_id", tenantID,
	)
	httputil.NoContent(w)
}
