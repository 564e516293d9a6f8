package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/httputil"
	"github.com/ignite/mailguard/internal/service/preference"
)

// unsubscribedPage is the confirmation shown to recipients who follow the
// link from a message footer.
const unsubscribedPage = `<!DOCTYPE html>
<html>
<head><title>Unsubscribed</title></head>
<body style="font-family: sans-serif; max-width: 480px; margin: 80px auto; text-align: center;">
  <h2>You're unsubscribed</h2>
  <p>%s will no longer receive these emails.</p>
</body>
</html>`

// UnsubscribeLanding handles a recipient clicking the unsubscribe link.
// The click itself records the opt-out; there is no second confirmation
// step to abandon.
func (h *Handlers) UnsubscribeLanding(w http.ResponseWriter, r *http.Request) {
	rec, err := h.redeem(r)
	if err != nil {
		httputil.BadRequest(w, "invalid unsubscribe link")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, unsubscribedPage, rec.Recipient)
}

// UnsubscribeOneClick handles the RFC 8058 List-Unsubscribe POST that mail
// clients fire without showing the recipient a page.
func (h *Handlers) UnsubscribeOneClick(w http.ResponseWriter, r *http.Request) {
	rec, err := h.redeem(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"status":    "unsubscribed",
		"recipient": rec.Recipient,
		"scenario":  rec.Scenario,
	})
}

func (h *Handlers) redeem(r *http.Request) (domain.UnsubscribeRecord, error) {
	rec, err := h.prefs.Redeem(r.Context(), chi.URLParam(r, "token"), preference.RedeemContext{
		SourceIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return domain.UnsubscribeRecord{}, err
	}

	h.log.Info("unsubscribe recorded",
		"recipient", rec.Recipient,
		"tenant_id", rec.TenantID,
		"global", rec.Scenario == nil,
	)
	return rec, nil
}

// ListUnsubscribes returns opt-out records for a tenant.
func (h *Handlers) ListUnsubscribes(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httputil.BadRequest(w, "tenant_id is required")
		return
	}

	records, err := h.prefs.List(r.Context(), tenantID, queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"unsubscribes": records,
		"count":        len(records),
	})
}

// Resubscribe removes a recipient's opt-out on their explicit request.
func (h *Handlers) Resubscribe(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	recipient := domain.NormalizeEmail(chi.URLParam(r, "recipient"))

	if err := h.prefs.Resubscribe(r.Context(), recipient, tenantID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.log.Info("recipient resubscribed",
		"recipient", recipient,
		"tenant_id", tenantID,
	)
	httputil.NoContent(w)
}
