package api

import (
	"net/http"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/httputil"
)

// Evaluate runs one send request through the pipeline and returns its
// decision. The HTTP status reflects the call, not the verdict: a rejected
// send is still a successful evaluation.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req domain.SendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	decision, err := h.gov.Evaluate(r.Context(), req)
	if err != nil {
		if decision.Outcome == "" {
			httputil.InternalError(w, err)
			return
		}
		// the outcome stands even though the audit write failed; surface
		// the decision and let the error land in the logs
		h.log.Error("decision reached but not recorded",
			"outcome", string(decision.Outcome),
			"reason", string(decision.ReasonCode),
			"error", err.Error(),
		)
	}

	status := http.StatusOK
	if decision.Outcome == domain.OutcomePendingApproval {
		status = http.StatusAccepted
	}
	httputil.JSON(w, status, decision)
}
