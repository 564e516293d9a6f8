package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/httputil"
)

// ListApprovals returns held requests. ?state=pending (default) lists the
// review queue; ?state=resumable lists approved requests awaiting dispatch.
func (h *Handlers) ListApprovals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	var (
		items []domain.ApprovalRequest
		err   error
	)
	switch state := r.URL.Query().Get("state"); state {
	case "", "pending":
		items, err = h.approvals.ListPending(r.Context(), limit)
	case "resumable":
		items, err = h.approvals.ListResumable(r.Context(), limit)
	default:
		httputil.BadRequest(w, "unknown state "+strconv.Quote(state))
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"approvals": items,
		"count":     len(items),
	})
}

// GetApproval returns one held request by ID.
func (h *Handlers) GetApproval(w http.ResponseWriter, r *http.Request) {
	ar, err := h.approvals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, ar)
}

type decisionRequest struct {
	Action    string `json:"action"`
	DecidedBy string `json:"decided_by"`
}

// DecideApproval records a reviewer's verdict on a pending request.
// Approval does not dispatch; dispatch happens through the resume endpoint
// or the background sweep.
func (h *Handlers) DecideApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req decisionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.DecidedBy == "" {
		httputil.BadRequest(w, "decided_by is required")
		return
	}

	var err error
	switch req.Action {
	case "approve":
		err = h.approvals.Approve(r.Context(), id, req.DecidedBy)
	case "reject":
		err = h.approvals.Reject(r.Context(), id, req.DecidedBy)
	default:
		httputil.BadRequest(w, "action must be approve or reject")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.log.Info("approval decided",
		"approval_id", id,
		"action", req.Action,
		"decided_by", req.DecidedBy,
	)
	httputil.OK(w, map[string]string{"id": id, "action": req.Action})
}

// ResumeApproval dispatches an approved request through the remaining
// pipeline stages. Each approval dispatches at most once.
func (h *Handlers) ResumeApproval(w http.ResponseWriter, r *http.Request) {
	decision, err := h.gov.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if decision.Outcome == "" {
			writeServiceError(w, err)
			return
		}
		h.log.Error("resume decision reached but not recorded",
			"outcome", string(decision.Outcome),
			"error", err.Error(),
		)
	}
	httputil.OK(w, decision)
}

// queryInt reads an integer query parameter with a fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
