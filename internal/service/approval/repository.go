package approval

import (
	"context"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// Repository defines the data access contract for the approval queue.
type Repository interface {
	// Create stores a new pending approval request.
	Create(ctx context.Context, req *domain.ApprovalRequest) error

	// Get returns an approval request by ID. Returns ErrNotFound.
	Get(ctx context.Context, id string) (domain.ApprovalRequest, error)

	// Decide transitions a pending request to approved or rejected.
	// Returns ErrNotFound if the request does not exist, or
	// ErrAlreadyDecided if it is no longer pending.
	Decide(ctx context.Context, id string, status domain.ApprovalStatus, decidedBy string, at time.Time) error

	// ClaimResume atomically stamps resumed_at on an approved request.
	// Exactly one caller succeeds; the rest get ErrAlreadyResumed.
	ClaimResume(ctx context.Context, id string, at time.Time) error

	// ListPending returns pending requests, oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error)

	// ListResumable returns approved requests not yet resumed, oldest
	// decision first.
	ListResumable(ctx context.Context, limit int) ([]domain.ApprovalRequest, error)
}
