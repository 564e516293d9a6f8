package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailguard/internal/domain"
)

// Service implements the approval queue business logic. It is safe for
// concurrent use.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an approval service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create parks a send request pending human review and returns the stored
// request.
func (s *Service) Create(ctx context.Context, req domain.SendRequest, level domain.RiskLevel) (domain.ApprovalRequest, error) {
	ar := domain.ApprovalRequest{
		ID:        uuid.New().String(),
		Request:   req,
		RiskLevel: level,
		Status:    domain.ApprovalPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, &ar); err != nil {
		return domain.ApprovalRequest{}, fmt.Errorf("create approval request: %w", err)
	}
	return ar, nil
}

// Get returns an approval request by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.ApprovalRequest, error) {
	return s.repo.Get(ctx, id)
}

// Approve marks a pending request approved. A request can be decided
// exactly once.
func (s *Service) Approve(ctx context.Context, id, decidedBy string) error {
	return s.repo.Decide(ctx, id, domain.ApprovalApproved, decidedBy, s.now().UTC())
}

// Reject marks a pending request rejected. A request can be decided
// exactly once.
func (s *Service) Reject(ctx context.Context, id, decidedBy string) error {
	return s.repo.Decide(ctx, id, domain.ApprovalRejected, decidedBy, s.now().UTC())
}

// ClaimResume claims an approved request for dispatch. The claim is
// atomic: exactly one caller wins for any given request, later callers
// get ErrAlreadyResumed. Pending requests yield ErrStillPending and
// rejected ones ErrRejected.
func (s *Service) ClaimResume(ctx context.Context, id string) (domain.ApprovalRequest, error) {
	ar, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.ApprovalRequest{}, err
	}
	switch ar.Status {
	case domain.ApprovalPending:
		return domain.ApprovalRequest{}, ErrStillPending
	case domain.ApprovalRejected:
		return domain.ApprovalRequest{}, ErrRejected
	}
	if err := s.repo.ClaimResume(ctx, id, s.now().UTC()); err != nil {
		return domain.ApprovalRequest{}, err
	}
	return ar, nil
}

// ListPending returns requests awaiting a reviewer.
func (s *Service) ListPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error) {
	return s.repo.ListPending(ctx, limit)
}

// ListResumable returns approved requests whose dispatch has not run yet.
func (s *Service) ListResumable(ctx context.Context, limit int) ([]domain.ApprovalRequest, error) {
	return s.repo.ListResumable(ctx, limit)
}
