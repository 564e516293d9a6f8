package bounce

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// BlacklistThreshold is the number of counted hard bounces after which a
// recipient is blacklisted for the tenant.
const BlacklistThreshold = 3

// Service implements the bounce ledger business logic. It is safe for
// concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a bounce service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record stores a bounce event. Hard bounces and spam blocks advance the
// blacklist counter; soft bounces only refresh the record.
func (s *Service) Record(ctx context.Context, recipient, tenantID string, bounceType domain.BounceType, smtpCode int, at time.Time) (domain.BounceRecord, error) {
	recipient = domain.NormalizeEmail(recipient)
	if recipient == "" {
		return domain.BounceRecord{}, fmt.Errorf("recipient is required")
	}
	if tenantID == "" {
		return domain.BounceRecord{}, fmt.Errorf("tenant id is required")
	}
	return s.repo.Record(ctx, recipient, tenantID, bounceType, smtpCode, bounceType.CountsAsHard(), at)
}

// RecordSMTP classifies a raw SMTP reply and records the resulting bounce.
// This is the entry point for delivery webhooks.
func (s *Service) RecordSMTP(ctx context.Context, recipient, tenantID string, smtpCode int, smtpMessage string, at time.Time) (domain.BounceRecord, error) {
	return s.Record(ctx, recipient, tenantID, Classify(smtpCode, smtpMessage), smtpCode, at)
}

// IsBlacklisted reports whether the recipient is blocked from receiving
// mail for the tenant.
func (s *Service) IsBlacklisted(ctx context.Context, recipient, tenantID string) (bool, error) {
	return s.repo.IsBlacklisted(ctx, domain.NormalizeEmail(recipient), tenantID)
}

// Get returns the bounce record for a recipient.
func (s *Service) Get(ctx context.Context, recipient, tenantID string) (domain.BounceRecord, error) {
	return s.repo.Get(ctx, domain.NormalizeEmail(recipient), tenantID)
}

// Unblacklist clears the blacklist flag for a recipient. The bounce
// counters are preserved, so the next counted hard bounce blacklists the
// recipient again.
func (s *Service) Unblacklist(ctx context.Context, recipient, tenantID string) error {
	return s.repo.Unblacklist(ctx, domain.NormalizeEmail(recipient), tenantID)
}

// List returns bounce records for a tenant.
func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter) ([]domain.BounceRecord, error) {
	return s.repo.List(ctx, tenantID, filter)
}
