package preference

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailguard/internal/domain"
)

// Service implements unsubscribe preference logic. It is safe for
// concurrent use.
type Service struct {
	repo  Repository
	codec *TokenCodec
	now   func() time.Time
}

// NewService creates a preference service backed by the given repository,
// signing tokens with secret.
func NewService(repo Repository, secret string) *Service {
	return &Service{repo: repo, codec: NewTokenCodec(secret), now: time.Now}
}

// IssueToken mints a signed unsubscribe token for a recipient. A nil
// scenario issues a token that opts the recipient out of all mail from
// the tenant.
func (s *Service) IssueToken(recipient, tenantID string, scenario *domain.Scenario) string {
	return s.codec.Encode(TokenClaims{
		Recipient: domain.NormalizeEmail(recipient),
		TenantID:  tenantID,
		Scenario:  scenario,
		IssuedAt:  s.now().UTC(),
	})
}

// RedeemContext carries request metadata stored alongside the opt-out.
type RedeemContext struct {
	SourceIP  string
	UserAgent string
}

// Redeem validates a token and records the opt-out. Redeeming the same
// token again is a no-op and returns the original record.
func (s *Service) Redeem(ctx context.Context, token string, rc RedeemContext) (domain.UnsubscribeRecord, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return domain.UnsubscribeRecord{}, err
	}

	rec := &domain.UnsubscribeRecord{
		ID:             uuid.New().String(),
		Recipient:      claims.Recipient,
		TenantID:       claims.TenantID,
		Scenario:       claims.Scenario,
		UnsubscribedAt: s.now().UTC(),
		Token:          token,
		SourceIP:       rc.SourceIP,
		UserAgent:      rc.UserAgent,
	}
	stored, _, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return domain.UnsubscribeRecord{}, fmt.Errorf("store unsubscribe: %w", err)
	}
	return stored, nil
}

// IsUnsubscribed reports whether a send to the recipient should be
// withheld for the given scenario. A record without a scenario matches
// every scenario.
func (s *Service) IsUnsubscribed(ctx context.Context, recipient, tenantID string, scenario domain.Scenario) (bool, error) {
	return s.repo.IsUnsubscribed(ctx, domain.NormalizeEmail(recipient), tenantID, scenario)
}

// Resubscribe removes the opt-out for a recipient.
func (s *Service) Resubscribe(ctx context.Context, recipient, tenantID string) error {
	return s.repo.Delete(ctx, domain.NormalizeEmail(recipient), tenantID)
}

// List returns unsubscribe records for a tenant.
func (s *Service) List(ctx context.Context, tenantID string, limit, offset int) ([]domain.UnsubscribeRecord, error) {
	return s.repo.List(ctx, tenantID, limit, offset)
}
