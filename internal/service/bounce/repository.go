package bounce

import (
	"context"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// Repository defines the data access contract for the bounce ledger.
type Repository interface {
	// Record upserts a bounce event for (recipient, tenant). When countHard
	// is true the hard-bounce counter increments, and the blacklist flag is
	// set once the counter reaches BlacklistThreshold. The updated record
	// is returned.
	Record(ctx context.Context, recipient, tenantID string, bounceType domain.BounceType, smtpCode int, countHard bool, at time.Time) (domain.BounceRecord, error)

	// IsBlacklisted reports whether the recipient is blacklisted for the tenant.
	IsBlacklisted(ctx context.Context, recipient, tenantID string) (bool, error)

	// Get returns the bounce record for (recipient, tenant). Returns
	// ErrNotFound if no bounce has been recorded.
	Get(ctx context.Context, recipient, tenantID string) (domain.BounceRecord, error)

	// Unblacklist clears the blacklist flag while preserving the bounce
	// counters. Returns ErrNotFound if no record exists.
	Unblacklist(ctx context.Context, recipient, tenantID string) error

	// List returns bounce records for a tenant, most recent bounce first.
	List(ctx context.Context, tenantID string, filter ListFilter) ([]domain.BounceRecord, error)
}

// ListFilter controls filtering and pagination for bounce listings.
type ListFilter struct {
	OnlyBlacklisted bool
	Limit           int
	Offset          int
}
