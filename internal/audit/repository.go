package audit

import (
	"context"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// Repository defines the data access contract for the decision log.
type Repository interface {
	// Insert stores a send decision.
	Insert(ctx context.Context, d *domain.SendDecision) error

	// ListRecent returns decisions matching the filter, newest first.
	ListRecent(ctx context.Context, f Filter) ([]domain.SendDecision, error)

	// ListUnarchived returns decisions not yet shipped to cold storage,
	// oldest first.
	ListUnarchived(ctx context.Context, limit int) ([]domain.SendDecision, error)

	// MarkArchived stamps archived_at on the given decisions.
	MarkArchived(ctx context.Context, ids []string, at time.Time) error

	// AggregateByDay returns outcome counts for one UTC day.
	AggregateByDay(ctx context.Context, day time.Time) ([]OutcomeAggregate, error)
}

// Filter controls decision listings.
type Filter struct {
	TenantID string
	Outcome  string
	Limit    int
}

// OutcomeAggregate is one row of the daily rollup exported to the warehouse.
type OutcomeAggregate struct {
	Day        time.Time
	TenantID   string
	Outcome    string
	ReasonCode string
	Count      int
}
