package preference

import (
	"context"

	"github.com/ignite/mailguard/internal/domain"
)

// Repository defines the data access contract for unsubscribe preferences.
type Repository interface {
	// Insert stores an unsubscribe record. Inserting the same token twice
	// is a no-op: the original record is returned and created is false.
	Insert(ctx context.Context, rec *domain.UnsubscribeRecord) (stored domain.UnsubscribeRecord, created bool, err error)

	// IsUnsubscribed reports whether the recipient has opted out for the
	// tenant, either globally or for the specific scenario.
	IsUnsubscribed(ctx context.Context, recipient, tenantID string, scenario domain.Scenario) (bool, error)

	// Delete removes every unsubscribe record for (recipient, tenant).
	// Returns ErrNotFound if none exist.
	Delete(ctx context.Context, recipient, tenantID string) error

	// List returns unsubscribe records for a tenant, newest first.
	List(ctx context.Context, tenantID string, limit, offset int) ([]domain.UnsubscribeRecord, error)
}
