package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// WarmupStateRepo implements warmup.StateStore against PostgreSQL.
type WarmupStateRepo struct{ db *sql.DB }

// NewWarmupStateRepo creates a Postgres-backed warmup state repository.
func NewWarmupStateRepo(db *sql.DB) *WarmupStateRepo { return &WarmupStateRepo{db: db} }

// Ensure returns the warmup state for the identity, creating it with the
// given start time on the identity's first send. ON CONFLICT DO NOTHING
// keeps creation atomic when concurrent first sends race.
func (r *WarmupStateRepo) Ensure(ctx context.Context, identity string, startedAt time.Time) (domain.WarmupState, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO warmup_states (identity, started_at)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO NOTHING
	`, identity, startedAt); err != nil {
		return domain.WarmupState{}, fmt.Errorf("ensure warmup state: %w", err)
	}

	var st domain.WarmupState
	err := r.db.QueryRowContext(ctx,
		`SELECT identity, started_at FROM warmup_states WHERE identity = $1`,
		identity,
	).Scan(&st.Identity, &st.StartedAt)
	if err != nil {
		return domain.WarmupState{}, fmt.Errorf("get warmup state: %w", err)
	}
	return st, nil
}
