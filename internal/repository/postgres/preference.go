package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/preference"
)

// PreferenceRepo implements preference.Repository against PostgreSQL.
type PreferenceRepo struct{ db *sql.DB }

// NewPreferenceRepo creates a Postgres-backed preference repository.
func NewPreferenceRepo(db *sql.DB) *PreferenceRepo { return &PreferenceRepo{db: db} }

// Insert stores an opt-out. The unique index on token makes redeeming the
// same unsubscribe link twice a no-op.
func (r *PreferenceRepo) Insert(ctx context.Context, rec *domain.UnsubscribeRecord) (domain.UnsubscribeRecord, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO unsubscribe_records (id, recipient, tenant_id, scenario, unsubscribed_at, token, source_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (token) DO NOTHING
	`, rec.ID, rec.Recipient, rec.TenantID, scenarioArg(rec.Scenario), rec.UnsubscribedAt, rec.Token, rec.SourceIP, rec.UserAgent)
	if err != nil {
		return domain.UnsubscribeRecord{}, false, fmt.Errorf("insert unsubscribe: %w", err)
	}
	n, _ := res.RowsAffected()

	var stored domain.UnsubscribeRecord
	var scenario sql.NullString
	err = r.db.QueryRowContext(ctx, `
		SELECT id, recipient, tenant_id, scenario, unsubscribed_at, COALESCE(source_ip,''), COALESCE(user_agent,'')
		FROM unsubscribe_records
		WHERE token = $1
	`, rec.Token).Scan(
		&stored.ID, &stored.Recipient, &stored.TenantID, &scenario,
		&stored.UnsubscribedAt, &stored.SourceIP, &stored.UserAgent,
	)
	if err != nil {
		return domain.UnsubscribeRecord{}, false, fmt.Errorf("get unsubscribe: %w", err)
	}
	stored.Token = rec.Token
	if scenario.Valid {
		sc := domain.Scenario(scenario.String)
		stored.Scenario = &sc
	}
	return stored, n > 0, nil
}

func (r *PreferenceRepo) IsUnsubscribed(ctx context.Context, recipient, tenantID string, scenario domain.Scenario) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM unsubscribe_records
			WHERE recipient = $1 AND tenant_id = $2 AND (scenario IS NULL OR scenario = $3)
		)
	`, recipient, tenantID, scenario).Scan(&exists)
	return exists, err
}

func (r *PreferenceRepo) Delete(ctx context.Context, recipient, tenantID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM unsubscribe_records WHERE recipient = $1 AND tenant_id = $2`,
		recipient, tenantID,
	)
	if err != nil {
		return fmt.Errorf("delete unsubscribe: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return preference.ErrNotFound
	}
	return nil
}

func (r *PreferenceRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]domain.UnsubscribeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipient, tenant_id, scenario, unsubscribed_at, COALESCE(source_ip,''), COALESCE(user_agent,'')
		FROM unsubscribe_records
		WHERE tenant_id = $1
		ORDER BY unsubscribed_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list unsubscribes: %w", err)
	}
	defer rows.Close()

	var out []domain.UnsubscribeRecord
	for rows.Next() {
		var rec domain.UnsubscribeRecord
		var scenario sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.Recipient, &rec.TenantID, &scenario,
			&rec.UnsubscribedAt, &rec.SourceIP, &rec.UserAgent,
		); err != nil {
			return nil, fmt.Errorf("scan unsubscribe: %w", err)
		}
		if scenario.Valid {
			sc := domain.Scenario(scenario.String)
			rec.Scenario = &sc
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scenarioArg(sc *domain.Scenario) interface{} {
	if sc == nil {
		return nil
	}
	return string(*sc)
}
