package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/bounce"
)

// BounceRepo implements bounce.Repository against PostgreSQL.
type BounceRepo struct{ db *sql.DB }

// NewBounceRepo creates a Postgres-backed bounce repository.
func NewBounceRepo(db *sql.DB) *BounceRepo { return &BounceRepo{db: db} }

// Record upserts a bounce in a single statement so the counter and the
// blacklist flag move together. The flag only flips on a counted hard
// bounce, which keeps a manual unblacklist stable across soft bounces.
func (r *BounceRepo) Record(ctx context.Context, recipient, tenantID string, bounceType domain.BounceType, smtpCode int, countHard bool, at time.Time) (domain.BounceRecord, error) {
	var rec domain.BounceRecord
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO bounce_records
			(recipient, tenant_id, bounce_type, smtp_code, bounce_count, first_bounce_at, last_bounce_at, blacklisted)
		VALUES ($1, $2, $3, $4, CASE WHEN $5 THEN 1 ELSE 0 END, $6, $6, $5 AND 1 >= $7)
		ON CONFLICT (recipient, tenant_id) DO UPDATE SET
			bounce_type    = $3,
			smtp_code      = $4,
			bounce_count   = bounce_records.bounce_count + CASE WHEN $5 THEN 1 ELSE 0 END,
			last_bounce_at = $6,
			blacklisted    = bounce_records.blacklisted OR ($5 AND bounce_records.bounce_count + 1 >= $7)
		RETURNING recipient, tenant_id, bounce_type, smtp_code, bounce_count, first_bounce_at, last_bounce_at, blacklisted
	`, recipient, tenantID, bounceType, smtpCode, countHard, at, bounce.BlacklistThreshold).Scan(
		&rec.Recipient, &rec.TenantID, &rec.BounceType, &rec.SMTPCode,
		&rec.BounceCount, &rec.FirstBounceAt, &rec.LastBounceAt, &rec.Blacklisted,
	)
	if err != nil {
		return domain.BounceRecord{}, fmt.Errorf("record bounce: %w", err)
	}
	return rec, nil
}

func (r *BounceRepo) IsBlacklisted(ctx context.Context, recipient, tenantID string) (bool, error) {
	var blacklisted bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bounce_records WHERE recipient = $1 AND tenant_id = $2 AND blacklisted = true)`,
		recipient, tenantID,
	).Scan(&blacklisted)
	return blacklisted, err
}

func (r *BounceRepo) Get(ctx context.Context, recipient, tenantID string) (domain.BounceRecord, error) {
	var rec domain.BounceRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT recipient, tenant_id, bounce_type, smtp_code, bounce_count, first_bounce_at, last_bounce_at, blacklisted
		FROM bounce_records
		WHERE recipient = $1 AND tenant_id = $2
	`, recipient, tenantID).Scan(
		&rec.Recipient, &rec.TenantID, &rec.BounceType, &rec.SMTPCode,
		&rec.BounceCount, &rec.FirstBounceAt, &rec.LastBounceAt, &rec.Blacklisted,
	)
	if err == sql.ErrNoRows {
		return domain.BounceRecord{}, bounce.ErrNotFound
	}
	if err != nil {
		return domain.BounceRecord{}, fmt.Errorf("get bounce record: %w", err)
	}
	return rec, nil
}

func (r *BounceRepo) Unblacklist(ctx context.Context, recipient, tenantID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bounce_records SET blacklisted = false WHERE recipient = $1 AND tenant_id = $2`,
		recipient, tenantID,
	)
	if err != nil {
		return fmt.Errorf("unblacklist: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return bounce.ErrNotFound
	}
	return nil
}

func (r *BounceRepo) List(ctx context.Context, tenantID string, f bounce.ListFilter) ([]domain.BounceRecord, error) {
	q := `
		SELECT recipient, tenant_id, bounce_type, smtp_code, bounce_count, first_bounce_at, last_bounce_at, blacklisted
		FROM bounce_records
		WHERE tenant_id = $1`
	if f.OnlyBlacklisted {
		q += " AND blacklisted = true"
	}
	q += " ORDER BY last_bounce_at DESC"

	args := []interface{}{tenantID}
	idx := 2
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, f.Limit)
		idx++
	}
	if f.Offset > 0 {
		q += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bounce records: %w", err)
	}
	defer rows.Close()

	var out []domain.BounceRecord
	for rows.Next() {
		var rec domain.BounceRecord
		if err := rows.Scan(
			&rec.Recipient, &rec.TenantID, &rec.BounceType, &rec.SMTPCode,
			&rec.BounceCount, &rec.FirstBounceAt, &rec.LastBounceAt, &rec.Blacklisted,
		); err != nil {
			return nil, fmt.Errorf("scan bounce record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
