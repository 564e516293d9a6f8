package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/mailguard/internal/audit"
	"github.com/ignite/mailguard/internal/domain"
)

// DecisionRepo implements audit.Repository against PostgreSQL.
type DecisionRepo struct{ db *sql.DB }

// NewDecisionRepo creates a Postgres-backed decision log repository.
func NewDecisionRepo(db *sql.DB) *DecisionRepo { return &DecisionRepo{db: db} }

const decisionColumns = `id, recipient, tenant_id, scenario, outcome, reason_code, retry_after_seconds,
	spam_score, spam_rules, risk_level, blocked_pattern, approval_id, dkim_signed, message_id, created_at, archived_at`

func (r *DecisionRepo) Insert(ctx context.Context, d *domain.SendDecision) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO send_decisions
			(id, recipient, tenant_id, scenario, outcome, reason_code, retry_after_seconds,
			 spam_score, spam_rules, risk_level, blocked_pattern, approval_id, dkim_signed, message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, d.ID, d.Recipient, d.TenantID, d.Scenario, d.Outcome, d.ReasonCode, d.RetryAfterSeconds,
		d.SpamScore, pq.Array(d.SpamRules), d.RiskLevel, d.BlockedPattern, d.ApprovalID,
		d.DKIMSigned, d.MessageID, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (r *DecisionRepo) ListRecent(ctx context.Context, f audit.Filter) ([]domain.SendDecision, error) {
	q := `SELECT ` + decisionColumns + ` FROM send_decisions`

	var conds []string
	var args []interface{}
	idx := 1
	if f.TenantID != "" {
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", idx))
		args = append(args, f.TenantID)
		idx++
	}
	if f.Outcome != "" {
		conds = append(conds, fmt.Sprintf("outcome = $%d", idx))
		args = append(args, f.Outcome)
		idx++
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", idx)
	args = append(args, limit)

	return r.query(ctx, q, args...)
}

func (r *DecisionRepo) ListUnarchived(ctx context.Context, limit int) ([]domain.SendDecision, error) {
	if limit <= 0 {
		limit = 500
	}
	return r.query(ctx, `
		SELECT `+decisionColumns+`
		FROM send_decisions
		WHERE archived_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
}

func (r *DecisionRepo) MarkArchived(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE send_decisions SET archived_at = $2 WHERE id = ANY($1)`,
		pq.Array(ids), at,
	)
	if err != nil {
		return fmt.Errorf("mark decisions archived: %w", err)
	}
	return nil
}

func (r *DecisionRepo) AggregateByDay(ctx context.Context, day time.Time) ([]audit.OutcomeAggregate, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id, outcome, reason_code, COUNT(*)
		FROM send_decisions
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY tenant_id, outcome, reason_code
		ORDER BY tenant_id, outcome, reason_code
	`, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("aggregate decisions: %w", err)
	}
	defer rows.Close()

	var out []audit.OutcomeAggregate
	for rows.Next() {
		agg := audit.OutcomeAggregate{Day: day}
		if err := rows.Scan(&agg.TenantID, &agg.Outcome, &agg.ReasonCode, &agg.Count); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func (r *DecisionRepo) query(ctx context.Context, q string, args ...interface{}) ([]domain.SendDecision, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.SendDecision
	for rows.Next() {
		var d domain.SendDecision
		if err := rows.Scan(
			&d.ID, &d.Recipient, &d.TenantID, &d.Scenario, &d.Outcome, &d.ReasonCode,
			&d.RetryAfterSeconds, &d.SpamScore, pq.Array(&d.SpamRules), &d.RiskLevel,
			&d.BlockedPattern, &d.ApprovalID, &d.DKIMSigned, &d.MessageID, &d.CreatedAt, &d.ArchivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
