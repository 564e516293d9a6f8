package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/approval"
)

// ApprovalRepo implements approval.Repository against PostgreSQL. The full
// SendRequest payload lives in a JSONB column so resumption after approval
// reconstructs the exact message that was reviewed.
type ApprovalRepo struct{ db *sql.DB }

// NewApprovalRepo creates a Postgres-backed approval repository.
func NewApprovalRepo(db *sql.DB) *ApprovalRepo { return &ApprovalRepo{db: db} }

func (r *ApprovalRepo) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	payload, err := json.Marshal(req.Request)
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO approval_requests (id, request, risk_level, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, req.ID, payload, req.RiskLevel, req.Status, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	return nil
}

func (r *ApprovalRepo) Get(ctx context.Context, id string) (domain.ApprovalRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, request, risk_level, status, created_at, decided_at, COALESCE(decided_by,''), resumed_at
		FROM approval_requests
		WHERE id = $1
	`, id)

	ar, err := scanApproval(row)
	if err == sql.ErrNoRows {
		return domain.ApprovalRequest{}, approval.ErrNotFound
	}
	if err != nil {
		return domain.ApprovalRequest{}, fmt.Errorf("get approval request: %w", err)
	}
	return ar, nil
}

// Decide flips a pending request to its final status. The status guard in
// the WHERE clause makes the transition single-shot under concurrency.
func (r *ApprovalRepo) Decide(ctx context.Context, id string, status domain.ApprovalStatus, decidedBy string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE approval_requests
		SET status = $2, decided_by = $3, decided_at = $4
		WHERE id = $1 AND status = 'pending'
	`, id, status, decidedBy, at)
	if err != nil {
		return fmt.Errorf("decide approval request: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return approval.ErrNotFound
		}
		return approval.ErrAlreadyDecided
	}
	return nil
}

// ClaimResume stamps resumed_at on an approved request. The IS NULL guard
// means exactly one concurrent claimer wins.
func (r *ApprovalRepo) ClaimResume(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE approval_requests
		SET resumed_at = $2
		WHERE id = $1 AND status = 'approved' AND resumed_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("claim resume: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return approval.ErrNotFound
		}
		return approval.ErrAlreadyResumed
	}
	return nil
}

func (r *ApprovalRepo) ListPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error) {
	return r.list(ctx, `
		SELECT id, request, risk_level, status, created_at, decided_at, COALESCE(decided_by,''), resumed_at
		FROM approval_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
}

func (r *ApprovalRepo) ListResumable(ctx context.Context, limit int) ([]domain.ApprovalRequest, error) {
	return r.list(ctx, `
		SELECT id, request, risk_level, status, created_at, decided_at, COALESCE(decided_by,''), resumed_at
		FROM approval_requests
		WHERE status = 'approved' AND resumed_at IS NULL
		ORDER BY decided_at ASC
		LIMIT $1
	`, limit)
}

func (r *ApprovalRepo) list(ctx context.Context, query string, limit int) ([]domain.ApprovalRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	defer rows.Close()

	var out []domain.ApprovalRequest
	for rows.Next() {
		ar, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval request: %w", err)
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

func (r *ApprovalRepo) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM approval_requests WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check approval request: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApproval(row rowScanner) (domain.ApprovalRequest, error) {
	var ar domain.ApprovalRequest
	var payload []byte
	if err := row.Scan(
		&ar.ID, &payload, &ar.RiskLevel, &ar.Status,
		&ar.CreatedAt, &ar.DecidedAt, &ar.DecidedBy, &ar.ResumedAt,
	); err != nil {
		return domain.ApprovalRequest{}, err
	}
	if err := json.Unmarshal(payload, &ar.Request); err != nil {
		return domain.ApprovalRequest{}, fmt.Errorf("unmarshal send request: %w", err)
	}
	return ar, nil
}
