package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// Recorder persists send decisions. Every terminal pipeline outcome passes
// through here exactly once.
type Recorder struct {
	repo Repository
	log  *logger.Logger
}

// NewRecorder creates a decision recorder.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, log: logger.Component("Audit")}
}

// Record stamps and stores a decision. ID and creation time are filled in
// when the caller left them empty.
func (r *Recorder) Record(ctx context.Context, d *domain.SendDecision) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if err := r.repo.Insert(ctx, d); err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	r.log.Info("decision recorded",
		"decision_id", d.ID,
		"recipient", d.Recipient,
		"tenant_id", d.TenantID,
		"scenario", string(d.Scenario),
		"outcome", string(d.Outcome),
		"reason", string(d.ReasonCode),
	)
	return nil
}

// ListRecent returns decisions matching the filter, newest first.
func (r *Recorder) ListRecent(ctx context.Context, f Filter) ([]domain.SendDecision, error) {
	return r.repo.ListRecent(ctx, f)
}
