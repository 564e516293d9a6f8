package warmup

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// StateStore persists the immutable start of an identity's ramp.
type StateStore interface {
	// Ensure returns the state for identity, creating it with startedAt if it
	// does not exist yet. Creation must be atomic: when two callers race, one
	// creates and both observe the same state.
	Ensure(ctx context.Context, identity string, startedAt time.Time) (domain.WarmupState, error)
}

// Scheduler answers "where on the ramp is this identity right now".
type Scheduler struct {
	store StateStore
}

// NewScheduler wires a scheduler to its state store.
func NewScheduler(store StateStore) *Scheduler {
	return &Scheduler{store: store}
}

// CurrentPhase resolves the identity's posture at the given instant. The
// first call for an identity starts its ramp.
func (s *Scheduler) CurrentPhase(ctx context.Context, identity string, now time.Time) (domain.WarmupPhase, error) {
	state, err := s.store.Ensure(ctx, identity, now.UTC())
	if err != nil {
		return domain.WarmupPhase{}, fmt.Errorf("warmup state for %s: %w", identity, err)
	}
	return PhaseForDay(DayFor(state.StartedAt, now)), nil
}

// DayFor converts elapsed time since the ramp start into a 1-based day.
// A start in the future (clock skew between nodes) clamps to day 1 rather
// than failing or going negative.
func DayFor(startedAt, now time.Time) int {
	day := int(now.Sub(startedAt).Hours()/24) + 1
	if day < 1 {
		day = 1
	}
	return day
}
