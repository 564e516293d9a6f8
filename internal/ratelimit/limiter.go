// Package ratelimit enforces warmup-derived send quotas against the shared
// counter store. Every admission decision is a set of atomic increments with
// post-increment comparison; a denial rolls back everything the call
// consumed so rejected attempts never burn quota.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/mailguard/internal/counter"
	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// Scope identifiers, reported on denials and in logs.
const (
	ScopeScenario     = "scenario"
	ScopeTenantHour   = "tenant_hour"
	ScopeGlobalHour   = "global_hour"
	ScopeGlobalDay    = "global_day"
	ScopeAITenantHour = "ai_tenant_hour"
	ScopeAIGlobalHour = "ai_global_hour"
)

// AI quota caps, additive on top of the base scopes. Tenant caps depend on
// whether the identity is still warming up.
const (
	AITenantHourlyWarmup     = 10
	AITenantHourlyProduction = 50
	AIGlobalHourly           = 200
)

// Counter TTLs run past their window so a slow reader never sees a vanished
// key mid-request.
const (
	hourKeyTTL = 2 * time.Hour
	dayKeyTTL  = 25 * time.Hour
)

// Decision is the tagged outcome of TryConsume. Allowed means every scope
// accepted the increment. A denial names the narrowest blocking scope and
// how long until its window rolls over; RetryAfter == 0 on a denial means
// the warmup phase does not admit the scenario at all yet.
type Decision struct {
	Allowed    bool
	Scope      string
	RetryAfter time.Duration
}

// Limiter coordinates quota consumption across all pipeline instances via
// the shared counter store.
type Limiter struct {
	store counter.Store
	log   *logger.Logger
}

// New builds a limiter on the given store.
func New(store counter.Store) *Limiter {
	return &Limiter{store: store, log: logger.Component("ratelimit")}
}

type scopeCheck struct {
	name   string
	key    string
	limit  int
	window time.Duration
}

// TryConsume attempts to consume one send slot for the tenant at the given
// instant. All applicable scopes are incremented first and compared after,
// so concurrent callers racing the same caps cannot both slip under a
// stale read. Any scope over its cap rolls every increment of this call
// back and denies.
//
// A non-nil error means the counter store itself failed; callers treat that
// as a denial (fail closed).
func (l *Limiter) TryConsume(ctx context.Context, tenantID string, scenario domain.Scenario, aiAuthored bool, phase domain.WarmupPhase, now time.Time) (Decision, error) {
	if !phase.ScenarioAllowed(scenario) {
		// nothing consumed; waiting cannot help within this phase
		return Decision{Scope: ScopeScenario}, nil
	}

	checks := []scopeCheck{
		{ScopeTenantHour, tenantHourKey(tenantID, now), phase.TenantHourlyCap, time.Hour},
		{ScopeGlobalHour, globalHourKey(now), phase.HourlyCap, time.Hour},
		{ScopeGlobalDay, globalDayKey(now), phase.DailyCap, 24 * time.Hour},
	}
	if aiAuthored {
		tenantCap := AITenantHourlyWarmup
		if phase.Completed {
			tenantCap = AITenantHourlyProduction
		}
		checks = append(checks,
			scopeCheck{ScopeAITenantHour, aiTenantHourKey(tenantID, now), tenantCap, time.Hour},
			scopeCheck{ScopeAIGlobalHour, aiGlobalHourKey(now), AIGlobalHourly, time.Hour},
		)
	}

	applied := make([]string, 0, len(checks))
	var denied *scopeCheck
	var deniedWait time.Duration

	for i := range checks {
		c := &checks[i]
		ttl := hourKeyTTL
		if c.window == 24*time.Hour {
			ttl = dayKeyTTL
		}
		value, err := l.store.IncrWithTTL(ctx, c.key, ttl)
		if err != nil {
			l.rollback(ctx, applied)
			return Decision{}, fmt.Errorf("counter store: %w", err)
		}
		applied = append(applied, c.key)

		if value > int64(c.limit) {
			wait := untilRollover(now, c.window)
			// keep the nearest rollover among every exceeded scope
			if denied == nil || wait < deniedWait {
				denied = c
				deniedWait = wait
			}
		}
	}

	if denied != nil {
		l.rollback(ctx, applied)
		l.log.Debug("quota denied",
			"tenant_id", tenantID,
			"scope", denied.name,
			"retry_after", deniedWait.String(),
		)
		return Decision{Scope: denied.name, RetryAfter: deniedWait}, nil
	}
	return Decision{Allowed: true}, nil
}

// rollback undoes this call's increments, best effort. A failed decrement
// only over-counts until the window expires.
func (l *Limiter) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := l.store.Decr(ctx, key); err != nil {
			l.log.Warn("quota rollback failed", "key", key, "error", err.Error())
		}
	}
}

// untilRollover returns the time left in the current window, measured in
// UTC to match the key periods.
func untilRollover(now time.Time, window time.Duration) time.Duration {
	utc := now.UTC()
	if window == time.Hour {
		next := utc.Truncate(time.Hour).Add(time.Hour)
		return next.Sub(utc)
	}
	next := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(utc)
}

func tenantHourKey(tenantID string, now time.Time) string {
	return fmt.Sprintf("quota:tenant:%s:hour:%s", tenantID, now.UTC().Format("2006-01-02T15"))
}

func globalHourKey(now time.Time) string {
	return fmt.Sprintf("quota:global:hour:%s", now.UTC().Format("2006-01-02T15"))
}

func globalDayKey(now time.Time) string {
	return fmt.Sprintf("quota:global:day:%s", now.UTC().Format("2006-01-02"))
}

func aiTenantHourKey(tenantID string, now time.Time) string {
	return fmt.Sprintf("quota:ai:tenant:%s:hour:%s", tenantID, now.UTC().Format("2006-01-02T15"))
}

func aiGlobalHourKey(now time.Time) string {
	return fmt.Sprintf("quota:ai:global:hour:%s", now.UTC().Format("2006-01-02T15"))
}
