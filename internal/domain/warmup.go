package domain

import "time"

// WarmupState pins the start of an identity's reputation ramp. It is created
// implicitly the first time the scheduler is consulted and never advances
// backwards.
type WarmupState struct {
	Identity  string    `json:"identity" db:"identity"`
	StartedAt time.Time `json:"started_at" db:"started_at"`
}

// WarmupPhase is the resolved sending posture for a given day of the ramp.
// Caps are consumed by the rate limiter; AllowedScenarios gates which traffic
// may flow at all (nil means every scenario).
type WarmupPhase struct {
	Day              int        `json:"day"`
	DailyCap         int        `json:"daily_cap"`
	HourlyCap        int        `json:"hourly_cap"`
	TenantHourlyCap  int        `json:"tenant_hourly_cap"`
	AllowedScenarios []Scenario `json:"allowed_scenarios,omitempty"`
	Completed        bool       `json:"completed"`
}

// ScenarioAllowed reports whether the phase admits the given scenario.
func (p WarmupPhase) ScenarioAllowed(s Scenario) bool {
	if len(p.AllowedScenarios) == 0 {
		return true
	}
	for _, allowed := range p.AllowedScenarios {
		if allowed == s {
			return true
		}
	}
	return false
}
