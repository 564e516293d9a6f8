// Package warmup resolves a sending identity's position on the reputation
// ramp. New identities start at tiny volumes restricted to transactional
// traffic and climb to full production caps over two weeks.
package warmup

import "github.com/ignite/mailguard/internal/domain"

// Entry is one row of the ramp. ToDay == 0 marks the open-ended production
// row. Caps never decrease from one row to the next; TestScheduleMonotonic
// pins that down.
type Entry struct {
	FromDay         int
	ToDay           int
	DailyCap        int
	HourlyCap       int
	TenantHourlyCap int
	Scenarios       []domain.Scenario // nil = every scenario
}

var transactionalOnly = []domain.Scenario{domain.ScenarioTransactional}

var transactionalAndInvoice = []domain.Scenario{
	domain.ScenarioTransactional,
	domain.ScenarioInvoice,
}

// Schedule is the fixed ramp. Day 15 onwards is full production.
var Schedule = []Entry{
	{FromDay: 1, ToDay: 2, DailyCap: 50, HourlyCap: 10, TenantHourlyCap: 5, Scenarios: transactionalOnly},
	{FromDay: 3, ToDay: 4, DailyCap: 100, HourlyCap: 20, TenantHourlyCap: 10, Scenarios: transactionalOnly},
	{FromDay: 5, ToDay: 6, DailyCap: 250, HourlyCap: 40, TenantHourlyCap: 25, Scenarios: transactionalAndInvoice},
	{FromDay: 7, ToDay: 8, DailyCap: 500, HourlyCap: 80, TenantHourlyCap: 50},
	{FromDay: 9, ToDay: 10, DailyCap: 1000, HourlyCap: 150, TenantHourlyCap: 100},
	{FromDay: 11, ToDay: 12, DailyCap: 2000, HourlyCap: 300, TenantHourlyCap: 200},
	{FromDay: 13, ToDay: 14, DailyCap: 5000, HourlyCap: 500, TenantHourlyCap: 500},
	{FromDay: 15, ToDay: 0, DailyCap: 10000, HourlyCap: 1000, TenantHourlyCap: 1000},
}

// entryForDay finds the ramp row covering the given day.
func entryForDay(day int) Entry {
	for _, e := range Schedule {
		if day >= e.FromDay && (e.ToDay == 0 || day <= e.ToDay) {
			return e
		}
	}
	return Schedule[len(Schedule)-1]
}

// PhaseForDay resolves the posture for a ramp day without touching state.
func PhaseForDay(day int) domain.WarmupPhase {
	if day < 1 {
		day = 1
	}
	e := entryForDay(day)
	return domain.WarmupPhase{
		Day:              day,
		DailyCap:         e.DailyCap,
		HourlyCap:        e.HourlyCap,
		TenantHourlyCap:  e.TenantHourlyCap,
		AllowedScenarios: e.Scenarios,
		Completed:        e.ToDay == 0,
	}
}
