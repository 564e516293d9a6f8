package warmup

import (
	"testing"

	"github.com/ignite/mailguard/internal/domain"
)

func TestScheduleMonotonic(t *testing.T) {
	for i := 1; i < len(Schedule); i++ {
		prev, cur := Schedule[i-1], Schedule[i]
		if cur.DailyCap < prev.DailyCap {
			t.Errorf("row %d: daily cap %d below previous %d", i, cur.DailyCap, prev.DailyCap)
		}
		if cur.HourlyCap < prev.HourlyCap {
			t.Errorf("row %d: hourly cap %d below previous %d", i, cur.HourlyCap, prev.HourlyCap)
		}
		if cur.TenantHourlyCap < prev.TenantHourlyCap {
			t.Errorf("row %d: tenant cap %d below previous %d", i, cur.TenantHourlyCap, prev.TenantHourlyCap)
		}
		if cur.FromDay != prev.ToDay+1 {
			t.Errorf("row %d: day gap between %d and %d", i, prev.ToDay, cur.FromDay)
		}
	}
	if Schedule[len(Schedule)-1].ToDay != 0 {
		t.Error("last row must be open-ended")
	}
}

func TestPhaseForDayBoundaries(t *testing.T) {
	tests := []struct {
		day       int
		dailyCap  int
		hourlyCap int
		tenantCap int
		completed bool
	}{
		{1, 50, 10, 5, false},
		{2, 50, 10, 5, false},
		{3, 100, 20, 10, false},
		{4, 100, 20, 10, false},
		{5, 250, 40, 25, false},
		{6, 250, 40, 25, false},
		{7, 500, 80, 50, false},
		{8, 500, 80, 50, false},
		{9, 1000, 150, 100, false},
		{10, 1000, 150, 100, false},
		{11, 2000, 300, 200, false},
		{12, 2000, 300, 200, false},
		{13, 5000, 500, 500, false},
		{14, 5000, 500, 500, false},
		{15, 10000, 1000, 1000, true},
		{90, 10000, 1000, 1000, true},
	}
	for _, tt := range tests {
		p := PhaseForDay(tt.day)
		if p.Day != tt.day {
			t.Errorf("day %d: phase day = %d", tt.day, p.Day)
		}
		if p.DailyCap != tt.dailyCap || p.HourlyCap != tt.hourlyCap || p.TenantHourlyCap != tt.tenantCap {
			t.Errorf("day %d: caps = %d/%d/%d, want %d/%d/%d",
				tt.day, p.DailyCap, p.HourlyCap, p.TenantHourlyCap, tt.dailyCap, tt.hourlyCap, tt.tenantCap)
		}
		if p.Completed != tt.completed {
			t.Errorf("day %d: completed = %v, want %v", tt.day, p.Completed, tt.completed)
		}
	}
}

func TestPhaseForDayClampsBelowOne(t *testing.T) {
	p := PhaseForDay(-3)
	if p.Day != 1 || p.DailyCap != 50 {
		t.Errorf("negative day resolved to %+v, want day 1", p)
	}
}

func TestScenarioRestrictionsByDay(t *testing.T) {
	// days 1-4: transactional only
	for _, day := range []int{1, 4} {
		p := PhaseForDay(day)
		if !p.ScenarioAllowed(domain.ScenarioTransactional) {
			t.Errorf("day %d: transactional should be allowed", day)
		}
		if p.ScenarioAllowed(domain.ScenarioInvoice) || p.ScenarioAllowed(domain.ScenarioPromotional) {
			t.Errorf("day %d: only transactional should be allowed", day)
		}
	}

	// days 5-6: invoice joins
	p := PhaseForDay(5)
	if !p.ScenarioAllowed(domain.ScenarioInvoice) {
		t.Error("day 5: invoice should be allowed")
	}
	if p.ScenarioAllowed(domain.ScenarioPromotional) {
		t.Error("day 5: promotional should still be blocked")
	}

	// day 7 onwards: everything
	p = PhaseForDay(7)
	for _, s := range []domain.Scenario{
		domain.ScenarioTransactional,
		domain.ScenarioInvoice,
		domain.ScenarioPromotional,
		domain.ScenarioAIGenerated,
	} {
		if !p.ScenarioAllowed(s) {
			t.Errorf("day 7: %s should be allowed", s)
		}
	}
}
