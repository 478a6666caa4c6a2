package covert

import (
	"testing"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
)

func TestAccrueCaps(t *testing.T) {
	rs := ruleset.MustDefault(ruleset.VariantUnified)
	e := &empire.Empire{
		Forces:  empire.Forces{CovertAgents: 5},
		Sectors: []empire.Sector{{ID: 1, Type: empire.SectorGovernment}},
	}
	if got := Accrue(e, rs); got != 4 || e.CovertPoints != 4 {
		t.Fatalf("expected 2 + 2 points, got %d", got)
	}

	e.CovertPoints = rs.Covert.Max - 1
	if got := Accrue(e, rs); got != 1 || e.CovertPoints != rs.Covert.Max {
		t.Fatalf("accrual must stop at the cap, got %d", got)
	}
}
