package empire

import (
	"encoding/json"
	"testing"
)

func testEmpire() *Empire {
	return &Empire{
		ID:   1,
		Name: "Vega Dominion",
		Type: TypeBot,
		Sectors: []Sector{
			{ID: 1, Type: SectorFood, AcquiredTurn: 0},
			{ID: 2, Type: SectorOre, AcquiredTurn: 0},
			{ID: 3, Type: SectorCommerce, AcquiredTurn: 4},
			{ID: 4, Type: SectorUrban, AcquiredTurn: 9},
		},
		Forces:   Forces{Soldiers: 10, Fighters: 2},
		Unlocked: []UnitType{UnitFighters, UnitSoldiers},
		Grudges:  map[ID]float64{2: 0.5},
	}
}

func TestTakeSectorsMostRecentFirst(t *testing.T) {
	e := testEmpire()
	taken := e.TakeSectors(2, 10)
	if len(taken) != 2 || taken[0].ID != 4 || taken[1].ID != 3 {
		t.Fatalf("unexpected sectors taken: %+v", taken)
	}
	if e.SectorCount() != 2 {
		t.Fatalf("expected 2 sectors left, got %d", e.SectorCount())
	}
	if e.Eliminated {
		t.Fatal("empire with sectors left must not be eliminated")
	}
}

func TestTakeAllSectorsEliminates(t *testing.T) {
	e := testEmpire()
	taken := e.TakeSectors(10, 12)
	if len(taken) != 4 {
		t.Fatalf("expected all 4 sectors, got %d", len(taken))
	}
	if !e.Eliminated || e.EliminatedTurn != 12 || e.DefeatReason != DefeatConquered {
		t.Fatalf("expected conquest elimination, got %+v", e)
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := testEmpire()
	c := e.Clone()
	c.Sectors[0].Type = SectorFuel
	c.Grudges[2] = 9
	c.Unlock(UnitCarriers)
	if e.Sectors[0].Type != SectorFood || e.Grudges[2] != 0.5 || e.HasUnlocked(UnitCarriers) {
		t.Fatal("clone shares state with the original")
	}
}

func TestForcesArithmetic(t *testing.T) {
	f := Forces{Soldiers: 5, Fighters: 3}
	if got := f.Minus(Forces{Soldiers: 7}); got.Soldiers != 0 || got.Fighters != 3 {
		t.Fatalf("Minus must floor at zero: %+v", got)
	}
	if !f.Covers(Forces{Soldiers: 5}) || f.Covers(Forces{Carriers: 1}) {
		t.Fatal("Covers mismatch")
	}
	if f.Distinct() != 2 {
		t.Fatalf("expected 2 distinct types, got %d", f.Distinct())
	}
	if err := (Forces{Stations: -1}).Validate(); err == nil {
		t.Fatal("negative counts must be rejected")
	}
	power := f.Power(map[UnitType]float64{UnitSoldiers: 1, UnitFighters: 3})
	if power != 14 {
		t.Fatalf("expected power 14, got %v", power)
	}
}

func TestCivilStatusJSON(t *testing.T) {
	data, err := json.Marshal(CivilRiots)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"riots"` {
		t.Fatalf("unexpected encoding %s", data)
	}
	var c CivilStatus
	if err := json.Unmarshal(data, &c); err != nil || c != CivilRiots {
		t.Fatalf("round trip failed: %v %v", c, err)
	}
	if CivilNeutral.Toward(CivilCollapse) != CivilUnrest {
		t.Fatal("Toward must move a single level")
	}
}
