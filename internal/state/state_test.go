package state

import (
	"testing"

	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
)

func sample() *State {
	rs := ruleset.MustDefault(ruleset.VariantUnified)
	return &State{
		GameID: 1,
		Seed:   99,
		Empires: []*empire.Empire{
			{ID: 1, Name: "One", Sectors: []empire.Sector{{ID: 1, Type: empire.SectorFood}}, Grudges: map[empire.ID]float64{2: 0.4}},
			{ID: 2, Name: "Two", Sectors: []empire.Sector{{ID: 2, Type: empire.SectorOre}}},
			{ID: 5, Name: "Five"},
		},
		Market: economy.NewMarket(rs),
	}
}

func TestEmpireLookup(t *testing.T) {
	s := sample()
	if s.Empire(2).Name != "Two" || s.Empire(3) != nil {
		t.Fatal("lookup by id failed")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := sample()
	c := s.Clone()
	c.Empires[0].Sectors[0].Type = empire.SectorUrban
	c.Empires[0].Grudges[2] = 1
	c.Market.Prices[empire.ResourceFood] = 100

	if s.Empires[0].Sectors[0].Type != empire.SectorFood || s.Empires[0].Grudges[2] != 0.4 {
		t.Fatal("clone shares empire data")
	}
	if s.Market.Prices[empire.ResourceFood] == 100 {
		t.Fatal("clone shares market prices")
	}
}

func TestDigestTracksContent(t *testing.T) {
	a, b := sample(), sample()
	da, err := a.Digest()
	if err != nil {
		t.Fatal(err)
	}
	db, _ := b.Digest()
	if da != db {
		t.Fatal("identical states must share a digest")
	}
	b.Empires[1].Population++
	if db, _ = b.Digest(); da == db {
		t.Fatal("digest must change with content")
	}
}

func TestNormalizeEliminatesEmptyEmpires(t *testing.T) {
	rs := ruleset.MustDefault(ruleset.VariantUnified)
	s := sample()
	s.Turn.Turn = 8

	out := s.Normalize(rs)
	if len(out) != 1 || out[0] != 5 {
		t.Fatalf("expected empire 5 eliminated, got %v", out)
	}
	if e := s.Empire(5); !e.Eliminated || e.EliminatedTurn != 8 {
		t.Fatalf("unexpected elimination %+v", e)
	}
	if s.Empire(1).Networth != economy.Networth(s.Empire(1), rs) {
		t.Fatal("networth not refreshed")
	}
	if len(s.Normalize(rs)) != 0 {
		t.Fatal("elimination must only be reported once")
	}
}

func TestSaveRestore(t *testing.T) {
	s := sample()
	sp := s.Save(1, 2, 1)
	s.Empire(1).Population = 500
	s.Empire(2).Sectors = nil
	s.Deliver(Message{From: 1, Kind: "taunt"}, 10)
	s.AppendEvent(Event{Kind: "solar_flare"}, 10)

	s.Restore(sp)
	if s.Empire(1).Population != 0 || s.Empire(2).SectorCount() != 1 {
		t.Fatal("empires not restored")
	}
	if len(s.Messages) != 0 || len(s.Events) != 0 || s.NextMessage != 0 {
		t.Fatal("logs not restored")
	}
}

func TestLogsAreCapped(t *testing.T) {
	s := sample()
	for i := 0; i < 5; i++ {
		s.AppendEvent(Event{Turn: i}, 3)
	}
	if len(s.Events) != 3 || s.Events[0].Turn != 2 {
		t.Fatalf("expected the three newest events, got %+v", s.Events)
	}
}

func TestPhaseFlags(t *testing.T) {
	var ts TurnState
	ts.Mark(PhaseIncome)
	if !ts.Ran(PhaseIncome) || ts.Ran(PhaseCivil) {
		t.Fatal("phase flags wrong")
	}
	if len(Phases) != 16 || Phases[0] != PhaseIncome || Phases[len(Phases)-1] != PhaseCheckpoint {
		t.Fatal("unexpected pipeline order")
	}
	for _, p := range Phases {
		if p.String() == "unknown" {
			t.Fatalf("phase %d has no name", p)
		}
	}
}
