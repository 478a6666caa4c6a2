package combat

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"empires-server/internal/empire"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEmpire(id empire.ID, sectors int, forces empire.Forces) *empire.Empire {
	e := &empire.Empire{ID: id, Name: "Empire", Type: empire.TypeBot, Forces: forces}
	for i := 0; i < sectors; i++ {
		e.Sectors = append(e.Sectors, empire.Sector{ID: int64(id)*100 + int64(i), Type: empire.SectorFood})
	}
	return e
}

func unifiedWithout(fn func(rs *ruleset.Ruleset)) *ruleset.Ruleset {
	rs := *ruleset.MustDefault(ruleset.VariantUnified)
	fn(&rs)
	return &rs
}

func TestTieGoesToDefender(t *testing.T) {
	rs := unifiedWithout(func(rs *ruleset.Ruleset) {
		rs.Combat.DefenderBonusPct = 0
		rs.Combat.Underdog.Enabled = false
	})
	r := NewResolver(rs, quietLogger())
	att := newEmpire(1, 5, empire.Forces{Soldiers: 1000})
	def := newEmpire(2, 5, empire.Forces{Soldiers: 1000})

	rec, err := r.ResolveAttack(att, def, empire.Forces{Soldiers: 1000}, AttackInvasion, "balanced",
		Conditions{GameID: 1, Turn: 3}, rng.New(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if rec.AttackerPower != 1000 || rec.DefenderPower != 1000 {
		t.Fatalf("expected equal power, got %v vs %v", rec.AttackerPower, rec.DefenderPower)
	}
	if rec.WinnerID != def.ID || rec.Outcome != OutcomeDefenderWin {
		t.Fatalf("tie must go to the defender, got %+v", rec)
	}
	if !rec.Draw {
		t.Fatal("equal power must count as a draw for casualties")
	}
	if rec.SectorsTransferred != 0 || def.SectorCount() != 5 {
		t.Fatal("a lost invasion must not transfer sectors")
	}
}

func TestGuerillaRaid(t *testing.T) {
	rs := unifiedWithout(func(rs *ruleset.Ruleset) { rs.Combat.Underdog.Enabled = false })
	r := NewResolver(rs, quietLogger())
	att := newEmpire(1, 4, empire.Forces{Soldiers: 100})
	def := newEmpire(2, 4, empire.Forces{Soldiers: 50, Stations: 30})

	rec, err := r.ResolveAttack(att, def, empire.Forces{Soldiers: 100}, AttackGuerilla, "",
		Conditions{GameID: 1, Turn: 7, Seq: 1}, rng.New(42, 7))
	if err != nil {
		t.Fatal(err)
	}
	if !rec.AttackerWon() {
		t.Fatalf("expected attacker win, got %+v", rec)
	}
	if rec.Stance != "balanced" {
		t.Fatalf("empty stance must fall back to balanced, got %q", rec.Stance)
	}
	if rec.Engaged.Stations != 0 {
		t.Fatal("guerilla raids must only engage the configured unit types")
	}
	if def.SectorCount() != 4 || rec.SectorsTransferred != 0 {
		t.Fatal("guerilla raids never transfer territory")
	}
	if att.Forces.Soldiers >= 100 || def.Forces.Soldiers >= 50 {
		t.Fatalf("both sides must take casualties, attacker %d defender %d", att.Forces.Soldiers, def.Forces.Soldiers)
	}
	if def.Forces.Stations != 30 {
		t.Fatal("unengaged units must not take casualties")
	}
	wantAtt := int64(math.Round(100 * rec.AttackerRate))
	if rec.AttackerLosses.Soldiers != wantAtt {
		t.Fatalf("attacker losses %d, want %d", rec.AttackerLosses.Soldiers, wantAtt)
	}
}

func TestInvasionCapture(t *testing.T) {
	rs := ruleset.MustDefault(ruleset.VariantUnified)
	r := NewResolver(rs, quietLogger())
	att := newEmpire(1, 10, empire.Forces{Soldiers: 4000})
	def := newEmpire(2, 10, empire.Forces{Soldiers: 1000})

	rec, err := r.ResolveAttack(att, def, empire.Forces{Soldiers: 4000}, AttackInvasion, "balanced",
		Conditions{GameID: 1, Turn: 12, Seq: 2}, rng.New(5, 5))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Ratio < 3 {
		t.Fatalf("expected a 3x margin, got %v", rec.Ratio)
	}
	if rec.SectorsTransferred == 0 {
		t.Fatal("expected sectors to be transferred")
	}
	terr := rs.Combat.Territory
	if rec.CapturePct < terr.MinPct || rec.CapturePct > terr.MaxPct {
		t.Fatalf("capture pct %v outside [%v, %v]", rec.CapturePct, terr.MinPct, terr.MaxPct)
	}
	if def.SectorCount() != 10-rec.SectorsTransferred || att.SectorCount() != 10+rec.SectorsTransferred {
		t.Fatalf("sector counts not moved: attacker %d defender %d", att.SectorCount(), def.SectorCount())
	}
	for _, s := range att.Sectors[10:] {
		if s.AcquiredTurn != 12 {
			t.Fatalf("captured sector not stamped with the capture turn: %+v", s)
		}
	}
}

func TestInvasionEliminatesDefender(t *testing.T) {
	r := NewResolver(ruleset.MustDefault(ruleset.VariantUnified), quietLogger())
	att := newEmpire(1, 3, empire.Forces{Soldiers: 5000})
	def := newEmpire(2, 1, empire.Forces{Soldiers: 10})

	rec, err := r.ResolveAttack(att, def, empire.Forces{Soldiers: 5000}, AttackInvasion, "aggressive",
		Conditions{Turn: 4}, rng.New(9, 9))
	if err != nil {
		t.Fatal(err)
	}
	if !def.Eliminated || !rec.DefenderEliminated {
		t.Fatal("defender without sectors must be eliminated")
	}
	if def.DefeatReason != empire.DefeatConquered || def.EliminatedTurn != 4 {
		t.Fatalf("unexpected defeat %q at %d", def.DefeatReason, def.EliminatedTurn)
	}
}

func TestRetreat(t *testing.T) {
	r := NewResolver(ruleset.MustDefault(ruleset.VariantUnified), quietLogger())
	e := newEmpire(1, 2, empire.Forces{Fighters: 250})

	res, err := r.Retreat(e, empire.Forces{Fighters: 200}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(math.Round(200 * 0.15)); res.Losses.Fighters != want {
		t.Fatalf("expected %d losses, got %d", want, res.Losses.Fighters)
	}
	if e.Forces.Fighters != 220 {
		t.Fatalf("expected 220 fighters left, got %d", e.Forces.Fighters)
	}

	if _, err := r.Retreat(e, empire.Forces{Fighters: -1}, 3); !errors.Is(err, errors.ErrorTypeValidation) {
		t.Fatalf("negative retreat must be a validation error, got %v", err)
	}
}

func TestUnderdogBonus(t *testing.T) {
	rs := ruleset.MustDefault(ruleset.VariantUnified)
	r := NewResolver(rs, quietLogger())
	att := newEmpire(1, 3, empire.Forces{Soldiers: 500})
	def := newEmpire(2, 3, empire.Forces{Soldiers: 1000})

	rec, err := r.ResolveAttack(att, def, empire.Forces{Soldiers: 500}, AttackGuerilla, "balanced",
		Conditions{}, rng.New(3, 3))
	if err != nil {
		t.Fatal(err)
	}
	rawRatio := 500.0 / 1100.0
	want := UnderdogBonus(rawRatio, rs.Combat.Underdog)
	if math.Abs(rec.UnderdogBonusPct-want) > 1e-9 || want <= 0 || want > rs.Combat.Underdog.MaxBonusPct {
		t.Fatalf("unexpected underdog bonus %v, want %v", rec.UnderdogBonusPct, want)
	}
	if math.Abs(rec.AttackerPower-500*(1+want/100)) > 1e-9 {
		t.Fatalf("bonus not applied to attacker power: %v", rec.AttackerPower)
	}
	if UnderdogBonus(0, rs.Combat.Underdog) != rs.Combat.Underdog.MaxBonusPct {
		t.Fatal("bonus must reach the maximum at ratio zero")
	}
}

func TestLegacyDiversityBonus(t *testing.T) {
	rs := ruleset.MustDefault(ruleset.VariantLegacy)
	r := NewResolver(rs, quietLogger())
	committed := empire.Forces{Soldiers: 100, Fighters: 10, Stations: 10}
	att := newEmpire(1, 3, committed)
	def := newEmpire(2, 3, empire.Forces{Soldiers: 100})

	rec, err := r.ResolveAttack(att, def, committed, AttackGuerilla, "balanced", Conditions{}, rng.New(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	base := committed.Power(rs.Combat.UnitPower)
	if math.Abs(rec.AttackerPower-base*rs.Combat.Diversity.Multiplier) > 1e-9 {
		t.Fatalf("expected diversity bonus on %v, got %v", base, rec.AttackerPower)
	}
	if rec.UnderdogBonusPct != 0 {
		t.Fatal("legacy must not apply the underdog bonus")
	}
}

func TestValidationRejectsWithoutMutation(t *testing.T) {
	r := NewResolver(ruleset.MustDefault(ruleset.VariantUnified), quietLogger())
	eliminated := newEmpire(3, 0, empire.Forces{Soldiers: 10})
	eliminated.Eliminate(1, empire.DefeatConquered)

	tests := []struct {
		name      string
		defender  func(att *empire.Empire) *empire.Empire
		committed empire.Forces
		kind      AttackType
		want      errors.ErrorType
	}{
		{"self", func(att *empire.Empire) *empire.Empire { return att }, empire.Forces{Soldiers: 10}, AttackInvasion, errors.ErrorTypePrecondition},
		{"eliminated defender", func(*empire.Empire) *empire.Empire { return eliminated }, empire.Forces{Soldiers: 10}, AttackInvasion, errors.ErrorTypePrecondition},
		{"exceeds holdings", func(*empire.Empire) *empire.Empire { return newEmpire(2, 2, empire.Forces{}) }, empire.Forces{Soldiers: 101}, AttackInvasion, errors.ErrorTypePrecondition},
		{"negative", func(*empire.Empire) *empire.Empire { return newEmpire(2, 2, empire.Forces{}) }, empire.Forces{Soldiers: -1}, AttackInvasion, errors.ErrorTypeValidation},
		{"nothing committed", func(*empire.Empire) *empire.Empire { return newEmpire(2, 2, empire.Forces{}) }, empire.Forces{}, AttackInvasion, errors.ErrorTypeValidation},
		{"unknown type", func(*empire.Empire) *empire.Empire { return newEmpire(2, 2, empire.Forces{}) }, empire.Forces{Soldiers: 10}, AttackType("siege"), errors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := newEmpire(1, 2, empire.Forces{Soldiers: 100})
			def := tt.defender(att)
			beforeAtt, beforeDef := att.Clone(), def.Clone()
			stream := rng.New(1, 1)

			_, err := r.ResolveAttack(att, def, tt.committed, tt.kind, "balanced", Conditions{}, stream)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
			if att.Forces != beforeAtt.Forces || def.Forces != beforeDef.Forces || def.SectorCount() != beforeDef.SectorCount() {
				t.Fatal("rejected attack mutated state")
			}
			if stream.Draws() != 0 {
				t.Fatal("rejected attack consumed randomness")
			}
		})
	}
}

func TestCasualtiesStayWithinBounds(t *testing.T) {
	for _, variant := range []string{ruleset.VariantUnified, ruleset.VariantLegacy} {
		rs := ruleset.MustDefault(variant)
		r := NewResolver(rs, quietLogger())
		gen := rng.New(77, 1)
		cas := rs.Combat.Casualties

		for i := 0; i < 300; i++ {
			var committed, held empire.Forces
			for _, u := range empire.UnitTypes {
				committed.Set(u, int64(gen.IntN(400)))
				held.Set(u, int64(gen.IntN(400)))
			}
			committed.Soldiers++
			att := newEmpire(1, 1+gen.IntN(20), committed)
			def := newEmpire(2, 1+gen.IntN(20), held)
			kind := AttackInvasion
			if gen.Chance(0.5) {
				kind = AttackGuerilla
			}
			sectors := def.SectorCount()

			rec, err := r.ResolveAttack(att, def, committed, kind, ruleset.StanceNames[i%len(ruleset.StanceNames)], Conditions{Turn: i}, gen)
			if err != nil {
				t.Fatal(err)
			}
			if rec.AttackerRate < cas.MinRate || rec.AttackerRate > cas.MaxRate ||
				rec.DefenderRate < cas.MinRate || rec.DefenderRate > cas.MaxRate {
				t.Fatalf("rate out of bounds: %+v", rec)
			}
			if rec.AttackerLosses.Validate() != nil || !committed.Covers(rec.AttackerLosses) {
				t.Fatalf("attacker losses out of bounds: %+v", rec.AttackerLosses)
			}
			if rec.DefenderLosses.Validate() != nil || !rec.Engaged.Covers(rec.DefenderLosses) {
				t.Fatalf("defender losses out of bounds: %+v", rec.DefenderLosses)
			}
			if att.Forces.Validate() != nil || def.Forces.Validate() != nil {
				t.Fatal("forces went negative")
			}
			if rec.SectorsTransferred > 0 {
				if kind != AttackInvasion || !rec.AttackerWon() {
					t.Fatal("only won invasions transfer territory")
				}
				if rec.CapturePct < rs.Combat.Territory.MinPct || rec.CapturePct > rs.Combat.Territory.MaxPct {
					t.Fatalf("capture pct %v out of bounds", rec.CapturePct)
				}
				if def.SectorCount() != sectors-rec.SectorsTransferred {
					t.Fatal("defender sector count did not decrease")
				}
			}
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	run := func() *Record {
		r := NewResolver(ruleset.MustDefault(ruleset.VariantUnified), quietLogger())
		att := newEmpire(1, 6, empire.Forces{Soldiers: 800, Fighters: 90, LightCruisers: 12})
		def := newEmpire(2, 6, empire.Forces{Soldiers: 600, Stations: 40})
		rec, err := r.ResolveAttack(att, def, att.Forces, AttackInvasion, "aggressive",
			Conditions{GameID: 9, Turn: 30, Seq: 4}, rng.ForTurn(1234, 30))
		if err != nil {
			t.Fatal(err)
		}
		return rec
	}
	a, b := run(), run()
	if *a != *b {
		t.Fatalf("same inputs produced different records:\n%+v\n%+v", a, b)
	}
	if a.ID != RecordID(9, 30, 4) {
		t.Fatal("record id must be derived from game, turn and sequence")
	}
}

func TestCapturePctCurve(t *testing.T) {
	terr := ruleset.Territory{MinPct: 5, MaxPct: 20, CurveExponent: 0.5}
	if got := CapturePct(1, terr, 3); got != 5 {
		t.Fatalf("at parity expected min pct, got %v", got)
	}
	if got := CapturePct(10, terr, 3); got != 20 {
		t.Fatalf("beyond overwhelming expected max pct, got %v", got)
	}
	mid := CapturePct(2, terr, 3)
	if mid <= 12.5 || mid >= 20 {
		t.Fatalf("square-root curve should front-load gains, got %v", mid)
	}
	if SectorsToTransfer(3, 5) != 1 || SectorsToTransfer(10, 20) != 2 || SectorsToTransfer(0, 20) != 0 {
		t.Fatal("unexpected sector transfer counts")
	}
}
