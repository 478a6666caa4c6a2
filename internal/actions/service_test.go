package actions

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"empires-server/internal/combat"
	"empires-server/internal/diplomacy"
	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
	"empires-server/internal/state"
)

func testRuleset() *ruleset.Ruleset {
	rs := *ruleset.MustDefault(ruleset.VariantUnified)
	rs.Combat.MaxAttacksPerTurn = 1
	rs.Bots.AngerOnAttacked = 0.25
	return &rs
}

func newService(rs *ruleset.Ruleset) *Service {
	return NewService(rs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testEmpire(id empire.ID, typ empire.Type) *empire.Empire {
	e := &empire.Empire{
		ID:        id,
		Name:      "Empire",
		Type:      typ,
		Resources: empire.Resources{Credits: 50000, Food: 5000, Ore: 5000, Fuel: 5000},
		Forces:    empire.Forces{Soldiers: 500, Fighters: 50},
		Unlocked:  []empire.UnitType{empire.UnitFighters, empire.UnitSoldiers},
	}
	for i := 0; i < 10; i++ {
		e.Sectors = append(e.Sectors, empire.Sector{ID: int64(id)*100 + int64(i), Type: empire.SectorFood})
	}
	return e
}

func testState(rs *ruleset.Ruleset) *state.State {
	return &state.State{
		GameID:  7,
		Seed:    42,
		Turn:    state.TurnState{Turn: 5},
		Empires: []*empire.Empire{testEmpire(1, empire.TypePlayer), testEmpire(2, empire.TypeBot), testEmpire(3, empire.TypeBot)},
		Market:  economy.NewMarket(rs),
	}
}

func digest(t *testing.T, st *state.State) string {
	t.Helper()
	d, err := st.Digest()
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRejectedActionsLeaveStateUntouched(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)

	tests := []struct {
		name   string
		action Action
		want   errors.ErrorType
	}{
		{"unknown kind", Action{Kind: "teleport", EmpireID: 1}, errors.ErrorTypeValidation},
		{"zero empire", Action{Kind: KindBuild, EmpireID: 0}, errors.ErrorTypeValidation},
		{"missing empire", Action{Kind: KindBuild, EmpireID: 99, Unit: "soldiers", Quantity: 1}, errors.ErrorTypeNotFound},
		{"nan quantity", Action{Kind: KindBuild, EmpireID: 1, Unit: "soldiers", Quantity: math.NaN()}, errors.ErrorTypeValidation},
		{"infinite quantity", Action{Kind: KindTrade, EmpireID: 1, Resource: "food", Quantity: math.Inf(1)}, errors.ErrorTypeValidation},
		{"negative quantity", Action{Kind: KindInvest, EmpireID: 1, Quantity: -5}, errors.ErrorTypeValidation},
		{"fractional quantity", Action{Kind: KindBuild, EmpireID: 1, Unit: "soldiers", Quantity: 1.5}, errors.ErrorTypeValidation},
		{"zero quantity", Action{Kind: KindCraft, EmpireID: 1, Item: "shield", Quantity: 0}, errors.ErrorTypeValidation},
		{"fractional forces", Action{Kind: KindAttack, EmpireID: 1, TargetID: 2, AttackType: "invasion", Forces: map[empire.UnitType]float64{"soldiers": 0.5}}, errors.ErrorTypeValidation},
		{"unknown unit", Action{Kind: KindAttack, EmpireID: 1, TargetID: 2, AttackType: "invasion", Forces: map[empire.UnitType]float64{"dragons": 1}}, errors.ErrorTypeValidation},
		{"unknown attack type", Action{Kind: KindAttack, EmpireID: 1, TargetID: 2, AttackType: "orbital", Forces: map[empire.UnitType]float64{"soldiers": 1}}, errors.ErrorTypeValidation},
		{"unknown stance", Action{Kind: KindAttack, EmpireID: 1, TargetID: 2, AttackType: "invasion", Stance: "reckless", Forces: map[empire.UnitType]float64{"soldiers": 1}}, errors.ErrorTypeValidation},
		{"overcommitted", Action{Kind: KindAttack, EmpireID: 1, TargetID: 2, AttackType: "invasion", Forces: map[empire.UnitType]float64{"soldiers": 501}}, errors.ErrorTypePrecondition},
		{"self attack", Action{Kind: KindAttack, EmpireID: 1, TargetID: 1, AttackType: "invasion", Forces: map[empire.UnitType]float64{"soldiers": 1}}, errors.ErrorTypePrecondition},
		{"missing target", Action{Kind: KindAttack, EmpireID: 1, TargetID: 9, AttackType: "invasion", Forces: map[empire.UnitType]float64{"soldiers": 1}}, errors.ErrorTypeNotFound},
		{"cancel unknown order", Action{Kind: KindCancelBuild, EmpireID: 1, EntryID: 4}, errors.ErrorTypeNotFound},
		{"break without treaty", Action{Kind: KindBreakTreaty, EmpireID: 1, TargetID: 2}, errors.ErrorTypePrecondition},
		{"message to self", Action{Kind: KindMessage, EmpireID: 1, TargetID: 1, MessageKind: "greeting"}, errors.ErrorTypePrecondition},
		{"unknown message kind", Action{Kind: KindMessage, EmpireID: 1, MessageKind: "spam"}, errors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := testState(rs)
			before := digest(t, st)
			stream := rng.ForAction(st.Seed, st.Turn.Turn, 1)

			_, err := svc.Execute(st, tt.action, stream)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.GetType(err); got != tt.want {
				t.Fatalf("expected %s, got %s (%v)", tt.want, got, err)
			}
			if digest(t, st) != before {
				t.Fatal("rejected action mutated the state")
			}
			if stream.Draws() != 0 {
				t.Fatalf("rejected action consumed %d draws", stream.Draws())
			}
		})
	}
}

func TestAttackRespectsProtection(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)
	st.Empires[1].ProtectedUntil = 10

	_, err := svc.Execute(st, Attack(1, 2, empire.Forces{Soldiers: 100}, combat.AttackInvasion, ""), rng.New(1, 1))
	if !errors.Is(err, errors.ErrorTypePrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestAttackingEndsOwnProtection(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)
	st.Empires[0].ProtectedUntil = 10

	if _, err := svc.Execute(st, Attack(1, 2, empire.Forces{Soldiers: 100}, combat.AttackInvasion, ""), rng.New(1, 1)); err != nil {
		t.Fatal(err)
	}
	if st.Empires[0].IsProtected(st.Turn.Turn) {
		t.Fatal("attacker must lose protection after attacking")
	}
}

func TestAttackLimitPerTurn(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)

	if _, err := svc.Execute(st, Attack(1, 2, empire.Forces{Soldiers: 10}, combat.AttackInvasion, ""), rng.New(1, 1)); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Execute(st, Attack(1, 3, empire.Forces{Soldiers: 10}, combat.AttackInvasion, ""), rng.New(1, 2))
	if !errors.Is(err, errors.ErrorTypePrecondition) {
		t.Fatalf("second attack should hit the limit, got %v", err)
	}

	st.Turn.Turn++
	if _, err := svc.Execute(st, Attack(1, 3, empire.Forces{Soldiers: 10}, combat.AttackInvasion, ""), rng.New(1, 3)); err != nil {
		t.Fatalf("limit must reset on a new turn: %v", err)
	}
	if len(st.Attacks) != 2 || st.NextAttack != 2 {
		t.Fatalf("expected two recorded attacks, got %d", len(st.Attacks))
	}
}

func TestAttackBlockedByTreaty(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)

	tr, err := svc.Execute(st, ProposeTreaty(1, 2, diplomacy.KindNonAggression), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Execute(st, RespondTreaty(2, tr.(diplomacy.Treaty).ID, true), nil); err != nil {
		t.Fatal(err)
	}

	_, err = svc.Execute(st, Attack(1, 2, empire.Forces{Soldiers: 10}, combat.AttackInvasion, ""), rng.New(1, 1))
	if !errors.Is(err, errors.ErrorTypePrecondition) {
		t.Fatalf("expected treaty to block the attack, got %v", err)
	}

	if _, err := svc.Execute(st, BreakTreaty(1, 2), nil); err != nil {
		t.Fatal(err)
	}
	if st.Empires[1].Grudges[1] == 0 {
		t.Fatal("breaking a treaty must anger the bot")
	}
	if _, err := svc.Execute(st, Attack(1, 2, empire.Forces{Soldiers: 10}, combat.AttackInvasion, ""), rng.New(1, 1)); err != nil {
		t.Fatalf("attack after break should succeed: %v", err)
	}
}

func TestAttackAngersBotDefender(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)

	res, err := svc.Execute(st, Attack(1, 2, empire.Forces{Soldiers: 400}, combat.AttackInvasion, "aggressive"), rng.New(3, 3))
	if err != nil {
		t.Fatal(err)
	}
	rec := res.(*combat.Record)
	def := st.Empires[1]
	if def.Mood.Anger != 0.25 || def.Grudges[1] != 0.25 {
		t.Fatalf("unexpected mood %+v grudges %v", def.Mood, def.Grudges)
	}
	if st.Attacks[0].ID != rec.ID {
		t.Fatal("attack record was not appended")
	}
	if st.Empires[0].Networth != economy.Networth(st.Empires[0], rs) {
		t.Fatal("attacker networth must be refreshed")
	}
}

func TestEliminatedEmpireCannotAct(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)
	st.Empires[1].Eliminate(4, empire.DefeatConquered)

	_, err := svc.Execute(st, Build(2, empire.UnitSoldiers, 1), nil)
	if !errors.Is(err, errors.ErrorTypePrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if _, err := svc.Execute(st, Query(2, 0), nil); err != nil {
		t.Fatalf("eliminated empires may still query: %v", err)
	}
}

func TestFinishedGameRejectsActions(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)
	st.Outcome = state.Outcome{Finished: true, VictoryType: state.VictorySurvival}

	env := svc.Dispatch(st, Build(1, empire.UnitSoldiers, 1), nil)
	if env.Success || env.Error == nil || env.Error.Type != string(errors.ErrorTypePrecondition) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	env = svc.Dispatch(st, Query(1, 0), nil)
	if !env.Success {
		t.Fatalf("query must still succeed, got %+v", env.Error)
	}
}

func TestOneMessagePerTurn(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)

	if _, err := svc.Execute(st, Message(1, 2, "greeting", "hello"), nil); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Execute(st, Message(1, 0, "taunt", "again"), nil)
	if !errors.Is(err, errors.ErrorTypePrecondition) {
		t.Fatalf("expected second message to be rejected, got %v", err)
	}
	if len(st.Outbox) != 1 || len(st.Messages) != 0 {
		t.Fatal("messages must wait in the outbox until delivery")
	}
}

func TestQueryHidesRivalInternals(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)

	res, err := svc.Execute(st, Query(1, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	view := res.(View)
	if len(view.Rivals) != 2 || view.Empire.ID != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	view.Empire.Resources.Credits = 0
	if st.Empires[0].Resources.Credits == 0 {
		t.Fatal("view must not alias live state")
	}

	res, err = svc.Execute(st, Query(1, 3), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r := res.(Rival); r.ID != 3 || r.Sectors != 10 {
		t.Fatalf("unexpected rival %+v", r)
	}
}

func TestBuildAndCancel(t *testing.T) {
	rs := testRuleset()
	svc := newService(rs)
	st := testState(rs)
	credits := st.Empires[0].Resources.Credits

	res, err := svc.Execute(st, Build(1, empire.UnitSoldiers, 10), nil)
	if err != nil {
		t.Fatal(err)
	}
	entry := res.(empire.BuildQueueEntry)
	if st.Empires[0].Resources.Credits >= credits {
		t.Fatal("build must charge up front")
	}

	res, err = svc.Execute(st, CancelBuild(1, entry.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.(CancelResult).EntryID != entry.ID || len(st.Empires[0].BuildQueue) != 0 {
		t.Fatal("cancel must remove the order")
	}
}
