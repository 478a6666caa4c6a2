package events

import (
	"testing"

	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/galaxy"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/state"
)

func eventState(rs *ruleset.Ruleset) *state.State {
	return &state.State{
		Turn: state.TurnState{Turn: 3},
		Empires: []*empire.Empire{
			{ID: 1, Resources: empire.Resources{Credits: 1000, Fuel: 100}, Population: 100, Sectors: []empire.Sector{{ID: 1}}},
			{ID: 2, Resources: empire.Resources{Credits: 1000, Fuel: 100}, Population: 100, Sectors: []empire.Sector{{ID: 2}}},
		},
		Galaxy: &galaxy.Galaxy{Wormholes: []galaxy.Wormhole{{ID: 1, From: 1, To: 2}}},
		Market: economy.NewMarket(rs),
	}
}

func only(kind string) *ruleset.Ruleset {
	rs := *ruleset.MustDefault(ruleset.VariantUnified)
	rs.Events.Chance = 1
	rs.Events.Kinds = map[string]ruleset.EventKind{kind: ruleset.MustDefault(ruleset.VariantUnified).Events.Kinds[kind]}
	return &rs
}

func TestEventKinds(t *testing.T) {
	tests := []struct {
		kind  string
		check func(t *testing.T, st *state.State, ev *state.Event)
	}{
		{BumperHarvest, func(t *testing.T, st *state.State, ev *state.Event) {
			if st.Empire(ev.Target).Resources.Food != ev.Amount || ev.Amount <= 0 {
				t.Fatalf("harvest not applied: %+v", ev)
			}
		}},
		{SolarFlare, func(t *testing.T, st *state.State, ev *state.Event) {
			if st.Empire(ev.Target).Resources.Fuel != 100-ev.Amount || ev.Amount != 20 {
				t.Fatalf("flare not applied: %+v", ev)
			}
		}},
		{PirateRaid, func(t *testing.T, st *state.State, ev *state.Event) {
			if st.Empire(ev.Target).Resources.Credits != 900 {
				t.Fatalf("raid not applied: %+v", ev)
			}
		}},
		{RefugeeWave, func(t *testing.T, st *state.State, ev *state.Event) {
			if st.Empire(ev.Target).Population != 100+ev.Amount {
				t.Fatalf("refugees not applied: %+v", ev)
			}
		}},
		{WormholeDiscovery, func(t *testing.T, st *state.State, ev *state.Event) {
			if !st.Galaxy.Wormholes[0].Discovered || st.Galaxy.Wormholes[0].DiscoveredTurn != 3 {
				t.Fatal("wormhole not discovered")
			}
		}},
		{MarketShock, func(t *testing.T, st *state.State, ev *state.Event) {
			changed := false
			for _, r := range economy.Tradable {
				if st.Market.Prices[r] != ruleset.MustDefault(ruleset.VariantUnified).Market.InitialPrices[r] {
					changed = true
				}
			}
			if !changed {
				t.Fatal("market shock did not move a price")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rs := only(tt.kind)
			st := eventState(rs)
			ev := Roll(st, rs, rng.New(5, 5))
			if ev == nil || ev.Kind != tt.kind {
				t.Fatalf("expected a %s event, got %+v", tt.kind, ev)
			}
			if len(st.Events) != 1 {
				t.Fatal("event not logged")
			}
			tt.check(t, st, ev)
		})
	}
}

func TestNoEventWithoutChance(t *testing.T) {
	rs := *ruleset.MustDefault(ruleset.VariantUnified)
	rs.Events.Chance = 0
	st := eventState(&rs)
	stream := rng.New(1, 1)
	if Roll(st, &rs, stream) != nil || stream.Draws() != 0 {
		t.Fatal("zero chance must not roll")
	}
}
