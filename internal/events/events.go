// Package events rolls the random galactic events applied once per turn.
package events

import (
	"math"
	"slices"

	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/state"
)

const (
	BumperHarvest     = "bumper_harvest"
	SolarFlare        = "solar_flare"
	PirateRaid        = "pirate_raid"
	MarketShock       = "market_shock"
	WormholeDiscovery = "wormhole_discovery"
	RefugeeWave       = "refugee_wave"
)

// Roll draws at most one event and applies it. The draw order is the chance
// roll, the kind, then the target.
func Roll(st *state.State, rs *ruleset.Ruleset, stream *rng.Stream) *state.Event {
	if !stream.Chance(rs.Events.Chance) {
		return nil
	}

	kinds := make([]string, 0, len(rs.Events.Kinds))
	for k := range rs.Events.Kinds {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	weights := make([]float64, len(kinds))
	for i, k := range kinds {
		weights[i] = rs.Events.Kinds[k].Weight
	}
	i := stream.Pick(weights)
	if i < 0 {
		return nil
	}
	kind := kinds[i]
	cfg := rs.Events.Kinds[kind]
	ev := &state.Event{Turn: st.Turn.Turn, Kind: kind}

	switch kind {
	case WormholeDiscovery:
		if st.Galaxy == nil {
			return nil
		}
		hidden := st.Galaxy.Undiscovered()
		if len(hidden) == 0 {
			return nil
		}
		id := hidden[stream.IntN(len(hidden))]
		st.Galaxy.Discover(id, st.Turn.Turn)
		ev.Amount = id
	case MarketShock:
		r := economy.Tradable[stream.IntN(len(economy.Tradable))]
		up := stream.Chance(0.5)
		f := 1 - cfg.Fraction
		if up {
			f = 1 + cfg.Fraction
		}
		st.Market.Prices[r] = max(rs.Market.MinPrice, min(rs.Market.MaxPrice, st.Market.Prices[r]*f))
		ev.Amount = int64(math.Round(st.Market.Prices[r] * 100))
	default:
		alive := st.Alive()
		if len(alive) == 0 {
			return nil
		}
		target := alive[stream.IntN(len(alive))]
		ev.Target = target.ID
		ev.Amount = apply(target, kind, cfg)
	}

	st.AppendEvent(*ev, rs.History.Events)
	return ev
}

func apply(e *empire.Empire, kind string, cfg ruleset.EventKind) int64 {
	switch kind {
	case BumperHarvest:
		e.Resources.Food += cfg.Amount
		return cfg.Amount
	case SolarFlare:
		loss := int64(math.Floor(float64(e.Resources.Fuel) * cfg.Fraction))
		e.Resources.Fuel -= loss
		return loss
	case PirateRaid:
		loss := int64(math.Floor(float64(max(0, e.Resources.Credits)) * cfg.Fraction))
		e.Resources.Credits -= loss
		return loss
	case RefugeeWave:
		e.Population += cfg.Amount
		return cfg.Amount
	}
	return 0
}
