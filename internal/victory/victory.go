// Package victory decides when a game ends and which empires are defeated.
package victory

import (
	"cmp"
	"slices"

	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
	"empires-server/internal/state"
)

type Defeat struct {
	EmpireID empire.ID `json:"empire_id"`
	Reason   string    `json:"reason"`
	Turn     int       `json:"turn"`
}

// ApplyDefeats eliminates every living empire meeting a defeat condition.
// Each empire is judged on its own counters only.
func ApplyDefeats(st *state.State, rs *ruleset.Ruleset) []Defeat {
	v := rs.Victory
	turn := st.Turn.Turn
	var out []Defeat
	for _, e := range st.Empires {
		if e.Eliminated {
			continue
		}
		reason := ""
		switch {
		case e.SectorCount() == 0:
			reason = empire.DefeatConquered
		case v.BankruptcyTurns > 0 && e.Counters.NegativeBalanceTurns >= v.BankruptcyTurns:
			reason = empire.DefeatBankruptcy
		case v.StarvationTurns > 0 && e.Counters.StarvationTurns >= v.StarvationTurns:
			reason = empire.DefeatStarvation
		case v.CollapseTurns > 0 && e.Counters.CollapseTurns >= v.CollapseTurns:
			reason = empire.DefeatCivilCollapse
		default:
			continue
		}
		e.Eliminate(turn, reason)
		out = append(out, Defeat{EmpireID: e.ID, Reason: reason, Turn: turn})
	}
	return out
}

// Evaluate checks the victory conditions in fixed priority order: conquest,
// economic, technological, domination, coalition, then survival at the final
// turn. Only domination may end a game before the minimum turn.
func Evaluate(st *state.State, rs *ruleset.Ruleset) state.Outcome {
	v := rs.Victory
	turn := st.Turn.Turn
	alive := st.Alive()
	if len(alive) == 0 {
		return state.Outcome{Finished: true, Turn: turn}
	}
	gate := turn >= v.MinTurn

	var total int
	for _, e := range alive {
		total += e.SectorCount()
	}

	won := func(kind string, id empire.ID) state.Outcome {
		return state.Outcome{Finished: true, VictoryType: kind, WinnerID: id, Turn: turn}
	}

	if gate && total > 0 && v.ConquestShare > 0 {
		best := top(alive, func(e *empire.Empire) float64 { return float64(e.SectorCount()) })
		if float64(best.SectorCount())/float64(total) >= v.ConquestShare {
			return won(state.VictoryConquest, best.ID)
		}
	}

	if gate && len(alive) >= 2 && v.EconomicMultiple > 0 {
		ranked := slices.Clone(alive)
		sortBy(ranked, func(e *empire.Empire) float64 { return float64(economy.Networth(e, rs)) })
		first, second := economy.Networth(ranked[0], rs), economy.Networth(ranked[1], rs)
		if second > 0 && float64(first) >= v.EconomicMultiple*float64(second) {
			return won(state.VictoryEconomic, ranked[0].ID)
		}
	}

	if gate && v.TechLevel > 0 {
		best := top(alive, func(e *empire.Empire) float64 { return float64(e.ResearchLevel) })
		if best.ResearchLevel >= v.TechLevel {
			return won(state.VictoryTech, best.ID)
		}
	}

	if len(st.Empires) >= 2 && len(alive) == 1 {
		return won(state.VictoryDomination, alive[0].ID)
	}

	if gate && total > 0 && v.CoalitionShare > 0 {
		for _, members := range st.Diplomacy.Coalitions(st.AliveIDs(), turn) {
			var sectors int
			group := make([]*empire.Empire, 0, len(members))
			for _, id := range members {
				e := st.Empire(id)
				sectors += e.SectorCount()
				group = append(group, e)
			}
			if float64(sectors)/float64(total) >= v.CoalitionShare {
				lead := top(group, func(e *empire.Empire) float64 { return float64(economy.Networth(e, rs)) })
				out := won(state.VictoryCoalition, lead.ID)
				out.CoalitionIDs = members
				return out
			}
		}
	}

	final := st.FinalTurn
	if final == 0 {
		final = v.FinalTurn
	}
	if final > 0 && turn >= final {
		best := top(alive, func(e *empire.Empire) float64 { return float64(economy.Networth(e, rs)) })
		return won(state.VictorySurvival, best.ID)
	}

	return state.Outcome{}
}

// top returns the highest scoring empire, lowest id on ties.
func top(list []*empire.Empire, score func(*empire.Empire) float64) *empire.Empire {
	best := list[0]
	for _, e := range list[1:] {
		if s, b := score(e), score(best); s > b || (s == b && e.ID < best.ID) {
			best = e
		}
	}
	return best
}

func sortBy(list []*empire.Empire, score func(*empire.Empire) float64) {
	slices.SortStableFunc(list, func(a, b *empire.Empire) int {
		if c := cmp.Compare(score(b), score(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
