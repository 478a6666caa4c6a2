// Package economy holds the per-empire income, population and civil-status
// rules together with networth and the shared resource market.
package economy

import (
	"math"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
)

// Statement is one empire's income breakdown for a turn.
type Statement struct {
	Gross        empire.Resources `json:"gross"`
	Tax          int64            `json:"tax"`
	SectorUpkeep int64            `json:"sector_upkeep"`
	UnitUpkeep   int64            `json:"unit_upkeep"`
	FoodConsumed int64            `json:"food_consumed"`
	Net          empire.Resources `json:"net"`
	Starving     bool             `json:"starving"`
	Negative     bool             `json:"negative"`
}

// ApplyIncome credits sector yields and population tax, pays sector and unit
// maintenance and feeds the population. Credits may go negative; food is
// clamped at zero and the shortfall counts as a starvation turn.
func ApplyIncome(e *empire.Empire, rs *ruleset.Ruleset) Statement {
	var st Statement
	for _, s := range e.Sectors {
		y := rs.Economy.SectorYield[s.Type]
		st.Gross.Credits += y.Credits
		st.Gross.Food += y.Food
		st.Gross.Ore += y.Ore
		st.Gross.Fuel += y.Fuel
		st.SectorUpkeep += y.Maintenance
	}
	st.Tax = round(float64(e.Population) * rs.Economy.TaxPerCapita)
	st.Gross.Credits = round(float64(st.Gross.Credits+st.Tax) * rs.IncomeMultiplier(e.CivilStatus))
	st.UnitUpkeep = UnitUpkeep(e.Forces, rs)
	st.FoodConsumed = round(float64(e.Population)*rs.Economy.FoodPerCapita +
		float64(e.Forces.Soldiers)*rs.Economy.FoodPerSoldier)

	st.Net = st.Gross
	st.Net.Credits -= st.SectorUpkeep + st.UnitUpkeep
	st.Net.Food -= st.FoodConsumed

	e.Resources = e.Resources.Plus(st.Net)
	if e.Resources.Food < 0 {
		e.Resources.Food = 0
		st.Starving = true
		e.Counters.StarvationTurns++
	} else {
		e.Counters.StarvationTurns = 0
	}
	if e.Resources.Credits < 0 {
		st.Negative = true
		e.Counters.NegativeBalanceTurns++
	} else {
		e.Counters.NegativeBalanceTurns = 0
	}
	return st
}

// UnitUpkeep is Σ count × maintenance per unit type.
func UnitUpkeep(f empire.Forces, rs *ruleset.Ruleset) int64 {
	var total float64
	for _, u := range empire.UnitTypes {
		total += float64(f.Get(u)) * rs.Economy.UnitMaintenance[u]
	}
	return round(total)
}

// Housing is the population capacity of an empire's sectors.
func Housing(e *empire.Empire, rs *ruleset.Ruleset) int64 {
	h := rs.Population.BaseHousing
	for _, s := range e.Sectors {
		h += rs.Economy.SectorYield[s.Type].Housing
	}
	return h
}

// GrowPopulation moves population logistically toward housing capacity. A
// starving empire shrinks instead.
func GrowPopulation(e *empire.Empire, rs *ruleset.Ruleset) int64 {
	before := e.Population
	if e.Counters.StarvationTurns > 0 {
		e.Population -= round(float64(e.Population) * rs.Population.StarvationLoss)
	} else {
		capacity := float64(Housing(e, rs))
		pop := float64(e.Population)
		if capacity > 0 {
			e.Population += round(pop * rs.Population.GrowthRate * (1 - pop/capacity))
		}
	}
	e.Population = max(0, e.Population)
	return e.Population - before
}

// CivilScore rates the conditions this turn. Higher is better.
func CivilScore(e *empire.Empire, rs *ruleset.Ruleset) int {
	score := 0
	switch {
	case e.Counters.StarvationTurns > 0:
		score -= 2
	case e.Counters.NegativeBalanceTurns > 0:
		score--
	default:
		score++
	}

	capacity := Housing(e, rs)
	if capacity > 0 {
		crowding := float64(e.Population) / float64(capacity)
		if crowding > rs.Civil.CrowdingThreshold {
			score--
		} else if crowding < rs.Civil.CrowdingThreshold/2 {
			score++
		}
	}

	if n := e.SectorCount(); n > 0 {
		stable := e.CountSectors(empire.SectorGovernment) + e.CountSectors(empire.SectorEducation)
		if float64(stable)/float64(n) >= rs.Civil.StabilityShare {
			score++
		}
	}
	return score
}

// RecomputeCivil moves civil status at most one level toward the level the
// current conditions call for. It must run after income and population.
func RecomputeCivil(e *empire.Empire, rs *ruleset.Ruleset) empire.CivilStatus {
	target := (empire.CivilNeutral - empire.CivilStatus(CivilScore(e, rs))).Clamp()
	e.CivilStatus = e.CivilStatus.Toward(target)
	if e.CivilStatus == empire.CivilCollapse {
		e.Counters.CollapseTurns++
	} else {
		e.Counters.CollapseTurns = 0
	}
	return e.CivilStatus
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
