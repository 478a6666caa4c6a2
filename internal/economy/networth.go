package economy

import (
	"slices"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
)

// Networth is a pure function of the empire's current holdings. Debt does not
// reduce it below the value of the other holdings.
func Networth(e *empire.Empire, rs *ruleset.Ruleset) int64 {
	w := rs.Networth
	v := float64(max(0, e.Resources.Credits))*w.Credits +
		float64(e.Resources.Food)*w.Food +
		float64(e.Resources.Ore)*w.Ore +
		float64(e.Resources.Fuel)*w.Fuel +
		e.Forces.Power(rs.Combat.UnitPower)*w.Units +
		float64(e.SectorCount())*w.Sector +
		float64(e.ResearchLevel)*w.Level

	items := make([]string, 0, len(e.Crafted))
	for item := range e.Crafted {
		items = append(items, item)
	}
	slices.Sort(items)
	for _, item := range items {
		v += float64(e.Crafted[item] * rs.Crafting.Recipes[item].Networth)
	}
	return round(v)
}

// Refresh stores the current networth on the empire.
func Refresh(e *empire.Empire, rs *ruleset.Ruleset) {
	e.Networth = Networth(e, rs)
}
