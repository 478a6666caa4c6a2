// Package research accrues research points and applies level-ups.
package research

import (
	"math"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
)

type LevelUp struct {
	EmpireID empire.ID         `json:"empire_id"`
	Level    int               `json:"level"`
	Unlocked []empire.UnitType `json:"unlocked,omitempty"`
}

// Output is the research points an empire produces this turn.
func Output(e *empire.Empire, rs *ruleset.Ruleset) int64 {
	var base int64
	for _, s := range e.Sectors {
		base += rs.Economy.SectorYield[s.Type].Research
	}
	bonus := 1 + rs.Research.EducationBonus*float64(e.CountSectors(empire.SectorEducation))
	return int64(math.Round(float64(base) * bonus))
}

// Accrue adds this turn's output and spends it on as many level-ups as it
// covers. Unlocks take effect immediately.
func Accrue(e *empire.Empire, rs *ruleset.Ruleset) []LevelUp {
	e.Resources.ResearchPoints += Output(e, rs)
	return advance(e, rs)
}

// Invest converts credits into research points at the configured rate.
func Invest(e *empire.Empire, credits int64, rs *ruleset.Ruleset) ([]LevelUp, error) {
	if credits <= 0 {
		return nil, errors.Validation("investment must be positive")
	}
	if rs.Research.CreditsPerPoint <= 0 {
		return nil, errors.Preconditionf("research cannot be bought")
	}
	if e.Resources.Credits < credits {
		return nil, errors.Preconditionf("insufficient credits: have %d, need %d", e.Resources.Credits, credits)
	}
	points := credits / rs.Research.CreditsPerPoint
	if points == 0 {
		return nil, errors.Preconditionf("investment below the price of one point (%d credits)", rs.Research.CreditsPerPoint)
	}
	e.Resources.Credits -= points * rs.Research.CreditsPerPoint
	e.Resources.ResearchPoints += points
	return advance(e, rs), nil
}

func advance(e *empire.Empire, rs *ruleset.Ruleset) []LevelUp {
	var ups []LevelUp
	for {
		cost := rs.LevelCost(e.ResearchLevel)
		if cost <= 0 || e.Resources.ResearchPoints < cost {
			return ups
		}
		e.Resources.ResearchPoints -= cost
		e.ResearchLevel++
		up := LevelUp{EmpireID: e.ID, Level: e.ResearchLevel}
		for _, u := range rs.Research.Unlocks {
			if u.Level != e.ResearchLevel {
				continue
			}
			for _, unit := range u.Units {
				if e.Unlock(unit) {
					up.Unlocked = append(up.Unlocked, unit)
				}
			}
		}
		ups = append(ups, up)
	}
}
