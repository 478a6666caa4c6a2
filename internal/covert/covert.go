// Package covert accrues the covert points spent on intelligence operations.
package covert

import (
	"math"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
)

// Accrue adds points for covert agents and government sectors, capped at
// the configured maximum. It returns the points actually gained.
func Accrue(e *empire.Empire, rs *ruleset.Ruleset) int64 {
	gain := int64(math.Floor(float64(e.Forces.CovertAgents)*rs.Covert.PerAgent)) +
		e.CountSectors(empire.SectorGovernment)*rs.Covert.PerGovernment
	before := e.CovertPoints
	e.CovertPoints = min(rs.Covert.Max, e.CovertPoints+gain)
	return e.CovertPoints - before
}
