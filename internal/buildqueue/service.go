// Package buildqueue manages multi-turn unit construction orders.
package buildqueue

import (
	"math"
	"slices"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
)

type Completion struct {
	EmpireID empire.ID       `json:"empire_id"`
	EntryID  int64           `json:"entry_id"`
	Unit     empire.UnitType `json:"unit"`
	Quantity int64           `json:"quantity"`
}

// Order pays for quantity units up front and queues them.
func Order(e *empire.Empire, unit empire.UnitType, quantity int64, rs *ruleset.Ruleset, turn int) (empire.BuildQueueEntry, error) {
	if !empire.ValidUnitType(unit) {
		return empire.BuildQueueEntry{}, errors.Validationf("unknown unit type %q", unit)
	}
	if quantity <= 0 {
		return empire.BuildQueueEntry{}, errors.Validation("quantity must be positive")
	}
	cost, ok := rs.Build.Units[unit]
	if !ok {
		return empire.BuildQueueEntry{}, errors.Validationf("unit %q cannot be built", unit)
	}
	if e.Eliminated {
		return empire.BuildQueueEntry{}, errors.Preconditionf("empire %d is eliminated", e.ID)
	}
	if !e.HasUnlocked(unit) {
		return empire.BuildQueueEntry{}, errors.Preconditionf("%s are not unlocked yet", unit)
	}
	if len(e.BuildQueue) >= rs.Build.MaxSlots {
		return empire.BuildQueueEntry{}, errors.Preconditionf("build queue is full (%d slots)", rs.Build.MaxSlots)
	}
	total := cost.Resources().Times(quantity)
	if !e.Resources.Covers(total) {
		return empire.BuildQueueEntry{}, errors.Preconditionf("insufficient resources for %d %s", quantity, unit)
	}

	e.Resources = e.Resources.Minus(total)
	entry := empire.BuildQueueEntry{
		ID:             e.NextID(),
		Unit:           unit,
		Quantity:       quantity,
		TurnsRemaining: max(1, cost.Turns),
		TotalCost:      total,
		OrderedTurn:    turn,
	}
	e.BuildQueue = append(e.BuildQueue, entry)
	return entry, nil
}

// Affordable is how many units the given budget buys.
func Affordable(budget empire.Resources, unit empire.UnitType, rs *ruleset.Ruleset) int64 {
	cost, ok := rs.Build.Units[unit]
	if !ok {
		return 0
	}
	n := int64(math.MaxInt64)
	for _, pair := range [][2]int64{{budget.Credits, cost.Credits}, {budget.Ore, cost.Ore}, {budget.Fuel, cost.Fuel}} {
		if pair[1] > 0 {
			n = min(n, max(0, pair[0])/pair[1])
		}
	}
	if n == math.MaxInt64 {
		return 0
	}
	return n
}

// Advance moves every entry one turn closer and credits completed units.
func Advance(e *empire.Empire) []Completion {
	var done []Completion
	kept := e.BuildQueue[:0]
	for _, entry := range e.BuildQueue {
		entry.TurnsRemaining--
		if entry.TurnsRemaining > 0 {
			kept = append(kept, entry)
			continue
		}
		e.Forces.AddUnit(entry.Unit, entry.Quantity)
		done = append(done, Completion{EmpireID: e.ID, EntryID: entry.ID, Unit: entry.Unit, Quantity: entry.Quantity})
	}
	e.BuildQueue = kept
	return done
}

// Cancel removes an entry and refunds the configured fraction of its cost.
func Cancel(e *empire.Empire, entryID int64, rs *ruleset.Ruleset) (empire.Resources, error) {
	i := slices.IndexFunc(e.BuildQueue, func(b empire.BuildQueueEntry) bool { return b.ID == entryID })
	if i < 0 {
		return empire.Resources{}, errors.NotFoundf("build order %d not found", entryID)
	}
	refund := Refund(e.BuildQueue[i].TotalCost, rs.Build.RefundFraction)
	e.Resources = e.Resources.Plus(refund)
	e.BuildQueue = slices.Delete(e.BuildQueue, i, i+1)
	return refund, nil
}

// Refund is floor(cost × fraction) per resource.
func Refund(cost empire.Resources, fraction float64) empire.Resources {
	f := func(v int64) int64 { return int64(math.Floor(float64(v) * fraction)) }
	return empire.Resources{
		Credits:        f(cost.Credits),
		Food:           f(cost.Food),
		Ore:            f(cost.Ore),
		Fuel:           f(cost.Fuel),
		ResearchPoints: f(cost.ResearchPoints),
	}
}
