// Package crafting covers tier-1 component production and the crafting
// queue that turns components into items.
package crafting

import (
	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
)

type Delivery struct {
	EmpireID empire.ID `json:"empire_id"`
	EntryID  int64     `json:"entry_id"`
	Item     string    `json:"item"`
	Quantity int64     `json:"quantity"`
}

// AutoProduce turns ore into components in industrial sectors. Output is
// limited by the ore available.
func AutoProduce(e *empire.Empire, rs *ruleset.Ruleset) int64 {
	n := e.CountSectors(empire.SectorIndustrial) * rs.Crafting.ComponentsPerIndustrial
	if per := rs.Crafting.OrePerComponent; per > 0 {
		n = min(n, max(0, e.Resources.Ore)/per)
		e.Resources.Ore -= n * per
	}
	e.Components += n
	return n
}

// Order consumes components up front and queues the item.
func Order(e *empire.Empire, item string, quantity int64, rs *ruleset.Ruleset, turn int) (empire.CraftingEntry, error) {
	recipe, ok := rs.Crafting.Recipes[item]
	if !ok {
		return empire.CraftingEntry{}, errors.Validationf("unknown recipe %q", item)
	}
	if quantity <= 0 {
		return empire.CraftingEntry{}, errors.Validation("quantity must be positive")
	}
	if e.Eliminated {
		return empire.CraftingEntry{}, errors.Preconditionf("empire %d is eliminated", e.ID)
	}
	if len(e.CraftingQueue) >= rs.Crafting.MaxQueue {
		return empire.CraftingEntry{}, errors.Preconditionf("crafting queue is full (%d slots)", rs.Crafting.MaxQueue)
	}
	need := recipe.Components * quantity
	if e.Components < need {
		return empire.CraftingEntry{}, errors.Preconditionf("insufficient components: have %d, need %d", e.Components, need)
	}

	e.Components -= need
	entry := empire.CraftingEntry{
		ID:             e.NextID(),
		Item:           item,
		Quantity:       quantity,
		TurnsRemaining: max(1, recipe.Turns),
		ComponentsPaid: need,
		OrderedTurn:    turn,
	}
	e.CraftingQueue = append(e.CraftingQueue, entry)
	return entry, nil
}

func Advance(e *empire.Empire) []Delivery {
	var done []Delivery
	kept := e.CraftingQueue[:0]
	for _, entry := range e.CraftingQueue {
		entry.TurnsRemaining--
		if entry.TurnsRemaining > 0 {
			kept = append(kept, entry)
			continue
		}
		if e.Crafted == nil {
			e.Crafted = make(map[string]int64)
		}
		e.Crafted[entry.Item] += entry.Quantity
		done = append(done, Delivery{EmpireID: e.ID, EntryID: entry.ID, Item: entry.Item, Quantity: entry.Quantity})
	}
	e.CraftingQueue = kept
	return done
}
