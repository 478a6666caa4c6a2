// Package diplomacy tracks treaties between empires and derives coalitions
// from active alliances.
package diplomacy

import (
	"cmp"
	"slices"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
)

func (b *Book) Clone() Book {
	return Book{Treaties: slices.Clone(b.Treaties), NextID: b.NextID}
}

// Propose opens a treaty offer from one empire to another.
func (b *Book) Propose(kind Kind, from, to empire.ID, turn int) (Treaty, error) {
	if !ValidKind(kind) {
		return Treaty{}, errors.Validationf("unknown treaty kind %q", kind)
	}
	if from == to {
		return Treaty{}, errors.Preconditionf("empire %d cannot sign a treaty with itself", from)
	}
	for _, t := range b.Treaties {
		if t.Between(from, to) && (t.Status == StatusProposed || t.Status == StatusActive) {
			return Treaty{}, errors.Conflictf("a treaty between %d and %d is already %s", from, to, t.Status)
		}
	}
	b.NextID++
	t := Treaty{ID: b.NextID, Kind: kind, Proposer: from, Target: to, Status: StatusProposed, ProposedTurn: turn}
	b.Treaties = append(b.Treaties, t)
	return t, nil
}

// Respond accepts or rejects a pending offer addressed to responder.
func (b *Book) Respond(id int64, responder empire.ID, accept bool, turn int, rs *ruleset.Ruleset) (Treaty, error) {
	i := slices.IndexFunc(b.Treaties, func(t Treaty) bool { return t.ID == id })
	if i < 0 {
		return Treaty{}, errors.NotFoundf("treaty %d not found", id)
	}
	t := &b.Treaties[i]
	if t.Target != responder {
		return Treaty{}, errors.Preconditionf("treaty %d is not addressed to empire %d", id, responder)
	}
	if t.Status != StatusProposed {
		return Treaty{}, errors.Preconditionf("treaty %d is %s", id, t.Status)
	}
	if !accept {
		t.Status = StatusRejected
		return *t, nil
	}
	t.Status = StatusActive
	t.StartTurn = turn
	t.EndTurn = turn + duration(t.Kind, rs)
	return *t, nil
}

// Break ends every active treaty between a and b. It reports whether one
// existed.
func (b *Book) Break(a, c empire.ID) bool {
	broke := false
	for i := range b.Treaties {
		t := &b.Treaties[i]
		if t.Status == StatusActive && t.Between(a, c) {
			t.Status = StatusBroken
			broke = true
		}
	}
	return broke
}

func (b *Book) active(a, c empire.ID, turn int, kind Kind) bool {
	for _, t := range b.Treaties {
		if t.Status == StatusActive && t.Between(a, c) && turn <= t.EndTurn && (kind == "" || t.Kind == kind) {
			return true
		}
	}
	return false
}

// AtPeace reports whether a and c hold any active treaty.
func (b *Book) AtPeace(a, c empire.ID, turn int) bool {
	return b.active(a, c, turn, "")
}

func (b *Book) Allied(a, c empire.ID, turn int) bool {
	return b.active(a, c, turn, KindAlliance)
}

// Pending lists offers awaiting a response from id, oldest first.
func (b *Book) Pending(id empire.ID) []Treaty {
	var out []Treaty
	for _, t := range b.Treaties {
		if t.Status == StatusProposed && t.Target == id {
			out = append(out, t)
		}
	}
	return out
}

// Partners returns the ids id holds an active treaty with, ascending.
func (b *Book) Partners(id empire.ID, turn int) []empire.ID {
	var out []empire.ID
	for _, t := range b.Treaties {
		if t.Status == StatusActive && t.Involves(id) && turn <= t.EndTurn {
			out = append(out, t.Other(id))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Checkpoint expires stale offers and lapsed treaties, dissolves treaties of
// empires no longer alive, and drops settled entries.
func (b *Book) Checkpoint(turn int, alive func(empire.ID) bool, rs *ruleset.Ruleset) CheckpointResult {
	var res CheckpointResult
	kept := b.Treaties[:0]
	for _, t := range b.Treaties {
		switch {
		case (t.Status == StatusProposed || t.Status == StatusActive) && (!alive(t.Proposer) || !alive(t.Target)):
			res.Dissolved++
			continue
		case t.Status == StatusProposed && turn-t.ProposedTurn >= rs.Diplomacy.ProposalTTL:
			res.Expired++
			continue
		case t.Status == StatusActive && turn >= t.EndTurn:
			res.Expired++
			continue
		case t.Status != StatusProposed && t.Status != StatusActive:
			continue
		}
		kept = append(kept, t)
	}
	b.Treaties = kept
	return res
}

// Coalitions groups living empires joined by active alliances. Each group
// has at least two members, members are ascending and groups are ordered by
// their lowest member.
func (b *Book) Coalitions(alive []empire.ID, turn int) [][]empire.ID {
	parent := make(map[empire.ID]empire.ID, len(alive))
	for _, id := range alive {
		parent[id] = id
	}
	var find func(empire.ID) empire.ID
	find = func(x empire.ID) empire.ID {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, t := range b.Treaties {
		if t.Status != StatusActive || t.Kind != KindAlliance || turn > t.EndTurn {
			continue
		}
		if _, ok := parent[t.Proposer]; !ok {
			continue
		}
		if _, ok := parent[t.Target]; !ok {
			continue
		}
		ra, rb := find(t.Proposer), find(t.Target)
		if ra != rb {
			parent[max(ra, rb)] = min(ra, rb)
		}
	}

	groups := make(map[empire.ID][]empire.ID)
	for _, id := range alive {
		root := find(id)
		groups[root] = append(groups[root], id)
	}
	var out [][]empire.ID
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		slices.Sort(members)
		out = append(out, members)
	}
	slices.SortFunc(out, func(a, b []empire.ID) int { return cmp.Compare(a[0], b[0]) })
	return out
}

func duration(k Kind, rs *ruleset.Ruleset) int {
	if k == KindAlliance {
		return rs.Diplomacy.AllianceTurns
	}
	return rs.Diplomacy.NonAggressionTurns
}
