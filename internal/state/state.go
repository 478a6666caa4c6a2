// Package state holds the game snapshot threaded through the turn pipeline.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"empires-server/internal/combat"
	"empires-server/internal/diplomacy"
	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
)

// Empire returns the empire with the given id, or nil. Empires are kept
// sorted by id.
func (s *State) Empire(id empire.ID) *empire.Empire {
	i, ok := slices.BinarySearchFunc(s.Empires, id, func(e *empire.Empire, id empire.ID) int {
		switch {
		case e.ID < id:
			return -1
		case e.ID > id:
			return 1
		}
		return 0
	})
	if !ok {
		return nil
	}
	return s.Empires[i]
}

// Alive returns the living empires in id order.
func (s *State) Alive() []*empire.Empire {
	out := make([]*empire.Empire, 0, len(s.Empires))
	for _, e := range s.Empires {
		if e.Alive() {
			out = append(out, e)
		}
	}
	return out
}

func (s *State) AliveIDs() []empire.ID {
	alive := s.Alive()
	ids := make([]empire.ID, len(alive))
	for i, e := range alive {
		ids[i] = e.ID
	}
	return ids
}

func (s *State) IsAlive(id empire.ID) bool {
	e := s.Empire(id)
	return e != nil && e.Alive()
}

// Player returns the player empire, or nil for all-bot games.
func (s *State) Player() *empire.Empire {
	for _, e := range s.Empires {
		if e.Type == empire.TypePlayer {
			return e
		}
	}
	return nil
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s *State) Clone() *State {
	c := *s
	c.Empires = make([]*empire.Empire, len(s.Empires))
	for i, e := range s.Empires {
		c.Empires[i] = e.Clone()
	}
	c.Galaxy = s.Galaxy.Clone()
	c.Market = s.Market.Clone()
	c.Diplomacy = s.Diplomacy.Clone()
	c.Attacks = slices.Clone(s.Attacks)
	c.Events = slices.Clone(s.Events)
	c.Messages = slices.Clone(s.Messages)
	c.Outbox = slices.Clone(s.Outbox)
	c.Outcome.CoalitionIDs = slices.Clone(s.Outcome.CoalitionIDs)
	return &c
}

// Digest is the sha256 of the canonical JSON encoding. Two states with the
// same digest are identical for replay purposes.
func (s *State) Digest() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Normalize eliminates empires left without sectors and refreshes every
// stored networth. It returns the ids eliminated by this call.
func (s *State) Normalize(rs *ruleset.Ruleset) []empire.ID {
	var out []empire.ID
	for _, e := range s.Empires {
		if !e.Eliminated && e.SectorCount() == 0 {
			e.Eliminate(s.Turn.Turn, empire.DefeatConquered)
			out = append(out, e.ID)
		}
		economy.Refresh(e, rs)
	}
	return out
}

func (s *State) AppendAttack(r combat.Record, limit int) {
	s.Attacks = appendCapped(s.Attacks, r, limit)
}

func (s *State) AppendEvent(ev Event, limit int) {
	s.Events = appendCapped(s.Events, ev, limit)
}

// Deliver commits a message to the log and assigns its id.
func (s *State) Deliver(m Message, limit int) Message {
	s.NextMessage++
	m.ID = s.NextMessage
	s.Messages = appendCapped(s.Messages, m, limit)
	return m
}

func appendCapped[T any](list []T, v T, limit int) []T {
	list = append(list, v)
	if limit > 0 && len(list) > limit {
		list = slices.Delete(list, 0, len(list)-limit)
	}
	return list
}

// Savepoint captures the parts of a state one step may touch so the step
// can be undone.
type Savepoint struct {
	empires     []*empire.Empire
	market      economy.Market
	diplomacy   diplomacy.Book
	attacks     []combat.Record
	events      []Event
	messages    []Message
	outbox      []Message
	nextSector  int64
	nextAttack  int64
	nextMessage int64
	actions     int64
}

// Save records the listed empires and the shared logs.
func (s *State) Save(ids ...empire.ID) *Savepoint {
	sp := &Savepoint{
		market:      s.Market.Clone(),
		diplomacy:   s.Diplomacy.Clone(),
		attacks:     slices.Clone(s.Attacks),
		events:      slices.Clone(s.Events),
		messages:    slices.Clone(s.Messages),
		outbox:      slices.Clone(s.Outbox),
		nextSector:  s.NextSectorID,
		nextAttack:  s.NextAttack,
		nextMessage: s.NextMessage,
		actions:     s.ActionCount,
	}
	seen := make(map[empire.ID]bool, len(ids))
	for _, id := range ids {
		if e := s.Empire(id); e != nil && !seen[id] {
			seen[id] = true
			sp.empires = append(sp.empires, e.Clone())
		}
	}
	return sp
}

// Restore rolls s back to the savepoint.
func (s *State) Restore(sp *Savepoint) {
	for _, saved := range sp.empires {
		for i, e := range s.Empires {
			if e.ID == saved.ID {
				s.Empires[i] = saved.Clone()
				break
			}
		}
	}
	s.Market = sp.market.Clone()
	s.Diplomacy = sp.diplomacy.Clone()
	s.Attacks = slices.Clone(sp.attacks)
	s.Events = slices.Clone(sp.events)
	s.Messages = slices.Clone(sp.messages)
	s.Outbox = slices.Clone(sp.outbox)
	s.NextSectorID = sp.nextSector
	s.NextAttack = sp.nextAttack
	s.NextMessage = sp.nextMessage
	s.ActionCount = sp.actions
}
