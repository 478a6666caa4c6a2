package galaxy

import (
	"slices"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
)

type RegionType string

const (
	RegionCore  RegionType = "core"
	RegionInner RegionType = "inner"
	RegionOuter RegionType = "outer"
	RegionRim   RegionType = "rim"
)

type ConnectionType string

const (
	ConnectionAdjacent  ConnectionType = "adjacent"
	ConnectionHazardous ConnectionType = "hazardous"
	ConnectionContested ConnectionType = "contested"
	ConnectionWormhole  ConnectionType = "wormhole"
)

type Region struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Type       RegionType `json:"type"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	MaxEmpires int        `json:"max_empires"`
}

type Connection struct {
	ID        int64             `json:"id"`
	From      int64             `json:"from"`
	To        int64             `json:"to"`
	Type      ConnectionType    `json:"type"`
	Modifiers ruleset.Modifiers `json:"modifiers"`
}

// Wormhole is an overlay link between distant regions. Discovery is the only
// galaxy state that changes after generation.
type Wormhole struct {
	ID             int64             `json:"id"`
	From           int64             `json:"from"`
	To             int64             `json:"to"`
	Modifiers      ruleset.Modifiers `json:"modifiers"`
	Discovered     bool              `json:"discovered"`
	DiscoveredTurn int               `json:"discovered_turn,omitempty"`
}

type Assignment struct {
	EmpireID empire.ID `json:"empire_id"`
	RegionID int64     `json:"region_id"`
}

type Influence struct {
	EmpireID   empire.ID `json:"empire_id"`
	HomeRegion int64     `json:"home_region"`
	Controlled []int64   `json:"controlled"`
	Radius     float64   `json:"radius"`
}

// EmpireRef is the minimal view of an empire the generator needs.
type EmpireRef struct {
	ID   empire.ID
	Type empire.Type
}

type Galaxy struct {
	GameID      int64        `json:"game_id"`
	Seed        uint64       `json:"seed"`
	Regions     []Region     `json:"regions"`
	Connections []Connection `json:"connections"`
	Wormholes   []Wormhole   `json:"wormholes"`
	Assignments []Assignment `json:"assignments"`
	Influence   []Influence  `json:"influence"`
}

func (g *Galaxy) Region(id int64) *Region {
	i, ok := slices.BinarySearchFunc(g.Regions, id, func(r Region, id int64) int {
		switch {
		case r.ID < id:
			return -1
		case r.ID > id:
			return 1
		}
		return 0
	})
	if !ok {
		return nil
	}
	return &g.Regions[i]
}

// HomeOf returns the region an empire was placed in, or zero.
func (g *Galaxy) HomeOf(id empire.ID) int64 {
	for _, a := range g.Assignments {
		if a.EmpireID == id {
			return a.RegionID
		}
	}
	return 0
}

// Route returns the modifiers of the direct link between two regions. Links
// through undiscovered wormholes are not visible.
func (g *Galaxy) Route(from, to int64) (ruleset.Modifiers, bool) {
	from, to = min(from, to), max(from, to)
	for _, c := range g.Connections {
		if c.From == from && c.To == to {
			return c.Modifiers, true
		}
	}
	for _, w := range g.Wormholes {
		if w.Discovered && w.From == from && w.To == to {
			return w.Modifiers, true
		}
	}
	return ruleset.Modifiers{}, false
}

// Neighbors returns the regions directly connected to id, including through
// discovered wormholes, in ascending order.
func (g *Galaxy) Neighbors(id int64) []int64 {
	var out []int64
	for _, c := range g.Connections {
		if c.From == id {
			out = append(out, c.To)
		} else if c.To == id {
			out = append(out, c.From)
		}
	}
	for _, w := range g.Wormholes {
		if !w.Discovered {
			continue
		}
		if w.From == id {
			out = append(out, w.To)
		} else if w.To == id {
			out = append(out, w.From)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Undiscovered returns the ids of wormholes not yet revealed.
func (g *Galaxy) Undiscovered() []int64 {
	var ids []int64
	for _, w := range g.Wormholes {
		if !w.Discovered {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

// Discover reveals a wormhole. It reports false if the wormhole is unknown or
// already discovered.
func (g *Galaxy) Discover(id int64, turn int) bool {
	for i := range g.Wormholes {
		w := &g.Wormholes[i]
		if w.ID == id && !w.Discovered {
			w.Discovered = true
			w.DiscoveredTurn = turn
			return true
		}
	}
	return false
}

func (g *Galaxy) Clone() *Galaxy {
	if g == nil {
		return nil
	}
	c := *g
	c.Regions = slices.Clone(g.Regions)
	c.Connections = slices.Clone(g.Connections)
	c.Wormholes = slices.Clone(g.Wormholes)
	c.Assignments = slices.Clone(g.Assignments)
	c.Influence = make([]Influence, len(g.Influence))
	for i, inf := range g.Influence {
		inf.Controlled = slices.Clone(inf.Controlled)
		c.Influence[i] = inf
	}
	return &c
}
