package empire

import (
	"cmp"
	"maps"
	"slices"
)

type ID int64

type Type string

const (
	TypePlayer Type = "player"
	TypeBot    Type = "bot"
)

type SectorType string

const (
	SectorFood        SectorType = "food"
	SectorOre         SectorType = "ore"
	SectorFuel        SectorType = "fuel"
	SectorCommerce    SectorType = "commerce"
	SectorUrban       SectorType = "urban"
	SectorEducation   SectorType = "education"
	SectorGovernment  SectorType = "government"
	SectorResearch    SectorType = "research"
	SectorLogistics   SectorType = "logistics"
	SectorReclamation SectorType = "reclamation"
	SectorIndustrial  SectorType = "industrial"
)

var SectorTypes = []SectorType{
	SectorFood, SectorOre, SectorFuel, SectorCommerce, SectorUrban, SectorEducation,
	SectorGovernment, SectorResearch, SectorLogistics, SectorReclamation, SectorIndustrial,
}

func ValidSectorType(t SectorType) bool {
	return slices.Contains(SectorTypes, t)
}

type Sector struct {
	ID           int64      `json:"id"`
	Type         SectorType `json:"type"`
	RegionID     int64      `json:"region_id"`
	AcquiredTurn int        `json:"acquired_turn"`
}

type ResourceType string

const (
	ResourceCredits  ResourceType = "credits"
	ResourceFood     ResourceType = "food"
	ResourceOre      ResourceType = "ore"
	ResourceFuel     ResourceType = "fuel"
	ResourceResearch ResourceType = "research_points"
)

type Resources struct {
	Credits        int64 `json:"credits" yaml:"credits"`
	Food           int64 `json:"food" yaml:"food"`
	Ore            int64 `json:"ore" yaml:"ore"`
	Fuel           int64 `json:"fuel" yaml:"fuel"`
	ResearchPoints int64 `json:"research_points" yaml:"research_points"`
}

func (r Resources) Get(t ResourceType) int64 {
	switch t {
	case ResourceCredits:
		return r.Credits
	case ResourceFood:
		return r.Food
	case ResourceOre:
		return r.Ore
	case ResourceFuel:
		return r.Fuel
	case ResourceResearch:
		return r.ResearchPoints
	}
	return 0
}

func (r *Resources) Add(t ResourceType, n int64) {
	switch t {
	case ResourceCredits:
		r.Credits += n
	case ResourceFood:
		r.Food += n
	case ResourceOre:
		r.Ore += n
	case ResourceFuel:
		r.Fuel += n
	case ResourceResearch:
		r.ResearchPoints += n
	}
}

// Covers reports whether r holds at least cost of every resource.
func (r Resources) Covers(cost Resources) bool {
	return r.Credits >= cost.Credits && r.Food >= cost.Food && r.Ore >= cost.Ore &&
		r.Fuel >= cost.Fuel && r.ResearchPoints >= cost.ResearchPoints
}

func (r Resources) Plus(o Resources) Resources {
	return Resources{
		Credits:        r.Credits + o.Credits,
		Food:           r.Food + o.Food,
		Ore:            r.Ore + o.Ore,
		Fuel:           r.Fuel + o.Fuel,
		ResearchPoints: r.ResearchPoints + o.ResearchPoints,
	}
}

func (r Resources) Minus(o Resources) Resources {
	return r.Plus(o.Times(-1))
}

func (r Resources) Times(n int64) Resources {
	return Resources{
		Credits:        r.Credits * n,
		Food:           r.Food * n,
		Ore:            r.Ore * n,
		Fuel:           r.Fuel * n,
		ResearchPoints: r.ResearchPoints * n,
	}
}

type BuildQueueEntry struct {
	ID             int64     `json:"id"`
	Unit           UnitType  `json:"unit"`
	Quantity       int64     `json:"quantity"`
	TurnsRemaining int       `json:"turns_remaining"`
	TotalCost      Resources `json:"total_cost"`
	OrderedTurn    int       `json:"ordered_turn"`
}

type CraftingEntry struct {
	ID             int64  `json:"id"`
	Item           string `json:"item"`
	Quantity       int64  `json:"quantity"`
	TurnsRemaining int    `json:"turns_remaining"`
	ComponentsPaid int64  `json:"components_paid"`
	OrderedTurn    int    `json:"ordered_turn"`
}

// Mood is the emotional state autonomous empires carry between turns.
type Mood struct {
	Anger      float64 `json:"anger"`
	Fear       float64 `json:"fear"`
	Confidence float64 `json:"confidence"`
}

type Counters struct {
	NegativeBalanceTurns int `json:"negative_balance_turns"`
	StarvationTurns      int `json:"starvation_turns"`
	CollapseTurns        int `json:"collapse_turns"`
}

type Empire struct {
	ID              ID                `json:"id"`
	Name            string            `json:"name"`
	Type            Type              `json:"type"`
	Archetype       string            `json:"archetype,omitempty"`
	Resources       Resources         `json:"resources"`
	Population      int64             `json:"population"`
	CivilStatus     CivilStatus       `json:"civil_status"`
	Networth        int64             `json:"networth"`
	Sectors         []Sector          `json:"sectors"`
	Forces          Forces            `json:"forces"`
	Eliminated      bool              `json:"eliminated"`
	EliminatedTurn  int               `json:"eliminated_turn,omitempty"`
	DefeatReason    string            `json:"defeat_reason,omitempty"`
	ResearchLevel   int               `json:"research_level"`
	Unlocked        []UnitType        `json:"unlocked"`
	CovertPoints    int64             `json:"covert_points"`
	Components      int64             `json:"components"`
	Crafted         map[string]int64  `json:"crafted,omitempty"`
	BuildQueue      []BuildQueueEntry `json:"build_queue"`
	CraftingQueue   []CraftingEntry   `json:"crafting_queue"`
	Counters        Counters          `json:"counters"`
	Mood            Mood              `json:"mood"`
	Grudges         map[ID]float64    `json:"grudges,omitempty"`
	ProtectedUntil  int               `json:"protected_until"`
	AttackTurn      int               `json:"attack_turn"`
	AttacksLaunched int               `json:"attacks_launched"`
	NextSeq         int64             `json:"next_seq"`
}

func (e *Empire) IsBot() bool {
	return e.Type == TypeBot
}

func (e *Empire) Alive() bool {
	return !e.Eliminated
}

func (e *Empire) SectorCount() int {
	return len(e.Sectors)
}

// IsProtected reports whether the empire is still under new-empire protection
// at the given turn.
func (e *Empire) IsProtected(turn int) bool {
	return turn <= e.ProtectedUntil
}

func (e *Empire) CountSectors(t SectorType) int64 {
	var n int64
	for _, s := range e.Sectors {
		if s.Type == t {
			n++
		}
	}
	return n
}

func (e *Empire) HasUnlocked(u UnitType) bool {
	return slices.Contains(e.Unlocked, u)
}

// Unlock adds u to the unlocked set, keeping it sorted. It reports whether
// the unit was newly unlocked.
func (e *Empire) Unlock(u UnitType) bool {
	i, found := slices.BinarySearch(e.Unlocked, u)
	if found {
		return false
	}
	e.Unlocked = slices.Insert(e.Unlocked, i, u)
	return true
}

// NextID returns a per-empire sequence number for queue entries.
func (e *Empire) NextID() int64 {
	e.NextSeq++
	return e.NextSeq
}

// Eliminate marks the empire out of play. The first reason recorded wins.
func (e *Empire) Eliminate(turn int, reason string) {
	if e.Eliminated {
		return
	}
	e.Eliminated = true
	e.EliminatedTurn = turn
	e.DefeatReason = reason
	e.BuildQueue = nil
	e.CraftingQueue = nil
}

// TakeSectors removes up to n sectors, most recently acquired first, and
// returns them. The empire is eliminated if it is left with none.
func (e *Empire) TakeSectors(n int, turn int) []Sector {
	if n <= 0 || len(e.Sectors) == 0 {
		return nil
	}
	n = min(n, len(e.Sectors))
	ordered := slices.Clone(e.Sectors)
	slices.SortStableFunc(ordered, func(a, b Sector) int {
		if c := cmp.Compare(b.AcquiredTurn, a.AcquiredTurn); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	taken := ordered[:n]
	keep := make(map[int64]bool, n)
	for _, s := range taken {
		keep[s.ID] = true
	}
	remaining := e.Sectors[:0:0]
	for _, s := range e.Sectors {
		if !keep[s.ID] {
			remaining = append(remaining, s)
		}
	}
	e.Sectors = remaining
	if len(e.Sectors) == 0 {
		e.Eliminate(turn, DefeatConquered)
	}
	return slices.Clone(taken)
}

// GiveSectors appends captured sectors, stamping them with the capture turn.
func (e *Empire) GiveSectors(sectors []Sector, turn int) {
	for _, s := range sectors {
		s.AcquiredTurn = turn
		e.Sectors = append(e.Sectors, s)
	}
}

// Clone returns a deep copy.
func (e *Empire) Clone() *Empire {
	c := *e
	c.Sectors = slices.Clone(e.Sectors)
	c.Unlocked = slices.Clone(e.Unlocked)
	c.BuildQueue = slices.Clone(e.BuildQueue)
	c.CraftingQueue = slices.Clone(e.CraftingQueue)
	c.Crafted = maps.Clone(e.Crafted)
	c.Grudges = maps.Clone(e.Grudges)
	return &c
}

const (
	DefeatConquered     = "conquered"
	DefeatBankruptcy    = "bankruptcy"
	DefeatStarvation    = "starvation"
	DefeatCivilCollapse = "civil_collapse"
)
