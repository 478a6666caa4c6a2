package state

import (
	"empires-server/internal/combat"
	"empires-server/internal/diplomacy"
	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/galaxy"
)

// Phase is one step of the turn pipeline. Phases are bit flags so a turn can
// record which of them already ran.
type Phase uint32

const (
	PhaseIncome Phase = 1 << iota
	PhaseAutoProduction
	PhasePopulation
	PhaseCivil
	PhaseResearch
	PhaseBuildQueue
	PhaseCovert
	PhaseCrafting
	PhaseBotDecisions
	PhaseMoodDecay
	PhaseMarket
	PhaseMessaging
	PhaseEvents
	PhaseDiplomacy
	PhaseVictory
	PhaseCheckpoint
)

// Phases is the fixed pipeline order.
var Phases = []Phase{
	PhaseIncome, PhaseAutoProduction, PhasePopulation, PhaseCivil, PhaseResearch,
	PhaseBuildQueue, PhaseCovert, PhaseCrafting, PhaseBotDecisions, PhaseMoodDecay,
	PhaseMarket, PhaseMessaging, PhaseEvents, PhaseDiplomacy, PhaseVictory, PhaseCheckpoint,
}

var phaseNames = map[Phase]string{
	PhaseIncome:         "income",
	PhaseAutoProduction: "auto_production",
	PhasePopulation:     "population",
	PhaseCivil:          "civil_status",
	PhaseResearch:       "research",
	PhaseBuildQueue:     "build_queue",
	PhaseCovert:         "covert",
	PhaseCrafting:       "crafting",
	PhaseBotDecisions:   "bot_decisions",
	PhaseMoodDecay:      "mood_decay",
	PhaseMarket:         "market",
	PhaseMessaging:      "messaging",
	PhaseEvents:         "galactic_events",
	PhaseDiplomacy:      "diplomacy_checkpoint",
	PhaseVictory:        "victory",
	PhaseCheckpoint:     "checkpoint",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// TurnState tracks which phases ran in the current turn.
type TurnState struct {
	Turn   int   `json:"turn"`
	Phases Phase `json:"phases"`
}

func (t TurnState) Ran(p Phase) bool {
	return t.Phases&p != 0
}

func (t *TurnState) Mark(p Phase) {
	t.Phases |= p
}

const (
	VictoryConquest   = "conquest"
	VictoryEconomic   = "economic"
	VictoryTech       = "technological"
	VictoryDomination = "domination"
	VictoryCoalition  = "coalition"
	VictorySurvival   = "survival"
)

type Outcome struct {
	Finished     bool        `json:"finished"`
	VictoryType  string      `json:"victory_type,omitempty"`
	WinnerID     empire.ID   `json:"winner_id,omitempty"`
	CoalitionIDs []empire.ID `json:"coalition_ids,omitempty"`
	Turn         int         `json:"turn,omitempty"`
}

// Message is a diplomatic message between empires. A zero To is a broadcast.
type Message struct {
	ID   int64     `json:"id"`
	Turn int       `json:"turn"`
	From empire.ID `json:"from"`
	To   empire.ID `json:"to,omitempty"`
	Kind string    `json:"kind"`
	Text string    `json:"text"`
}

type Event struct {
	Turn   int       `json:"turn"`
	Kind   string    `json:"kind"`
	Target empire.ID `json:"target,omitempty"`
	Amount int64     `json:"amount,omitempty"`
}

// State is the complete snapshot of one game. The engine never holds a
// State in shared storage; callers pass it in and receive the next one.
type State struct {
	GameID       int64            `json:"game_id"`
	Seed         uint64           `json:"seed"`
	Variant      string           `json:"variant"`
	FinalTurn    int              `json:"final_turn,omitempty"`
	Turn         TurnState        `json:"turn"`
	Empires      []*empire.Empire `json:"empires"`
	Galaxy       *galaxy.Galaxy   `json:"galaxy"`
	Market       economy.Market   `json:"market"`
	Diplomacy    diplomacy.Book   `json:"diplomacy"`
	Attacks      []combat.Record  `json:"attacks"`
	Events       []Event          `json:"events"`
	Messages     []Message        `json:"messages"`
	Outbox       []Message        `json:"outbox"`
	Outcome      Outcome          `json:"outcome"`
	NextSectorID int64            `json:"next_sector_id"`
	NextAttack   int64            `json:"next_attack"`
	NextMessage  int64            `json:"next_message"`
	ActionCount  int64            `json:"action_count"`
}
