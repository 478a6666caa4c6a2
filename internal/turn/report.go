package turn

import (
	"empires-server/internal/actions"
	"empires-server/internal/bot"
	"empires-server/internal/buildqueue"
	"empires-server/internal/combat"
	"empires-server/internal/crafting"
	"empires-server/internal/diplomacy"
	"empires-server/internal/empire"
	"empires-server/internal/research"
	"empires-server/internal/state"
	"empires-server/internal/victory"
)

// Fault is a per-empire or per-phase failure the turn survived.
type Fault struct {
	Phase    string    `json:"phase"`
	EmpireID empire.ID `json:"empire_id,omitempty"`
	Error    string    `json:"error"`
}

// Report is everything that happened while one turn was processed.
type Report struct {
	GameID      int64                      `json:"game_id"`
	Turn        int                        `json:"turn"`
	Starving    []empire.ID                `json:"starving,omitempty"`
	Bankrupt    []empire.ID                `json:"bankrupt,omitempty"`
	Components  int64                      `json:"components"`
	LevelUps    []research.LevelUp         `json:"level_ups,omitempty"`
	Completions []buildqueue.Completion    `json:"completions,omitempty"`
	Deliveries  []crafting.Delivery        `json:"deliveries,omitempty"`
	Bots        []bot.Result               `json:"bots,omitempty"`
	Attacks     []combat.Record            `json:"attacks,omitempty"`
	Messages    []state.Message            `json:"messages,omitempty"`
	Event       *state.Event               `json:"event,omitempty"`
	Diplomacy   diplomacy.CheckpointResult `json:"diplomacy"`
	Defeats     []victory.Defeat           `json:"defeats,omitempty"`
	Eliminated  []empire.ID                `json:"eliminated,omitempty"`
	Outcome     state.Outcome              `json:"outcome"`
	Checkpoint  bool                       `json:"checkpoint"`
	Faults      []Fault                    `json:"faults,omitempty"`
	Draws       uint64                     `json:"draws"`
	Digest      string                     `json:"digest"`
}

// Accepted counts bot actions of kind that the action boundary applied.
func (r *Report) Accepted(kind actions.Kind) int {
	n := 0
	for _, b := range r.Bots {
		n += b.Accepted[kind]
	}
	return n
}

// BuildsOrdered counts build orders the bots placed during the turn.
func (r *Report) BuildsOrdered() int {
	return r.Accepted(actions.KindBuild)
}
