package game

import (
	"time"

	"empires-server/internal/empire"
	"empires-server/internal/state"
)

type GameStatus string

const (
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
)

// Game is the listing view of a stored game.
type Game struct {
	ID          int64         `json:"id"`
	Variant     string        `json:"variant"`
	Status      GameStatus    `json:"status"`
	CurrentTurn int           `json:"current_turn"`
	FinalTurn   int           `json:"final_turn,omitempty"`
	Empires     int           `json:"empires"`
	Alive       int           `json:"alive"`
	PlayerID    empire.ID     `json:"player_id,omitempty"`
	Outcome     state.Outcome `json:"outcome"`
	Digest      string        `json:"digest"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// GameConfig is the create request. Zero values fall back to the server
// defaults.
type GameConfig struct {
	Seed            *uint64 `json:"seed,omitempty"`
	Bots            int     `json:"bots"`
	PlayerName      string  `json:"player_name"`
	ProtectionTurns *int    `json:"protection_turns,omitempty"`
	FinalTurn       int     `json:"final_turn,omitempty"`
}

type Defaults struct {
	Bots            int
	ProtectionTurns int
	LockTTL         time.Duration
}

// Record is one stored game as the repositories see it.
type Record struct {
	State     *state.State
	Digest    string
	UpdatedAt time.Time
}

func summarize(r *Record) Game {
	st := r.State
	g := Game{
		ID:          st.GameID,
		Variant:     st.Variant,
		Status:      GameStatusActive,
		CurrentTurn: st.Turn.Turn,
		FinalTurn:   st.FinalTurn,
		Empires:     len(st.Empires),
		Alive:       len(st.Alive()),
		Outcome:     st.Outcome,
		Digest:      r.Digest,
		UpdatedAt:   r.UpdatedAt,
	}
	if st.Outcome.Finished {
		g.Status = GameStatusCompleted
	}
	if p := st.Player(); p != nil {
		g.PlayerID = p.ID
	}
	return g
}
