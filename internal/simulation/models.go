package simulation

import (
	"time"

	"empires-server/internal/empire"
	"empires-server/internal/state"
	"empires-server/internal/turn"
)

type Config struct {
	GameID          int64
	EmpireCount     int
	TurnLimit       int
	ProtectionTurns int
	IncludePlayer   bool
	Seed            uint64
	// OnCheckpoint is called after every turn the scheduler flags as a
	// checkpoint, including the final one.
	OnCheckpoint func(st *state.State, rep *turn.Report) error
}

// Coverage counts how often each mechanic fired during a run.
type Coverage struct {
	Invasions       int            `json:"invasions"`
	Guerillas       int            `json:"guerillas"`
	AttackerWins    int            `json:"attacker_wins"`
	SectorsCaptured int            `json:"sectors_captured"`
	Eliminations    int            `json:"eliminations"`
	Defeats         map[string]int `json:"defeats"`
	BuildsOrdered   int            `json:"builds_ordered"`
	BuildsCompleted int            `json:"builds_completed"`
	ItemsCrafted    int64          `json:"items_crafted"`
	LevelUps        int            `json:"level_ups"`
	TreatyOffers    int            `json:"treaty_offers"`
	TreatiesExpired int            `json:"treaties_expired"`
	Messages        int            `json:"messages"`
	Events          map[string]int `json:"events"`
	Faults          int            `json:"faults"`
	Checkpoints     int            `json:"checkpoints"`
}

type Result struct {
	RunID       string        `json:"run_id"`
	Seed        uint64        `json:"seed"`
	Variant     string        `json:"variant"`
	Empires     int           `json:"empires"`
	TurnLimit   int           `json:"turn_limit"`
	TurnsPlayed int           `json:"turns_played"`
	Outcome     state.Outcome `json:"outcome"`
	Survivors   []empire.ID   `json:"survivors"`
	Coverage    Coverage      `json:"coverage"`
	Digest      string        `json:"digest"`
	Duration    time.Duration `json:"duration"`
	Final       *state.State  `json:"-"`
}
