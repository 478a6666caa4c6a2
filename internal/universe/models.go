package universe

import (
	"empires-server/internal/shared/errors"
)

// MaxEmpires bounds a single game.
const MaxEmpires = 500

// Config describes a new game universe.
type Config struct {
	GameID          int64  `json:"game_id"`
	Seed            uint64 `json:"seed"`
	Empires         int    `json:"empires"`
	IncludePlayer   bool   `json:"include_player"`
	PlayerName      string `json:"player_name,omitempty"`
	ProtectionTurns int    `json:"protection_turns"`
	FinalTurn       int    `json:"final_turn,omitempty"`
}

// DefaultProtection leaves the ruleset's protection window in place.
const DefaultProtection = -1

func (c Config) validate() error {
	if c.GameID <= 0 {
		return errors.Validationf("invalid game id %d", c.GameID)
	}
	if c.Empires < 1 || c.Empires > MaxEmpires {
		return errors.Validationf("empire count must be between 1 and %d, got %d", MaxEmpires, c.Empires)
	}
	if c.IncludePlayer && c.Empires < 2 {
		return errors.Validation("a game with a player needs at least one bot")
	}
	if c.ProtectionTurns < DefaultProtection {
		return errors.Validationf("protection turns must not be negative, got %d", c.ProtectionTurns)
	}
	if c.FinalTurn < 0 {
		return errors.Validationf("final turn must not be negative, got %d", c.FinalTurn)
	}
	if len(c.PlayerName) > 64 {
		return errors.Validation("player name must be at most 64 characters")
	}
	return nil
}
