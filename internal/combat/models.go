package combat

import "empires-server/internal/empire"

type AttackType string

const (
	AttackInvasion AttackType = "invasion"
	AttackGuerilla AttackType = "guerilla"
)

func ValidAttackType(t AttackType) bool {
	return t == AttackInvasion || t == AttackGuerilla
}

type Outcome string

const (
	OutcomeAttackerWin Outcome = "attacker_win"
	OutcomeDefenderWin Outcome = "defender_win"
)

// Conditions carries what the resolver needs to know about where and when an
// attack happens.
type Conditions struct {
	GameID int64
	Turn   int
	Seq    int64
	// ForceMultiplier scales attacker power along the route taken. Zero means
	// no route modifier.
	ForceMultiplier float64
}

// Record is the immutable result of one resolved attack.
type Record struct {
	ID                 string        `json:"id"`
	Turn               int           `json:"turn"`
	AttackerID         empire.ID     `json:"attacker_id"`
	DefenderID         empire.ID     `json:"defender_id"`
	Type               AttackType    `json:"type"`
	Stance             string        `json:"stance"`
	Committed          empire.Forces `json:"committed"`
	Engaged            empire.Forces `json:"engaged"`
	AttackerPower      float64       `json:"attacker_power"`
	DefenderPower      float64       `json:"defender_power"`
	Ratio              float64       `json:"ratio"`
	UnderdogBonusPct   float64       `json:"underdog_bonus_pct,omitempty"`
	Draw               bool          `json:"draw"`
	Outcome            Outcome       `json:"outcome"`
	WinnerID           empire.ID     `json:"winner_id"`
	AttackerRate       float64       `json:"attacker_rate"`
	DefenderRate       float64       `json:"defender_rate"`
	AttackerLosses     empire.Forces `json:"attacker_losses"`
	DefenderLosses     empire.Forces `json:"defender_losses"`
	CapturePct         float64       `json:"capture_pct,omitempty"`
	SectorsTransferred int           `json:"sectors_transferred"`
	DefenderEliminated bool          `json:"defender_eliminated"`
}

func (r *Record) AttackerWon() bool {
	return r.Outcome == OutcomeAttackerWin
}

// RetreatResult has no opponent and no winner.
type RetreatResult struct {
	EmpireID  empire.ID     `json:"empire_id"`
	Turn      int           `json:"turn"`
	Withdrawn empire.Forces `json:"withdrawn"`
	Losses    empire.Forces `json:"losses"`
	Rate      float64       `json:"rate"`
}
