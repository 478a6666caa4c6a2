package diplomacy

import "empires-server/internal/empire"

type Kind string

const (
	KindNonAggression Kind = "non_aggression"
	KindAlliance      Kind = "alliance"
)

func ValidKind(k Kind) bool {
	return k == KindNonAggression || k == KindAlliance
}

type Status string

const (
	StatusProposed Status = "proposed"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusBroken   Status = "broken"
	StatusRejected Status = "rejected"
)

type Treaty struct {
	ID           int64     `json:"id"`
	Kind         Kind      `json:"kind"`
	Proposer     empire.ID `json:"proposer"`
	Target       empire.ID `json:"target"`
	Status       Status    `json:"status"`
	ProposedTurn int       `json:"proposed_turn"`
	StartTurn    int       `json:"start_turn,omitempty"`
	EndTurn      int       `json:"end_turn,omitempty"`
}

func (t Treaty) Involves(id empire.ID) bool {
	return t.Proposer == id || t.Target == id
}

func (t Treaty) Between(a, b empire.ID) bool {
	return (t.Proposer == a && t.Target == b) || (t.Proposer == b && t.Target == a)
}

// Other returns the party that is not id.
func (t Treaty) Other(id empire.ID) empire.ID {
	if t.Proposer == id {
		return t.Target
	}
	return t.Proposer
}

// Book holds the open treaties of one game. Settled treaties are dropped at
// each checkpoint.
type Book struct {
	Treaties []Treaty `json:"treaties"`
	NextID   int64    `json:"next_id"`
}

type CheckpointResult struct {
	Expired   int `json:"expired"`
	Dissolved int `json:"dissolved"`
}
