package actions

import (
	"empires-server/internal/combat"
	"empires-server/internal/diplomacy"
	"empires-server/internal/empire"
	"empires-server/internal/state"
)

type Kind string

const (
	KindAttack        Kind = "attack"
	KindRetreat       Kind = "retreat"
	KindBuild         Kind = "build"
	KindCancelBuild   Kind = "cancel_build"
	KindCraft         Kind = "craft"
	KindTrade         Kind = "trade"
	KindInvest        Kind = "invest_research"
	KindProposeTreaty Kind = "propose_treaty"
	KindRespondTreaty Kind = "respond_treaty"
	KindBreakTreaty   Kind = "break_treaty"
	KindMessage       Kind = "message"
	KindQuery         Kind = "query"
)

// MessageKinds are the message intents an empire may send.
var MessageKinds = []string{"greeting", "taunt", "warning", "offer", "plea"}

const maxMessageLength = 280

// Action is the request shape shared by players and bots. Numeric fields
// are floats so malformed input can be rejected at the boundary instead of
// failing to decode.
type Action struct {
	Kind        Kind                        `json:"kind"`
	EmpireID    empire.ID                   `json:"empire_id"`
	TargetID    empire.ID                   `json:"target_id,omitempty"`
	AttackType  string                      `json:"attack_type,omitempty"`
	Stance      string                      `json:"stance,omitempty"`
	Forces      map[empire.UnitType]float64 `json:"forces,omitempty"`
	Unit        string                      `json:"unit,omitempty"`
	Item        string                      `json:"item,omitempty"`
	Resource    string                      `json:"resource,omitempty"`
	Quantity    float64                     `json:"quantity,omitempty"`
	Sell        bool                        `json:"sell,omitempty"`
	EntryID     int64                       `json:"entry_id,omitempty"`
	TreatyKind  string                      `json:"treaty_kind,omitempty"`
	TreatyID    int64                       `json:"treaty_id,omitempty"`
	Accept      bool                        `json:"accept,omitempty"`
	MessageKind string                      `json:"message_kind,omitempty"`
	Text        string                      `json:"text,omitempty"`
}

func forcesMap(f empire.Forces) map[empire.UnitType]float64 {
	out := make(map[empire.UnitType]float64)
	for _, u := range empire.UnitTypes {
		if n := f.Get(u); n > 0 {
			out[u] = float64(n)
		}
	}
	return out
}

func Attack(from, to empire.ID, forces empire.Forces, attackType combat.AttackType, stance string) Action {
	return Action{Kind: KindAttack, EmpireID: from, TargetID: to, Forces: forcesMap(forces), AttackType: string(attackType), Stance: stance}
}

func Retreat(id empire.ID, forces empire.Forces) Action {
	return Action{Kind: KindRetreat, EmpireID: id, Forces: forcesMap(forces)}
}

func Build(id empire.ID, unit empire.UnitType, quantity int64) Action {
	return Action{Kind: KindBuild, EmpireID: id, Unit: string(unit), Quantity: float64(quantity)}
}

func CancelBuild(id empire.ID, entryID int64) Action {
	return Action{Kind: KindCancelBuild, EmpireID: id, EntryID: entryID}
}

func Craft(id empire.ID, item string, quantity int64) Action {
	return Action{Kind: KindCraft, EmpireID: id, Item: item, Quantity: float64(quantity)}
}

func Trade(id empire.ID, resource empire.ResourceType, quantity int64, sell bool) Action {
	return Action{Kind: KindTrade, EmpireID: id, Resource: string(resource), Quantity: float64(quantity), Sell: sell}
}

func Invest(id empire.ID, credits int64) Action {
	return Action{Kind: KindInvest, EmpireID: id, Quantity: float64(credits)}
}

func ProposeTreaty(from, to empire.ID, kind diplomacy.Kind) Action {
	return Action{Kind: KindProposeTreaty, EmpireID: from, TargetID: to, TreatyKind: string(kind)}
}

func RespondTreaty(id empire.ID, treatyID int64, accept bool) Action {
	return Action{Kind: KindRespondTreaty, EmpireID: id, TreatyID: treatyID, Accept: accept}
}

func BreakTreaty(id, other empire.ID) Action {
	return Action{Kind: KindBreakTreaty, EmpireID: id, TargetID: other}
}

func Message(from, to empire.ID, kind, text string) Action {
	return Action{Kind: KindMessage, EmpireID: from, TargetID: to, MessageKind: kind, Text: text}
}

func Query(id, target empire.ID) Action {
	return Action{Kind: KindQuery, EmpireID: id, TargetID: target}
}

type CancelResult struct {
	EntryID int64            `json:"entry_id"`
	Refund  empire.Resources `json:"refund"`
}

type BreakResult struct {
	Other empire.ID `json:"other"`
}

// Rival is the public view of another empire.
type Rival struct {
	ID         empire.ID          `json:"id"`
	Name       string             `json:"name"`
	Type       empire.Type        `json:"type"`
	Networth   int64              `json:"networth"`
	Sectors    int                `json:"sectors"`
	Civil      empire.CivilStatus `json:"civil_status"`
	Eliminated bool               `json:"eliminated"`
	Protected  bool               `json:"protected"`
}

// View is what an empire sees when it queries the game.
type View struct {
	Turn     int                             `json:"turn"`
	Empire   *empire.Empire                  `json:"empire"`
	Rivals   []Rival                         `json:"rivals"`
	Prices   map[empire.ResourceType]float64 `json:"prices"`
	Pending  []diplomacy.Treaty              `json:"pending_treaties"`
	Partners []empire.ID                     `json:"partners"`
	Inbox    []state.Message                 `json:"inbox"`
	Outcome  state.Outcome                   `json:"outcome"`
}
