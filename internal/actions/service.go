// Package actions is the single boundary through which players and bots
// change a game. Requests are sanitized here before they reach combat or the
// queues.
package actions

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"unicode/utf8"

	"empires-server/internal/buildqueue"
	"empires-server/internal/combat"
	"empires-server/internal/crafting"
	"empires-server/internal/diplomacy"
	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/research"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/response"
	"empires-server/internal/state"
)

// maxCount bounds any unit or resource quantity in a request.
const maxCount = 1e12

type Service struct {
	rs       *ruleset.Ruleset
	resolver *combat.Resolver
	logger   *slog.Logger
}

func NewService(rs *ruleset.Ruleset, logger *slog.Logger) *Service {
	return &Service{
		rs:       rs,
		resolver: combat.NewResolver(rs, logger),
		logger:   logger,
	}
}

func (s *Service) Ruleset() *ruleset.Ruleset {
	return s.rs
}

// Dispatch executes an action and wraps the result in the uniform envelope.
func (s *Service) Dispatch(st *state.State, a Action, stream *rng.Stream) response.Envelope {
	return response.Wrap(s.Execute(st, a, stream))
}

// Execute validates and applies one action. A rejected action leaves st
// untouched.
func (s *Service) Execute(st *state.State, a Action, stream *rng.Stream) (any, error) {
	logger := s.logger.With(
		"component", "action_service",
		"operation", string(a.Kind),
		"empire_id", a.EmpireID,
		"turn", st.Turn.Turn,
	)

	result, err := s.execute(st, a, stream)
	if err != nil {
		logger.Debug("Action rejected", "error", err, "error_type", errors.GetType(err))
		return nil, err
	}
	logger.Debug("Action applied")
	return result, nil
}

func (s *Service) execute(st *state.State, a Action, stream *rng.Stream) (any, error) {
	if a.EmpireID <= 0 {
		return nil, errors.Validationf("invalid empire id %d", a.EmpireID)
	}
	actor := st.Empire(a.EmpireID)
	if actor == nil {
		return nil, errors.NotFoundf("empire %d not found", a.EmpireID)
	}
	if a.Kind == KindQuery {
		return s.query(st, actor, a)
	}
	if st.Outcome.Finished {
		return nil, errors.Preconditionf("game is finished")
	}
	if actor.Eliminated {
		return nil, errors.Preconditionf("empire %d is eliminated", actor.ID)
	}

	turn := st.Turn.Turn
	switch a.Kind {
	case KindAttack:
		return s.attack(st, actor, a, stream)
	case KindRetreat:
		forces, err := sanitizeForces(a.Forces)
		if err != nil {
			return nil, err
		}
		res, err := s.resolver.Retreat(actor, forces, turn)
		if err != nil {
			return nil, err
		}
		economy.Refresh(actor, s.rs)
		return res, nil
	case KindBuild:
		qty, err := count(a.Quantity, "quantity")
		if err != nil {
			return nil, err
		}
		return buildqueue.Order(actor, empire.UnitType(a.Unit), qty, s.rs, turn)
	case KindCancelBuild:
		if a.EntryID <= 0 {
			return nil, errors.Validationf("invalid build order id %d", a.EntryID)
		}
		refund, err := buildqueue.Cancel(actor, a.EntryID, s.rs)
		if err != nil {
			return nil, err
		}
		economy.Refresh(actor, s.rs)
		return CancelResult{EntryID: a.EntryID, Refund: refund}, nil
	case KindCraft:
		qty, err := count(a.Quantity, "quantity")
		if err != nil {
			return nil, err
		}
		return crafting.Order(actor, a.Item, qty, s.rs, turn)
	case KindTrade:
		qty, err := count(a.Quantity, "quantity")
		if err != nil {
			return nil, err
		}
		res, err := economy.Trade(actor, st.Market, empire.ResourceType(a.Resource), qty, a.Sell, s.rs)
		if err != nil {
			return nil, err
		}
		economy.Refresh(actor, s.rs)
		return res, nil
	case KindInvest:
		credits, err := count(a.Quantity, "quantity")
		if err != nil {
			return nil, err
		}
		ups, err := research.Invest(actor, credits, s.rs)
		if err != nil {
			return nil, err
		}
		economy.Refresh(actor, s.rs)
		return ups, nil
	case KindProposeTreaty:
		target, err := s.target(st, a.TargetID)
		if err != nil {
			return nil, err
		}
		return st.Diplomacy.Propose(diplomacy.Kind(a.TreatyKind), actor.ID, target.ID, turn)
	case KindRespondTreaty:
		if a.TreatyID <= 0 {
			return nil, errors.Validationf("invalid treaty id %d", a.TreatyID)
		}
		return st.Diplomacy.Respond(a.TreatyID, actor.ID, a.Accept, turn, s.rs)
	case KindBreakTreaty:
		target, err := s.target(st, a.TargetID)
		if err != nil {
			return nil, err
		}
		if !st.Diplomacy.Break(actor.ID, target.ID) {
			return nil, errors.Preconditionf("no active treaty between %d and %d", actor.ID, target.ID)
		}
		if target.IsBot() {
			s.aggrieve(target, actor.ID, s.rs.Bots.AngerOnAttacked)
		}
		return BreakResult{Other: target.ID}, nil
	case KindMessage:
		return s.message(st, actor, a)
	}
	return nil, errors.Validationf("unknown action kind %q", a.Kind)
}

func (s *Service) target(st *state.State, id empire.ID) (*empire.Empire, error) {
	if id <= 0 {
		return nil, errors.Validationf("invalid target id %d", id)
	}
	target := st.Empire(id)
	if target == nil {
		return nil, errors.NotFoundf("empire %d not found", id)
	}
	if target.Eliminated {
		return nil, errors.Preconditionf("empire %d is eliminated", id)
	}
	return target, nil
}

func (s *Service) attack(st *state.State, attacker *empire.Empire, a Action, stream *rng.Stream) (*combat.Record, error) {
	if a.TargetID <= 0 {
		return nil, errors.Validationf("invalid target id %d", a.TargetID)
	}
	kind := combat.AttackType(a.AttackType)
	if !combat.ValidAttackType(kind) {
		return nil, errors.Validationf("unknown attack type %q", a.AttackType)
	}
	if a.Stance != "" && !slices.Contains(ruleset.StanceNames, a.Stance) {
		return nil, errors.Validationf("unknown stance %q", a.Stance)
	}
	committed, err := sanitizeForces(a.Forces)
	if err != nil {
		return nil, err
	}
	defender := st.Empire(a.TargetID)
	if defender == nil {
		return nil, errors.NotFoundf("empire %d not found", a.TargetID)
	}

	turn := st.Turn.Turn
	if defender.ID != attacker.ID && defender.IsProtected(turn) {
		return nil, errors.Preconditionf("empire %d is under protection until turn %d", defender.ID, defender.ProtectedUntil)
	}
	if st.Diplomacy.AtPeace(attacker.ID, defender.ID, turn) {
		return nil, errors.Preconditionf("empires %d and %d hold an active treaty", attacker.ID, defender.ID)
	}
	if attacker.AttackTurn == turn && attacker.AttacksLaunched >= s.rs.Combat.MaxAttacksPerTurn {
		return nil, errors.Preconditionf("attack limit of %d per turn reached", s.rs.Combat.MaxAttacksPerTurn)
	}

	cond := combat.Conditions{
		GameID:          st.GameID,
		Turn:            turn,
		Seq:             st.NextAttack + 1,
		ForceMultiplier: routeMultiplier(st, attacker.ID, defender.ID),
	}
	rec, err := s.resolver.ResolveAttack(attacker, defender, committed, kind, a.Stance, cond, stream)
	if err != nil {
		return nil, err
	}

	st.NextAttack++
	if attacker.AttackTurn != turn {
		attacker.AttackTurn = turn
		attacker.AttacksLaunched = 0
	}
	attacker.AttacksLaunched++
	// attacking forfeits the attacker's own protection
	attacker.ProtectedUntil = min(attacker.ProtectedUntil, turn-1)

	s.applyMood(attacker, defender, rec)
	st.AppendAttack(*rec, s.rs.History.Attacks)
	economy.Refresh(attacker, s.rs)
	economy.Refresh(defender, s.rs)
	return rec, nil
}

func routeMultiplier(st *state.State, from, to empire.ID) float64 {
	if st.Galaxy == nil {
		return 1
	}
	mods, ok := st.Galaxy.Route(st.Galaxy.HomeOf(from), st.Galaxy.HomeOf(to))
	if !ok || mods.ForceMultiplier <= 0 {
		return 1
	}
	return mods.ForceMultiplier
}

func (s *Service) applyMood(attacker, defender *empire.Empire, rec *combat.Record) {
	b := s.rs.Bots
	if defender.IsBot() {
		s.aggrieve(defender, attacker.ID, b.AngerOnAttacked)
		if rec.AttackerWon() {
			defender.Mood.Fear = clamp01(defender.Mood.Fear + b.FearOnLoss)
		} else {
			defender.Mood.Confidence = clamp01(defender.Mood.Confidence + b.ConfidenceOnWin)
		}
	}
	if attacker.IsBot() {
		if rec.AttackerWon() {
			attacker.Mood.Confidence = clamp01(attacker.Mood.Confidence + b.ConfidenceOnWin)
		} else {
			attacker.Mood.Fear = clamp01(attacker.Mood.Fear + b.FearOnLoss)
		}
	}
}

func (s *Service) aggrieve(e *empire.Empire, against empire.ID, amount float64) {
	e.Mood.Anger = clamp01(e.Mood.Anger + amount)
	if e.Grudges == nil {
		e.Grudges = make(map[empire.ID]float64)
	}
	e.Grudges[against] = clamp01(e.Grudges[against] + amount)
}

func (s *Service) message(st *state.State, actor *empire.Empire, a Action) (state.Message, error) {
	if !slices.Contains(MessageKinds, a.MessageKind) {
		return state.Message{}, errors.Validationf("unknown message kind %q", a.MessageKind)
	}
	if !utf8.ValidString(a.Text) || utf8.RuneCountInString(a.Text) > maxMessageLength {
		return state.Message{}, errors.Validationf("message text must be valid UTF-8 of at most %d characters", maxMessageLength)
	}
	if a.TargetID < 0 {
		return state.Message{}, errors.Validationf("invalid target id %d", a.TargetID)
	}
	if a.TargetID > 0 {
		if _, err := s.target(st, a.TargetID); err != nil {
			return state.Message{}, err
		}
		if a.TargetID == actor.ID {
			return state.Message{}, errors.Preconditionf("empire %d cannot message itself", actor.ID)
		}
	}
	for _, queued := range st.Outbox {
		if queued.From == actor.ID && queued.Turn == st.Turn.Turn {
			return state.Message{}, errors.Preconditionf("empire %d already sent a message this turn", actor.ID)
		}
	}
	m := state.Message{Turn: st.Turn.Turn, From: actor.ID, To: a.TargetID, Kind: a.MessageKind, Text: a.Text}
	st.Outbox = append(st.Outbox, m)
	return m, nil
}

func (s *Service) query(st *state.State, actor *empire.Empire, a Action) (any, error) {
	turn := st.Turn.Turn
	if a.TargetID != 0 {
		if a.TargetID < 0 {
			return nil, errors.Validationf("invalid target id %d", a.TargetID)
		}
		target := st.Empire(a.TargetID)
		if target == nil {
			return nil, errors.NotFoundf("empire %d not found", a.TargetID)
		}
		return rival(target, turn, s.rs), nil
	}

	view := View{
		Turn:     turn,
		Empire:   actor.Clone(),
		Prices:   st.Market.Clone().Prices,
		Pending:  st.Diplomacy.Pending(actor.ID),
		Partners: st.Diplomacy.Partners(actor.ID, turn),
		Outcome:  st.Outcome,
	}
	view.Empire.Networth = economy.Networth(actor, s.rs)
	for _, e := range st.Empires {
		if e.ID != actor.ID {
			view.Rivals = append(view.Rivals, rival(e, turn, s.rs))
		}
	}
	for _, m := range st.Messages {
		if m.To == actor.ID || (m.To == 0 && m.From != actor.ID) {
			view.Inbox = append(view.Inbox, m)
		}
	}
	return view, nil
}

func rival(e *empire.Empire, turn int, rs *ruleset.Ruleset) Rival {
	return Rival{
		ID:         e.ID,
		Name:       e.Name,
		Type:       e.Type,
		Networth:   economy.Networth(e, rs),
		Sectors:    e.SectorCount(),
		Civil:      e.CivilStatus,
		Eliminated: e.Eliminated,
		Protected:  e.IsProtected(turn),
	}
}

// sanitizeForces converts a raw unit map into Forces, rejecting unknown
// units and counts that are negative, fractional, non-finite or too large.
func sanitizeForces(raw map[empire.UnitType]float64) (empire.Forces, error) {
	var f empire.Forces
	for u, v := range raw {
		if !empire.ValidUnitType(u) {
			return empire.Forces{}, errors.Validationf("unknown unit type %q", u)
		}
		n, err := whole(v, string(u))
		if err != nil {
			return empire.Forces{}, err
		}
		f.Set(u, n)
	}
	return f, nil
}

// count sanitizes a strictly positive quantity.
func count(v float64, field string) (int64, error) {
	n, err := whole(v, field)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.Validationf("%s must be positive", field)
	}
	return n, nil
}

func whole(v float64, field string) (int64, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, errors.Validationf("%s must be finite", field)
	case v < 0:
		return 0, errors.Validationf("%s must not be negative", field)
	case v != math.Trunc(v):
		return 0, errors.Validationf("%s must be a whole number", field)
	case v > maxCount:
		return 0, errors.Validation(fmt.Sprintf("%s exceeds %g", field, maxCount))
	}
	return int64(v), nil
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
