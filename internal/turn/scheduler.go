// Package turn advances a game by exactly one turn. The pipeline runs a
// fixed sequence of phases over a private copy of the state; callers only
// ever see the state before or after a whole turn.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"empires-server/internal/actions"
	"empires-server/internal/bot"
	"empires-server/internal/buildqueue"
	"empires-server/internal/covert"
	"empires-server/internal/crafting"
	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/events"
	"empires-server/internal/research"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
	"empires-server/internal/state"
	"empires-server/internal/victory"
)

type Scheduler struct {
	rs      *ruleset.Ruleset
	bots    *bot.Engine
	logger  *slog.Logger
	workers int

	// hook runs before every per-empire step; tests use it to inject faults.
	hook func(p state.Phase, e *empire.Empire)
}

func NewScheduler(svc *actions.Service, bots *bot.Engine, logger *slog.Logger) *Scheduler {
	rs := svc.Ruleset()
	workers := rs.Turn.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scheduler{
		rs:      rs,
		bots:    bots,
		logger:  logger,
		workers: workers,
	}
}

// AdvanceTurn processes the current turn of st and returns the state that
// opens the next one. st itself is never modified. stream must be the turn
// stream for st's game and turn; it is consumed in phase order.
func (s *Scheduler) AdvanceTurn(ctx context.Context, st *state.State, stream *rng.Stream) (*state.State, *Report, error) {
	turn := st.Turn.Turn
	logger := s.logger.With(
		"component", "turn_scheduler",
		"operation", "advance_turn",
		"game_id", st.GameID,
		"turn", turn,
	)

	if st.Outcome.Finished {
		return nil, nil, errors.Preconditionf("game %d is finished", st.GameID)
	}
	if st.Turn.Phases != 0 {
		return nil, nil, errors.Preconditionf("turn %d already ran phases %b", turn, st.Turn.Phases)
	}
	if st.Variant != "" && st.Variant != s.rs.Variant {
		return nil, nil, errors.Preconditionf("game uses the %s ruleset, scheduler runs %s", st.Variant, s.rs.Variant)
	}

	next := st.Clone()
	rep := &Report{GameID: st.GameID, Turn: turn}
	before := stream.Draws()

	for _, phase := range state.Phases {
		if err := ctx.Err(); err != nil {
			logger.Warn("Turn cancelled", "phase", phase.String(), "error", err)
			return nil, nil, fmt.Errorf("turn %d cancelled before %s: %w", turn, phase, err)
		}
		if next.Turn.Ran(phase) {
			return nil, nil, errors.Preconditionf("phase %s already ran in turn %d", phase, turn)
		}
		s.runPhase(phase, next, rep, stream)
		next.Turn.Mark(phase)
		rep.Eliminated = append(rep.Eliminated, next.Normalize(s.rs)...)
	}

	rep.Outcome = next.Outcome
	rep.Draws = stream.Draws() - before
	if !next.Outcome.Finished {
		next.Turn = state.TurnState{Turn: turn + 1}
	}

	digest, err := next.Digest()
	if err != nil {
		return nil, nil, errors.WrapInternal("failed to digest state", err)
	}
	rep.Digest = digest

	logger.Info("Turn advanced",
		"alive", len(next.Alive()),
		"attacks", len(rep.Attacks),
		"eliminated", len(rep.Eliminated),
		"faults", len(rep.Faults),
		"finished", next.Outcome.Finished)
	return next, rep, nil
}

func (s *Scheduler) runPhase(phase state.Phase, st *state.State, rep *Report, stream *rng.Stream) {
	rs := s.rs
	switch phase {
	case state.PhaseIncome:
		for _, res := range perEmpire(s, phase, st, rep, func(e *empire.Empire) (economy.Statement, error) {
			return economy.ApplyIncome(e, rs), nil
		}) {
			if res.value.Starving {
				rep.Starving = append(rep.Starving, res.id)
			}
			if res.value.Negative {
				rep.Bankrupt = append(rep.Bankrupt, res.id)
			}
		}
	case state.PhaseAutoProduction:
		for _, res := range perEmpire(s, phase, st, rep, func(e *empire.Empire) (int64, error) {
			return crafting.AutoProduce(e, rs), nil
		}) {
			rep.Components += res.value
		}
	case state.PhasePopulation:
		perEmpire(s, phase, st, rep, func(e *empire.Empire) (int64, error) {
			return economy.GrowPopulation(e, rs), nil
		})
	case state.PhaseCivil:
		perEmpire(s, phase, st, rep, func(e *empire.Empire) (empire.CivilStatus, error) {
			return economy.RecomputeCivil(e, rs), nil
		})
	case state.PhaseResearch:
		for _, res := range perEmpire(s, phase, st, rep, func(e *empire.Empire) ([]research.LevelUp, error) {
			return research.Accrue(e, rs), nil
		}) {
			rep.LevelUps = append(rep.LevelUps, res.value...)
		}
	case state.PhaseBuildQueue:
		for _, res := range perEmpire(s, phase, st, rep, func(e *empire.Empire) ([]buildqueue.Completion, error) {
			return buildqueue.Advance(e), nil
		}) {
			rep.Completions = append(rep.Completions, res.value...)
		}
	case state.PhaseCovert:
		perEmpire(s, phase, st, rep, func(e *empire.Empire) (int64, error) {
			return covert.Accrue(e, rs), nil
		})
	case state.PhaseCrafting:
		for _, res := range perEmpire(s, phase, st, rep, func(e *empire.Empire) ([]crafting.Delivery, error) {
			return crafting.Advance(e), nil
		}) {
			rep.Deliveries = append(rep.Deliveries, res.value...)
		}
	case state.PhaseBotDecisions:
		s.runBots(st, rep, stream)
	case state.PhaseMoodDecay:
		perEmpire(s, phase, st, rep, func(e *empire.Empire) (struct{}, error) {
			if e.IsBot() {
				bot.DecayMood(e, rs.Bots)
			}
			return struct{}{}, nil
		})
	case state.PhaseMarket:
		s.guard(phase, st, rep, func() error {
			economy.UpdateMarket(&st.Market, st.Empires, rs, stream)
			return nil
		})
	case state.PhaseMessaging:
		s.guard(phase, st, rep, func() error {
			rep.Messages = actions.FlushMessages(st, rs)
			return nil
		})
	case state.PhaseEvents:
		s.guard(phase, st, rep, func() error {
			rep.Event = events.Roll(st, rs, stream)
			return nil
		})
	case state.PhaseDiplomacy:
		s.guard(phase, st, rep, func() error {
			rep.Diplomacy = st.Diplomacy.Checkpoint(st.Turn.Turn, st.IsAlive, rs)
			return nil
		})
	case state.PhaseVictory:
		s.guard(phase, st, rep, func() error {
			rep.Defeats = victory.ApplyDefeats(st, rs)
			rep.Eliminated = append(rep.Eliminated, st.Normalize(rs)...)
			st.Outcome = victory.Evaluate(st, rs)
			return nil
		})
	case state.PhaseCheckpoint:
		every := rs.Turn.CheckpointEvery
		rep.Checkpoint = st.Outcome.Finished || (every > 0 && st.Turn.Turn%every == 0)
	}
}

// runBots lets every living bot act in id order. Each bot runs against a
// savepoint covering itself and everyone it targets, so a failing bot
// leaves no partial effects.
func (s *Scheduler) runBots(st *state.State, rep *Report, stream *rng.Stream) {
	for _, id := range st.AliveIDs() {
		b := st.Empire(id)
		if b == nil || b.Eliminated || !b.IsBot() {
			continue
		}

		var sp *state.Savepoint
		err := safely(func() error {
			d, err := s.bots.Decide(st, b, stream)
			if err != nil {
				return err
			}
			sp = st.Save(append([]empire.ID{id}, d.Targets()...)...)
			res := s.bots.Apply(st, d, stream)
			rep.Bots = append(rep.Bots, res)
			rep.Attacks = append(rep.Attacks, res.Attacks...)
			for _, rec := range res.Attacks {
				if rec.DefenderEliminated {
					rep.Eliminated = append(rep.Eliminated, rec.DefenderID)
				}
			}
			return nil
		})
		if err != nil {
			if sp != nil {
				st.Restore(sp)
			}
			s.fault(rep, state.PhaseBotDecisions, id, err)
		}
	}
}

// guard runs a whole-state phase step and rolls it back on failure.
func (s *Scheduler) guard(phase state.Phase, st *state.State, rep *Report, fn func() error) {
	ids := st.AliveIDs()
	sp := st.Save(ids...)
	galaxy := st.Galaxy
	if galaxy != nil {
		st.Galaxy = galaxy.Clone()
	}
	if err := safely(fn); err != nil {
		st.Restore(sp)
		st.Galaxy = galaxy
		s.fault(rep, phase, 0, err)
	}
}

func (s *Scheduler) fault(rep *Report, phase state.Phase, id empire.ID, err error) {
	s.logger.Warn("Phase fault",
		"component", "turn_scheduler",
		"phase", phase.String(),
		"turn", rep.Turn,
		"empire_id", id,
		"error", err)
	rep.Faults = append(rep.Faults, Fault{Phase: phase.String(), EmpireID: id, Error: err.Error()})
}

type stepResult[T any] struct {
	id    empire.ID
	value T
}

// perEmpire runs fn for every living empire on a bounded worker pool. Each
// worker owns a distinct empire, so no locking is needed. Results and faults
// are merged in empire id order; a faulting empire is restored to its
// pre-phase copy.
func perEmpire[T any](s *Scheduler, phase state.Phase, st *state.State, rep *Report, fn func(*empire.Empire) (T, error)) []stepResult[T] {
	var idx []int
	for i, e := range st.Empires {
		if !e.Eliminated {
			idx = append(idx, i)
		}
	}

	values := make([]T, len(idx))
	errs := make([]error, len(idx))
	backups := make([]*empire.Empire, len(idx))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(s.workers, len(idx)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				e := st.Empires[idx[j]]
				backups[j] = e.Clone()
				errs[j] = safely(func() error {
					if s.hook != nil {
						s.hook(phase, e)
					}
					v, err := fn(e)
					values[j] = v
					return err
				})
			}
		}()
	}
	for j := range idx {
		jobs <- j
	}
	close(jobs)
	wg.Wait()

	out := make([]stepResult[T], 0, len(idx))
	for j, i := range idx {
		if errs[j] != nil {
			st.Empires[i] = backups[j]
			s.fault(rep, phase, backups[j].ID, errs[j])
			continue
		}
		out = append(out, stepResult[T]{id: st.Empires[i].ID, value: values[j]})
	}
	return out
}

// safely converts a panic in fn into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
