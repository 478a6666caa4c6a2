// Package simulation runs unattended bot-only (or bot-heavy) games for
// balance testing.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"empires-server/internal/actions"
	"empires-server/internal/bot"
	"empires-server/internal/combat"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
	"empires-server/internal/turn"
	"empires-server/internal/universe"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// MaxTurns bounds a single run.
const MaxTurns = 100_000

type Runner struct {
	rs        *ruleset.Ruleset
	universe  *universe.Service
	scheduler *turn.Scheduler
	logger    *slog.Logger
}

func NewRunner(rs *ruleset.Ruleset, logger *slog.Logger) (*Runner, error) {
	svc := actions.NewService(rs, logger)
	engine, err := bot.NewEngine(svc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compile bot profiles: %w", err)
	}
	return &Runner{
		rs:        rs,
		universe:  universe.NewService(rs, logger),
		scheduler: turn.NewScheduler(svc, engine, logger),
		logger:    logger,
	}, nil
}

// Run plays a game from setup until it finishes or the turn limit is hit.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	logger := r.logger.With(
		"component", "simulation_runner",
		"operation", "run",
		"seed", cfg.Seed,
		"empires", cfg.EmpireCount,
		"turn_limit", cfg.TurnLimit,
	)

	if cfg.TurnLimit < 1 || cfg.TurnLimit > MaxTurns {
		return nil, errors.Validationf("turn limit must be between 1 and %d, got %d", MaxTurns, cfg.TurnLimit)
	}
	if cfg.GameID == 0 {
		cfg.GameID = 1
	}

	st, err := r.universe.Create(universe.Config{
		GameID:          cfg.GameID,
		Seed:            cfg.Seed,
		Empires:         cfg.EmpireCount,
		IncludePlayer:   cfg.IncludePlayer,
		ProtectionTurns: cfg.ProtectionTurns,
		FinalTurn:       cfg.TurnLimit,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Seed:      cfg.Seed,
		Variant:   r.rs.Variant,
		Empires:   cfg.EmpireCount,
		TurnLimit: cfg.TurnLimit,
		Coverage:  Coverage{Defeats: map[string]int{}, Events: map[string]int{}},
	}
	started := time.Now()
	progress := rate.Sometimes{Interval: 2 * time.Second}
	logger.Info("Simulation started", "run_id", res.RunID)

	for !st.Outcome.Finished && st.Turn.Turn <= cfg.TurnLimit {
		next, rep, err := r.scheduler.AdvanceTurn(ctx, st, rng.ForTurn(st.Seed, st.Turn.Turn))
		if err != nil {
			logger.Error("Simulation aborted", "turn", st.Turn.Turn, "error", err)
			return nil, err
		}
		st = next
		res.TurnsPlayed++
		res.Coverage.add(rep)

		if rep.Checkpoint && cfg.OnCheckpoint != nil {
			res.Coverage.Checkpoints++
			if err := cfg.OnCheckpoint(st, rep); err != nil {
				return nil, fmt.Errorf("checkpoint at turn %d: %w", rep.Turn, err)
			}
		}

		progress.Do(func() {
			logger.Info("Simulation progress",
				"turn", rep.Turn,
				"alive", len(st.Alive()),
				"attacks", res.Coverage.Invasions+res.Coverage.Guerillas)
		})
	}

	res.Outcome = st.Outcome
	res.Survivors = st.AliveIDs()
	res.Final = st
	res.Digest, err = st.Digest()
	if err != nil {
		return nil, errors.WrapInternal("failed to digest final state", err)
	}
	res.Duration = time.Since(started)

	logger.Info("Simulation finished",
		"run_id", res.RunID,
		"turns", res.TurnsPlayed,
		"victory", res.Outcome.VictoryType,
		"winner", res.Outcome.WinnerID,
		"duration", res.Duration)
	return res, nil
}

func (c *Coverage) add(rep *turn.Report) {
	for _, a := range rep.Attacks {
		if a.Type == combat.AttackInvasion {
			c.Invasions++
		} else {
			c.Guerillas++
		}
		if a.AttackerWon() {
			c.AttackerWins++
		}
		c.SectorsCaptured += a.SectorsTransferred
	}
	for _, d := range rep.Defeats {
		c.Defeats[d.Reason]++
	}
	for _, d := range rep.Deliveries {
		c.ItemsCrafted += d.Quantity
	}
	if rep.Event != nil {
		c.Events[rep.Event.Kind]++
	}
	c.Eliminations += len(rep.Eliminated) + len(rep.Defeats)
	c.BuildsOrdered += rep.BuildsOrdered()
	c.TreatyOffers += rep.Accepted(actions.KindProposeTreaty)
	c.BuildsCompleted += len(rep.Completions)
	c.LevelUps += len(rep.LevelUps)
	c.TreatiesExpired += rep.Diplomacy.Expired
	c.Messages += len(rep.Messages)
	c.Faults += len(rep.Faults)
}
