package game

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"empires-server/internal/actions"
	"empires-server/internal/bot"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/response"
	"empires-server/internal/turn"
	"empires-server/internal/universe"

	"github.com/google/uuid"
)

type Service struct {
	repo      Repository
	locker    turn.Locker
	universe  *universe.Service
	actions   *actions.Service
	scheduler *turn.Scheduler
	defaults  Defaults
	logger    *slog.Logger
}

func NewService(repo Repository, locker turn.Locker, rs *ruleset.Ruleset, defaults Defaults, logger *slog.Logger) (*Service, error) {
	svc := actions.NewService(rs, logger)
	engine, err := bot.NewEngine(svc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compile bot profiles: %w", err)
	}
	return &Service{
		repo:      repo,
		locker:    locker,
		universe:  universe.NewService(rs, logger),
		actions:   svc,
		scheduler: turn.NewScheduler(svc, engine, logger),
		defaults:  defaults,
		logger:    logger,
	}, nil
}

// CreateGame sets up a new game with one player empire and stores it.
func (s *Service) CreateGame(ctx context.Context, config GameConfig) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "create_game")

	if config.Bots == 0 {
		config.Bots = s.defaults.Bots
	}
	protection := s.defaults.ProtectionTurns
	if config.ProtectionTurns != nil {
		protection = *config.ProtectionTurns
	}
	var seed uint64
	if config.Seed != nil {
		seed = *config.Seed
	} else {
		id := uuid.New()
		seed = binary.BigEndian.Uint64(id[:8])
	}

	gameID, err := s.repo.NextID(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.universe.Create(universe.Config{
		GameID:          gameID,
		Seed:            seed,
		Empires:         config.Bots + 1,
		IncludePlayer:   true,
		PlayerName:      config.PlayerName,
		ProtectionTurns: protection,
		FinalTurn:       config.FinalTurn,
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.Create(ctx, st)
	if err != nil {
		return nil, err
	}

	g := summarize(rec)
	logger.Info("Game created", "game_id", g.ID, "seed", seed, "empires", g.Empires)
	return &g, nil
}

func (s *Service) GetAllGames(ctx context.Context) ([]Game, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	games := make([]Game, 0, len(recs))
	for _, rec := range recs {
		games = append(games, summarize(rec))
	}
	return games, nil
}

func (s *Service) GetGame(ctx context.Context, gameID int64) (*Game, error) {
	rec, err := s.repo.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	g := summarize(rec)
	return &g, nil
}

func (s *Service) GetReport(ctx context.Context, gameID int64, turnNumber int) (*turn.Report, error) {
	return s.repo.Report(ctx, gameID, turnNumber)
}

// AdvanceTurn runs the open turn of a game under the game's advancement
// lock and stores the new state and its report together.
func (s *Service) AdvanceTurn(ctx context.Context, gameID int64) (*turn.Report, error) {
	logger := s.logger.With("component", "game_service", "operation", "advance_turn", "game_id", gameID)

	release, err := s.locker.Acquire(ctx, gameID, s.defaults.LockTTL)
	if err != nil {
		return nil, err
	}
	defer s.release(release, logger)

	rec, err := s.repo.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	st := rec.State
	next, rep, err := s.scheduler.AdvanceTurn(ctx, st, rng.ForTurn(st.Seed, st.Turn.Turn))
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Save(ctx, next, rep); err != nil {
		return nil, err
	}

	logger.Info("Turn stored", "turn", rep.Turn, "digest", rep.Digest, "finished", rep.Outcome.Finished)
	return rep, nil
}

// Act runs one player action. The acting empire is always the game's
// player empire. Rejections come back inside the envelope; the error is
// reserved for failures around the action.
func (s *Service) Act(ctx context.Context, gameID int64, a actions.Action) (response.Envelope, error) {
	logger := s.logger.With("component", "game_service", "operation", "act", "game_id", gameID, "kind", a.Kind)

	release, err := s.locker.Acquire(ctx, gameID, s.defaults.LockTTL)
	if err != nil {
		return response.Envelope{}, err
	}
	defer s.release(release, logger)

	rec, err := s.repo.Load(ctx, gameID)
	if err != nil {
		return response.Envelope{}, err
	}
	st := rec.State
	player := st.Player()
	if player == nil {
		return response.Envelope{}, errors.Preconditionf("game %d has no player empire", gameID)
	}
	a.EmpireID = player.ID

	env := s.actions.Dispatch(st, a, rng.ForAction(st.Seed, st.Turn.Turn, st.ActionCount))
	if !env.Success || a.Kind == actions.KindQuery {
		return env, nil
	}
	st.ActionCount++
	if _, err := s.repo.Save(ctx, st, nil); err != nil {
		return response.Envelope{}, err
	}
	return env, nil
}

func (s *Service) release(release func(context.Context) error, logger *slog.Logger) {
	if err := release(context.Background()); err != nil {
		logger.Warn("Failed to release game lock", "error", err)
	}
}
