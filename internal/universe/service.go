package universe

import (
	"fmt"
	"log/slog"

	"empires-server/internal/economy"
	"empires-server/internal/empire"
	"empires-server/internal/galaxy"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/state"
)

var numerals = []string{"II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"}

type Service struct {
	rs        *ruleset.Ruleset
	generator *galaxy.Generator
	logger    *slog.Logger
}

func NewService(rs *ruleset.Ruleset, logger *slog.Logger) *Service {
	return &Service{
		rs:        rs,
		generator: galaxy.NewGenerator(rs.Galaxy, logger),
		logger:    logger,
	}
}

// Create builds the turn-1 state of a new game: the empires, their home
// sectors and the galaxy they live in. Setup draws from the turn-0 stream,
// which AdvanceTurn never uses.
func (s *Service) Create(cfg Config) (*state.State, error) {
	logger := s.logger.With(
		"component", "universe_service",
		"operation", "create",
		"game_id", cfg.GameID,
		"empires", cfg.Empires,
	)
	logger.Info("Creating new universe")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	stream := rng.ForTurn(cfg.Seed, 0)
	empires := s.createEmpires(cfg, stream)

	refs := make([]galaxy.EmpireRef, len(empires))
	for i, e := range empires {
		refs[i] = galaxy.EmpireRef{ID: e.ID, Type: e.Type}
	}
	gal, err := s.generator.Generate(cfg.GameID, refs, cfg.Seed)
	if err != nil {
		logger.Error("Failed to generate galaxy", "error", err)
		return nil, fmt.Errorf("failed to generate galaxy: %w", err)
	}

	protection := s.rs.Start.ProtectionTurns
	if cfg.ProtectionTurns != DefaultProtection {
		protection = cfg.ProtectionTurns
	}

	var nextSector int64
	for _, e := range empires {
		home := gal.HomeOf(e.ID)
		for _, t := range s.rs.Start.Sectors {
			nextSector++
			e.Sectors = append(e.Sectors, empire.Sector{ID: nextSector, Type: t, RegionID: home})
		}
		e.ProtectedUntil = protection
		economy.Refresh(e, s.rs)
	}

	st := &state.State{
		GameID:       cfg.GameID,
		Seed:         cfg.Seed,
		Variant:      s.rs.Variant,
		FinalTurn:    cfg.FinalTurn,
		Turn:         state.TurnState{Turn: 1},
		Empires:      empires,
		Galaxy:       gal,
		Market:       economy.NewMarket(s.rs),
		NextSectorID: nextSector,
	}

	logger.Info("Universe created",
		"regions", len(gal.Regions),
		"sectors", nextSector,
		"protection_turns", protection)
	return st, nil
}

func (s *Service) createEmpires(cfg Config, stream *rng.Stream) []*empire.Empire {
	archetypes := s.rs.Archetypes()
	stream.Shuffle(len(archetypes), func(i, j int) {
		archetypes[i], archetypes[j] = archetypes[j], archetypes[i]
	})

	names := s.names(cfg.Empires, stream)
	empires := make([]*empire.Empire, 0, cfg.Empires)
	bots := 0
	for i := 0; i < cfg.Empires; i++ {
		e := s.newEmpire(empire.ID(i+1), names[i])
		if i == 0 && cfg.IncludePlayer {
			e.Type = empire.TypePlayer
			if cfg.PlayerName != "" {
				e.Name = cfg.PlayerName
			}
		} else {
			e.Type = empire.TypeBot
			e.Archetype = archetypes[bots%len(archetypes)]
			bots++
		}
		empires = append(empires, e)
	}
	return empires
}

func (s *Service) newEmpire(id empire.ID, name string) *empire.Empire {
	start := s.rs.Start
	e := &empire.Empire{
		ID:          id,
		Name:        name,
		Resources:   start.Resources,
		Population:  start.Population,
		CivilStatus: empire.CivilContent,
	}
	for u, n := range start.Forces {
		e.Forces.Set(u, n)
	}
	for _, u := range start.Unlocked {
		e.Unlock(u)
	}
	return e
}

// names draws n unique empire names from the prefix and suffix lists. When
// the combinations run out, numerals extend the name.
func (s *Service) names(n int, stream *rng.Stream) []string {
	prefixes, suffixes := s.rs.Start.NamePrefixes, s.rs.Start.NameSuffixes
	combos := make([]string, 0, len(prefixes)*len(suffixes))
	for _, p := range prefixes {
		for _, q := range suffixes {
			combos = append(combos, p+" "+q)
		}
	}
	stream.Shuffle(len(combos), func(i, j int) {
		combos[i], combos[j] = combos[j], combos[i]
	})

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		base := combos[i%len(combos)]
		round := i / len(combos)
		switch {
		case round == 0:
			out = append(out, base)
		case round <= len(numerals):
			out = append(out, base+" "+numerals[round-1])
		default:
			out = append(out, fmt.Sprintf("%s %d", base, round+1))
		}
	}
	return out
}
