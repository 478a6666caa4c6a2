package simulation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
	"empires-server/internal/state"
	"empires-server/internal/turn"
)

func newRunner(t *testing.T, variant string) *Runner {
	t.Helper()
	r, err := NewRunner(ruleset.MustDefault(variant), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRunIsReproducible(t *testing.T) {
	for _, variant := range []string{ruleset.VariantUnified, ruleset.VariantLegacy} {
		t.Run(variant, func(t *testing.T) {
			cfg := Config{EmpireCount: 12, TurnLimit: 60, ProtectionTurns: 3, Seed: 2024}
			a, err := newRunner(t, variant).Run(context.Background(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			b, err := newRunner(t, variant).Run(context.Background(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			if a.Digest != b.Digest || a.TurnsPlayed != b.TurnsPlayed {
				t.Fatalf("runs diverged: %s after %d turns vs %s after %d", a.Digest, a.TurnsPlayed, b.Digest, b.TurnsPlayed)
			}
			if a.RunID == b.RunID {
				t.Fatal("run ids must be unique")
			}
			if !a.Outcome.Finished {
				t.Fatal("a run that reaches the turn limit must finish")
			}
			if a.Coverage.Faults != 0 {
				t.Fatalf("unexpected faults: %d", a.Coverage.Faults)
			}
			if fallen := len(a.Final.Empires) - len(a.Survivors); a.Coverage.Eliminations != fallen {
				t.Fatalf("coverage counted %d eliminations, %d empires fell", a.Coverage.Eliminations, fallen)
			}
		})
	}
}

func TestRunCallsCheckpoints(t *testing.T) {
	r := newRunner(t, ruleset.VariantUnified)
	var turns []int
	res, err := r.Run(context.Background(), Config{
		EmpireCount: 6,
		TurnLimit:   25,
		Seed:        7,
		OnCheckpoint: func(st *state.State, rep *turn.Report) error {
			turns = append(turns, rep.Turn)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) == 0 || turns[len(turns)-1] != res.Outcome.Turn {
		t.Fatalf("expected a checkpoint at the final turn, got %v", turns)
	}
	if res.Coverage.Checkpoints != len(turns) {
		t.Fatalf("checkpoint count %d does not match %d calls", res.Coverage.Checkpoints, len(turns))
	}
}

func TestRunRejectsBadLimits(t *testing.T) {
	r := newRunner(t, ruleset.VariantUnified)
	for _, limit := range []int{0, MaxTurns + 1} {
		_, err := r.Run(context.Background(), Config{EmpireCount: 4, TurnLimit: limit})
		if !errors.Is(err, errors.ErrorTypeValidation) {
			t.Errorf("limit %d: expected validation error, got %v", limit, err)
		}
	}
}

func TestCoverageCountsCombatEliminations(t *testing.T) {
	res, err := newRunner(t, ruleset.VariantUnified).Run(context.Background(), Config{
		EmpireCount:     30,
		TurnLimit:       300,
		ProtectionTurns: 2,
		Seed:            42,
	})
	if err != nil {
		t.Fatal(err)
	}
	fallen := len(res.Final.Empires) - len(res.Survivors)
	if res.Coverage.Eliminations != fallen {
		t.Fatalf("coverage counted %d eliminations, %d empires fell", res.Coverage.Eliminations, fallen)
	}
	conquered := 0
	for _, rec := range res.Final.Attacks {
		if rec.DefenderEliminated {
			conquered++
		}
	}
	if conquered > res.Coverage.Eliminations {
		t.Fatalf("%d combat eliminations in the attack log exceed the %d counted", conquered, res.Coverage.Eliminations)
	}
}
