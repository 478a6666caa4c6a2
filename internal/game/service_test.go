package game

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"empires-server/internal/actions"
	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
	"empires-server/internal/turn"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository, *turn.MemoryLocker) {
	t.Helper()
	repo := NewMemoryRepository()
	locker := turn.NewMemoryLocker()
	svc, err := NewService(repo, locker, ruleset.MustDefault(ruleset.VariantUnified),
		Defaults{Bots: 6, ProtectionTurns: -1, LockTTL: time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return svc, repo, locker
}

func seeded(seed uint64) GameConfig {
	return GameConfig{Seed: &seed, PlayerName: "Tester"}
}

func TestCreateAndAdvance(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGame(ctx, seeded(11))
	if err != nil {
		t.Fatal(err)
	}
	if g.ID != 1 || g.Empires != 7 || g.CurrentTurn != 1 || g.PlayerID == 0 || g.Status != GameStatusActive {
		t.Fatalf("unexpected game %+v", g)
	}

	rep, err := svc.AdvanceTurn(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Turn != 1 {
		t.Fatalf("expected report for turn 1, got %d", rep.Turn)
	}

	after, err := svc.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.CurrentTurn != 2 || after.Digest != rep.Digest {
		t.Fatalf("stored game does not match report: %+v vs %s", after, rep.Digest)
	}

	stored, err := svc.GetReport(ctx, g.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Digest != rep.Digest {
		t.Fatal("stored report differs from returned report")
	}
}

func TestAdvanceIsReproducibleAcrossServices(t *testing.T) {
	digests := make([]string, 2)
	for i := range digests {
		svc, _, _ := newTestService(t)
		ctx := context.Background()
		g, err := svc.CreateGame(ctx, seeded(99))
		if err != nil {
			t.Fatal(err)
		}
		for range 3 {
			if _, err := svc.AdvanceTurn(ctx, g.ID); err != nil {
				t.Fatal(err)
			}
		}
		after, err := svc.GetGame(ctx, g.ID)
		if err != nil {
			t.Fatal(err)
		}
		digests[i] = after.Digest
	}
	if digests[0] != digests[1] {
		t.Fatalf("same seed produced different games: %v", digests)
	}
}

func TestAdvanceRespectsLock(t *testing.T) {
	svc, _, locker := newTestService(t)
	ctx := context.Background()
	g, err := svc.CreateGame(ctx, seeded(5))
	if err != nil {
		t.Fatal(err)
	}

	release, err := locker.Acquire(ctx, g.ID, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AdvanceTurn(ctx, g.ID); !errors.Is(err, errors.ErrorTypeConflict) {
		t.Fatalf("expected conflict while locked, got %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AdvanceTurn(ctx, g.ID); err != nil {
		t.Fatalf("advance after release: %v", err)
	}
}

func TestActRunsAsPlayer(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	g, err := svc.CreateGame(ctx, seeded(3))
	if err != nil {
		t.Fatal(err)
	}

	// the empire id in the request is ignored
	env, err := svc.Act(ctx, g.ID, actions.Build(g.PlayerID+1, empire.UnitSoldiers, 10))
	if err != nil {
		t.Fatal(err)
	}
	if !env.Success {
		t.Fatalf("build rejected: %+v", env.Error)
	}

	rec, err := repo.Load(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.State.ActionCount != 1 {
		t.Fatalf("expected one counted action, got %d", rec.State.ActionCount)
	}
	if len(rec.State.Player().BuildQueue) != 1 {
		t.Fatal("build order was not stored on the player")
	}

	env, err = svc.Act(ctx, g.ID, actions.Build(0, empire.UnitSoldiers, -1))
	if err != nil {
		t.Fatal(err)
	}
	if env.Success || env.Error.Type != string(errors.ErrorTypeValidation) {
		t.Fatalf("expected validation rejection, got %+v", env)
	}

	env, err = svc.Act(ctx, g.ID, actions.Query(0, 0))
	if err != nil || !env.Success {
		t.Fatalf("query failed: %v %+v", err, env)
	}
	rec, err = repo.Load(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.State.ActionCount != 1 {
		t.Fatalf("rejections and queries must not be counted, got %d", rec.State.ActionCount)
	}
}

func TestMissingGame(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.GetGame(ctx, 42); !errors.Is(err, errors.ErrorTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.AdvanceTurn(ctx, 42); !errors.Is(err, errors.ErrorTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
