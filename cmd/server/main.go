package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"empires-server/internal/game"
	"empires-server/internal/middleware"
	"empires-server/internal/ruleset"
	"empires-server/internal/server"
	"empires-server/internal/shared/config"
	"empires-server/internal/shared/database"
	"empires-server/internal/shared/logger"
	"empires-server/internal/shared/redis"
	"empires-server/internal/turn"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	logger.Init()

	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rs, err := loadRuleset(cfg.Game)
	if err != nil {
		return err
	}
	log.Info("Ruleset loaded", "variant", rs.Variant, "path", cfg.Game.RulesetPath)

	db, err := database.Connect()
	if err != nil {
		return err
	}
	var repo game.Repository = game.NewMemoryRepository()
	if db != nil {
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			return err
		}
		repo = game.NewPostgresRepository(db, slog.Default())
	}

	rdb, err := redis.Connect()
	if err != nil {
		return err
	}
	var locker turn.Locker = turn.NewMemoryLocker()
	if rdb != nil {
		defer rdb.Close()
		locker = turn.NewRedisLocker(rdb.Client)
	}

	gameService, err := game.NewService(repo, locker, rs, game.Defaults{
		Bots:            cfg.Game.DefaultBots,
		ProtectionTurns: cfg.Game.ProtectionTurns,
		LockTTL:         cfg.Game.LockTTL,
	}, slog.Default())
	if err != nil {
		return err
	}

	routes := server.NewRoutes(db, rdb, gameService, slog.Default())
	handler := middleware.NewCORS().Middleware(routes.Setup())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Empires server starting", "addr", srv.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadRuleset(cfg config.GameConfig) (*ruleset.Ruleset, error) {
	doc, err := ruleset.Default()
	if cfg.RulesetPath != "" {
		doc, err = ruleset.Load(cfg.RulesetPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ruleset: %w", err)
	}
	return doc.Variant(cfg.Variant)
}
