package server

import (
	"log/slog"
	"net/http"

	"empires-server/internal/game"
	gameHandlers "empires-server/internal/game/handlers"
	serverHandlers "empires-server/internal/server/handlers"
	"empires-server/internal/shared/database"
	"empires-server/internal/shared/redis"
)

type Routes struct {
	db          *database.DB
	redis       *redis.Client
	gameService *game.Service
	logger      *slog.Logger
}

func NewRoutes(db *database.DB, rdb *redis.Client, gameService *game.Service, logger *slog.Logger) *Routes {
	return &Routes{
		db:          db,
		redis:       rdb,
		gameService: gameService,
		logger:      logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.redis)
	gameStatusHandler := gameHandlers.NewGameStatusHandler(r.gameService)
	gameHandler := gameHandlers.NewGameHandler(r.gameService)

	mux.Handle("/api/server/health", healthHandler)
	mux.Handle("/api/game/status", gameStatusHandler)
	mux.HandleFunc("/api/games", gameHandler.GetGames)
	mux.HandleFunc("/api/games/create", gameHandler.CreateGame)
	mux.HandleFunc("/api/games/{id}", gameHandler.GetGame)
	mux.HandleFunc("/api/games/{id}/advance", gameHandler.AdvanceTurn)
	mux.HandleFunc("/api/games/{id}/actions", gameHandler.Act)
	mux.HandleFunc("/api/games/{id}/reports/{turn}", gameHandler.GetReport)

	logger.Info("Routes configured successfully",
		"endpoints", []string{
			"/api/server/health", "/api/game/status", "/api/games", "/api/games/create",
			"/api/games/{id}", "/api/games/{id}/advance", "/api/games/{id}/actions",
			"/api/games/{id}/reports/{turn}",
		},
	)

	return mux
}
