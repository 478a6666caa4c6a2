package handlers

import (
	"log/slog"
	"net/http"

	"empires-server/internal/game"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/response"
)

type GameStatusResponse struct {
	Game      string `json:"game"`
	Games     int    `json:"games"`
	Active    int    `json:"active"`
	Completed int    `json:"completed"`
}

type GameStatusHandler struct {
	service *game.Service
}

func NewGameStatusHandler(service *game.Service) *GameStatusHandler {
	return &GameStatusHandler{service: service}
}

func (h *GameStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "game_status")

	games, err := h.service.GetAllGames(ctx)
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to list games", err))
		return
	}

	resp := GameStatusResponse{Game: "Empires", Games: len(games)}
	for _, g := range games {
		if g.Status == game.GameStatusCompleted {
			resp.Completed++
		} else {
			resp.Active++
		}
	}

	response.Success(w, http.StatusOK, resp)
}
