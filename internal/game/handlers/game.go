package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"empires-server/internal/actions"
	"empires-server/internal/game"
	"empires-server/internal/shared/errors"
	"empires-server/internal/shared/response"
)

type GameHandler struct {
	service *game.Service
}

func NewGameHandler(service *game.Service) *GameHandler {
	return &GameHandler{service: service}
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var gameConfig game.GameConfig
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&gameConfig); err != nil {
			response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
			return
		}
	}

	createdGame, err := h.service.CreateGame(ctx, gameConfig)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, createdGame)
}

func (h *GameHandler) GetGames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_games")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	games, err := h.service.GetAllGames(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, games)
}

func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_game")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := gameIDFrom(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	g, err := h.service.GetGame(r.Context(), gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, g)
}

func (h *GameHandler) AdvanceTurn(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "advance_turn")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := gameIDFrom(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	rep, err := h.service.AdvanceTurn(r.Context(), gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, rep)
}

func (h *GameHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_report")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := gameIDFrom(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	turnNumber, err := strconv.Atoi(r.PathValue("turn"))
	if err != nil || turnNumber < 1 {
		response.Error(w, r, logger, errors.WrapValidation("invalid turn format", err))
		return
	}

	rep, err := h.service.GetReport(r.Context(), gameID, turnNumber)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, rep)
}

// Act accepts one player action. A rejected action is written with the
// status its error type maps to.
func (h *GameHandler) Act(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "game_action")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := gameIDFrom(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var action actions.Action
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	env, err := h.service.Act(r.Context(), gameID, action)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if !env.Success {
		logger.Debug("Action rejected", "kind", action.Kind, "error_type", env.Error.Type)
	}
	response.JSON(w, env)
}

func gameIDFrom(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, errors.Validation("game ID is required")
	}
	gameID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || gameID <= 0 {
		return 0, errors.WrapValidation("invalid game ID format", err)
	}
	return gameID, nil
}
