package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"empires-server/internal/game"
	"empires-server/internal/ruleset"
	"empires-server/internal/turn"
)

func newMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc, err := game.NewService(game.NewMemoryRepository(), turn.NewMemoryLocker(),
		ruleset.MustDefault(ruleset.VariantUnified),
		game.Defaults{Bots: 4, ProtectionTurns: -1, LockTTL: time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	h := NewGameHandler(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/games", h.GetGames)
	mux.HandleFunc("/api/games/create", h.CreateGame)
	mux.HandleFunc("/api/games/{id}", h.GetGame)
	mux.HandleFunc("/api/games/{id}/advance", h.AdvanceTurn)
	mux.HandleFunc("/api/games/{id}/actions", h.Act)
	mux.HandleFunc("/api/games/{id}/reports/{turn}", h.GetReport)
	mux.Handle("/api/game/status", NewGameStatusHandler(svc))
	return mux
}

type envelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Type string `json:"type"`
	} `json:"error"`
	Data json.RawMessage `json:"data"`
}

func do(t *testing.T, mux http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: bad envelope: %v", method, path, err)
	}
	return rec.Code, env
}

func TestGameLifecycle(t *testing.T) {
	mux := newMux(t)

	code, env := do(t, mux, http.MethodPost, "/api/games/create", `{"seed": 8, "player_name": "Ada"}`)
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("create: %d %+v", code, env)
	}
	var g game.Game
	if err := json.Unmarshal(env.Data, &g); err != nil {
		t.Fatal(err)
	}
	if g.ID != 1 || g.Empires != 5 {
		t.Fatalf("unexpected game %+v", g)
	}

	code, env = do(t, mux, http.MethodPost, "/api/games/1/actions", `{"kind":"build","unit":"soldiers","quantity":5}`)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("action: %d %+v", code, env)
	}

	code, env = do(t, mux, http.MethodPost, "/api/games/1/actions", `{"kind":"build","unit":"soldiers","quantity":2.5}`)
	if code != http.StatusBadRequest || env.Success || env.Error.Type != "validation" {
		t.Fatalf("fractional quantity: %d %+v", code, env)
	}

	code, env = do(t, mux, http.MethodPost, "/api/games/1/advance", "")
	if code != http.StatusOK || !env.Success {
		t.Fatalf("advance: %d %+v", code, env)
	}

	code, env = do(t, mux, http.MethodGet, "/api/games/1/reports/1", "")
	if code != http.StatusOK || !env.Success {
		t.Fatalf("report: %d %+v", code, env)
	}

	code, env = do(t, mux, http.MethodGet, "/api/games/1", "")
	if err := json.Unmarshal(env.Data, &g); err != nil || code != http.StatusOK {
		t.Fatalf("get: %d %v", code, err)
	}
	if g.CurrentTurn != 2 {
		t.Fatalf("expected turn 2, got %d", g.CurrentTurn)
	}

	code, env = do(t, mux, http.MethodGet, "/api/game/status", "")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"active":1`) {
		t.Fatalf("status: %d %s", code, env.Data)
	}
}

func TestHandlerRejections(t *testing.T) {
	mux := newMux(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "/api/games/1/advance", "", http.StatusMethodNotAllowed},
		{"bad id", http.MethodGet, "/api/games/abc", "", http.StatusBadRequest},
		{"missing game", http.MethodGet, "/api/games/7", "", http.StatusNotFound},
		{"bad json", http.MethodPost, "/api/games/create", "{", http.StatusBadRequest},
		{"bad turn", http.MethodGet, "/api/games/1/reports/zero", "", http.StatusBadRequest},
		{"too many bots", http.MethodPost, "/api/games/create", `{"bots": 900}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, mux, tt.method, tt.path, tt.body)
			if code != tt.status || env.Success {
				t.Fatalf("expected %d, got %d %+v", tt.status, code, env)
			}
		})
	}
}
