package response

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"empires-server/internal/shared/errors"
)

func TestErrorWritesEnvelope(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/games/1/actions", nil)

	Error(rec, req, logger, errors.Preconditionf("queue is full"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Success || env.Error == nil || env.Error.Type != "precondition" || env.Error.Message != "queue is full" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestSuccessWritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, map[string]int{"turn": 3})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var env struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if !env.Success || env.Data["turn"] != 3 {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestStatusCodes(t *testing.T) {
	tests := map[errors.ErrorType]int{
		errors.ErrorTypeValidation:   http.StatusBadRequest,
		errors.ErrorTypePrecondition: http.StatusUnprocessableEntity,
		errors.ErrorTypeNotFound:     http.StatusNotFound,
		errors.ErrorTypeConflict:     http.StatusConflict,
		errors.ErrorTypeInternal:     http.StatusInternalServerError,
	}
	for typ, want := range tests {
		if got := StatusCode(typ); got != want {
			t.Errorf("StatusCode(%s) = %d, want %d", typ, got, want)
		}
	}
}
