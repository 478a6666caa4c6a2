package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthWithDisabledBackends(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env struct {
		Data HealthResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Data.Database != "disabled" || env.Data.Redis != "disabled" {
		t.Fatalf("unexpected health %+v", env.Data)
	}
}
