package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ameentrust/donorgate/internal/api"
	"github.com/ameentrust/donorgate/internal/credential"
	"github.com/ameentrust/donorgate/internal/database"
	"github.com/ameentrust/donorgate/internal/model"
	"github.com/ameentrust/donorgate/internal/session"
)

func setupAuth(t *testing.T) *AuthHandler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/user/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "acc-1",
			"refreshToken": "ref-1",
			"user":         model.User{ID: "u1", Email: req["email"], Role: "user"},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	sessions := session.NewManager(api.Config{BaseURL: server.URL}, credential.NewStore(db), session.Config{}, logger)
	return NewAuthHandler(sessions, logger)
}

func TestLoginHandlerSuccess(t *testing.T) {
	h := setupAuth(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"fatima@example.com","password":"correct","remember":true}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User    *model.User `json:"user"`
		IsAdmin bool        `json:"isAdmin"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.User == nil || resp.User.ID != "u1" {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.IsAdmin {
		t.Error("regular user flagged as admin")
	}
}

func TestLoginHandlerRejection(t *testing.T) {
	h := setupAuth(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"fatima@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != "Invalid credentials" {
		t.Errorf("error = %q, want backend message", resp["error"])
	}
}

func TestLoginHandlerMissingFields(t *testing.T) {
	h := setupAuth(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"x@y.z"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMeUnauthenticated(t *testing.T) {
	h := setupAuth(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogoutAlwaysOK(t *testing.T) {
	h := setupAuth(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
		rec := httptest.NewRecorder()
		h.Logout(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("logout #%d status = %d, want 200", i+1, rec.Code)
		}
	}
}
