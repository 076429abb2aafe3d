package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ameentrust/donorgate/internal/api"
	"github.com/ameentrust/donorgate/internal/session"
)

// AuthHandler exposes the session manager to the local UI.
type AuthHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewAuthHandler(sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Login authenticates against the donor portal.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, api.PortalDonor)
}

// AdminLogin authenticates against the administrative portal.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, api.PortalAdmin)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, portal api.Portal) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	if err := h.sessions.Login(r.Context(), portal, req.Email, req.Password, req.Remember); err != nil {
		h.logger.Warn("login failed", "portal", string(portal), "error", err)
		writeBackendError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    h.sessions.CurrentUser(),
		"isAdmin": h.sessions.IsAdmin(),
	})
}

// Register creates an account and signs the donor in durably.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, email and password are required"})
		return
	}

	if err := h.sessions.Register(r.Context(), req); err != nil {
		h.logger.Warn("register failed", "error", err)
		writeBackendError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": h.sessions.CurrentUser()})
}

// Logout ends the session. Always answers ok; logging out twice is fine.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(); err != nil {
		h.logger.Warn("logout", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me reports the current session, refreshing the identity if the access
// token is near expiry.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.EnsureFresh(r.Context()); err != nil {
		h.logger.Debug("identity refresh", "error", err)
	}

	user := h.sessions.CurrentUser()
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    user,
		"isAdmin": h.sessions.IsAdmin(),
	})
}

// UpdateProfile applies a partial profile update.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.sessions.UpdateProfile(r.Context(), req); err != nil {
		h.logger.Warn("update profile", "error", err)
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": h.sessions.CurrentUser()})
}

// RememberedEmail returns the last remembered login email for a portal,
// so the login form can pre-fill it.
func (h *AuthHandler) RememberedEmail(w http.ResponseWriter, r *http.Request) {
	portal := api.PortalDonor
	if r.URL.Query().Get("portal") == string(api.PortalAdmin) {
		portal = api.PortalAdmin
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": h.sessions.RememberedEmail(portal)})
}
