package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ameentrust/donorgate/internal/api"
	"github.com/ameentrust/donorgate/internal/credential"
	"github.com/ameentrust/donorgate/internal/model"
)

// Config holds session manager configuration.
type Config struct {
	// RefreshWindow is how close to its expiry an access token may get
	// before EnsureFresh triggers an identity refresh.
	RefreshWindow time.Duration
}

// Manager owns the current-user state and every transition of it. All
// backend calls inject the access token at call time through the API
// client's token source; there is no process-wide default header.
type Manager struct {
	mu     sync.RWMutex
	tokens model.TokenPair
	user   *model.User

	backend *api.Client
	creds   *credential.Store
	cfg     Config
	logger  *slog.Logger
}

// NewManager creates a session manager and the backend API client bound
// to it. The client reads the manager's current access token on every
// request.
func NewManager(apiCfg api.Config, creds *credential.Store, cfg Config, logger *slog.Logger) *Manager {
	if cfg.RefreshWindow == 0 {
		cfg.RefreshWindow = 2 * time.Minute
	}
	m := &Manager{
		creds:  creds,
		cfg:    cfg,
		logger: logger,
	}
	m.backend = api.NewClient(apiCfg, m.AccessToken)
	return m
}

// Backend returns the token-injecting API client so other components
// share the session's identity context.
func (m *Manager) Backend() *api.Client {
	return m.backend
}

// AccessToken returns the current access token, or "" when logged out.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.AccessToken
}

// CurrentUser returns a copy of the current user, or nil when none has
// been fetched.
func (m *Manager) CurrentUser() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether a user is currently loaded. Derived,
// never stored.
func (m *Manager) IsAuthenticated() bool {
	return m.CurrentUser() != nil
}

// IsAdmin reports whether the current user holds the admin role.
func (m *Manager) IsAdmin() bool {
	u := m.CurrentUser()
	return u != nil && u.Role == "admin"
}

// Resume loads any stored credential on startup and, if one is present,
// refreshes the identity behind it. Safe to call with nothing stored.
func (m *Manager) Resume(ctx context.Context) error {
	pair, ok, err := m.creds.Read()
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if !ok || pair.Empty() {
		return nil
	}

	m.mu.Lock()
	m.tokens = pair
	m.mu.Unlock()

	return m.RefreshIdentity(ctx)
}

// Login authenticates against the portal-specific endpoint. remember
// picks the durable tier; otherwise the credential lives only as long
// as this process. Token and user state are applied together or not at
// all.
func (m *Manager) Login(ctx context.Context, portal api.Portal, email, password string, remember bool) error {
	result, err := m.backend.Login(ctx, portal, email, password)
	if err != nil {
		return err
	}

	tier := credential.TierEphemeral
	if remember {
		tier = credential.TierDurable
	}
	if err := m.establish(result, tier); err != nil {
		return err
	}

	if remember {
		if err := m.creds.RememberEmail(string(portal), email); err != nil {
			m.logger.Warn("remember email", "error", err)
		}
	} else if err := m.creds.ForgetEmail(string(portal)); err != nil {
		m.logger.Warn("forget email", "error", err)
	}
	return nil
}

// Register creates an account. Registration always selects the durable
// tier: a fresh account implies the donor wants to stay signed in.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) error {
	result, err := m.backend.Register(ctx, req)
	if err != nil {
		return err
	}
	return m.establish(result, credential.TierDurable)
}

// establish persists the credential, then publishes tokens and user to
// memory in one step. The storage write completes before the token is
// visible to outgoing requests.
func (m *Manager) establish(result api.AuthResult, tier credential.Tier) error {
	if err := m.creds.Write(result.Tokens, tier); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	user := result.User
	m.mu.Lock()
	m.tokens = result.Tokens
	m.user = &user
	m.mu.Unlock()

	m.logger.Info("session established", "tier", tier.String(), "user", user.ID)
	return nil
}

// RefreshIdentity re-fetches who the current token belongs to. The
// outcome decides the session's fate:
//
//   - auth rejection: the credential is proven invalid, full logout
//   - any other backend response: user nulled, tokens kept (transient
//     outage; the credential may still be good)
//   - no response at all: nothing changes, resolved on the next attempt
//
// Only a proven-invalid credential destroys the session.
func (m *Manager) RefreshIdentity(ctx context.Context) error {
	if m.AccessToken() == "" {
		return nil
	}

	user, err := m.backend.Me(ctx)
	if err == nil {
		m.mu.Lock()
		m.user = &user
		m.mu.Unlock()
		return nil
	}

	switch {
	case api.IsAuthInvalid(err):
		m.logger.Info("identity refresh rejected, ending session")
		if lerr := m.Logout(); lerr != nil {
			m.logger.Warn("logout after rejected refresh", "error", lerr)
		}
	case api.IsNetwork(err):
		m.logger.Warn("identity refresh unreachable, keeping session", "error", err)
	default:
		m.logger.Warn("identity refresh failed, keeping tokens", "error", err)
		m.mu.Lock()
		m.user = nil
		m.mu.Unlock()
	}
	return err
}

// EnsureFresh refreshes the identity when the access token carries no
// expiry claim or its expiry falls inside the refresh window. A token
// comfortably far from expiry costs nothing.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	token := m.AccessToken()
	if token == "" {
		return nil
	}
	if exp, ok := tokenExpiry(token); ok && time.Until(exp) > m.cfg.RefreshWindow {
		return nil
	}
	return m.RefreshIdentity(ctx)
}

// Logout clears both storage tiers and the in-memory session. Idempotent.
func (m *Manager) Logout() error {
	err := m.creds.Clear()

	m.mu.Lock()
	m.tokens = model.TokenPair{}
	m.user = nil
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// UpdateProfile applies a partial profile update and replaces the
// current user with the backend's view.
func (m *Manager) UpdateProfile(ctx context.Context, update api.ProfileUpdate) error {
	user, err := m.backend.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return nil
}

// RememberedEmail returns the last remembered login email for a portal.
func (m *Manager) RememberedEmail(portal api.Portal) string {
	email, ok, err := m.creds.RememberedEmail(string(portal))
	if err != nil || !ok {
		return ""
	}
	return email
}

// tokenExpiry extracts the exp claim without verifying the signature.
// Verification is the backend's job; the client only wants a refresh
// hint.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
