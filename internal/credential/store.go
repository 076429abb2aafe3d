package credential

import (
	"database/sql"
	"fmt"

	"github.com/ameentrust/donorgate/internal/model"
)

// Tier names where a token pair lives. Durable survives restarts
// (sqlite); Ephemeral is scoped to this process. Registration and
// "remember me" logins pick Durable; everything else is Ephemeral.
type Tier int

const (
	TierDurable Tier = iota
	TierEphemeral
)

func (t Tier) String() string {
	if t == TierDurable {
		return "durable"
	}
	return "ephemeral"
}

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// Store keeps the session's token pair in exactly one of two tiers.
// Writing to a tier clears the other first, so a credential can never be
// resurrected from the tier the caller opted out of.
type Store struct {
	durable   kv
	ephemeral kv
}

// NewStore creates a Store with a sqlite-backed durable tier and an
// in-memory ephemeral tier.
func NewStore(db *sql.DB) *Store {
	return &Store{
		durable:   newSQLiteKV(db),
		ephemeral: newMemoryKV(),
	}
}

// Read returns the stored token pair along with whether one was found.
// The durable tier is checked first and wins if both are populated.
func (s *Store) Read() (model.TokenPair, bool, error) {
	for _, tier := range []kv{s.durable, s.ephemeral} {
		access, ok, err := tier.Get(keyAccessToken)
		if err != nil {
			return model.TokenPair{}, false, err
		}
		if !ok {
			continue
		}
		refresh, _, err := tier.Get(keyRefreshToken)
		if err != nil {
			return model.TokenPair{}, false, err
		}
		return model.TokenPair{AccessToken: access, RefreshToken: refresh}, true, nil
	}
	return model.TokenPair{}, false, nil
}

// Write clears the other tier, then stores both tokens in the chosen
// one. The clear happens first so a failure mid-write can leave at most
// one tier populated, never both.
func (s *Store) Write(pair model.TokenPair, tier Tier) error {
	target, other := s.ephemeral, s.durable
	if tier == TierDurable {
		target, other = s.durable, s.ephemeral
	}

	if err := clearTokens(other); err != nil {
		return fmt.Errorf("clear %s tier: %w", otherTier(tier), err)
	}
	if err := target.Set(keyAccessToken, pair.AccessToken); err != nil {
		return fmt.Errorf("write %s tier: %w", tier, err)
	}
	if err := target.Set(keyRefreshToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("write %s tier: %w", tier, err)
	}
	return nil
}

// Clear removes tokens from both tiers. Safe to call when nothing is
// stored.
func (s *Store) Clear() error {
	if err := clearTokens(s.durable); err != nil {
		return fmt.Errorf("clear durable tier: %w", err)
	}
	if err := clearTokens(s.ephemeral); err != nil {
		return fmt.Errorf("clear ephemeral tier: %w", err)
	}
	return nil
}

// ReadTier returns the pair stored in one specific tier. Session logic
// never needs this; it exists for inspection and tests.
func (s *Store) ReadTier(tier Tier) (model.TokenPair, bool, error) {
	store := s.ephemeral
	if tier == TierDurable {
		store = s.durable
	}
	access, ok, err := store.Get(keyAccessToken)
	if err != nil || !ok {
		return model.TokenPair{}, false, err
	}
	refresh, _, err := store.Get(keyRefreshToken)
	if err != nil {
		return model.TokenPair{}, false, err
	}
	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, true, nil
}

// RememberEmail stores the last login email for a portal in the durable
// tier. Independent of token tiers.
func (s *Store) RememberEmail(portal, email string) error {
	return s.durable.Set("remembered_email:"+portal, email)
}

// RememberedEmail returns the stored login email for a portal, if any.
func (s *Store) RememberedEmail(portal string) (string, bool, error) {
	return s.durable.Get("remembered_email:" + portal)
}

// ForgetEmail removes the remembered email for a portal.
func (s *Store) ForgetEmail(portal string) error {
	return s.durable.Delete("remembered_email:" + portal)
}

func clearTokens(store kv) error {
	if err := store.Delete(keyAccessToken); err != nil {
		return err
	}
	return store.Delete(keyRefreshToken)
}

func otherTier(t Tier) Tier {
	if t == TierDurable {
		return TierEphemeral
	}
	return TierDurable
}
