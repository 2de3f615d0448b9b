package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired, log in again")
)

// Token store keys.
const (
	keyAccess  = "auth.access_token"
	keyRefresh = "auth.refresh_token"
)

// Tokens is the credential pair issued by the backend.
type Tokens struct {
	Access  string `json:"accessToken" validate:"required"`
	Refresh string `json:"refreshToken"`
}

// TokenStore is the keyed key-value store tokens are persisted in.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Authenticator exchanges credentials for tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// Session holds the current credentials. It is created explicitly and
// passed to whatever needs to authenticate requests.
type Session struct {
	store TokenStore
	api   Authenticator
	skew  time.Duration
	now   func() time.Time

	refreshGroup singleflight.Group

	mu     sync.Mutex
	tokens Tokens
	claims Claims
}

// NewSession creates a Session. skew is how long before expiry the access
// token is considered stale.
func NewSession(store TokenStore, api Authenticator, skew time.Duration) *Session {
	return &Session{
		store: store,
		api:   api,
		skew:  skew,
		now:   time.Now,
	}
}

// Init loads persisted tokens. A missing or unreadable access token leaves
// the session logged out.
func (s *Session) Init(ctx context.Context) error {
	access, ok, err := s.store.Get(ctx, keyAccess)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	if !ok {
		return nil
	}
	refresh, _, err := s.store.Get(ctx, keyRefresh)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}

	claims, err := ParseClaims(access)
	if err != nil {
		// Unreadable token from an older install; drop it.
		return s.Teardown(ctx)
	}

	s.mu.Lock()
	s.tokens = Tokens{Access: access, Refresh: refresh}
	s.claims = claims
	s.mu.Unlock()
	return nil
}

// Teardown forgets the credentials in memory and in the store.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.claims = Claims{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, keyAccess); err != nil {
		return err
	}
	return s.store.Delete(ctx, keyRefresh)
}

// Login authenticates and persists the new tokens.
func (s *Session) Login(ctx context.Context, username, password string) (Claims, error) {
	tokens, err := s.api.Login(ctx, username, password)
	if err != nil {
		return Claims{}, err
	}
	return s.adopt(ctx, tokens)
}

// Claims returns the identity of the logged-in user.
func (s *Session) Claims() (Claims, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims, s.tokens.Access != ""
}

// Token returns a usable access token, refreshing it first when it expires
// within the skew window.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	tokens, claims := s.tokens, s.claims
	s.mu.Unlock()

	if tokens.Access == "" {
		return "", ErrNotLoggedIn
	}
	if !claims.ExpiresWithin(s.now(), s.skew) {
		return tokens.Access, nil
	}
	if tokens.Refresh == "" {
		return "", ErrSessionExpired
	}

	v, err, _ := s.refreshGroup.Do(tokens.Refresh, func() (any, error) {
		fresh, err := s.api.Refresh(ctx, tokens.Refresh)
		if err != nil {
			return nil, err
		}
		if _, err := s.adopt(ctx, fresh); err != nil {
			return nil, err
		}
		return fresh.Access, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return v.(string), nil
}

func (s *Session) adopt(ctx context.Context, tokens Tokens) (Claims, error) {
	claims, err := ParseClaims(tokens.Access)
	if err != nil {
		return Claims{}, fmt.Errorf("read access token: %w", err)
	}
	if tokens.Refresh == "" {
		// Some refresh endpoints only rotate the access token.
		s.mu.Lock()
		tokens.Refresh = s.tokens.Refresh
		s.mu.Unlock()
	}

	if err := s.store.Set(ctx, keyAccess, tokens.Access); err != nil {
		return Claims{}, fmt.Errorf("save access token: %w", err)
	}
	if err := s.store.Set(ctx, keyRefresh, tokens.Refresh); err != nil {
		return Claims{}, fmt.Errorf("save refresh token: %w", err)
	}

	s.mu.Lock()
	s.tokens = tokens
	s.claims = claims
	s.mu.Unlock()
	return claims, nil
}
