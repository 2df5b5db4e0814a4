// Package session holds the current user identity, raw token and decoded
// claims, persisted across runs through a Storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/crmdesk/crmctl/internal/model"
	"github.com/crmdesk/crmctl/internal/token"
)

// LoginResult is what the authentication backend returns on success.
type LoginResult struct {
	Token string
	User  model.User
}

// Authenticator exchanges credentials for a token. The API client implements it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (LoginResult, error)
}

// Store owns the session lifecycle: Hydrate once at startup, Login and Logout
// on user action. It is handed to collaborators explicitly instead of living
// in package-global state.
type Store struct {
	mu      sync.Mutex
	token   string
	user    *model.User
	claims  *token.Claims
	loading bool

	storage Storage
	auth    Authenticator
	log     *zap.Logger
}

// NewStore builds a store in the loading state; call Hydrate before gating.
func NewStore(storage Storage, auth Authenticator, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{storage: storage, auth: auth, log: log, loading: true}
}

// Snapshot is an immutable view of the session for gate decisions and views.
type Snapshot struct {
	Loading bool
	Token   string
	User    *model.User
	Claims  *token.Claims
}

// Snapshot returns the current session state as a value.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var u *model.User
	if s.user != nil {
		cp := *s.user
		u = &cp
	}
	return Snapshot{Loading: s.loading, Token: s.token, User: u, Claims: s.claims}
}

// Token implements the API client's token source.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Hydrate restores the session from storage. Synchronous, never touches the
// network. Decoded claims beat the separately stored user record; a token
// that fails to decode falls back to that record; a stored record with no
// token yields a degraded session whose data calls the server will reject.
func (s *Store) Hydrate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.loading = false }()

	raw, err := s.storage.Read(KeyToken)
	if err == nil && len(raw) > 0 {
		s.token = string(raw)
		s.claims = token.Decode(s.token)
		if s.claims != nil {
			u := s.claims.User()
			s.user = &u
			return
		}
	} else if err != nil && !errors.Is(err, ErrNoEntry) {
		s.log.Warn("session: read token", zap.Error(err))
	}

	rawUser, err := s.storage.Read(KeyUser)
	if err != nil {
		if !errors.Is(err, ErrNoEntry) {
			s.log.Warn("session: read user", zap.Error(err))
		}
		return
	}
	var u model.User
	if err := json.Unmarshal(rawUser, &u); err != nil {
		s.log.Warn("session: stored user record is not valid JSON", zap.Error(err))
		return
	}
	s.user = &u
}

// Login authenticates and replaces the session on success. Any failure is
// logged and reported as false with the prior session left untouched; errors
// never propagate past this boundary.
func (s *Store) Login(ctx context.Context, username, password string) bool {
	res, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.log.Warn("login failed", zap.String("username", username), zap.Error(err))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	claims := token.Decode(res.Token)
	user := res.User
	if claims != nil {
		user = claims.User()
	}

	s.token = res.Token
	s.claims = claims
	s.user = &user

	// Both entries are written before Login returns, so a restart observes
	// the complete session or the previous one.
	if err := s.storage.Write(KeyToken, []byte(res.Token)); err != nil {
		s.log.Warn("session: persist token", zap.Error(err))
	}
	raw, _ := json.Marshal(user)
	if err := s.storage.Write(KeyUser, raw); err != nil {
		s.log.Warn("session: persist user", zap.Error(err))
	}
	return true
}

// Logout clears the session in memory and in storage. Idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.claims = nil
	if err := s.storage.Remove(KeyToken); err != nil {
		s.log.Warn("session: remove token", zap.Error(err))
	}
	if err := s.storage.Remove(KeyUser); err != nil {
		s.log.Warn("session: remove user", zap.Error(err))
	}
}
