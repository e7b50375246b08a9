package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
)

// AuthAPI is the subset of the auth service the store needs.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.LoginCredentials) (*domain.User, error)
	Register(ctx context.Context, data domain.RegisterData) (*domain.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// AuthState is either anonymous (User nil) or authenticated.
type AuthState struct {
	Authenticated bool
	User          *domain.User
}

func (s AuthState) clone() AuthState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// AuthStore tracks who is logged in. Calls are not deduplicated; the last
// one to finish wins.
type AuthStore struct {
	api    AuthAPI
	logger *slog.Logger

	mu    sync.RWMutex
	state AuthState

	subs listeners[AuthState]
}

// NewAuthStore returns an anonymous store backed by api.
func NewAuthStore(api AuthAPI, logger *slog.Logger) *AuthStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthStore{api: api, logger: logger}
}

// CheckAuth asks the server who owns the session. Any failure, including an
// unreachable server, leaves the store anonymous and is not reported.
func (s *AuthStore) CheckAuth(ctx context.Context) bool {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		s.logger.Debug("no active session", slog.String("error", err.Error()))
		s.set(AuthState{})
		return false
	}
	s.set(AuthState{Authenticated: true, User: user})
	return true
}

// Login establishes a session. On failure the state is unchanged and the
// server's error is returned as is.
func (s *AuthStore) Login(ctx context.Context, creds domain.LoginCredentials) (*domain.User, error) {
	user, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	s.set(AuthState{Authenticated: true, User: user})
	s.logger.Info("logged in", slog.String("username", user.Username))
	return user, nil
}

// Register creates an account without logging it in.
func (s *AuthStore) Register(ctx context.Context, data domain.RegisterData) (*domain.User, error) {
	return s.api.Register(ctx, data)
}

// Logout ends the session. The store is anonymous afterwards even when the
// server call fails; that error is returned for logging only.
func (s *AuthStore) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	if err != nil {
		s.logger.Warn("logout request failed", slog.String("error", err.Error()))
	}
	s.set(AuthState{})
	return err
}

// Snapshot returns a copy of the current state.
func (s *AuthStore) Snapshot() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// IsAuthenticated reports whether a user is logged in.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated
}

// Subscribe registers fn to receive every new state, in order. The returned
// function removes it.
func (s *AuthStore) Subscribe(fn func(AuthState)) func() {
	return s.subs.add(fn)
}

func (s *AuthStore) set(next AuthState) {
	s.subs.publish(func() AuthState {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.state = next
		return next.clone()
	})
}
