package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
)

type AuthService struct {
	api Requester
}

func NewAuthService(api Requester) *AuthService {
	return &AuthService{api: api}
}

// Register creates an account. The server does not log the new user in.
func (s *AuthService) Register(ctx context.Context, data domain.RegisterData) (*domain.User, error) {
	var user domain.User
	if err := s.api.Do(ctx, http.MethodPost, "/auth/register/", data, &user); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, creds domain.LoginCredentials) (*domain.User, error) {
	var user domain.User
	if err := s.api.Do(ctx, http.MethodPost, "/auth/login/", creds, &user); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &user, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.api.Do(ctx, http.MethodPost, "/auth/logout/", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CurrentUser returns the user bound to the session cookie.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := s.api.Do(ctx, http.MethodGet, "/auth/user/", nil, &user); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &user, nil
}

// CSRFToken asks the server for a token. The server also sets the csrftoken
// cookie, which is where later requests read it from.
func (s *AuthService) CSRFToken(ctx context.Context) (string, error) {
	var resp struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := s.api.Do(ctx, http.MethodGet, "/csrf-token/", nil, &resp); err != nil {
		return "", fmt.Errorf("csrf token: %w", err)
	}
	return resp.CSRFToken, nil
}
