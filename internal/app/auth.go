/**
 * @description
 * This file contains the authentication flow used by the front-end. It runs
 * caller-side validation, delegates to the API access layer and moves the
 * session through its states.
 */
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// AuthAPI is the subset of apiclient.AuthAPI the flow needs.
type AuthAPI interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.RegisterResponse, error)
	Verify(ctx context.Context, email, code string) (*domain.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*domain.AuthResponse, error)
}

// SessionStore is the subset of session.Session the flow writes to.
type SessionStore interface {
	SetAuth(ctx context.Context, resp domain.AuthResponse) error
	MarkCodeRequested(ctx context.Context, email string) error
	PendingEmail() string
	Clear(ctx context.Context) error
}

// RegisterInput is what the registration form collects.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// AuthService orchestrates register, verify, login and logout.
type AuthService struct {
	api     AuthAPI
	session SessionStore
	logger  *slog.Logger
}

func NewAuthService(api AuthAPI, session SessionStore, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AuthService{api: api, session: session, logger: logger}
}

// Register validates the form, asks the server for a verification code and
// remembers which email is awaiting it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.RegisterResponse, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	resp, err := s.api.Register(ctx, domain.RegisterRequest{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		return nil, err
	}
	if err := s.session.MarkCodeRequested(ctx, resp.Email); err != nil {
		return nil, err
	}
	s.logger.Info("verification code requested", "component", "auth_flow", "email", resp.Email)
	return resp, nil
}

// Verify exchanges the code for a credential. An empty email falls back to
// the pending one. On failure the session is left as it was.
func (s *AuthService) Verify(ctx context.Context, email, code string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		email = s.session.PendingEmail()
	}
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}

	resp, err := s.api.Verify(ctx, email, code)
	if err != nil {
		s.logger.Warn("verification failed", "component", "auth_flow", "email", email, "error", err)
		return nil, err
	}
	return s.establish(ctx, resp)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed", "component", "auth_flow", "error", err)
		return nil, err
	}
	return s.establish(ctx, resp)
}

// Logout clears the session regardless of its state.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.session.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *AuthService) establish(ctx context.Context, resp *domain.AuthResponse) (*domain.User, error) {
	if err := s.session.SetAuth(ctx, *resp); err != nil {
		return nil, err
	}
	s.logger.Info("session established", "component", "auth_flow", "user_id", resp.User.ID, "role", resp.User.Role)
	user := resp.User
	return &user, nil
}
