package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// AuthAPI covers registration, code verification and login. It does not touch
// the session; callers persist the returned credential.
type AuthAPI struct {
	client *Client
	paths  Paths
}

// Register asks the server to issue a verification code. No session is created.
func (a *AuthAPI) Register(ctx context.Context, req domain.RegisterRequest) (*domain.RegisterResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	var out domain.RegisterResponse
	if err := a.client.do(ctx, request{op: "auth.register", method: http.MethodPost, path: a.paths.AuthRegister, body: req, anon: true}, &out); err != nil {
		return nil, err
	}
	if out.Email == "" {
		out.Email = req.Email
	}
	return &out, nil
}

// Verify exchanges a verification code for a session credential.
func (a *AuthAPI) Verify(ctx context.Context, email, code string) (*domain.AuthResponse, error) {
	req := domain.VerifyRequest{Email: strings.TrimSpace(email), Code: strings.TrimSpace(code)}
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	return a.authenticate(ctx, "auth.verify", a.paths.AuthVerify, req)
}

// Login authenticates an already verified account.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	req := domain.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	return a.authenticate(ctx, "auth.login", a.paths.AuthLogin, req)
}

// authenticate maps any non-2xx answer to ErrInvalidCredentials while keeping
// the HTTPError reachable through errors.As.
func (a *AuthAPI) authenticate(ctx context.Context, op, path string, body any) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	err := a.client.do(ctx, request{op: op, method: http.MethodPost, path: path, body: body, anon: true}, &out)
	if err != nil {
		var httpErr *domain.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, httpErr)
		}
		return nil, err
	}
	if strings.TrimSpace(out.Token) == "" || out.User.ID == 0 {
		return nil, fmt.Errorf("%s: response is missing token or user", op)
	}
	return &out, nil
}
