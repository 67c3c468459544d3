package devapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
	"github.com/nsa09-nsa09/splitup-frontend/internal/locale"
)

func (s *Server) mountAuth(r chi.Router) {
	p := s.opts.Paths
	r.Group(func(r chi.Router) {
		r.Use(s.throttle)
		r.Post(p.AuthRegister, s.handleRegister)
		r.Post(p.AuthVerify, s.handleVerify)
		r.Post(p.AuthLogin, s.handleLogin)
	})
}

// handleRegister issues a verification code. The account is only created
// once the code is verified.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondWithError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := domain.Validate(req); err != nil {
		s.respondWithError(w, r, err)
		return
	}
	if _, exists := s.store.accountByEmail(req.Email); exists {
		respondWithMessage(w, http.StatusConflict, "email is already registered")
		return
	}
	if s.store.usernameTaken(req.Username) || s.store.usernamePending(req.Username, req.Email, s.now()) {
		respondWithMessage(w, http.StatusConflict, "username is already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	code, err := verificationCode()
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	expiresAt := s.now().Add(s.opts.CodeTTL)
	s.store.putPending(pendingRegistration{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Code:         code,
		ExpiresAt:    expiresAt,
	})

	event := VerificationCodeEvent{
		Email:     req.Email,
		Username:  req.Username,
		Code:      code,
		Locale:    locale.Resolve(r.Header.Get("Accept-Language")),
		ExpiresAt: expiresAt,
	}
	if err := s.notifier.CodeIssued(r.Context(), event); err != nil {
		s.logger.Error("verification code not delivered", "component", "devapi", "email", req.Email, "error", err)
		respondWithMessage(w, http.StatusServiceUnavailable, "verification code could not be sent")
		return
	}

	respondWithJSON(w, http.StatusOK, domain.RegisterResponse{
		Message: "verification code sent",
		Email:   req.Email,
	})
}

// handleVerify consumes a matching, unexpired code and creates the account.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondWithError(w, r, err)
		return
	}
	if err := domain.Validate(req); err != nil {
		s.respondWithError(w, r, err)
		return
	}

	pending, ok := s.store.takePending(req.Email, req.Code, s.now())
	if !ok {
		respondWithMessage(w, http.StatusUnauthorized, "invalid or expired verification code")
		return
	}
	user, err := s.store.createAccount(pending.Username, pending.Email, pending.PasswordHash, domain.RoleUser, s.now())
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	s.respondWithSession(w, r, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondWithError(w, r, err)
		return
	}
	if err := domain.Validate(req); err != nil {
		s.respondWithError(w, r, err)
		return
	}

	acc, ok := s.store.accountByEmail(req.Email)
	if !ok || bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(req.Password)) != nil {
		respondWithMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	s.respondWithSession(w, r, acc.User)
}

func (s *Server) respondWithSession(w http.ResponseWriter, r *http.Request, user domain.User) {
	token, err := s.tokens.issue(user, s.now())
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	if withWallet, ok := s.store.userWithWallet(user.ID); ok {
		user = withWallet
	}
	respondWithJSON(w, http.StatusOK, domain.AuthResponse{Token: token, User: user})
}

// SeedAdmin creates an administrator account unless the email is taken.
func (s *Server) SeedAdmin(username, email, password string) (domain.User, error) {
	if acc, exists := s.store.accountByEmail(email); exists {
		return acc.User, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	return s.store.createAccount(username, email, hash, domain.RoleAdmin, s.now())
}
