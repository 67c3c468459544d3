/**
 * @description
 * This package owns the client session: the bearer credential, the current
 * user identity and the pending registration email. A Session is created
 * once, injected into its callers and synchronized with a durable Store
 * through an explicit Load/Save/Clear lifecycle.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: reads the exp claim of stored tokens (unverified).
 */
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// State is the position in the authentication progression.
type State int

const (
	StateUnauthenticated State = iota
	StateCodeRequested
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateCodeRequested:
		return "code_requested"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Token        string       `json:"token,omitempty"`
	User         *domain.User `json:"user,omitempty"`
	PendingEmail string       `json:"pendingEmail,omitempty"`
}

// Store persists snapshots. Load returns (nil, nil) when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context) error
}

// Session is safe for concurrent use: outgoing requests read the token while
// the auth flow may be writing it.
type Session struct {
	mu sync.RWMutex
	// writeMu orders state changes so that the store and memory agree.
	writeMu      sync.Mutex
	store        Store
	logger       *slog.Logger
	now          func() time.Time
	token        string
	user         *domain.User
	pendingEmail string
}

// New creates an empty session backed by store.
func New(store Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{store: store, logger: logger, now: time.Now}
}

// Load restores the session from the store. A stored credential whose JWT
// exp claim is in the past is discarded along with the stored snapshot.
func (s *Session) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user, s.pendingEmail = "", nil, ""
	if snap == nil {
		return nil
	}

	s.pendingEmail = snap.PendingEmail
	if snap.Token == "" || snap.User == nil {
		return nil
	}
	if exp, ok := tokenExpiry(snap.Token); ok && !exp.After(s.now()) {
		s.logger.Info("stored session expired; clearing", "component", "session", "expired_at", exp)
		if err := s.store.Delete(ctx); err != nil {
			return fmt.Errorf("failed to drop expired session: %w", err)
		}
		return nil
	}

	s.token = snap.Token
	user := *snap.User
	s.user = &user
	return nil
}

// Save writes the current state to the store.
func (s *Session) Save(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()
	return s.persist(ctx, snap)
}

func (s *Session) persist(ctx context.Context, snap Snapshot) error {
	if snap.Token == "" && snap.PendingEmail == "" {
		if err := s.store.Delete(ctx); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		return nil
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// commit applies change to a copy of the current state and makes it current
// only once the store has accepted it. On a store error the session is left
// as it was.
func (s *Session) commit(ctx context.Context, change func(*Snapshot)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := s.snapshotLocked()
	s.mu.RUnlock()
	change(&next)

	if err := s.persist(ctx, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.token, s.user, s.pendingEmail = next.Token, next.User, next.PendingEmail
	s.mu.Unlock()
	return nil
}

// Clear drops credential, identity and pending email, in memory and in the
// store. It succeeds regardless of the prior state.
func (s *Session) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token, s.user, s.pendingEmail = "", nil, ""
	s.mu.Unlock()

	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// SetAuth records a successful verify or login and persists it.
func (s *Session) SetAuth(ctx context.Context, resp domain.AuthResponse) error {
	if strings.TrimSpace(resp.Token) == "" {
		return errors.New("refusing to store an empty credential")
	}
	if resp.User.ID == 0 {
		return errors.New("refusing to store a credential without a user")
	}

	return s.commit(ctx, func(next *Snapshot) {
		user := resp.User
		next.Token, next.User, next.PendingEmail = resp.Token, &user, ""
	})
}

// MarkCodeRequested remembers the email a verification code was sent to.
// An authenticated session is left untouched apart from the pending email.
func (s *Session) MarkCodeRequested(ctx context.Context, email string) error {
	return s.commit(ctx, func(next *Snapshot) {
		next.PendingEmail = strings.TrimSpace(email)
	})
}

// Token implements apiclient.CredentialSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// PendingEmail is the address awaiting verification, if any.
func (s *Session) PendingEmail() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingEmail
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.token != "" && s.user != nil:
		return StateAuthenticated
	case s.pendingEmail != "":
		return StateCodeRequested
	default:
		return StateUnauthenticated
	}
}

func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

func (s *Session) IsAdmin() bool {
	return s.User().IsAdmin()
}

func (s *Session) IsManager() bool {
	return s.User().IsManager()
}

// CanAccessAdmin gates admin screens; the server still authorizes every call.
func (s *Session) CanAccessAdmin() bool {
	return s.User().CanAccessAdmin()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{Token: s.token, PendingEmail: s.pendingEmail}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	return snap
}

// tokenExpiry reads exp from a JWT without verifying it. Opaque tokens
// report ok=false and are kept as-is.
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
