/**
 * @description
 * In-memory storage for the reference backend. Each entity family lives in a
 * table keyed by a server-assigned int64 id; wallet balances live in a ledger
 * guarded by a single mutex so that a withdrawal checks and debits atomically.
 */
package devapi

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

var (
	errNotFound          = errors.New("not found")
	errConflict          = errors.New("already exists")
	errInsufficientFunds = errors.New("insufficient funds")
	errUnprocessable     = errors.New("unprocessable")
)

// DefaultCurrency is the wallet currency for new accounts.
const DefaultCurrency = "KGS"

type table[T any] struct {
	mu   sync.RWMutex
	next int64
	rows map[int64]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: map[int64]T{}}
}

func (t *table[T]) insert(build func(id int64) T) T {
	row, _ := t.tryInsert(func(id int64) (T, error) { return build(id), nil })
	return row
}

// tryInsert stores the built row only when build succeeds; a failed build
// does not consume an id.
func (t *table[T]) tryInsert(build func(id int64) (T, error)) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, err := build(t.next + 1)
	if err != nil {
		var zero T
		return zero, err
	}
	t.next++
	t.rows[t.next] = row
	return row, nil
}

func (t *table[T]) get(id int64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

// update applies mutate to a copy and stores it only when mutate succeeds.
func (t *table[T]) update(id int64, mutate func(*T) error) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, errNotFound
	}
	if err := mutate(&row); err != nil {
		var zero T
		return zero, err
	}
	t.rows[id] = row
	return row, nil
}

func (t *table[T]) remove(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// list returns rows accepted by keep (all rows when keep is nil) in id order.
func (t *table[T]) list(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if row := t.rows[id]; keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

type account struct {
	User         domain.User
	PasswordHash []byte
}

type subscriptionRow struct {
	UserID int64
	domain.UserSubscription
}

// pendingRegistration is a registration waiting for its verification code.
type pendingRegistration struct {
	Username     string
	Email        string
	PasswordHash []byte
	Code         string
	ExpiresAt    time.Time
}

type ledger struct {
	mu       sync.Mutex
	nextWID  int64
	nextTxID int64
	wallets  map[int64]*domain.Wallet
	history  map[int64][]domain.Transaction
}

// Store holds every entity the reference backend serves.
type Store struct {
	serviceTypes  *table[domain.ServiceType]
	categories    *table[domain.ServiceCategory]
	services      *table[domain.Service]
	plans         *table[domain.SubscriptionPlan]
	categoryPlans *table[domain.CategoryPlan]
	speedTests    *table[domain.SpeedTestResult]
	accounts      *table[account]
	subscriptions *table[subscriptionRow]

	ledger ledger

	// signupMu serializes the email and username uniqueness checks with the
	// insert.
	signupMu sync.Mutex
	codesMu  sync.Mutex
	pending  map[string]pendingRegistration
}

func NewStore() *Store {
	return &Store{
		serviceTypes:  newTable[domain.ServiceType](),
		categories:    newTable[domain.ServiceCategory](),
		services:      newTable[domain.Service](),
		plans:         newTable[domain.SubscriptionPlan](),
		categoryPlans: newTable[domain.CategoryPlan](),
		speedTests:    newTable[domain.SpeedTestResult](),
		accounts:      newTable[account](),
		subscriptions: newTable[subscriptionRow](),
		ledger: ledger{
			wallets: map[int64]*domain.Wallet{},
			history: map[int64][]domain.Transaction{},
		},
		pending: map[string]pendingRegistration{},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// accountByEmail matches case-insensitively.
func (s *Store) accountByEmail(email string) (account, bool) {
	email = normalizeEmail(email)
	found := s.accounts.list(func(a account) bool { return normalizeEmail(a.User.Email) == email })
	if len(found) == 0 {
		return account{}, false
	}
	return found[0], true
}

func (s *Store) usernameTaken(username string) bool {
	username = strings.ToLower(strings.TrimSpace(username))
	return len(s.accounts.list(func(a account) bool { return strings.ToLower(a.User.Username) == username })) > 0
}

// createAccount stores a verified account and opens its wallet.
func (s *Store) createAccount(username, email string, hash []byte, role domain.Role, now time.Time) (domain.User, error) {
	s.signupMu.Lock()
	defer s.signupMu.Unlock()
	if _, exists := s.accountByEmail(email); exists {
		return domain.User{}, errConflict
	}
	if s.usernameTaken(username) {
		return domain.User{}, errConflict
	}
	acc := s.accounts.insert(func(id int64) account {
		return account{
			User: domain.User{
				ID:         id,
				Username:   strings.TrimSpace(username),
				Email:      strings.TrimSpace(email),
				Role:       role,
				IsVerified: true,
				CreatedAt:  domain.NewTimestamp(now),
			},
			PasswordHash: hash,
		}
	})
	s.openWallet(acc.User.ID)
	return acc.User, nil
}

// userWithWallet returns the user with its wallet summary attached.
func (s *Store) userWithWallet(id int64) (domain.User, bool) {
	acc, ok := s.accounts.get(id)
	if !ok {
		return domain.User{}, false
	}
	user := acc.User
	if w, err := s.wallet(id); err == nil {
		user.Wallet = &domain.WalletSummary{Balance: w.Balance, Currency: w.Currency, IsVerified: w.IsVerified}
	}
	return user, true
}

func (s *Store) deleteAccount(id int64) bool {
	if !s.accounts.remove(id) {
		return false
	}
	s.ledger.mu.Lock()
	delete(s.ledger.wallets, id)
	delete(s.ledger.history, id)
	s.ledger.mu.Unlock()
	for _, sub := range s.subscriptions.list(func(r subscriptionRow) bool { return r.UserID == id }) {
		s.subscriptions.remove(sub.ID)
	}
	return true
}

func (s *Store) openWallet(userID int64) domain.Wallet {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if w, ok := s.ledger.wallets[userID]; ok {
		return *w
	}
	s.ledger.nextWID++
	w := &domain.Wallet{ID: s.ledger.nextWID, UserID: userID, Balance: decimal.Zero, Currency: DefaultCurrency, IsVerified: true}
	s.ledger.wallets[userID] = w
	return *w
}

func (s *Store) wallet(userID int64) (domain.Wallet, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	w, ok := s.ledger.wallets[userID]
	if !ok {
		return domain.Wallet{}, errNotFound
	}
	return *w, nil
}

// move applies a deposit or withdrawal. A withdrawal larger than the balance
// fails with errInsufficientFunds and leaves the balance untouched.
func (s *Store) move(userID int64, kind domain.TransactionType, amount decimal.Decimal, method string, now time.Time) (domain.Transaction, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	w, ok := s.ledger.wallets[userID]
	if !ok {
		return domain.Transaction{}, errNotFound
	}

	switch kind {
	case domain.TransactionDeposit:
		w.Balance = w.Balance.Add(amount)
	case domain.TransactionWithdraw:
		if w.Balance.LessThan(amount) {
			return domain.Transaction{}, errInsufficientFunds
		}
		w.Balance = w.Balance.Sub(amount)
	default:
		return domain.Transaction{}, errUnprocessable
	}

	s.ledger.nextTxID++
	tx := domain.Transaction{
		ID:            s.ledger.nextTxID,
		Type:          kind,
		Amount:        amount,
		Status:        domain.TransactionCompleted,
		PaymentMethod: method,
		CreatedAt:     domain.NewTimestamp(now),
		CompletedAt:   domain.NewTimestamp(now),
	}
	s.ledger.history[userID] = append(s.ledger.history[userID], tx)
	return tx, nil
}

// transactions returns the wallet history newest first.
func (s *Store) transactions(userID int64) ([]domain.Transaction, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if _, ok := s.ledger.wallets[userID]; !ok {
		return nil, errNotFound
	}
	history := s.ledger.history[userID]
	out := make([]domain.Transaction, len(history))
	for i, tx := range history {
		out[len(history)-1-i] = tx
	}
	return out, nil
}

// Subscribe records a membership of userID in planID. Used for seeding; the
// public API only reads memberships.
func (s *Store) Subscribe(userID, planID int64, next time.Time) (domain.UserSubscription, error) {
	if _, ok := s.accounts.get(userID); !ok {
		return domain.UserSubscription{}, errNotFound
	}
	plan, ok := s.plans.get(planID)
	if !ok {
		return domain.UserSubscription{}, errNotFound
	}
	service, _ := s.services.get(plan.ServiceID)
	row := s.subscriptions.insert(func(id int64) subscriptionRow {
		return subscriptionRow{
			UserID: userID,
			UserSubscription: domain.UserSubscription{
				ID:              id,
				ServiceName:     service.Name,
				PlanName:        plan.Name,
				PricePerMember:  plan.PricePerMember(),
				NextPaymentDate: domain.NewTimestamp(next),
				Status:          "ACTIVE",
			},
		}
	})
	return row.UserSubscription, nil
}

func (s *Store) userSubscriptions(userID int64) []domain.UserSubscription {
	rows := s.subscriptions.list(func(r subscriptionRow) bool { return r.UserID == userID })
	out := make([]domain.UserSubscription, len(rows))
	for i, r := range rows {
		out[i] = r.UserSubscription
	}
	return out
}

// putPending replaces any earlier pending registration for the same email.
func (s *Store) putPending(p pendingRegistration) {
	s.codesMu.Lock()
	defer s.codesMu.Unlock()
	s.pending[normalizeEmail(p.Email)] = p
}

// usernamePending reports whether another email holds an unexpired pending
// registration for username.
func (s *Store) usernamePending(username, email string, now time.Time) bool {
	s.codesMu.Lock()
	defer s.codesMu.Unlock()
	username = strings.ToLower(strings.TrimSpace(username))
	email = normalizeEmail(email)
	for key, p := range s.pending {
		if key != email && now.Before(p.ExpiresAt) && strings.ToLower(p.Username) == username {
			return true
		}
	}
	return false
}

// takePending consumes the pending registration when code matches and has
// not expired. A wrong code leaves it in place.
func (s *Store) takePending(email, code string, now time.Time) (pendingRegistration, bool) {
	s.codesMu.Lock()
	defer s.codesMu.Unlock()
	key := normalizeEmail(email)
	p, ok := s.pending[key]
	if !ok || !now.Before(p.ExpiresAt) || p.Code != code {
		return pendingRegistration{}, false
	}
	delete(s.pending, key)
	return p, true
}

// PurgeExpiredCodes drops pending registrations whose code has expired.
func (s *Store) PurgeExpiredCodes(now time.Time) int {
	s.codesMu.Lock()
	defer s.codesMu.Unlock()
	purged := 0
	for key, p := range s.pending {
		if !now.Before(p.ExpiresAt) {
			delete(s.pending, key)
			purged++
		}
	}
	return purged
}

func (s *Store) pendingCount() int {
	s.codesMu.Lock()
	defer s.codesMu.Unlock()
	return len(s.pending)
}
