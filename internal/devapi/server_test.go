package devapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
	"github.com/nsa09-nsa09/splitup-frontend/pkg/apiclient"
)

const testSecret = "devapi-test-secret-0123456789"

type publishedEvent struct {
	exchange   string
	routingKey string
	event      VerificationCodeEvent
}

// capturePublisher records verification events instead of sending them.
type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   error
}

func (p *capturePublisher) Publish(_ context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	event, _ := body.(VerificationCodeEvent)
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, event: event})
	return nil
}

func (p *capturePublisher) Close() {}

func (p *capturePublisher) last(t *testing.T) publishedEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events, "no verification event was published")
	return p.events[len(p.events)-1]
}

type bearer string

func (b bearer) Token() string { return string(b) }

type fixedLocale string

func (l fixedLocale) Locale() string { return string(l) }

// testClock is the server clock; advance moves it forward for every handler.
type testClock struct {
	offset atomic.Int64
}

func (c *testClock) Now() time.Time {
	return time.Now().Add(time.Duration(c.offset.Load()))
}

func (c *testClock) advance(d time.Duration) {
	c.offset.Add(int64(d))
}

type testEnv struct {
	server    *Server
	store     *Store
	publisher *capturePublisher
	clock     *testClock
	url       string
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	if opts.JWTSecret == "" {
		opts.JWTSecret = testSecret
	}
	store := NewStore()
	publisher := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, err := NewServer(store, publisher, opts, logger)
	require.NoError(t, err)
	clock := &testClock{}
	server.now = clock.Now

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return &testEnv{server: server, store: store, publisher: publisher, clock: clock, url: ts.URL}
}

func (e *testEnv) client(token string, opts ...apiclient.Option) *apiclient.Client {
	opts = append([]apiclient.Option{apiclient.WithCredentials(bearer(token))}, opts...)
	return apiclient.New(e.url+"/api", opts...)
}

func (e *testEnv) admin(t *testing.T) (*apiclient.Client, domain.User) {
	t.Helper()
	_, err := e.server.SeedAdmin("root", "root@example.com", "root-password")
	require.NoError(t, err)
	resp, err := e.client("").Auth.Login(context.Background(), "root@example.com", "root-password")
	require.NoError(t, err)
	return e.client(resp.Token), resp.User
}

func (e *testEnv) signUp(t *testing.T, username, email string) (*apiclient.Client, domain.User) {
	t.Helper()
	ctx := context.Background()
	anon := e.client("")
	_, err := anon.Auth.Register(ctx, domain.RegisterRequest{Username: username, Email: email, Password: "secret-pass"})
	require.NoError(t, err)
	resp, err := anon.Auth.Verify(ctx, email, e.publisher.last(t).event.Code)
	require.NoError(t, err)
	return e.client(resp.Token), resp.User
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp, err := http.Get(env.url + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewServerRejectsShortSecret(t *testing.T) {
	_, err := NewServer(NewStore(), nil, Options{JWTSecret: "short"}, nil)
	assert.Error(t, err)
}

func TestChildListsOfUnknownParentAreEmpty(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	c := env.client("")

	categories, err := c.Categories.GetByType(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, categories)

	services, err := c.Services.GetByCategory(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, services)

	plans, err := c.Plans.GetByService(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, plans)

	categoryPlans, err := c.CategoryPlans.GetByCategory(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, categoryPlans)
}

func TestCatalogLifecycle(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	admin, _ := env.admin(t)

	typ, err := admin.ServiceTypes.Create(ctx, domain.ServiceTypeInput{Name: domain.Ptr("Видео"), DisplayOrder: domain.Ptr(1)})
	require.NoError(t, err)
	cat, err := admin.Categories.Create(ctx, domain.ServiceCategoryInput{Name: domain.Ptr("Стриминг"), TypeID: domain.Ptr(typ.ID)})
	require.NoError(t, err)
	assert.Equal(t, "Видео", cat.Type)

	svc, err := admin.Services.Create(ctx, domain.ServiceInput{Name: domain.Ptr("Netflix"), CategoryID: domain.Ptr(cat.ID)})
	require.NoError(t, err)
	_, err = admin.Plans.Create(ctx, domain.SubscriptionPlanInput{
		ServiceID:     domain.Ptr(svc.ID),
		Name:          domain.Ptr("Premium"),
		MaxMembers:    domain.Ptr(4),
		PricePerMonth: domain.Ptr(decimal.NewFromInt(1000)),
	})
	require.NoError(t, err)

	got, err := admin.Services.GetByID(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Netflix", got.Name)
	assert.Equal(t, "Стриминг", got.CategoryName)
	assert.Equal(t, 1, got.PlanCount)
	require.NotNil(t, got.PriceFrom)
	assert.True(t, got.PriceFrom.Equal(decimal.NewFromInt(250)))

	byType, err := admin.Services.GetByType(ctx, typ.ID)
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, svc.ID, byType[0].ID)

	// Partial update touches only the sent field, and repeating it is a no-op.
	first, err := admin.Services.Update(ctx, svc.ID, domain.ServiceInput{Description: domain.Ptr("Фильмы и сериалы")})
	require.NoError(t, err)
	assert.Equal(t, "Netflix", first.Name)
	assert.Equal(t, "Фильмы и сериалы", first.Description)

	env.clock.advance(time.Hour)
	second, err := admin.Services.Update(ctx, svc.ID, domain.ServiceInput{Description: domain.Ptr("Фильмы и сериалы")})
	require.NoError(t, err)
	require.NotNil(t, first.UpdatedAt)
	require.NotNil(t, second.UpdatedAt)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt.Time))
	assert.Equal(t, first.Description, second.Description)

	require.NoError(t, admin.Services.Delete(ctx, svc.ID))
	_, err = admin.Services.GetByID(ctx, svc.ID)
	assert.True(t, domain.IsNotFound(err))
	err = admin.Services.Delete(ctx, svc.ID)
	assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))
}

func TestCatalogWritesRequireAdminAccess(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	in := domain.ServiceTypeInput{Name: domain.Ptr("Музыка")}

	_, err := env.client("").ServiceTypes.Create(ctx, in)
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))

	user, _ := env.signUp(t, "alice", "alice@example.com")
	_, err = user.ServiceTypes.Create(ctx, in)
	assert.Equal(t, http.StatusForbidden, domain.StatusCode(err))

	_, err = env.client("not-a-jwt").ServiceTypes.GetAll(ctx)
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))

	admin, _ := env.admin(t)
	_, err = admin.Categories.Create(ctx, domain.ServiceCategoryInput{Name: domain.Ptr("Orphan"), TypeID: domain.Ptr(int64(42))})
	assert.Equal(t, http.StatusUnprocessableEntity, domain.StatusCode(err))

	_, err = admin.ServiceTypes.Create(ctx, domain.ServiceTypeInput{DisplayOrder: domain.Ptr(2)})
	assert.Equal(t, http.StatusBadRequest, domain.StatusCode(err))
	types, err := admin.ServiceTypes.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, types, "a rejected create must not leave a row behind")
}

func TestRegisterAndVerify(t *testing.T) {
	env := newTestEnv(t, Options{CodeTTL: time.Minute})
	ctx := context.Background()
	anon := env.client("", apiclient.WithLocale(fixedLocale("kk")))

	resp, err := anon.Auth.Register(ctx, domain.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", resp.Email)

	published := env.publisher.last(t)
	assert.Equal(t, "splitup.auth", published.exchange)
	assert.Equal(t, RoutingKeyCodeIssued, published.routingKey)
	assert.Equal(t, "kk", published.event.Locale)
	assert.Len(t, published.event.Code, 6)

	wrong := "000000"
	if published.event.Code == wrong {
		wrong = "111111"
	}
	_, err = anon.Auth.Verify(ctx, "bob@example.com", wrong)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))
	_, exists := env.store.accountByEmail("bob@example.com")
	assert.False(t, exists, "accounts are only created by a successful verify")

	auth, err := anon.Auth.Verify(ctx, "bob@example.com", published.event.Code)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "bob", auth.User.Username)
	assert.Equal(t, domain.RoleUser, auth.User.Role)
	require.NotNil(t, auth.User.Wallet)
	assert.True(t, auth.User.Wallet.Balance.IsZero())
	assert.Equal(t, DefaultCurrency, auth.User.Wallet.Currency)

	_, err = anon.Auth.Verify(ctx, "bob@example.com", published.event.Code)
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err), "a code is single use")

	_, err = anon.Auth.Register(ctx, domain.RegisterRequest{Username: "bob2", Email: "BOB@example.com", Password: "secret-pass"})
	assert.Equal(t, http.StatusConflict, domain.StatusCode(err))

	_, err = anon.Auth.Login(ctx, "bob@example.com", "wrong-pass")
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))
	login, err := anon.Auth.Login(ctx, "bob@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, auth.User.ID, login.User.ID)
}

func TestRegisterRejectsUsernameHeldByPendingSignup(t *testing.T) {
	env := newTestEnv(t, Options{CodeTTL: time.Minute})
	ctx := context.Background()
	anon := env.client("")

	_, err := anon.Auth.Register(ctx, domain.RegisterRequest{Username: "alice", Email: "a1@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	_, err = anon.Auth.Register(ctx, domain.RegisterRequest{Username: "Alice", Email: "a2@example.com", Password: "secret-pass"})
	assert.Equal(t, http.StatusConflict, domain.StatusCode(err))

	env.clock.advance(2 * time.Minute)
	_, err = anon.Auth.Register(ctx, domain.RegisterRequest{Username: "alice", Email: "a2@example.com", Password: "secret-pass"})
	assert.NoError(t, err, "an expired signup releases the username")
}

func TestVerifyRejectsUsernameTakenMeanwhile(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	anon := env.client("")

	expires := env.clock.Now().Add(time.Hour)
	env.store.putPending(pendingRegistration{Username: "alice", Email: "a1@example.com", Code: "111111", ExpiresAt: expires})
	env.store.putPending(pendingRegistration{Username: "alice", Email: "a2@example.com", Code: "222222", ExpiresAt: expires})

	first, err := anon.Auth.Verify(ctx, "a1@example.com", "111111")
	require.NoError(t, err)
	assert.Equal(t, "alice", first.User.Username)

	_, err = anon.Auth.Verify(ctx, "a2@example.com", "222222")
	assert.Equal(t, http.StatusConflict, domain.StatusCode(err))
	_, exists := env.store.accountByEmail("a2@example.com")
	assert.False(t, exists)
	assert.Len(t, env.store.accounts.list(func(account) bool { return true }), 1)
}

func TestRegisterFailsWhenCodeCannotBeSent(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.publisher.fail = errors.New("broker down")

	_, err := env.client("").Auth.Register(context.Background(), domain.RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "secret-pass"})
	assert.Equal(t, http.StatusServiceUnavailable, domain.StatusCode(err))
}

func TestSweeperPurgesExpiredCodes(t *testing.T) {
	env := newTestEnv(t, Options{CodeTTL: time.Minute})
	ctx := context.Background()
	anon := env.client("")

	_, err := anon.Auth.Register(ctx, domain.RegisterRequest{Username: "dave", Email: "dave@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	code := env.publisher.last(t).event.Code
	require.Equal(t, 1, env.store.pendingCount())

	sweeper := env.server.Sweeper("@every 1m")
	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	sweeper.Sweep()
	assert.Equal(t, 0, env.store.pendingCount())

	_, err = anon.Auth.Verify(ctx, "dave@example.com", code)
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t, Options{})
	assert.Error(t, env.server.Sweeper("not a schedule").Start())

	sweeper := env.server.Sweeper("@every 1h")
	require.NoError(t, sweeper.Start())
	<-sweeper.Stop().Done()
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	env := newTestEnv(t, Options{AuthRatePerMinute: 2})
	ctx := context.Background()
	anon := env.client("")

	for i := 0; i < 2; i++ {
		_, err := anon.Auth.Login(ctx, "nobody@example.com", "whatever")
		assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))
	}
	_, err := anon.Auth.Login(ctx, "nobody@example.com", "whatever")
	assert.Equal(t, http.StatusTooManyRequests, domain.StatusCode(err))

	_, err = anon.ServiceTypes.GetAll(ctx)
	assert.NoError(t, err, "catalog reads are not throttled")
}

func TestWithdrawBeyondBalanceIsRejected(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	user, me := env.signUp(t, "erin", "erin@example.com")

	tx, err := user.Wallet.Deposit(ctx, me.ID, decimal.NewFromInt(30), "card")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionDeposit, tx.Type)
	assert.Equal(t, domain.TransactionCompleted, tx.Status)

	_, err = user.Wallet.Withdraw(ctx, me.ID, decimal.NewFromInt(50), "card")
	assert.Equal(t, http.StatusUnprocessableEntity, domain.StatusCode(err))

	wallet, err := user.Wallet.Get(ctx, me.ID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(30)), "balance is %s", wallet.Balance)

	_, err = user.Wallet.Withdraw(ctx, me.ID, decimal.NewFromInt(20), "card")
	require.NoError(t, err)
	history, err := user.Wallet.Transactions(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.TransactionWithdraw, history[0].Type)
}

func TestWalletActorMustMatchToken(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	alice, _ := env.signUp(t, "alice", "alice@example.com")
	_, bob := env.signUp(t, "bob", "bob@example.com")

	_, err := alice.Wallet.Get(ctx, bob.ID)
	assert.Equal(t, http.StatusForbidden, domain.StatusCode(err))
	_, err = alice.Wallet.Deposit(ctx, bob.ID, decimal.NewFromInt(5), "card")
	assert.Equal(t, http.StatusForbidden, domain.StatusCode(err))

	_, err = env.client("").Wallet.Get(ctx, bob.ID)
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))

	admin, _ := env.admin(t)
	wallet, err := admin.Wallet.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, wallet.UserID)
}

func TestUsersEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	Seed(env.store, time.Now())
	alice, me := env.signUp(t, "alice", "alice@example.com")
	_, bob := env.signUp(t, "bob", "bob@example.com")
	require.NoError(t, SeedSubscriptions(env.store, me.ID, time.Now()))

	self, err := alice.Users.GetByID(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", self.Username)
	_, err = alice.Users.GetByID(ctx, bob.ID)
	assert.Equal(t, http.StatusForbidden, domain.StatusCode(err))
	_, err = alice.Users.GetAll(ctx)
	assert.Equal(t, http.StatusForbidden, domain.StatusCode(err))

	subs, err := alice.Users.Subscriptions(ctx, me.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, subs)

	admin, root := env.admin(t)
	all, err := admin.Users.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	updated, err := admin.Users.Update(ctx, bob.ID, domain.UserInput{Role: domain.Ptr(domain.RoleManager)})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, updated.Role)
	assert.Equal(t, "bob", updated.Username)

	_, err = admin.Users.Update(ctx, bob.ID, domain.UserInput{Username: domain.Ptr("alice")})
	assert.Equal(t, http.StatusConflict, domain.StatusCode(err))

	err = admin.Users.Delete(ctx, root.ID)
	assert.Equal(t, http.StatusConflict, domain.StatusCode(err))

	require.NoError(t, admin.Users.Delete(ctx, me.ID))
	err = admin.Users.Delete(ctx, me.ID)
	assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))

	_, err = alice.Users.GetByID(ctx, me.ID)
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err), "tokens of deleted accounts stop working")
}

func TestSpeedTests(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	c := env.client("")

	inputs := []domain.SpeedTestInput{
		{Latitude: 42.87, Longitude: 74.59, City: "Bishkek", Provider: "Beeline", DownloadMbps: 40, UploadMbps: 10, PingMs: 20},
		{Latitude: 42.88, Longitude: 74.60, City: "bishkek", Provider: "MegaCom", DownloadMbps: 60, UploadMbps: 20, PingMs: 30},
		{Latitude: 40.52, Longitude: 72.80, City: "Osh", Provider: "Beeline", DownloadMbps: 20, UploadMbps: 5, PingMs: 50},
		{Latitude: 41.00, Longitude: 75.00, Provider: "MegaCom", DownloadMbps: 10, UploadMbps: 1, PingMs: 90},
	}
	for _, in := range inputs {
		_, err := c.SpeedTest.Submit(ctx, in)
		require.NoError(t, err)
	}

	all, err := c.SpeedTest.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	bishkek, err := c.SpeedTest.GetFiltered(ctx, domain.SpeedTestFilter{City: "Bishkek"})
	require.NoError(t, err)
	assert.Len(t, bishkek, 2)

	both, err := c.SpeedTest.GetFiltered(ctx, domain.SpeedTestFilter{City: "Bishkek", Provider: "megacom"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "MegaCom", both[0].Provider)

	inBox, err := c.SpeedTest.GetInBounds(ctx, domain.Bounds{MinLat: 42, MaxLat: 43, MinLng: 74, MaxLng: 75})
	require.NoError(t, err)
	assert.Len(t, inBox, 2)

	byCity, err := c.SpeedTest.StatsByCity(ctx)
	require.NoError(t, err)
	require.Len(t, byCity, 2, "measurements without a city are skipped")
	assert.Equal(t, "Bishkek", byCity[0].Key)
	assert.Equal(t, 2, byCity[0].Count)
	assert.InDelta(t, 50.0, byCity[0].AvgDownload, 0.001)
	assert.Equal(t, "Osh", byCity[1].Key)

	byProvider, err := c.SpeedTest.StatsByProvider(ctx)
	require.NoError(t, err)
	require.Len(t, byProvider, 2)
	assert.Equal(t, "Beeline", byProvider[0].Key)
	assert.Equal(t, 2, byProvider[0].Count)
	assert.InDelta(t, 30.0, byProvider[0].AvgDownload, 0.001)
	assert.InDelta(t, 40.0, byProvider[0].MaxDownload, 0.001)
}

func TestSpeedTestBoundsRequiresAllCorners(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp, err := http.Get(env.url + "/api/speedtest/bounds?minLat=1&maxLat=2&minLng=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
