package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	snap    *Snapshot
	deletes int
	saveErr error
}

func (m *memStore) Load(context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	return &cp, nil
}

func (m *memStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = &snap
	return nil
}

func (m *memStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	m.deletes++
	return nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func authFor(token string) domain.AuthResponse {
	return domain.AuthResponse{
		Token: token,
		User:  domain.User{ID: 7, Username: "alice", Email: "a@x.com", Role: domain.RoleUser, IsVerified: true},
	}
}

func TestSetAuthPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := New(store, nil)
	assert.Equal(t, StateUnauthenticated, s.State())

	require.NoError(t, s.SetAuth(ctx, authFor("opaque-token")))
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "opaque-token", s.Token())
	require.NotNil(t, store.snap)

	restored := New(store, nil)
	require.NoError(t, restored.Load(ctx))
	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, "alice", restored.User().Username)
}

func TestSetAuthRejectsIncompleteResponse(t *testing.T) {
	s := New(&memStore{}, nil)
	assert.Error(t, s.SetAuth(context.Background(), domain.AuthResponse{User: domain.User{ID: 1}}))
	assert.Error(t, s.SetAuth(context.Background(), domain.AuthResponse{Token: "t"}))
	assert.Equal(t, StateUnauthenticated, s.State())
}

func TestFailedSaveLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &memStore{saveErr: errors.New("disk full")}
	s := New(store, nil)

	err := s.SetAuth(ctx, authFor("tok"))
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())

	err = s.MarkCodeRequested(ctx, "a@x.com")
	require.Error(t, err)
	assert.Empty(t, s.PendingEmail())

	store.saveErr = nil
	require.NoError(t, s.SetAuth(ctx, authFor("tok")))
	store.saveErr = errors.New("disk full")
	require.Error(t, s.SetAuth(ctx, authFor("other")))
	assert.Equal(t, "tok", s.Token(), "the previous credential stays current")
	assert.Equal(t, "tok", store.snap.Token)
}

func TestClearIsUnconditionalAndIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := New(store, nil)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.SetAuth(ctx, authFor("tok")))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
	assert.Nil(t, store.snap)
	assert.Equal(t, 3, store.deletes)
}

func TestCodeRequestedState(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := New(store, nil)

	require.NoError(t, s.MarkCodeRequested(ctx, " a@x.com "))
	assert.Equal(t, StateCodeRequested, s.State())
	assert.Equal(t, "a@x.com", s.PendingEmail())

	restored := New(store, nil)
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, StateCodeRequested, restored.State())

	require.NoError(t, restored.SetAuth(ctx, authFor("tok")))
	assert.Empty(t, restored.PendingEmail())
	assert.Equal(t, StateAuthenticated, restored.State())
}

func TestLoadDiscardsExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	require.NoError(t, New(store, nil).SetAuth(ctx, authFor(signedToken(t, time.Now().Add(-time.Hour)))))

	s := New(store, nil)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, store.snap)
}

func TestLoadKeepsValidToken(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	token := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, New(store, nil).SetAuth(ctx, authFor(token)))

	s := New(store, nil)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, token, s.Token())
}

func TestRoleFlags(t *testing.T) {
	ctx := context.Background()
	s := New(&memStore{}, nil)
	assert.False(t, s.CanAccessAdmin())

	resp := authFor("tok")
	resp.User.Role = domain.RoleManager
	require.NoError(t, s.SetAuth(ctx, resp))
	assert.True(t, s.IsManager())
	assert.False(t, s.IsAdmin())
	assert.True(t, s.CanAccessAdmin())
}

func TestUserReturnsCopy(t *testing.T) {
	s := New(&memStore{}, nil)
	require.NoError(t, s.SetAuth(context.Background(), authFor("tok")))

	u := s.User()
	u.Role = domain.RoleAdmin
	assert.False(t, s.IsAdmin())
}

func TestConcurrentReadsDuringAuth(t *testing.T) {
	ctx := context.Background()
	s := New(&memStore{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Token()
				_ = s.State()
			}
		}()
	}
	require.NoError(t, s.SetAuth(ctx, authFor("tok")))
	wg.Wait()
	assert.Equal(t, "tok", s.Token())
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	user := authFor("tok").User
	require.NoError(t, store.Save(ctx, Snapshot{Token: "tok", User: &user}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	snap, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "tok", snap.Token)
	assert.Equal(t, int64(7), snap.User.ID)

	require.NoError(t, store.Delete(ctx))
	require.NoError(t, store.Delete(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

type fakeRedis struct {
	data map[string][]byte
	ttl  time.Duration
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	kv := &fakeRedis{data: map[string][]byte{}}
	store := NewRedisStore(kv, "splitup:", "", 24*time.Hour)
	assert.Equal(t, "splitup:session:default", store.Key())

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	s := New(store, nil)
	require.NoError(t, s.SetAuth(ctx, authFor("tok")))
	assert.Equal(t, 24*time.Hour, kv.ttl)

	restored := New(store, nil)
	require.NoError(t, restored.Load(ctx))
	assert.True(t, restored.IsAuthenticated())

	require.NoError(t, restored.Clear(ctx))
	assert.Empty(t, kv.data)
}
