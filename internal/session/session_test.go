package session

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"shollu-partner/internal/config"
	"shollu-partner/internal/shollu"
	"shollu-partner/internal/shollu/shollutest"
	"shollu-partner/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	fake    *shollutest.Backend
	client  *shollu.Client
	manager *Manager
}

func newFixture(t *testing.T, store Store) *fixture {
	t.Helper()
	fake := shollutest.New()
	srv := fake.Start()
	t.Cleanup(srv.Close)

	client := shollu.New(shollutest.BackendConfig(srv, shollutest.DefaultAPIKey))
	m := NewManager(client, store, time.Hour)
	client.OnUnauthorized(m.Invalidate)
	return &fixture{fake: fake, client: client, manager: m}
}

func sqlStore(t *testing.T) *SQLStore {
	t.Helper()
	p, err := storage.NewProvider(&config.Storage{SQLite: &config.SQLiteStorage{Path: ":memory:"}})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	sealer, err := NewSealer("test-secret")
	require.NoError(t, err)
	return NewSQLStore(p, sealer)
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    sqlStore(t),
	}
}

func TestLoginStoresSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()

			s, err := f.manager.Login(ctx, "satgas", "password")
			require.NoError(t, err)
			assert.NotEmpty(t, s.ID)
			assert.NotEmpty(t, s.Token)
			assert.Equal(t, RoleSatgas, s.User.Role)
			assert.Equal(t, int64(10), s.User.MosqueID)

			got, err := f.manager.Lookup(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, s.Token, got.Token)
			assert.Equal(t, "Ahmad Satgas", got.User.DisplayName())
		})
	}
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	_, err := f.manager.Login(context.Background(), "satgas", "nope")
	var loginErr *LoginError
	require.ErrorAs(t, err, &loginErr)
	assert.Equal(t, "Username atau password salah", loginErr.Message)

	sessions, err := f.manager.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestLogoutEndsSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()

			var ended []string
			f.manager.OnEnd(func(id string) { ended = append(ended, id) })

			s, err := f.manager.Login(ctx, "admin", "password")
			require.NoError(t, err)
			require.NoError(t, f.manager.Logout(ctx, s.ID))

			_, err = f.manager.Lookup(ctx, s.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
			assert.Equal(t, []string{s.ID}, ended)
		})
	}
}

func TestBackend401InvalidatesSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()

			var mu sync.Mutex
			var ended []string
			f.manager.OnEnd(func(id string) {
				mu.Lock()
				ended = append(ended, id)
				mu.Unlock()
			})

			s, err := f.manager.Login(ctx, "satgas", "password")
			require.NoError(t, err)
			other, err := f.manager.Login(ctx, "admin", "password")
			require.NoError(t, err)

			f.fake.RevokeTokens()
			_, err = f.client.Profile(ctx, s.Token)
			require.ErrorIs(t, err, shollu.ErrUnauthorized)

			_, err = f.manager.Lookup(ctx, s.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
			_, err = f.manager.Lookup(ctx, other.ID)
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{s.ID}, ended)
		})
	}
}

func TestExpiredSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()

			s, err := f.manager.Login(ctx, "satgas", "password")
			require.NoError(t, err)

			f.manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
			_, err = f.manager.Lookup(ctx, s.ID)
			assert.ErrorIs(t, err, ErrSessionExpired)

			_, err = f.manager.Lookup(ctx, s.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestPrune(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()

			_, err := f.manager.Login(ctx, "satgas", "password")
			require.NoError(t, err)
			n, err := f.manager.Prune(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			f.manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
			n, err = f.manager.Prune(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestRename(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()

			s, err := f.manager.Login(ctx, "satgas", "password")
			require.NoError(t, err)
			require.NoError(t, f.manager.Rename(ctx, s.ID, "Ahmad Baru"))

			got, err := f.manager.Lookup(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, "Ahmad Baru", got.User.Name)

			assert.ErrorIs(t, f.manager.Rename(ctx, "missing", "x"), ErrSessionNotFound)
		})
	}
}

func TestRegisterDoesNotLogIn(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()

	_, err := f.manager.Register(ctx, shollu.SatgasRegistration{
		Name:     "Umar",
		Username: "umar",
		Password: "rahasia",
		MosqueID: 10,
		EventIDs: []int{3},
	})
	require.NoError(t, err)

	sessions, err := f.manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = f.manager.Login(ctx, "umar", "rahasia")
	assert.Error(t, err)
}

func TestMapRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, MapRole("Admin"))
	assert.Equal(t, RoleSatgas, MapRole("satgas"))
	assert.Equal(t, RoleSatgas, MapRole("superuser"))
	assert.Equal(t, RoleSatgas, MapRole(""))
}

func TestSealer(t *testing.T) {
	s, err := NewSealer("one")
	require.NoError(t, err)

	sealed, err := s.Seal("bearer-token")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("bearer-token")))

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", plain)

	other, err := NewSealer("two")
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrUnseal)

	_, err = s.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrUnseal)

	_, err = NewSealer("")
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	cfg := &config.Config{SessionStore: config.SessionStoreMemory}
	s, err := NewStore(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.SessionStore = config.SessionStoreSQL
	_, err = NewStore(cfg, nil)
	assert.Error(t, err)
}

func TestPruneEndsExpiredSessions(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)
			ctx := context.Background()

			var mu sync.Mutex
			var ended []string
			f.manager.OnEnd(func(id string) {
				mu.Lock()
				ended = append(ended, id)
				mu.Unlock()
			})

			expired, err := f.manager.Login(ctx, "satgas", "password")
			require.NoError(t, err)

			start := time.Now()
			f.manager.now = func() time.Time { return start.Add(30 * time.Minute) }
			fresh, err := f.manager.Login(ctx, "admin", "password")
			require.NoError(t, err)

			f.manager.now = func() time.Time { return start.Add(80 * time.Minute) }
			n, err := f.manager.Prune(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			mu.Lock()
			assert.Equal(t, []string{expired.ID}, ended)
			mu.Unlock()

			_, err = f.manager.Lookup(ctx, expired.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
			_, err = f.manager.Lookup(ctx, fresh.ID)
			assert.NoError(t, err)
		})
	}
}

func TestJanitorEndsExpiredSessions(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()

	ended := make(chan string, 1)
	f.manager.OnEnd(func(id string) { ended <- id })

	s, err := f.manager.Login(ctx, "satgas", "password")
	require.NoError(t, err)
	f.manager.now = func() time.Time { return s.ExpiresAt }

	f.manager.StartJanitor(10 * time.Millisecond)
	t.Cleanup(f.manager.Close)

	select {
	case id := <-ended:
		assert.Equal(t, s.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not end the expired session")
	}
	f.manager.Close()
}
