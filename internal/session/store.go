package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shollu-partner/internal/config"
	"shollu-partner/internal/storage"
)

// Store keeps sessions between requests.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	// DeleteByToken removes every session holding token and returns their ids.
	DeleteByToken(ctx context.Context, token string) ([]string, error)
	// Expire removes every session expired at now and returns their ids.
	Expire(ctx context.Context, now time.Time) ([]string, error)
}

// NewStore builds the store selected by cfg.SessionStore. The sql store
// needs provider.
func NewStore(cfg *config.Config, provider storage.Provider) (Store, error) {
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		return NewMemoryStore(), nil
	case config.SessionStoreSQL:
		if provider == nil {
			return nil, errors.New("sql session store requires a storage provider")
		}
		sealer, err := NewSealer(cfg.Secret)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(provider, sealer), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.SessionStore)
	}
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Session)}
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = *s
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.entries))
	for _, s := range m.entries {
		s := s
		out = append(out, &s)
	}
	return out, nil
}

func (m *MemoryStore) Rename(ctx context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.User.Name = name
	m.entries[id] = s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) DeleteByToken(ctx context.Context, token string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.entries {
		if s.Token == token {
			ids = append(ids, id)
			delete(m.entries, id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) Expire(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.entries {
		if s.Expired(now) {
			slog.Debug("Pruning expired session", "session", id)
			delete(m.entries, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// SQL implementation
// ---------------------------------------------------------------------------

type SQLStore struct {
	logger  *slog.Logger
	storage storage.Provider
	sealer  *Sealer
}

func NewSQLStore(provider storage.Provider, sealer *Sealer) *SQLStore {
	return &SQLStore{
		logger:  slog.With("component", "SQLSessionStore"),
		storage: provider,
		sealer:  sealer,
	}
}

func (s *SQLStore) Put(ctx context.Context, sess *Session) error {
	sealed, err := s.sealer.Seal(sess.Token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return s.storage.CreateSession(ctx, storage.Session{
		ID:          sess.ID,
		TokenHash:   HashToken(sess.Token),
		SealedToken: sealed,
		UserID:      sess.User.ID,
		Username:    sess.User.Username,
		Name:        sess.User.Name,
		Role:        string(sess.User.Role),
		MosqueID:    sess.User.MosqueID,
		CreatedAt:   sess.CreatedAt.UTC(),
		ExpiresAt:   sess.ExpiresAt.UTC(),
	})
}

func (s *SQLStore) fromRecord(rec *storage.Session) (*Session, error) {
	token, err := s.sealer.Open(rec.SealedToken)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:    rec.ID,
		Token: token,
		User: User{
			ID:       rec.UserID,
			Username: rec.Username,
			Name:     rec.Name,
			Role:     Role(rec.Role),
			MosqueID: rec.MosqueID,
		},
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Session, error) {
	rec, err := s.storage.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess, err := s.fromRecord(rec)
	if err != nil {
		// Sealed with another secret. The session is unusable.
		s.logger.Warn("Dropping session with unreadable token", "session", id)
		_ = s.storage.DeleteSession(ctx, id)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Session, error) {
	recs, err := s.storage.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(recs))
	for i := range recs {
		sess, err := s.fromRecord(&recs[i])
		if err != nil {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *SQLStore) Rename(ctx context.Context, id, name string) error {
	err := s.storage.UpdateSessionName(ctx, id, name)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	err := s.storage.DeleteSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (s *SQLStore) DeleteByToken(ctx context.Context, token string) ([]string, error) {
	hash := HashToken(token)
	recs, err := s.storage.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, rec := range recs {
		if rec.TokenHash == hash {
			ids = append(ids, rec.ID)
		}
	}
	if _, err := s.storage.DeleteSessionsByTokenHash(ctx, hash); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SQLStore) Expire(ctx context.Context, now time.Time) ([]string, error) {
	return s.storage.ExpireSessions(ctx, now)
}
