// Package session keeps the authenticated partner on the server side.
//
// The browser only holds a signed cookie naming a session id. The Shollu
// bearer token and the cached user stay in a Store, sealed when the store
// writes to disk.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shollu-partner/internal/shollu"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSatgas Role = "satgas"
)

// MapRole maps the backend role string. Anything but admin is a satgas.
func MapRole(backendRole string) Role {
	switch strings.ToLower(strings.TrimSpace(backendRole)) {
	case "admin":
		return RoleAdmin
	case "satgas", "partner":
		return RoleSatgas
	default:
		slog.Warn("Unknown backend role, treating as satgas", "role", backendRole)
		return RoleSatgas
	}
}

type User struct {
	ID       int64
	Username string
	Name     string
	Role     Role
	MosqueID int64
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName falls back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

type Session struct {
	ID        string
	Token     string
	User      User
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoginError is a rejected login. Message is the backend text and may be
// empty.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return "login rejected"
	}
	return "login rejected: " + e.Message
}

// Backend is the part of the Shollu API the session manager needs.
type Backend interface {
	Login(ctx context.Context, username, password string) (*shollu.LoginResult, error)
	RegisterSatgas(ctx context.Context, reg shollu.SatgasRegistration) (shollu.Ack, error)
}

type Manager struct {
	backend Backend
	store   Store
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.RWMutex
	onEnd []func(sessionID string)

	janitorOnce sync.Once
	closeOnce   sync.Once
	done        chan struct{}
}

func NewManager(backend Backend, store Store, ttl time.Duration) *Manager {
	return &Manager{
		backend: backend,
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		logger:  slog.With("component", "session"),
		done:    make(chan struct{}),
	}
}

// OnEnd registers fn to run whenever a session ends for any reason.
func (m *Manager) OnEnd(fn func(sessionID string)) {
	m.mu.Lock()
	m.onEnd = append(m.onEnd, fn)
	m.mu.Unlock()
}

func (m *Manager) ended(ids ...string) {
	m.mu.RLock()
	hooks := append([]func(string){}, m.onEnd...)
	m.mu.RUnlock()
	for _, id := range ids {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

// Login authenticates against the backend and stores a new session.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	res, err := m.backend.Login(ctx, username, password)
	if err != nil {
		var apiErr *shollu.APIError
		if errors.As(err, &apiErr) {
			m.logger.Info("Login rejected", "username", username, "status", apiErr.Status)
			return nil, &LoginError{Message: apiErr.Message}
		}
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:    uuid.NewString(),
		Token: res.Token,
		User: User{
			ID:       int64(res.User.ID),
			Username: res.User.Username,
			Name:     res.User.Name,
			Role:     MapRole(res.User.Role),
			MosqueID: int64(res.User.MosqueID),
		},
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if s.User.Username == "" {
		s.User.Username = username
	}
	if err := m.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	m.logger.Info("Login", "session", s.ID, "user", s.User.Username, "role", s.User.Role)
	return s, nil
}

// Register submits a satgas self-registration. The new account awaits admin
// approval, so no session is created.
func (m *Manager) Register(ctx context.Context, reg shollu.SatgasRegistration) (shollu.Ack, error) {
	return m.backend.RegisterSatgas(ctx, reg)
}

func (m *Manager) Lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		_ = m.store.Delete(ctx, id)
		m.ended(id)
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Logout forgets the session. The upstream token stays valid until the
// backend expires it.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.ended(id)
	m.logger.Info("Logout", "session", id)
	return nil
}

// Invalidate drops every session using token. It is installed as the
// backend client's 401 handler.
func (m *Manager) Invalidate(token string) {
	ids, err := m.store.DeleteByToken(context.Background(), token)
	if err != nil {
		m.logger.Error("Failed to invalidate sessions", "error", err)
		return
	}
	if len(ids) > 0 {
		m.logger.Info("Sessions invalidated by backend", "count", len(ids))
	}
	m.ended(ids...)
}

// Rename updates the cached display name after a profile change.
func (m *Manager) Rename(ctx context.Context, id, name string) error {
	return m.store.Rename(ctx, id, name)
}

func (m *Manager) List(ctx context.Context) ([]*Session, error) {
	return m.store.List(ctx)
}

// Prune removes expired sessions now instead of waiting for the janitor.
// The OnEnd hooks run for each of them.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	ids, err := m.store.Expire(ctx, m.now())
	if err != nil {
		return 0, err
	}
	m.ended(ids...)
	return len(ids), nil
}

// StartJanitor prunes expired sessions every interval until Close. Only the
// first call starts a janitor.
func (m *Manager) StartJanitor(interval time.Duration) {
	m.janitorOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					n, err := m.Prune(context.Background())
					if err != nil {
						m.logger.Error("Failed to expire sessions", "error", err)
					} else if n > 0 {
						m.logger.Debug("Expired sessions", "count", n)
					}
				case <-m.done:
					return
				}
			}
		}()
	})
}

// Close stops the janitor. It may be called more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}
