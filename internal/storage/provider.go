package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shollu-partner/internal/config"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrUnsupportedProvider = errors.New("unsupported storage configuration")
)

type Provider interface {
	Close() error
	GetSchemaVersion(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	UpdateSessionName(ctx context.Context, id string, name string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByTokenHash(ctx context.Context, tokenHash string) (int64, error)
	ExpireSessions(ctx context.Context, now time.Time) ([]string, error)
}

// NewProvider opens the configured storage and brings its schema up to date.
func NewProvider(cfg *config.Storage) (Provider, error) {
	switch {
	case cfg.SQLite != nil:
		provider, err := NewSQLiteProvider(cfg)
		if err != nil {
			return nil, err
		}
		if err := provider.runMigrations(context.Background()); err != nil {
			provider.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return provider, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
