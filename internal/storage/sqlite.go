package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"shollu-partner/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteProvider struct {
	*SQLProvider
}

func NewSQLiteProvider(cfg *config.Storage) (*SQLiteProvider, error) {
	path := cfg.SQLite.Path
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	p, err := NewSQLProvider("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases shared and serialises writers.
	p.db.SetMaxOpenConns(1)

	return &SQLiteProvider{SQLProvider: p}, nil
}
