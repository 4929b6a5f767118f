package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

const schemaMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER NOT NULL,
    applied_at DATETIME NOT NULL
)`

type SQLProvider struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

func NewSQLProvider(driverName string, dataSource string) (*SQLProvider, error) {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}

	return &SQLProvider{
		db:     db,
		driver: driverName,
		logger: slog.With("component", "storage"),
	}, nil
}

func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *SQLProvider) GetSchemaVersion(ctx context.Context) (int, error) {
	if _, err := p.db.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return -1, err
	}
	var version sql.NullInt64
	err := p.db.GetContext(ctx, &version, `SELECT version FROM schema_migrations ORDER BY rowid DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return -1, err
	}
	return int(version.Int64), nil
}

func (p *SQLProvider) runMigrations(ctx context.Context) error {
	current, err := p.GetSchemaVersion(ctx)
	if err != nil {
		return err
	}

	runner := NewMigrationRunner(p.driver)
	migrations, err := runner.LoadMigrations(current, -1)
	if errors.Is(err, ErrMigrateCurrentVersionSameAsTarget) {
		p.logger.Debug("Schema is up to date", "version", current)
		return nil
	}
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if err := p.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %04d_%s: %w", m.Version, m.Name, err)
		}
		p.logger.Info("Applied migration", "version", m.Version, "name", m.Name, "up", m.Up)
	}
	return nil
}

func (p *SQLProvider) applyMigration(ctx context.Context, m SchemaMigration) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, m.After(), time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *SQLProvider) CreateSession(ctx context.Context, s Session) error {
	_, err := p.db.NamedExecContext(ctx, `INSERT INTO sessions
		(id, token_hash, sealed_token, user_id, username, name, role, mosque_id, created_at, expires_at)
		VALUES (:id, :token_hash, :sealed_token, :user_id, :username, :name, :role, :mosque_id, :created_at, :expires_at)`, s)
	return err
}

func (p *SQLProvider) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := p.db.GetContext(ctx, &s, `SELECT * FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *SQLProvider) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	err := p.db.SelectContext(ctx, &out, `SELECT * FROM sessions ORDER BY created_at`)
	return out, err
}

func (p *SQLProvider) UpdateSessionName(ctx context.Context, id string, name string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE sessions SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *SQLProvider) DeleteSession(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (p *SQLProvider) DeleteSessionsByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireSessions deletes the sessions expired at now and returns their ids.
func (p *SQLProvider) ExpireSessions(ctx context.Context, now time.Time) ([]string, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var ids []string
	if err := tx.SelectContext(ctx, &ids, `SELECT id FROM sessions WHERE expires_at <= ?`, now.UTC()); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`DELETE FROM sessions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return nil, err
	}
	return ids, tx.Commit()
}
