// Package storage persists dashboard sessions in SQLite.
//
// Schema changes are shipped as embedded SQL files under migrations/<driver>/ and are
// applied on startup.
//
// Migration file naming
//   - NNNN_name.up.sql applies version NNNN, NNNN_name.down.sql rolls it back.
//   - Version is a four-digit integer (e.g. 0001, 0002).
//   - Each file holds raw SQL executed inside one transaction.
//
// Adding or removing migration files requires rebuilding the binary.
package storage

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
)

//go:embed migrations/**/*.sql
var migrationsFS embed.FS

var reMigrationFilename = regexp.MustCompile(`^(?P<Version>\d{4})\_(?P<Name>[^.]+)\.(?P<Direction>(up|down))\.sql$`)

var (
	ErrMigrateCurrentVersionSameAsTarget = errors.New("current version is the same as target version")
)

// SchemaMigration represents a single database migration
type SchemaMigration struct {
	Version int
	Name    string
	Up      bool
	SQL     string
}

// After returns the schema version once the migration has run.
func (m *SchemaMigration) After() int {
	if m.Up {
		return m.Version
	}
	return m.Version - 1
}

// MigrationRunner collects the migrations needed to move between two versions.
type MigrationRunner struct {
	driver     string
	migrations []SchemaMigration
	logger     *slog.Logger
}

func NewMigrationRunner(driver string) *MigrationRunner {
	return &MigrationRunner{
		driver: driver,
		logger: slog.With("component", "migrations", "driver", driver),
	}
}

func (mr *MigrationRunner) dir() (string, error) {
	switch mr.driver {
	case "sqlite3":
		return "migrations/sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", mr.driver)
	}
}

func (mr *MigrationRunner) readAll() ([]SchemaMigration, error) {
	dirPath, err := mr.dir()
	if err != nil {
		return nil, err
	}

	entries, err := migrationsFS.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var out []SchemaMigration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		migration, err := parseMigrationFile(path.Join(dirPath, entry.Name()))
		if err != nil {
			mr.logger.Warn("Failed to parse migration file", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, migration)
	}
	return out, nil
}

// LatestVersion returns the highest "up" migration version available.
func (mr *MigrationRunner) LatestVersion() (int, error) {
	all, err := mr.readAll()
	if err != nil {
		return -1, err
	}
	latest := 0
	for _, m := range all {
		if m.Up && m.Version > latest {
			latest = m.Version
		}
	}
	return latest, nil
}

// LoadMigrations returns the ordered migrations between prior and target.
// A target of -1 means the latest version, 0 means the empty schema.
func (mr *MigrationRunner) LoadMigrations(prior int, target int) ([]SchemaMigration, error) {
	if target == -1 {
		latest, err := mr.LatestVersion()
		if err != nil {
			return nil, fmt.Errorf("failed to get latest migration version: %w", err)
		}
		target = latest
	}

	if prior == target {
		return nil, ErrMigrateCurrentVersionSameAsTarget
	}

	all, err := mr.readAll()
	if err != nil {
		return nil, err
	}

	mr.migrations = mr.migrations[:0]
	for _, migration := range all {
		if skipMigration(migration, prior, target) {
			continue
		}
		mr.migrations = append(mr.migrations, migration)
	}

	if prior < target {
		sort.Slice(mr.migrations, func(i, j int) bool {
			return mr.migrations[i].Version < mr.migrations[j].Version
		})
	} else {
		sort.Slice(mr.migrations, func(i, j int) bool {
			return mr.migrations[i].Version > mr.migrations[j].Version
		})
	}

	mr.logger.Info("Loaded migrations", "count", len(mr.migrations), "from_version", prior, "to_version", target)
	return mr.migrations, nil
}

func skipMigration(migration SchemaMigration, currentVersion int, targetVersion int) bool {
	if targetVersion > currentVersion {
		if !migration.Up {
			return true
		}
		return migration.Version > targetVersion || migration.Version <= currentVersion
	}

	if migration.Up {
		return true
	}
	return migration.Version <= targetVersion || migration.Version > currentVersion
}

// parseMigrationFile parses NNNN_description.(up|down).sql and reads its content.
func parseMigrationFile(filePath string) (SchemaMigration, error) {
	filename := path.Base(filePath)
	parts := reMigrationFilename.FindStringSubmatch(filename)
	if parts == nil {
		return SchemaMigration{}, fmt.Errorf("invalid migration filename: %s", filename)
	}

	sql, err := migrationsFS.ReadFile(filePath)
	if err != nil {
		return SchemaMigration{}, fmt.Errorf("failed to read migration file: %w", err)
	}

	version, _ := strconv.Atoi(parts[reMigrationFilename.SubexpIndex("Version")])
	return SchemaMigration{
		Version: version,
		Name:    parts[reMigrationFilename.SubexpIndex("Name")],
		Up:      parts[reMigrationFilename.SubexpIndex("Direction")] == "up",
		SQL:     string(sql),
	}, nil
}
