// Package migrate provides database migration functionality for PostgreSQL databases.
// It supports applying, rolling back, and stepping through migrations with transaction safety.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/thesisreg/backend/internal/logger"
	"github.com/thesisreg/backend/pkg/db"
)

// NoVersion is reported by GetCurrentVersion before migration 0 has been applied.
const NoVersion = -1

type Migration struct {
	Version int
	UpSQL   string
	DownSQL string
}

// Conn is the connection a Migrator drives. *pgx.Conn satisfies it.
type Conn interface {
	db.TxBeginner
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

type Migrator struct {
	conn       Conn
	migrations []Migration
}

func NewMigrator(ctx context.Context, connectionString string, fsys fs.FS) (*Migrator, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	conn, err := pgx.Connect(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewMigratorWithConn(conn, migrations), nil
}

// NewMigratorWithConn builds a Migrator over an already open connection.
func NewMigratorWithConn(conn Conn, migrations []Migration) *Migrator {
	return &Migrator{conn: conn, migrations: migrations}
}

func (m *Migrator) Close(ctx context.Context) error {
	return m.conn.Close(ctx)
}

// LoadMigrations reads NNNNNN_name.up.sql / NNNNNN_name.down.sql pairs from the
// root of fsys. Versions must run from 0 without gaps and every version needs
// an up file.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		baseName := entry.Name()
		if len(baseName) < 6 {
			continue
		}
		version, err := strconv.Atoi(baseName[:6])
		if err != nil {
			continue
		}

		var isUp bool
		switch {
		case strings.HasSuffix(baseName, ".up.sql"):
			isUp = true
		case strings.HasSuffix(baseName, ".down.sql"):
			isUp = false
		default:
			continue
		}

		data, err := fs.ReadFile(fsys, baseName)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", baseName, err)
		}

		migration, ok := byVersion[version]
		if !ok {
			migration = &Migration{Version: version}
			byVersion[version] = migration
		}
		if isUp {
			migration.UpSQL = string(data)
		} else {
			migration.DownSQL = string(data)
		}
	}

	if len(byVersion) == 0 {
		return nil, errors.New("no valid migration files found")
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, migration := range byVersion {
		migrations = append(migrations, *migration)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })

	for i, migration := range migrations {
		if migration.Version != i {
			return nil, fmt.Errorf("migration %d is missing", i)
		}
		if strings.TrimSpace(migration.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d is missing up.sql file", migration.Version)
		}
	}
	return migrations, nil
}

// GetCurrentVersion returns the highest applied version, or NoVersion.
func (m *Migrator) GetCurrentVersion(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	var version sql.NullInt64
	err := m.conn.QueryRow(ctx, "SELECT MAX(version) FROM migrations").Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NoVersion, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			return NoVersion, nil // migrations table not created yet
		}
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	}

	if !version.Valid {
		return NoVersion, nil
	}
	return int(version.Int64), nil
}

// Up applies all pending migrations in order.
func (m *Migrator) Up(ctx context.Context) error {
	current, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version before applying migrations: %w", err)
	}
	return m.forward(ctx, current, len(m.migrations))
}

// Down rolls back the last applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	current, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version before rolling back: %w", err)
	}
	return m.backward(ctx, current, 1)
}

// Steps applies or rolls back a specific number of migrations.
// Positive steps apply migrations forward, negative steps roll back migrations.
func (m *Migrator) Steps(ctx context.Context, steps int) error {
	current, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version before executing steps: %w", err)
	}

	switch {
	case steps > 0:
		return m.forward(ctx, current, steps)
	case steps < 0:
		return m.backward(ctx, current, -steps)
	}
	return nil
}

func (m *Migrator) forward(ctx context.Context, current, count int) error {
	for version := current + 1; version < len(m.migrations) && count > 0; version++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled while applying migration %d: %w", version, err)
		}

		logger.LogInfo("Applying migration", "version", version)
		if err := m.applyMigration(ctx, m.migrations[version], true); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}
		count--
	}
	return nil
}

func (m *Migrator) backward(ctx context.Context, current, count int) error {
	for ; count > 0; count-- {
		if current == NoVersion {
			return errors.New("no migrations to rollback")
		}
		if current >= len(m.migrations) {
			return fmt.Errorf("migration %d not found in loaded migrations", current)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled while rolling back migration %d: %w", current, err)
		}

		migration := m.migrations[current]
		if strings.TrimSpace(migration.DownSQL) == "" {
			return fmt.Errorf("migration %d does not have a down.sql file or it is empty", current)
		}

		logger.LogInfo("Rolling back migration", "version", current)
		if err := m.applyMigration(ctx, migration, false); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", current, err)
		}
		current--
	}
	return nil
}

// applyMigration runs one direction of a migration and records the version
// change in the same transaction.
func (m *Migrator) applyMigration(ctx context.Context, migration Migration, up bool) error {
	script := migration.DownSQL
	if up {
		script = migration.UpSQL
	}

	return db.RunInTx(ctx, m.conn, func(tx pgx.Tx) error {
		for i, stmt := range strings.Split(script, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute migration SQL for version %d (statement %d): %w", migration.Version, i+1, err)
			}
		}

		// Rolling back migration 0 drops the migrations table itself.
		if !up && migration.Version == 0 {
			return nil
		}

		query := "INSERT INTO migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING"
		if !up {
			query = "DELETE FROM migrations WHERE version = $1"
		}
		if _, err := tx.Exec(ctx, query, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration version %d: %w", migration.Version, err)
		}
		return nil
	})
}
