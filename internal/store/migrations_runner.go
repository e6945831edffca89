package store

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"gitea.jw6.us/james/shalendar/internal/migrations"
)

// migrationDB is the subset of *sqlx.DB used by the migration helpers.
type migrationDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sqlResult, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
	BeginTxx(ctx context.Context) (migrationTx, error)
}

type sqlResult interface {
	RowsAffected() (int64, error)
}

type migrationTx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sqlResult, error)
	Commit() error
	Rollback() error
}

// ApplyMigrations ensures all embedded SQL migrations for the store's dialect
// have been applied. Each migration runs in its own transaction together with
// its schema_migrations record.
func ApplyMigrations(ctx context.Context, s *Store) error {
	fsys, err := migrations.For(string(s.dialect))
	if err != nil {
		return err
	}
	return applyMigrations(ctx, sqlxMigrationDB{db: s.db}, fsys)
}

func applyMigrations(ctx context.Context, db migrationDB, fsys fs.FS) error {
	names, err := listMigrationFiles(fsys)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	if err := ensureMigrationTable(ctx, db); err != nil {
		return err
	}

	for _, name := range names {
		applied, err := migrationApplied(ctx, db, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := applyMigration(ctx, db, fsys, name); err != nil {
			return err
		}
	}
	return nil
}

func listMigrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func ensureMigrationTable(ctx context.Context, db migrationDB) error {
	const q = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version TEXT PRIMARY KEY,
        applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func migrationApplied(ctx context.Context, db migrationDB, name string) (bool, error) {
	q := db.Rebind(`SELECT COUNT(*) FROM schema_migrations WHERE version=?`)
	var count int
	if err := db.GetContext(ctx, &count, q, name); err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	return count > 0, nil
}

func applyMigration(ctx context.Context, db migrationDB, fsys fs.FS, name string) error {
	contents, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := db.BeginTxx(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	q := db.Rebind(`INSERT INTO schema_migrations (version) VALUES (?) ON CONFLICT (version) DO NOTHING`)
	if _, err := tx.ExecContext(ctx, q, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

type sqlxMigrationDB struct {
	db *sqlx.DB
}

func (m sqlxMigrationDB) ExecContext(ctx context.Context, query string, args ...any) (sqlResult, error) {
	return m.db.ExecContext(ctx, query, args...)
}

func (m sqlxMigrationDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return m.db.GetContext(ctx, dest, query, args...)
}

func (m sqlxMigrationDB) Rebind(query string) string { return m.db.Rebind(query) }

func (m sqlxMigrationDB) BeginTxx(ctx context.Context) (migrationTx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlxMigrationTx{tx: tx}, nil
}

type sqlxMigrationTx struct {
	tx *sqlx.Tx
}

func (m sqlxMigrationTx) ExecContext(ctx context.Context, query string, args ...any) (sqlResult, error) {
	return m.tx.ExecContext(ctx, query, args...)
}

func (m sqlxMigrationTx) Commit() error   { return m.tx.Commit() }
func (m sqlxMigrationTx) Rollback() error { return m.tx.Rollback() }
