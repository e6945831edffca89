package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dialect names the SQL flavour behind a Store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ext is the query surface shared by *sqlx.DB and *sqlx.Tx.
type ext interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Queries groups the repositories bound to one connection or transaction.
type Queries struct {
	Users       UserRepository
	Calendars   CalendarRepository
	Permissions PermissionRepository
	Lists       ListRepository
	Days        DayRepository
	Tickets     TicketRepository
}

func newQueries(db ext) *Queries {
	return &Queries{
		Users:       &userRepo{db: db},
		Calendars:   &calendarRepo{db: db},
		Permissions: &permissionRepo{db: db},
		Lists:       &listRepo{db: db},
		Days:        &dayRepo{db: db},
		Tickets:     &ticketRepo{db: db},
	}
}

// Store aggregates repositories backed by a SQL database. The embedded
// Queries run outside any transaction.
type Store struct {
	*Queries

	db      *sqlx.DB
	dialect Dialect
}

// New wires concrete repository implementations with a shared connection pool.
func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{Queries: newQueries(db), db: db, dialect: dialect}
}

// Dialect reports which SQL flavour the store talks to.
func (s *Store) Dialect() Dialect { return s.dialect }

// DB exposes the underlying pool.
func (s *Store) DB() *sqlx.DB { return s.db }

// InTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back on error or panic. fn must only use q.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	defer observeDB(ctx, "db.tx")()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newQueries(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB(ctx, "db.healthcheck")()
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
