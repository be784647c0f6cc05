package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Store owns the database handle. Mutations go through InTx, reads through View.
type Store struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
	sb      sq.StatementBuilderType
}

/* ===================== CONNECT ===================== */

// Open connects to the database named by dialect and url and applies the
// embedded migrations. For SQLite, url is a file path.
func Open(ctx context.Context, dialect Dialect, url string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var s *Store
	switch dialect {
	case Postgres:
		pool, err := connectPostgres(ctx, url, 30*time.Second, logger)
		if err != nil {
			return nil, err
		}
		s = &Store{
			db:      stdlib.OpenDBFromPool(pool),
			pool:    pool,
			dialect: Postgres,
			sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		}
	case SQLite:
		db, err := openSQLite(url)
		if err != nil {
			return nil, err
		}
		s = &Store{
			db:      db,
			dialect: SQLite,
			sb:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
		}
	default:
		return nil, fmt.Errorf("unsupported db driver %q", dialect)
	}

	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// connectPostgres retries until the database answers a ping or the deadline passes.
func connectPostgres(ctx context.Context, url string, wait time.Duration, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10

	deadline := time.Now().Add(wait)
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		pool, err := pgxpool.NewWithConfig(attemptCtx, cfg)
		if err == nil {
			err = pool.Ping(attemptCtx)
			if err == nil {
				cancel()
				return pool, nil
			}
			pool.Close()
		}
		cancel()

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("connect db after retries: %w", err)
		}
		logger.Warn("database not ready, retrying", "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func openSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; transactions queue on the pool instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

/* ===================== TRANSACTIONS ===================== */

// InTx runs fn inside one transaction. Any error from fn rolls back.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{q: tx, sb: s.sb, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// View runs read-only fn directly against the pool.
func (s *Store) View(ctx context.Context, fn func(*Tx) error) error {
	return fn(&Tx{q: s.db, sb: s.sb, dialect: s.dialect})
}

// Tx carries the query methods. It is bound either to a transaction or to
// the pool (View).
type Tx struct {
	q       querier
	sb      sq.StatementBuilderType
	dialect Dialect
}

/* ===================== SQUIRREL HELPERS ===================== */

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func (t *Tx) exec(ctx context.Context, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	res, err := t.q.ExecContext(ctx, query, args...)
	return res, classify(err)
}

func (t *Tx) query(ctx context.Context, q sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return t.q.QueryContext(ctx, query, args...)
}

func (t *Tx) row(ctx context.Context, q sq.Sqlizer) rowScanner {
	query, args, err := q.ToSql()
	if err != nil {
		return errRow{err}
	}
	return t.q.QueryRowContext(ctx, query, args...)
}

// insertID runs an INSERT ... RETURNING id.
func (t *Tx) insertID(ctx context.Context, q sq.InsertBuilder) (int64, error) {
	var id int64
	if err := t.row(ctx, q.Suffix("RETURNING id")).Scan(&id); err != nil {
		return 0, classify(err)
	}
	return id, nil
}

func (t *Tx) count(ctx context.Context, q sq.SelectBuilder) (int, error) {
	var n int
	if err := t.row(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// exists expects q to select COUNT(*).
func (t *Tx) exists(ctx context.Context, q sq.SelectBuilder) (bool, error) {
	n, err := t.count(ctx, q)
	return n > 0, err
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func toMillis(v time.Time) int64 { return v.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }
