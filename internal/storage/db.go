package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"wizqueue/internal/config"
	"wizqueue/internal/logging"
)

// Dialect identifies the SQL flavour behind a DB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// connectRetryDelay is the pause between PostgreSQL connection attempts.
var connectRetryDelay = 2 * time.Second

// Querier is satisfied by both DB and Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a database/sql pool with dialect-aware helpers.
type DB struct {
	sql     *sql.DB
	dialect Dialect
	target  string
}

// Open connects to the configured store and applies pending migrations.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("storage: config is required")
	}
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Storage.PostgresDSN, cfg.Storage.MaxOpenConns, cfg.Storage.ConnectRetries, logger)
	default:
		return OpenSQLite(ctx, cfg.Storage.SQLitePath)
	}
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Set("_txlock", "immediate")
	dsn := "file:" + path + "?" + params.Encode()

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db := &DB{sql: sqlDB, dialect: DialectSQLite, target: path}
	if err := db.init(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenPostgres connects through pgx, retrying while the server comes up.
func OpenPostgres(ctx context.Context, dsn string, maxOpen, retries int, logger *slog.Logger) (*DB, error) {
	logger = logging.NewComponentLogger(logger, "storage")
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen / 2)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if retries < 1 {
		retries = 1
	}
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = sqlDB.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt >= retries {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("connect postgres after %d attempts: %w", attempt, err)
		}
		logger.Warn("postgres not ready, retrying",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", retries),
			logging.Error(err),
		)
		select {
		case <-ctx.Done():
			_ = sqlDB.Close()
			return nil, ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}

	db := &DB{sql: sqlDB, dialect: DialectPostgres, target: redactDSN(dsn)}
	if err := db.init(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) init(ctx context.Context) error {
	if err := db.sql.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", db.dialect, err)
	}
	if err := db.applyMigrations(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the pool. Safe on a nil DB.
func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	return db.sql.Close()
}

// Dialect reports the SQL flavour.
func (db *DB) Dialect() Dialect { return db.dialect }

// Target describes the connection for logs (file path or redacted DSN).
func (db *DB) Target() string { return db.target }

// Ping verifies connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ensureContext(ctx))
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = db.sql.ExecContext(ensureContext(ctx), rebind(db.dialect, query), args...)
		return execErr
	})
	return res, classify(err)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.sql.QueryContext(ensureContext(ctx), rebind(db.dialect, query), args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.sql.QueryRowContext(ensureContext(ctx), rebind(db.dialect, query), args...)
}

// Tx is a transaction bound to the DB's dialect.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, rebind(t.dialect, query), args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, rebind(t.dialect, query), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, rebind(t.dialect, query), args...)
}

// WithTx runs fn inside a transaction. fn's writes are committed only when it
// returns nil; any error rolls everything back. The whole attempt is retried
// when SQLite reports the database as busy, so fn must not have side effects
// outside the transaction.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		sqlTx, err := db.sql.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(&Tx{tx: sqlTx, dialect: db.dialect}); err != nil {
			_ = sqlTx.Rollback()
			return err
		}
		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
	return classify(err)
}

// Rebind converts '?' placeholders for the DB's dialect.
func (db *DB) Rebind(query string) string {
	return rebind(db.dialect, query)
}

// rebind rewrites '?' to '$1..$n' for PostgreSQL. Question marks inside
// single-quoted literals are left alone.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func redactDSN(dsn string) string {
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.User == nil {
		return dsn
	}
	return parsed.Redacted()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
