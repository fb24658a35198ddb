package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/storefront/internal/metrics"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = time.Hour
	defaultTxTimeout       = 15 * time.Second
)

// Config is the connection configuration established once at startup.
type Config struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// TxTimeout bounds every transaction opened with Begin.
	TxTimeout time.Duration
	// BatchInsert enables multi-row inserts; when false rows are inserted one
	// statement at a time inside the same transaction.
	BatchInsert bool
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = defaultTxTimeout
	}

	return c
}

// Executor runs statements. Both the pool and an open transaction satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

// Client is the gateway to the relational database.
type Client struct {
	db   *sqlx.DB
	pool *pgxpool.Pool
	cfg  Config
}

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	c := &Client{cfg: cfg}

	switch cfg.Dialect {
	case Postgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse postgres connection string: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		c.pool = pool
		c.db = sqlx.NewDb(stdlib.OpenDBFromPool(pool), cfg.Dialect.DriverName())
	case MySQL, SQLite:
		db, err := sqlx.Open(cfg.Dialect.DriverName(), cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", cfg.Dialect, err)
		}
		c.db = db
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", cfg.Dialect)
	}

	c.db.SetMaxOpenConns(cfg.MaxOpenConns)
	c.db.SetMaxIdleConns(cfg.MaxIdleConns)
	c.db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := c.db.PingContext(ctx); err != nil {
		c.Close()

		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Dialect, err)
	}

	slog.Info("Database connected", "dialect", cfg.Dialect.String(), "max_open_conns", cfg.MaxOpenConns)

	return c, nil
}

// MustNewClient connects to the database and panics on failure.
func MustNewClient(ctx context.Context, cfg Config) *Client {
	c, err := Open(ctx, cfg)
	if err != nil {
		panic(err)
	}

	return c
}

// DB returns the pool for one-shot statements.
func (c *Client) DB() Executor {
	return c.db
}

// Dialect returns the dialect fixed at construction.
func (c *Client) Dialect() Dialect {
	return c.cfg.Dialect
}

// Builder returns a statement builder bound to the client's placeholders.
func (c *Client) Builder() sq.StatementBuilderType {
	return c.cfg.Dialect.Builder()
}

// BatchInsert reports whether multi-row inserts are enabled.
func (c *Client) BatchInsert() bool {
	return c.cfg.BatchInsert
}

// Ping checks that a connection can be acquired.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connections for graceful shutdown.
func (c *Client) Close() {
	if err := c.db.Close(); err != nil {
		slog.Error("Error closing database", "error", err)
	}
	if c.pool != nil {
		c.pool.Close()
	}
}

// Begin opens a transaction bounded by the configured timeout. The caller
// must defer Release on the returned handle.
func (c *Client) Begin(ctx context.Context) (*Tx, error) {
	txCtx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)

	tx, err := c.db.BeginTxx(txCtx, nil)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &Tx{tx: tx, cancel: cancel, start: time.Now()}, nil
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise, including on panic.
func (c *Client) InTx(ctx context.Context, fn func(exec Executor) error) error {
	tx, err := c.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Release()

	if err := fn(tx.Executor()); err != nil {
		return err
	}

	return tx.Commit()
}

// Tx is an open transaction holding one pooled connection.
type Tx struct {
	tx     *sqlx.Tx
	cancel context.CancelFunc
	start  time.Time
	done   bool
}

// Executor returns the transaction as an Executor.
func (t *Tx) Executor() Executor {
	return t.tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true

	if err := t.tx.Commit(); err != nil {
		metrics.ObserveTx("commit_failed", t.start)

		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	metrics.ObserveTx("commit", t.start)

	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	metrics.ObserveTx("rollback", t.start)

	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// Release rolls back the transaction unless it was already finished and
// returns its connection to the pool. Safe to call more than once.
func (t *Tx) Release() {
	if !t.done {
		if err := t.Rollback(); err != nil {
			slog.Error("Error rolling back released transaction", "error", err)
		}
	}
	t.cancel()
}
