// Package sqldbtest opens migrated SQLite databases for tests.
package sqldbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/stretchr/testify/require"
)

// Option adjusts the client configuration before it is opened.
type Option func(*sqldb.Config)

// WithBatchInsert toggles multi-row inserts.
func WithBatchInsert(enabled bool) Option {
	return func(c *sqldb.Config) {
		c.BatchInsert = enabled
	}
}

// WithTxTimeout overrides the transaction timeout.
func WithTxTimeout(d time.Duration) Option {
	return func(c *sqldb.Config) {
		c.TxTimeout = d
	}
}

// DSN returns a SQLite DSN for a database file with foreign keys enabled.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
}

// NewClient opens a fresh migrated SQLite database under t.TempDir. The
// client is closed when the test ends.
func NewClient(t testing.TB, opts ...Option) *sqldb.Client {
	t.Helper()

	cfg := sqldb.Config{
		Dialect:     sqldb.SQLite,
		DSN:         DSN(filepath.Join(t.TempDir(), "storefront.db")),
		BatchInsert: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()
	client, err := sqldb.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	require.NoError(t, client.Migrate(ctx))

	return client
}

// InsertUser adds a user row and returns its id.
func InsertUser(t testing.TB, client *sqldb.Client, username string, isAdmin bool) int64 {
	t.Helper()

	b := client.Builder().Insert("users").
		Columns("username", "email", "password", "is_admin", "created_at").
		Values(username, username+"@example.com", "hash", isAdmin, time.Now().UTC())

	id, err := client.Dialect().InsertReturningID(context.Background(), client.DB(), b)
	require.NoError(t, err)

	return id
}

// Count returns the number of rows in table.
func Count(t testing.TB, client *sqldb.Client, table string) int {
	t.Helper()

	var n int
	require.NoError(t, client.DB().GetContext(context.Background(), &n, "SELECT COUNT(*) FROM "+table))

	return n
}

// Exec runs a raw statement, typically to install a fault-injection trigger.
func Exec(t testing.TB, client *sqldb.Client, stmt string) {
	t.Helper()

	_, err := client.DB().ExecContext(context.Background(), stmt)
	require.NoError(t, err)
}
