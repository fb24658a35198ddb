package sqldb_test

import (
	"context"
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb/sqldbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    sqldb.Dialect
		wantErr bool
	}{
		{"mysql", sqldb.MySQL, false},
		{"postgres", sqldb.Postgres, false},
		{"PostgreSQL", sqldb.Postgres, false},
		{"pgx", sqldb.Postgres, false},
		{" sqlite3 ", sqldb.SQLite, false},
		{"sqlite", sqldb.SQLite, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sqldb.ParseDialect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaceholdersFollowDialect(t *testing.T) {
	build := func(d sqldb.Dialect) string {
		query, args, err := d.Builder().
			Update("orders").
			Set("is_paid", true).
			Where(sq.Eq{"id": 7}).
			ToSql()
		require.NoError(t, err)
		assert.Equal(t, []any{true, 7}, args)

		return query
	}

	assert.Equal(t, "UPDATE orders SET is_paid = ? WHERE id = ?", build(sqldb.MySQL))
	assert.Equal(t, "UPDATE orders SET is_paid = ? WHERE id = ?", build(sqldb.SQLite))
	assert.Equal(t, "UPDATE orders SET is_paid = $1 WHERE id = $2", build(sqldb.Postgres))
}

func TestDialectCapabilities(t *testing.T) {
	assert.True(t, sqldb.Postgres.SupportsReturning())
	assert.False(t, sqldb.MySQL.SupportsReturning())
	assert.Equal(t, "pgx", sqldb.Postgres.DriverName())
	assert.Equal(t, "mysql", sqldb.MySQL.GooseDialect())
	assert.Equal(t, 999, sqldb.SQLite.MaxBindParams())
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := sqldb.Open(context.Background(), sqldb.Config{Dialect: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestInTxCommits(t *testing.T) {
	client := sqldbtest.NewClient(t)
	ctx := context.Background()

	err := client.InTx(ctx, func(exec sqldb.Executor) error {
		_, err := exec.ExecContext(ctx,
			"INSERT INTO users (username, email, password, is_admin, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
			"alice", "alice@example.com", "hash", false)

		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sqldbtest.Count(t, client, "users"))
}

func TestInTxRollsBackOnError(t *testing.T) {
	client := sqldbtest.NewClient(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := client.InTx(ctx, func(exec sqldb.Executor) error {
		_, err := exec.ExecContext(ctx,
			"INSERT INTO users (username, email, password, is_admin, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
			"alice", "alice@example.com", "hash", false)
		require.NoError(t, err)

		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 0, sqldbtest.Count(t, client, "users"))
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	client := sqldbtest.NewClient(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = client.InTx(ctx, func(exec sqldb.Executor) error {
			_, err := exec.ExecContext(ctx,
				"INSERT INTO users (username, email, password, is_admin, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
				"alice", "alice@example.com", "hash", false)
			require.NoError(t, err)
			panic("handler exploded")
		})
	})

	assert.Equal(t, 0, sqldbtest.Count(t, client, "users"))
}

func TestTxReleaseIsSafeOnEveryPath(t *testing.T) {
	client := sqldbtest.NewClient(t)
	ctx := context.Background()

	tx, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	tx.Release()
	tx.Release()
	assert.NoError(t, tx.Rollback())

	tx, err = client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	tx.Release()

	tx, err = client.Begin(ctx)
	require.NoError(t, err)
	tx.Release()
	assert.Error(t, tx.Commit())
}

func TestBeginWithCancelledContext(t *testing.T) {
	client := sqldbtest.NewClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInsertReturningID(t *testing.T) {
	client := sqldbtest.NewClient(t)

	first := sqldbtest.InsertUser(t, client, "alice", false)
	second := sqldbtest.InsertUser(t, client, "bob", true)

	assert.Positive(t, first)
	assert.Greater(t, second, first)
}

func TestMigrateIsRepeatable(t *testing.T) {
	client := sqldbtest.NewClient(t)

	require.NoError(t, client.Migrate(context.Background()))
	require.NoError(t, client.MigrateCommand(context.Background(), "status"))
	assert.Error(t, client.MigrateCommand(context.Background(), "sideways"))
}
