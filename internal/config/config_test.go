package config

import (
	"os"
	"testing"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearDatabaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_DATABASE", "DB_SQLITE_PATH"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDialectSelection(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want sqldb.Dialect
	}{
		{"discrete settings", map[string]string{"DB_HOST": "db", "DB_USER": "shop"}, sqldb.MySQL},
		{"connection url", map[string]string{"DATABASE_URL": "postgres://shop:pw@db:5432/shop"}, sqldb.Postgres},
		{"explicit sqlite", map[string]string{"DB_DRIVER": "sqlite3", "DATABASE_URL": "postgres://ignored"}, sqldb.SQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearDatabaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			db, err := LoadDatabase()
			require.NoError(t, err)
			got, err := db.Dialect()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	clearDatabaseEnv(t)
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USER", "shop")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_DATABASE", "store")

	db, err := LoadDatabase()
	require.NoError(t, err)

	dsn, err := db.DSN(sqldb.MySQL)
	require.NoError(t, err)
	assert.Contains(t, dsn, "shop:secret@tcp(db:3307)/store")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestPostgresRequiresURL(t *testing.T) {
	_, err := Database{}.DSN(sqldb.Postgres)
	assert.Error(t, err)
}

func TestSQLConfigReadsPoolSettings(t *testing.T) {
	clearDatabaseEnv(t)
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_SQLITE_PATH", "/tmp/shop.db")

	setDefaults()
	viper.Set("database.max_open_conns", 3)
	t.Cleanup(viper.Reset)

	db, err := LoadDatabase()
	require.NoError(t, err)
	cfg, err := db.SQLConfig()
	require.NoError(t, err)

	assert.Equal(t, sqldb.SQLite, cfg.Dialect)
	assert.Contains(t, cfg.DSN, "/tmp/shop.db")
	assert.Equal(t, 3, cfg.MaxOpenConns)
	assert.Equal(t, 15*time.Second, cfg.TxTimeout)
	assert.True(t, cfg.BatchInsert)
}

func TestUnknownDriver(t *testing.T) {
	_, err := Database{Driver: "oracle"}.Dialect()
	assert.Error(t, err)
}
