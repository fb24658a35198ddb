package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/corray333/backend-labs/storefront/pkg/logger"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func MustInit() {
	if err := godotenv.Load("./.env"); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/storefront")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
	}
	SetupLogger()
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("log.level", "info")

	viper.SetDefault("server.http.port", "5000")
	viper.SetDefault("server.http.read_timeout_seconds", 15)
	viper.SetDefault("server.http.write_timeout_seconds", 30)
	viper.SetDefault("server.http.cors.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Content-Type", "Authorization"})
	viper.SetDefault("server.http.cors.allow_credentials", true)
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime_minutes", 60)
	viper.SetDefault("database.tx_timeout_seconds", 15)
	viper.SetDefault("database.batch_insert", true)
	viper.SetDefault("database.migrate_on_start", true)

	viper.SetDefault("orders.verify_total", true)
	viper.SetDefault("orders.require_payment_before_delivery", false)
	viper.SetDefault("orders.payment_method", "MockGateway")

	viper.SetDefault("auth.cookie_name", "jwt")

	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "rabbitmq")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.exchange", "storefront.orders")
	viper.SetDefault("rabbitmq.outbox.max_retries", 5)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.jaeger_endpoint", "http://jaeger:14268/api/traces")
}

func SetupLogger() {
	handler := logger.NewHandler(nil)
	log := slog.New(handler)
	slog.SetDefault(log)
}

// Database holds the connection settings read from the environment once at
// startup.
type Database struct {
	// URL selects PostgreSQL when set.
	URL string `env:"DATABASE_URL"`
	// Driver forces a dialect; sqlite3 is meant for local development.
	Driver     string `env:"DB_DRIVER"`
	Host       string `env:"DB_HOST"        envDefault:"localhost"`
	Port       int    `env:"DB_PORT"        envDefault:"3306"`
	User       string `env:"DB_USER"        envDefault:"root"`
	Password   string `env:"DB_PASSWORD"`
	Name       string `env:"DB_DATABASE"    envDefault:"storefront"`
	SQLitePath string `env:"DB_SQLITE_PATH" envDefault:"storefront.db"`
}

// LoadDatabase parses the database settings from the environment.
func LoadDatabase() (Database, error) {
	var db Database
	if err := env.Parse(&db); err != nil {
		return Database{}, fmt.Errorf("failed to parse database config: %w", err)
	}

	return db, nil
}

// Dialect picks the backend: an explicit DB_DRIVER, else PostgreSQL when a
// connection URL is present, else MySQL.
func (d Database) Dialect() (sqldb.Dialect, error) {
	if d.Driver != "" {
		return sqldb.ParseDialect(d.Driver)
	}
	if d.URL != "" {
		return sqldb.Postgres, nil
	}

	return sqldb.MySQL, nil
}

// DSN returns the driver connection string for dialect.
func (d Database) DSN(dialect sqldb.Dialect) (string, error) {
	switch dialect {
	case sqldb.Postgres:
		if d.URL == "" {
			return "", errors.New("DATABASE_URL is required for postgres")
		}

		return d.URL, nil
	case sqldb.SQLite:
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", d.SQLitePath), nil
	default:
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
		cfg.DBName = d.Name
		cfg.ParseTime = true
		cfg.Loc = time.UTC

		return cfg.FormatDSN(), nil
	}
}

// SQLConfig builds the gateway configuration from the environment settings
// and the database.* keys.
func (d Database) SQLConfig() (sqldb.Config, error) {
	dialect, err := d.Dialect()
	if err != nil {
		return sqldb.Config{}, err
	}

	dsn, err := d.DSN(dialect)
	if err != nil {
		return sqldb.Config{}, err
	}

	return sqldb.Config{
		Dialect:         dialect,
		DSN:             dsn,
		MaxOpenConns:    viper.GetInt("database.max_open_conns"),
		MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: time.Duration(viper.GetInt("database.conn_max_lifetime_minutes")) * time.Minute,
		TxTimeout:       time.Duration(viper.GetInt("database.tx_timeout_seconds")) * time.Second,
		BatchInsert:     viper.GetBool("database.batch_insert"),
	}, nil
}

// MustSQLConfig loads the database settings and panics when they are invalid.
func MustSQLConfig() sqldb.Config {
	db, err := LoadDatabase()
	if err != nil {
		panic(err)
	}

	cfg, err := db.SQLConfig()
	if err != nil {
		panic(err)
	}

	return cfg
}
