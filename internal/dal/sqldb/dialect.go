package sqldb

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect selects the SQL backend and its parameter-binding convention.
type Dialect string

const (
	// MySQL binds positional `?` placeholders.
	MySQL Dialect = "mysql"
	// Postgres binds numbered `$n` placeholders.
	Postgres Dialect = "postgres"
	// SQLite binds `?` placeholders. Used for local development and tests.
	SQLite Dialect = "sqlite3"
)

// ParseDialect converts a configuration value into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database dialect %q (supported: mysql, postgres, sqlite3)", s)
	}
}

func (d Dialect) String() string {
	return string(d)
}

// Placeholder returns the squirrel placeholder format of the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}

	return sq.Question
}

// Builder returns a statement builder bound to the dialect's placeholders.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder())
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case MySQL:
		return "mysql"
	default:
		return "sqlite3"
	}
}

// GooseDialect is the dialect name goose expects.
func (d Dialect) GooseDialect() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "sqlite3"
	}
}

// SupportsReturning reports whether INSERT ... RETURNING yields generated keys.
func (d Dialect) SupportsReturning() bool {
	return d == Postgres
}

// MaxBindParams is the number of bind parameters one statement may carry.
func (d Dialect) MaxBindParams() int {
	switch d {
	case Postgres, MySQL:
		return 65535
	default:
		return 999
	}
}

// InsertReturningID runs an insert built with this dialect's builder and
// returns the generated id of the inserted row.
func (d Dialect) InsertReturningID(ctx context.Context, exec Executor, b sq.InsertBuilder) (int64, error) {
	if d.SupportsReturning() {
		query, args, err := b.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build insert query: %w", err)
		}

		var id int64
		if err := exec.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}

		return id, nil
	}

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert query: %w", err)
	}

	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}
