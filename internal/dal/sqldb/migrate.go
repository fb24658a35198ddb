package sqldb

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

func (c *Client) prepareMigrations() (string, error) {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(c.cfg.Dialect.GooseDialect()); err != nil {
		return "", fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return path.Join("migrations", c.cfg.Dialect.String()), nil
}

// Migrate applies all pending migrations of the client's dialect.
func (c *Client) Migrate(ctx context.Context) error {
	dir, err := c.prepareMigrations()
	if err != nil {
		return err
	}

	if err := goose.UpContext(ctx, c.db.DB, dir); err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, c.db.DB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	slog.Info("Database migrated", "dialect", c.cfg.Dialect.String(), "version", version)

	return nil
}

// MigrateCommand runs one goose command ("up", "down" or "status").
func (c *Client) MigrateCommand(ctx context.Context, command string) error {
	dir, err := c.prepareMigrations()
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return c.Migrate(ctx)
	case "down":
		if err := goose.DownContext(ctx, c.db.DB, dir); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	case "status":
		goose.SetLogger(log.New(os.Stdout, "", 0))
		if err := goose.StatusContext(ctx, c.db.DB, dir); err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
	default:
		return fmt.Errorf("unknown migrate command %q (supported: up, down, status)", command)
	}

	return nil
}
