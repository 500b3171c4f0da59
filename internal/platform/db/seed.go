package db

import (
	"context"
	"fmt"
	"log/slog"

	"staffdesk/internal/platform/config"
)

// AdminSeeder creates the bootstrap admin when it does not exist yet.
type AdminSeeder interface {
	EnsureAdmin(ctx context.Context, name, email, password string) (bool, error)
}

func Seed(ctx context.Context, admins AdminSeeder, cfg config.Config) error {
	if cfg.SeedAdminPassword == "" {
		slog.Warn("seed admin password not set; skipping admin seed", "email", cfg.SeedAdminEmail)
		return nil
	}
	if _, err := admins.EnsureAdmin(ctx, cfg.SeedAdminName, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
