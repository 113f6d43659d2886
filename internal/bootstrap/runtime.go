// Package bootstrap wires the shared runtime dependencies of the commands.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"sociable/internal/cache"
	"sociable/internal/config"
	"sociable/internal/database"
	"sociable/internal/middleware"
	"sociable/internal/repository"
	"sociable/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema untouched; cmd/migrate manages it itself.
	SkipSchema bool
}

// InitRuntime connects to DB and Redis and ensures the development staff
// account when one is configured.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: !opts.SkipSchema})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if !opts.SkipSchema {
		if err := ensureDevStaff(context.Background(), cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap development staff account: %w", err)
		}
	}

	return db, r, nil
}

func ensureDevStaff(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || !cfg.IsDevelopment() {
		return nil
	}
	email := strings.TrimSpace(cfg.DevStaffEmail)
	if email == "" {
		return nil
	}
	if cfg.DevStaffPassword == "" {
		return fmt.Errorf("DEV_STAFF_PASSWORD must be set when DEV_STAFF_EMAIL is")
	}

	users := NewUserService(db, nil)
	user, err := users.EnsureStaff(ctx, email, cfg.DevStaffPassword)
	if err != nil {
		return err
	}
	middleware.Logger.Info("development staff account ensured", "user_id", user.ID, "email", user.Email)
	return nil
}

// NewUserService builds the account service used outside the HTTP server.
func NewUserService(db *gorm.DB, rdb *redis.Client) *service.UserService {
	return service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewProfileRepository(db),
		cache.NewStore(rdb),
		nil,
		nil,
	)
}
