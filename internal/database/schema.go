package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"sociable/internal/config"
	"sociable/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

var protectedEnvs = []string{"production", "prod", "staging", "stage"}

// schemaPlan is what ApplySchema will do for a given config.
type schemaPlan struct {
	Mode    string
	RunSQL  bool
	RunAuto bool
}

// SchemaStatus reports the plan plus the migration bookkeeping.
type SchemaStatus struct {
	Mode               string
	Environment        string
	Driver             string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// planSchema resolves DB_SCHEMA_MODE against the driver and environment.
// The embedded SQL is Postgres-only, so sqlite is always auto-migrated.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{Mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	protected := slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))
	sqlite := driverName(cfg) == DriverSQLite

	switch plan.Mode {
	case SchemaModeSQL:
		if sqlite {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=sql requires DB_DRIVER=postgres")
		}
		plan.RunSQL = true
	case SchemaModeAuto:
		if protected && !sqlite && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAuto = true
	case SchemaModeHybrid:
		plan.RunSQL = !sqlite
		plan.RunAuto = sqlite || !protected
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// AutoMigrate creates or updates tables for every persistent model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database schema up to date according to the config.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.RunAuto {
		return nil
	}

	if plan.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
		middleware.Logger.Warn("auto-migrating with DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true")
	}
	middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus describes the plan and, for SQL plans, what is applied and pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.Mode,
		Environment:        cfg.Env,
		Driver:             driverName(cfg),
		WillRunSQL:         plan.RunSQL,
		WillRunAutoMigrate: plan.RunAuto,
	}
	if !plan.RunSQL {
		return status, nil
	}

	m := NewMigrator(db, migrations)
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range applied {
		status.AppliedVersions = append(status.AppliedVersions, a.Version)
	}
	status.PendingMigrations = m.Pending(applied)
	return status, nil
}
