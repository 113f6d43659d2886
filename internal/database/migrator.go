package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"sociable/internal/middleware"

	"gorm.io/gorm"
)

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// Checksum fingerprints the up script so edits to applied files are caught.
func (m *Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

// Migrator applies a fixed set of migrations against one database.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int { return a.Version - b.Version })
	return &Migrator{db: db, migrations: sorted}
}

// Applied lists recorded migrations in version order. A missing
// schema_migrations table reads as nothing applied.
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if !m.db.WithContext(ctx).Migrator().HasTable(&AppliedMigration{}) {
		return nil, nil
	}
	var rows []AppliedMigration
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

// Pending returns the registered migrations that are not recorded yet.
func (m *Migrator) Pending(applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	var pending []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending
}

// Verify fails when the database records a version the binary does not
// know about, or when an applied script has since changed.
func (m *Migrator) Verify(applied []AppliedMigration) error {
	byVersion := make(map[int]*Migration, len(m.migrations))
	for i := range m.migrations {
		byVersion[m.migrations[i].Version] = &m.migrations[i]
	}
	for _, a := range applied {
		mig, ok := byVersion[a.Version]
		if !ok {
			return fmt.Errorf("schema_migrations has version %06d which this build does not ship", a.Version)
		}
		if a.Checksum != "" && a.Checksum != mig.Checksum() {
			return fmt.Errorf("migration %s was edited after it was applied", mig)
		}
	}
	return nil
}

// Up applies every pending migration, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&AppliedMigration{}); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.Verify(applied); err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.Pending(applied) {
		middleware.Logger.Info("Applying migration", slog.String("migration", mig.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return fmt.Errorf("apply %s: %w", mig.String(), err)
			}
			return tx.Create(&AppliedMigration{
				Version:  mig.Version,
				Name:     mig.Name,
				Checksum: mig.Checksum(),
			}).Error
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Down reverts one applied migration and removes its record.
func (m *Migrator) Down(ctx context.Context, version int) error {
	idx := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == version })
	if idx < 0 {
		return fmt.Errorf("migration version %d not found", version)
	}
	mig := m.migrations[idx]

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(applied, func(a AppliedMigration) bool { return a.Version == version }) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", mig.String(), err)
		}
		return tx.Where("version = ?", version).Delete(&AppliedMigration{}).Error
	})
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	n, err := NewMigrator(db, migrations).Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("SQL migrations up to date", slog.Int("applied", n))
	return nil
}

// RollbackMigration reverts one embedded migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(db, migrations).Down(ctx, version)
}
