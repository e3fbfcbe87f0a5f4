package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// AutoMigrateAll creates or widens every table from the gorm models. It is the only
// schema step that runs against SQLite.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// RunSQLMigrations applies the embedded Postgres-only DDL (partial indexes,
// foreign keys, check constraints) on top of the AutoMigrate schema.
func RunSQLMigrations(db *gorm.DB) (uint, bool, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, false, fmt.Errorf("get sql db: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return 0, false, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, err
	}
	return version, dirty, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	version, dirty, err := RunSQLMigrations(s.db)
	if err != nil {
		s.log.Error("SQL migration failed", "error", err)
		return err
	}
	if dirty {
		s.log.Warn("SQL migrations left dirty", "version", version)
	} else {
		s.log.Info("SQL migrations applied", "version", version)
	}
	return nil
}
