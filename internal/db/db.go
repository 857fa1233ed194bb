// Package db opens the orchestration database and keeps its schema current.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// postgres driver
	_ "github.com/lib/pq"

	"github.com/cloud-gov/pages-core-sub005/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const pingTimeout = 5 * time.Second

// DB is the pool shared by the store.
type DB struct {
	*sqlx.DB
	logger *slog.Logger
}

// SchemaVersion is the migration version before and after an upgrade.
// Zero means no migration had been applied.
type SchemaVersion struct {
	From, To uint
}

// DSN builds a lib/pq connection string. SSL is off unless configured.
func DSN(cfg *config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode)
}

// NewDatabase opens the pool, checks it answers and upgrades the schema
// holding sites, builds, build tasks and sandbox organizations.
func NewDatabase(cfg *config.DBConfig, logger *slog.Logger) (*DB, func(), error) {
	noop := func() {}
	conn, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, noop, fmt.Errorf("open database %s on %s: %w", cfg.Database, cfg.Host, err)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, noop, fmt.Errorf("database %s on %s unreachable: %w", cfg.Database, cfg.Host, err)
	}

	db := &DB{DB: conn, logger: logger.With("database", cfg.Database)}
	version, err := db.Upgrade()
	if err != nil {
		_ = conn.Close()
		return nil, noop, err
	}
	if version.From == version.To {
		db.logger.Info("orchestration schema up to date", "version", version.To)
	} else {
		db.logger.Info("orchestration schema upgraded", "from", version.From, "to", version.To)
	}

	return db, func() {
		if err := conn.Close(); err != nil {
			db.logger.Error("closing database pool", "error", err)
		}
	}, nil
}

// Upgrade applies pending embedded migrations. A dirty schema left by an
// interrupted migration is reported and not repaired.
func (db *DB) Upgrade() (SchemaVersion, error) {
	m, err := db.migrator()
	if err != nil {
		return SchemaVersion{}, err
	}

	from, err := currentVersion(m)
	if err != nil {
		return SchemaVersion{}, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaVersion{From: from}, fmt.Errorf("upgrade schema from version %d: %w", from, err)
	}
	to, err := currentVersion(m)
	if err != nil {
		return SchemaVersion{From: from}, err
	}
	return SchemaVersion{From: from, To: to}, nil
}

func currentVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("schema version %d is dirty; fix it and run 'migrate force %d'", version, version)
	}
	return version, nil
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	target, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("prepare migration target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
