package postgres

import (
	"embed"
	stderrors "errors"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ─────────────────────────────────────────────────────────────────────────────
// Migrate — apply the embedded ledger schema
// ─────────────────────────────────────────────────────────────────────────────

// Migrate applies every pending embedded migration.  No pending migrations
// is not an error.
func (c *Connection) Migrate() error {
	m, err := c.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		version, _, _ := m.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations").
			WithDetail(versionDetail(version))
	}
	version, dirty, err := m.Version()
	if err != nil && !stderrors.Is(err, migrate.ErrNilVersion) {
		c.logger.Warn("Failed to read migration version", logging.Err(err))
	}
	c.logger.Info("Database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty))
	return nil
}

// MigrationStatus returns the applied version and dirty flag.  A database
// with no migrations reports version 0.
func (c *Connection) MigrationStatus() (uint, bool, error) {
	m, err := c.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return version, dirty, nil
}

func (c *Connection) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open embedded migrations")
	}
	driver, err := pgxmigrate.WithInstance(c.db, &pgxmigrate.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return m, nil
}

func versionDetail(v uint) string {
	return "current version " + strconv.FormatUint(uint64(v), 10)
}

//Personal.AI order the ending
