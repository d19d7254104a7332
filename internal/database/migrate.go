package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/config"
	"github.com/helenjin/databases-proj-group27/internal/logging"
)

//go:embed migrations
var migrationFS embed.FS

// Migrate applies the embedded migrations for the configured dialect. It
// opens its own handle because the migrate drivers close the DB they wrap.
func Migrate(cfg config.DatabaseConfig, logger *zap.Logger) error {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return err
	}
	dsn, err := migrationDSN(dialect, cfg.DataSourceName())
	if err != nil {
		return err
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return fmt.Errorf("open migration handle: %s", logging.SanitizeError(err))
	}

	var driver migratedb.Driver
	switch dialect {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case MySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationFS, "migrations/"+string(dialect))
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Applied migrations", zap.Uint("version", version), zap.String("dialect", string(dialect)))
	return nil
}

// migrationDSN enables multiStatements on a MySQL DSN, since migration files
// hold several statements. Postgres DSNs are returned unchanged.
func migrationDSN(dialect Dialect, dsn string) (string, error) {
	if dialect != MySQL {
		return dsn, nil
	}
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %s", logging.SanitizeError(err))
	}
	mc.MultiStatements = true
	return mc.FormatDSN(), nil
}
