package sqlstore

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// dialect maps a driver to its goose dialect and migration directory.
func dialect(driver string) (string, error) {
	switch driver {
	case DriverPostgres, DriverPgx:
		return "postgres", nil
	case DriverMySQL:
		return "mysql", nil
	case DriverSQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

func migrationDir(driver string) string {
	switch driver {
	case DriverMySQL:
		return "migrations/mysql"
	case DriverSQLite:
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

// Migrate applies the embedded migrations for the driver of db.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	d, err := dialect(db.DriverName())
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(zap.NewStdLog(logger.Named("goose")))
	if err := goose.SetDialect(d); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, migrationDir(db.DriverName())); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
