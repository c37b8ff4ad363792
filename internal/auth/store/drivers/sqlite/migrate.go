package sqlite

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/cradle/internal/auth/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// ApplyMigrations brings the schema up to date from the SQL files embedded
// in the binary. Running it on an up-to-date database is a no-op.
func (s *Store) ApplyMigrations() error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: migrate driver: %w", err)
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return fmt.Errorf("sqlite: migrate source: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", src, "", driver)
	if err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}

	return nil
}
