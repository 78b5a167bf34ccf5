package checkpoint

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/feedpipe/catalog-worker/pkg/log"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	sqlhooks "github.com/qustavo/sqlhooks/v2"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// registerHooksDriver guards sql.Register, which panics when the same
// driver name is registered twice.
var registerHooksDriver sync.Once

// Connect opens the checkpoint database for driver ("sqlite3" or
// "mysql") at dsn (a sqlite3 connection is wrapped with query-timing
// hooks; a mysql one is not), and applies
// pending migrations. Mirrors the teacher's repository.Connect, but
// returns the handle instead of stashing it in a package singleton —
// the worker only ever needs one Store.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	var dbHandle *sqlx.DB
	var err error

	switch driver {
	case "sqlite3":
		registerHooksDriver.Do(func() {
			sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &sqlHooks{}))
		})
		dbHandle, err = sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", dsn))
		if err != nil {
			return nil, err
		}
		// sqlite does not multithread; more than one connection just
		// waits for locks.
		dbHandle.SetMaxOpenConns(1)
	case "mysql":
		dbHandle, err = sqlx.Open("mysql", fmt.Sprintf("%s?multiStatements=true", dsn))
		if err != nil {
			return nil, err
		}
		dbHandle.SetMaxOpenConns(10)
		dbHandle.SetMaxIdleConns(10)
	default:
		return nil, fmt.Errorf("checkpoint: unsupported database driver %q", driver)
	}

	if err := dbHandle.Ping(); err != nil {
		return nil, err
	}

	if err := migrateUp(driver, dbHandle.DB); err != nil {
		return nil, err
	}

	return dbHandle, nil
}

func migrateUp(driver string, db *sql.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}

	var dbDriver database.Driver
	switch driver {
	case "sqlite3":
		dbDriver, err = migratesqlite3.WithInstance(db, &migratesqlite3.Config{})
	case "mysql":
		dbDriver, err = mysql.WithInstance(db, &mysql.Config{})
	default:
		return fmt.Errorf("checkpoint: unsupported database driver %q", driver)
	}
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	log.Debug("checkpoint: migrations applied")
	return nil
}
