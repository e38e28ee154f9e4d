package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // Register sqlite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrSchemaMismatch is returned when an existing table cannot hold fx rates,
// e.g. a database created by an older tool with a different key.
var ErrSchemaMismatch = errors.New("schema mismatch")

type DB struct {
	*sql.DB
}

func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: pragmas are per-connection, in-memory databases are
	// per-connection, and the store has a single sequential writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// EnsureSchema applies pending migrations and verifies the rates table.
// It is safe to call on an up-to-date database.
func EnsureSchema(db *sql.DB) error {
	// A pre-existing table must be checked before migrations touch it.
	exists, err := ratesTableExists(db)
	if err != nil {
		return err
	}
	if exists {
		if err := verifyRatesTable(db); err != nil {
			return err
		}
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer func() { _ = src.Close() }()

	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	// m.Close is not called: the sqlite driver would close db with it.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	return verifyRatesTable(db)
}

type column struct {
	name string
	pk   int
}

var ratesColumns = []column{
	{"date", 1},
	{"base_currency", 2},
	{"target_currency", 3},
	{"rate", 0},
}

func ratesTableExists(db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'fx_rates'").Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect schema: %w", err)
	}
	return n > 0, nil
}

func verifyRatesTable(db *sql.DB) error {
	rows, err := db.Query("PRAGMA table_info(fx_rates)")
	if err != nil {
		return fmt.Errorf("inspect fx_rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	got := make(map[string]int)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		got[name] = pk
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect fx_rates: %w", err)
	}

	for _, c := range ratesColumns {
		pk, ok := got[c.name]
		if !ok {
			return fmt.Errorf("%w: fx_rates has no column %q", ErrSchemaMismatch, c.name)
		}
		if pk != c.pk {
			return fmt.Errorf("%w: fx_rates column %q has key position %d, want %d", ErrSchemaMismatch, c.name, pk, c.pk)
		}
	}
	return nil
}
