// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// DOCUMENT-STYLE ROWS:
// Each aggregate (item, collection) is one row. The lists it owns (media
// attachments, collection members, likes, tags, genres) are stored as JSON
// text columns on that row instead of child tables. They have no identity
// of their own and are always read and written together with their parent,
// so a row update is the consistency boundary for all of them.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of SQLite. It needs no C compiler and
// cross-compiles anywhere Go does.
package sqlite

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sql.DB connection pool. The per-entity stores (Items,
// Collections, Platforms, Users) share it.
type DB struct {
	conn *sql.DB
}

// Open connects to the database at dbPath without touching the schema.
//
// dbPath examples:
//   - "data/gamelibrary.db" → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives inside a single connection. If the pool
	// opened a second one it would see an empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	return &DB{conn: conn}, nil
}

// New opens the database and applies every pending migration.
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) Items() *ItemStore             { return &ItemStore{conn: db.conn} }
func (db *DB) Collections() *CollectionStore { return &CollectionStore{conn: db.conn} }
func (db *DB) Platforms() *PlatformStore     { return &PlatformStore{conn: db.conn} }
func (db *DB) Users() *UserStore             { return &UserStore{conn: db.conn} }

// MigrateUp applies all pending migrations from the embedded migrations dir.
func (db *DB) MigrateUp() error {
	m, src, err := db.migrator()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// MigrateDown reverts every applied migration.
func (db *DB) MigrateDown() error {
	m, src, err := db.migrator()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("reverting migrations: %w", err)
	}
	return nil
}

// migrator builds a golang-migrate instance on top of the existing pool.
//
// We never call m.Close(): the sqlite driver's Close would close db.conn,
// which the rest of the app still owns. Only the source is released.
func (db *DB) migrator() (*migrate.Migrate, interface{ Close() error }, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("opening migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, src, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// encodeList marshals an embedded list. A nil slice is stored as "[]" so
// reads never have to special-case NULL or "null".
func encodeList[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList[T any](raw string) ([]T, error) {
	out := []T{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// likePattern turns free text into a LIKE pattern matching it as a
// substring. % and _ in the input are escaped with a backslash.
func likePattern(q string) string {
	out := make([]rune, 0, len(q)+2)
	out = append(out, '%')
	for _, r := range q {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	out = append(out, '%')
	return string(out)
}
