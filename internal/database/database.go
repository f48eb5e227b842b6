package database

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite handle so callers can reach *sql.DB directly via db.DB.
type DB struct {
	*sql.DB
	path string
}

// Options tune the connection pool and SQLite pragmas. Zero values use defaults.
type Options struct {
	MaxOpenConns int
	BusyTimeout  int // milliseconds
	CacheSize    int // pages, negative means KiB
	MmapSize     int64
}

// Open opens (creating if needed) the SQLite database at path.
// ":memory:" yields a private in-memory database limited to one connection.
func Open(path string, opts Options) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5000
	}

	pragmas := url.Values{}
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout))
	if path != ":memory:" {
		pragmas.Add("_pragma", "journal_mode(WAL)")
		pragmas.Add("_pragma", "synchronous(NORMAL)")
	}
	if opts.CacheSize != 0 {
		pragmas.Add("_pragma", fmt.Sprintf("cache_size(%d)", opts.CacheSize))
	}
	if opts.MmapSize > 0 {
		pragmas.Add("_pragma", fmt.Sprintf("mmap_size(%d)", opts.MmapSize))
	}

	db, err := sql.Open("sqlite", path+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" gets its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// Migrate applies all pending embedded migrations.
func (db *DB) Migrate() error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Path returns the path the database was opened with.
func (db *DB) Path() string {
	return db.path
}
