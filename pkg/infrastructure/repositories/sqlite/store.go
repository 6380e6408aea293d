// Package sqlite stores inventory and production records as JSON documents in
// SQLite. Each table keeps the full document next to the few columns that are
// queried, so records round-trip exactly while filters stay indexed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store owns the database connection shared by the repositories
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the document store at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, dbPath: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS inventory_items (
		item_key TEXT PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		doc TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inventory_logs (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		item_key TEXT NOT NULL,
		lot_id TEXT,
		reference TEXT,
		created_at INTEGER NOT NULL,
		doc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_inventory_logs_item ON inventory_logs(item_key);
	CREATE INDEX IF NOT EXISTS idx_inventory_logs_lot ON inventory_logs(lot_id);
	CREATE INDEX IF NOT EXISTS idx_inventory_logs_created ON inventory_logs(created_at);
	CREATE INDEX IF NOT EXISTS idx_inventory_logs_seq ON inventory_logs(seq);

	CREATE TABLE IF NOT EXISTS ledger_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		value INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO ledger_sequence (id, value)
		SELECT 1, COALESCE(MAX(seq), 0) FROM inventory_logs;

	CREATE TABLE IF NOT EXISTS production_logs (
		id TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		lot_id TEXT NOT NULL,
		operator TEXT,
		recorded_at INTEGER NOT NULL,
		doc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_production_stage ON production_logs(stage);
	CREATE INDEX IF NOT EXISTS idx_production_lot ON production_logs(lot_id);
	CREATE INDEX IF NOT EXISTS idx_production_recorded ON production_logs(recorded_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}
