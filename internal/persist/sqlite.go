package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/notemaster/internal/models"
)

// SlotKey is the fixed application identifier the state record is keyed by.
const SlotKey = "notemaster-storage"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS app_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLite is a Slot backed by a local SQLite database holding a single
// key/value record.
type SQLite struct {
	conn *sql.DB
	key  string
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("persist: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: apply schema: %w", err)
	}
	return &SQLite{conn: conn, key: SlotKey}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Load reads and decodes the state record. An absent record or an
// undecodable value yields (zero, false, nil): the caller falls back to empty
// defaults, which triggers the welcome-content path.
func (s *SQLite) Load() (models.Snapshot, bool, error) {
	var raw string
	err := s.conn.QueryRow(`SELECT value FROM app_state WHERE key = ?`, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("persist: read slot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		slog.Warn("persist: slot content undecodable, starting from defaults",
			slog.String("key", s.key), slog.String("error", err.Error()))
		return models.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Save upserts the JSON-serialized snapshot into the slot.
func (s *SQLite) Save(snap models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("persist: encode snapshot: %w", err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, s.key, string(raw))
	if err != nil {
		return fmt.Errorf("persist: write slot: %w", err)
	}
	return nil
}

// Verify SQLite satisfies Slot at compile time.
var _ Slot = (*SQLite)(nil)
