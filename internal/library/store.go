package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hywei/ebookflow/internal/models"
)

// stateKey is the single fixed key the whole collection is stored under. The
// payload is always written whole; there is no incremental update.
const stateKey = "ebook_library"

// Store persists the tracked book collection between runs.
type Store interface {
	Load() ([]models.Book, error)
	Save(books []models.Book) error
	Close() error
}

// SQLiteStore keeps the serialized collection in a one-row SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the library database at path.
func OpenStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS library_state (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		saved_at TEXT NOT NULL
	)`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Load reads the persisted collection. A store that has never been saved to
// yields an empty library, not an error.
func (s *SQLiteStore) Load() ([]models.Book, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM library_state WHERE key = ?", stateKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library state: %w", err)
	}

	var books []models.Book
	if err := json.Unmarshal(payload, &books); err != nil {
		return nil, fmt.Errorf("decode library state: %w", err)
	}
	return books, nil
}

// Save overwrites the persisted collection with the given snapshot.
func (s *SQLiteStore) Save(books []models.Book) error {
	payload, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("encode library state: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO library_state (key, payload, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		stateKey, payload, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write library state: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
