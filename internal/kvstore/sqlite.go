package kvstore

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// DriverName is the project-specific SQLCipher driver name.
	DriverName = "sqlite3_notekeep"

	// DefaultFileName is the database file created inside the data directory.
	DefaultFileName = "notekeep.db"

	// MaxOpenConns is kept at 1: SQLite is single-writer and every
	// repository mutation is a single synchronous write.
	MaxOpenConns = 1
)

// Schema is the key/value table.
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{})
}

// SQLite is a Store backed by an (optionally SQLCipher-encrypted) SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. When key is non-nil it must
// be 32 bytes and the file is encrypted with it.
func OpenSQLite(path string, key []byte) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn, err := withKey(path, key)
	if err != nil {
		return nil, err
	}
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())
	return open(dsn)
}

// NewSQLiteInMemory opens an in-memory store for tests. Stores sharing a name
// share data while any connection to it stays open.
func NewSQLiteInMemory(name string, key []byte) (*SQLite, error) {
	if name == "" {
		name = "notekeep-test"
	}
	dsn, err := withKey(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), key)
	if err != nil {
		return nil, err
	}
	return open(dsn)
}

func open(dsn string) (*SQLite, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open notes database: %w", err)
	}
	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(1)

	// A wrong key surfaces here rather than on first read
	var sqliteVersion string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify notes database: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize notes schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func withKey(dsn string, key []byte) (string, error) {
	if key == nil {
		return dsn, nil
	}
	if len(key) != 32 {
		return "", fmt.Errorf("store key must be exactly 32 bytes, got %d", len(key))
	}
	// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
	params := fmt.Sprintf("_pragma_key=x'%s'&_pragma_cipher_page_size=4096", hex.EncodeToString(key))
	return appendSQLiteParams(dsn, params), nil
}

func (s *SQLite) Get(key string) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrClosed
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(key, value string) error {
	if s.db == nil {
		return ErrClosed
	}
	_, err := s.db.Exec(`
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Remove(key string) error {
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

// Close closes the database. Further calls return ErrClosed.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func sqliteCommonParams() string {
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
