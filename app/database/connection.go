package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrStoreUnavailable wraps any I/O failure at the persistence
// boundary. In-memory state stays authoritative for the session when a
// save fails with it.
var ErrStoreUnavailable = errors.New("preference store unavailable")

type DB struct {
	*sql.DB
}

// NewConnection opens the SQLite database at dbPath, creating it on
// first use. WAL mode keeps readers unblocked during writes; a single
// writer connection avoids SQLITE_BUSY on concurrent saves.
func NewConnection(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
