package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the account's local mail cache (mail.db): messages, contacts and
// sync checkpoints. It is the ground truth the unread counters summarize.
type DB struct {
	*sql.DB
}

// Open opens mail.db in WAL mode with a busy timeout so the job worker and
// RPC handlers can share the handle.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open mail db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mail db: %w", err)
	}
	return &DB{db}, nil
}
