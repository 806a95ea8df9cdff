package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/mailcount/internal/folder"
)

// UpsertMessage inserts or replaces a message by ID.
func (db *DB) UpsertMessage(m *Message) error {
	_, err := db.Exec(`
		INSERT INTO messages (id, subject, location, is_read, time, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			location = excluded.location,
			is_read = excluded.is_read,
			time = excluded.time,
			updated_at = excluded.updated_at`,
		m.ID, m.Subject, int(m.Location), m.IsRead, m.Time, time.Now().UnixMilli())
	return err
}

// FindMessageByID returns the message with the given ID, or nil if there is none.
func (db *DB) FindMessageByID(id string) (*Message, error) {
	var m Message
	var loc int
	err := db.QueryRow(`SELECT id, subject, location, is_read, time FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.Subject, &loc, &m.IsRead, &m.Time)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Location = folder.Location(loc)
	return &m, nil
}

// SetRead updates a message's read flag.
func (db *DB) SetRead(id string, read bool) error {
	_, err := db.Exec(`UPDATE messages SET is_read = ?, updated_at = ? WHERE id = ?`, read, time.Now().UnixMilli(), id)
	return err
}

// SetLocation moves a message to another location.
func (db *DB) SetLocation(id string, loc folder.Location) error {
	_, err := db.Exec(`UPDATE messages SET location = ?, updated_at = ? WHERE id = ?`, int(loc), time.Now().UnixMilli(), id)
	return err
}

// ListMessages returns the newest messages in a location.
func (db *DB) ListMessages(loc folder.Location, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, subject, location, is_read, time
		FROM messages
		WHERE location = ?
		ORDER BY time DESC
		LIMIT ?`, int(loc), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		var l int
		if err := rows.Scan(&m.ID, &m.Subject, &l, &m.IsRead, &m.Time); err != nil {
			return nil, err
		}
		m.Location = folder.Location(l)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountUnreadByLocation counts unread messages per location. Locations with
// no unread messages are absent from the map.
func (db *DB) CountUnreadByLocation() (map[folder.Location]int, error) {
	rows, err := db.Query(`SELECT location, COUNT(*) FROM messages WHERE is_read = 0 GROUP BY location`)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[folder.Location]int)
	for rows.Next() {
		var loc, n int
		if err := rows.Scan(&loc, &n); err != nil {
			return nil, err
		}
		counts[folder.Location(loc)] = n
	}
	return counts, rows.Err()
}

// UpdateCheckpoint stores a sync checkpoint value.
func (db *DB) UpdateCheckpoint(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// Checkpoint returns a sync checkpoint value, or "" when unset.
func (db *DB) Checkpoint(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
