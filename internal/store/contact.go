package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const contactUpsert = `
	INSERT INTO contacts (id, name, uid, size, create_time, modify_time, label_ids, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
		uid = excluded.uid,
		size = excluded.size,
		create_time = excluded.create_time,
		modify_time = excluded.modify_time,
		label_ids = excluded.label_ids,
		updated_at = excluded.updated_at`

// BulkUpsertContacts inserts or updates contacts in a single transaction.
func (db *DB) BulkUpsertContacts(contacts []Contact) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range contacts {
		if _, err := tx.Exec(contactUpsert,
			c.ID, c.Name, c.UID, c.Size, c.CreateTime, c.ModifyTime, strings.Join(c.LabelIDs, ","), now); err != nil {
			return fmt.Errorf("upsert contact %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetContact returns a contact by ID, or nil if there is none.
func (db *DB) GetContact(id string) (*Contact, error) {
	row := db.QueryRow(`SELECT id, name, uid, size, create_time, modify_time, label_ids FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListContacts returns contacts ordered by name.
func (db *DB) ListContacts(limit, offset int) ([]Contact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, name, uid, size, create_time, modify_time, label_ids
		FROM contacts
		ORDER BY name COLLATE NOCASE, id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ContactCount returns the number of cached contacts.
func (db *DB) ContactCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*Contact, error) {
	var c Contact
	var labels string
	if err := s.Scan(&c.ID, &c.Name, &c.UID, &c.Size, &c.CreateTime, &c.ModifyTime, &labels); err != nil {
		return nil, err
	}
	if labels != "" {
		c.LabelIDs = strings.Split(labels, ",")
	}
	return &c, nil
}
