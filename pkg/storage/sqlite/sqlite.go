// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoki.
//
// go-cryptoki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package sqlite stores token objects in a single SQLite database file,
// one row per storage key.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
)

// DB wraps a sql.DB and implements storage.Backend.
type DB struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// New opens (or creates) the database at path and initializes its schema.
// Use ":memory:" for a throwaway database.
func New(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite storage: database path cannot be empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createEntriesQuery); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite storage: create tables: %w", err)
	}
	return &DB{db: db}, nil
}

// Get retrieves the value stored under key.
func (d *DB) Get(key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, storage.ErrClosed
	}

	var value []byte
	err := d.db.QueryRow(getEntryQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: get %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
func (d *DB) Put(key string, value []byte, opts *storage.Options) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if opts == nil {
		opts = storage.DefaultOptions()
	}
	if value == nil {
		value = []byte{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return storage.ErrClosed
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite storage: begin: %w", err)
	}
	stmt, err := tx.Prepare(putEntryQuery)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite storage: prepare put: %w", err)
	}
	defer stmt.Close()
	if _, err := stmt.Exec(key, value, uint32(opts.Permissions)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite storage: put %q: %w", key, err)
	}
	return tx.Commit()
}

// Delete removes key. It returns storage.ErrNotFound when no row matched.
func (d *DB) Delete(key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return storage.ErrClosed
	}

	res, err := d.db.Exec(deleteEntryQuery, key)
	if err != nil {
		return fmt.Errorf("sqlite storage: delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite storage: delete %q: %w", key, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns the keys starting with prefix, sorted.
func (d *DB) List(prefix string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, storage.ErrClosed
	}

	rows, err := d.db.Query(listEntriesQuery, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: list %q: %w", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("sqlite storage: list %q: %w", prefix, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Exists reports whether key has a stored value.
func (d *DB) Exists(key string) (bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false, storage.ErrClosed
	}

	var n int
	if err := d.db.QueryRow(existsEntryQuery, key).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite storage: exists %q: %w", key, err)
	}
	return n > 0, nil
}

// Close closes the database. Further calls return storage.ErrClosed.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

var _ storage.Backend = (*DB)(nil)
