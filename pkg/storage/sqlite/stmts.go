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

package sqlite

const (
	createEntriesQuery = `CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		permissions INTEGER NOT NULL DEFAULT 384
	)`

	getEntryQuery = `SELECT value FROM entries WHERE key = ?`

	putEntryQuery = `INSERT INTO entries (key, value, permissions) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, permissions = excluded.permissions`

	deleteEntryQuery = `DELETE FROM entries WHERE key = ?`

	listEntriesQuery = `SELECT key FROM entries WHERE substr(key, 1, ?) = ? ORDER BY key`

	existsEntryQuery = `SELECT COUNT(*) FROM entries WHERE key = ?`
)
