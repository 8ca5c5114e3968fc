// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package pathlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned if a record does not exist in the store.
var ErrNotFound = errors.New("record not found")

// timeLayout has a fixed width so that the stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `CREATE TABLE IF NOT EXISTS path_logs (
	id TEXT PRIMARY KEY,
	route TEXT NOT NULL,
	started_at TEXT NOT NULL,
	pose_count INTEGER NOT NULL,
	data TEXT NOT NULL
)`

// Summary describes a stored record without its poses.
type Summary struct {
	ID        uuid.UUID
	Route     string
	StartedAt time.Time
	PoseCount int
}

// SQLiteStore keeps records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save implements Store. Saving a record with an existing ID replaces it.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO path_logs (id, route, started_at, pose_count, data) VALUES (?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Route, rec.StartedAt.UTC().Format(timeLayout), len(rec.Poses), string(data))
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Load returns the record with the given ID.
func (s *SQLiteStore) Load(ctx context.Context, id uuid.UUID) (Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM path_logs WHERE id = ?`, id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query record: %w", err)
	}
	var rec Record
	if err = json.Unmarshal([]byte(data), &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

// List returns the summaries of all records, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, route, started_at, pose_count FROM path_logs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []Summary
	for rows.Next() {
		var id, startedAt string
		var summary Summary
		if err = rows.Scan(&id, &summary.Route, &startedAt, &summary.PoseCount); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if summary.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid record ID %q: %w", id, err)
		}
		if summary.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("invalid start time %q: %w", startedAt, err)
		}
		list = append(list, summary)
	}
	return list, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
