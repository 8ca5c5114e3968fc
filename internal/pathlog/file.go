// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package pathlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wneessen/stepnav/internal/http"
)

// FileStore writes every record as a JSON file into a directory.
type FileStore struct {
	Dir string
}

// Save implements Store.
func (s FileStore) Save(_ context.Context, rec Record) error {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err = os.WriteFile(s.Path(rec), data, 0o600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Path returns the file name of a record.
func (s FileStore) Path(rec Record) string {
	return filepath.Join(s.Dir, rec.ID.String()+".json")
}

// ReadFile reads a record written by FileStore.
func ReadFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record: %w", err)
	}
	var rec Record
	if err = json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	if len(rec.Poses) != len(rec.PoseTimestamps) {
		return Record{}, fmt.Errorf("record has %d poses but %d timestamps", len(rec.Poses),
			len(rec.PoseTimestamps))
	}
	return rec, nil
}

// HTTPStore uploads every record as JSON to an HTTP endpoint.
type HTTPStore struct {
	Client *http.Client
	URL    string
}

// Save implements Store.
func (s HTTPStore) Save(ctx context.Context, rec Record) error {
	if _, err := s.Client.PostJSON(ctx, s.URL, http.Request{Body: rec}, nil); err != nil {
		return fmt.Errorf("failed to upload record: %w", err)
	}
	return nil
}
