// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package pathlog records the poses and landmark resolutions of a navigation session so they
// can be stored and replayed later.
package pathlog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wneessen/stepnav/internal/geometry"
)

// ErrAlreadySaved is returned if a log has been saved since it was started.
var ErrAlreadySaved = errors.New("log has already been saved")

// Resolution is a logged landmark resolution together with the expected map pose.
type Resolution struct {
	LandmarkID string             `json:"landmark_id"`
	SessionID  string             `json:"session_id,omitempty"`
	Pose       geometry.Transform `json:"pose"`
	MapPose    geometry.Transform `json:"map_pose"`
	Timestamp  float64            `json:"timestamp"`
}

// Record is a finished log.
type Record struct {
	ID             uuid.UUID            `json:"id"`
	Route          string               `json:"route"`
	StartedAt      time.Time            `json:"started_at"`
	Poses          []geometry.Transform `json:"poses"`
	PoseTimestamps []float64            `json:"pose_timestamps"`
	Resolutions    []Resolution         `json:"landmark_resolutions"`
	Landmarks      []string             `json:"landmarks"`
}

// Duration returns the time span covered by the logged poses.
func (r Record) Duration() time.Duration {
	if len(r.PoseTimestamps) < 2 {
		return 0
	}
	span := r.PoseTimestamps[len(r.PoseTimestamps)-1] - r.PoseTimestamps[0]
	return time.Duration(span * float64(time.Second))
}

// Store persists records.
type Store interface {
	Save(ctx context.Context, rec Record) error
}

// Log collects poses while logging is enabled. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	logging bool
	saving  bool
	saved   bool
	rec     Record
}

// New returns an idle Log.
func New() *Log {
	return &Log{}
}

// Start discards all logged data and starts a new log for the named route.
func (l *Log) Start(route string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec = Record{ID: uuid.New(), Route: route, StartedAt: time.Now()}
	l.logging = true
	l.saving = false
	l.saved = false
}

// Stop stops logging. Logged data is kept until it is saved or reset.
func (l *Log) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logging = false
}

// IsLogging reports whether logging is enabled.
func (l *Log) IsLogging() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logging
}

// AddPose logs a device pose at a timestamp in seconds.
func (l *Log) AddPose(pose geometry.Transform, timestamp float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.logging {
		return
	}
	l.rec.Poses = append(l.rec.Poses, pose)
	l.rec.PoseTimestamps = append(l.rec.PoseTimestamps, timestamp)
}

// AddResolution logs a landmark resolution.
func (l *Log) AddResolution(r Resolution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.logging {
		return
	}
	l.rec.Resolutions = append(l.rec.Resolutions, r)
}

// SetLandmarks logs the IDs of the landmarks that may be resolved on the route.
func (l *Log) SetLandmarks(landmarks map[string]geometry.Transform) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(landmarks))
	for id := range landmarks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	l.rec.Landmarks = ids
}

// Snapshot returns a copy of the current log.
func (l *Log) Snapshot() Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Reset discards all logged data and stops logging.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec = Record{}
	l.logging = false
}

// Save hands the log to the store and resets it. A log is saved at most once per Start; a
// Save that runs while another one is in flight returns ErrAlreadySaved. A failed Save can be
// retried.
func (l *Log) Save(ctx context.Context, store Store) error {
	l.mu.Lock()
	if l.saved || l.saving {
		l.mu.Unlock()
		return ErrAlreadySaved
	}
	l.saving = true
	rec := l.snapshot()
	l.mu.Unlock()

	err := store.Save(ctx, rec)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rec.ID != rec.ID {
		// restarted while saving, the new log has its own state
		return err
	}
	l.saving = false
	if err != nil {
		return fmt.Errorf("failed to save path log %s: %w", rec.ID, err)
	}
	l.saved = true
	l.rec = Record{}
	l.logging = false
	return nil
}

func (l *Log) snapshot() Record {
	rec := l.rec
	rec.Poses = slices.Clone(l.rec.Poses)
	rec.PoseTimestamps = slices.Clone(l.rec.PoseTimestamps)
	rec.Resolutions = slices.Clone(l.rec.Resolutions)
	rec.Landmarks = slices.Clone(l.rec.Landmarks)
	return rec
}
