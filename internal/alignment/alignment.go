// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package alignment aligns the frame of a recorded map to the frame of the live AR session.
// Every resolved landmark proposes an alignment, and the proposals vote on each other.
package alignment

import (
	"slices"
	"sync"
	"time"

	"github.com/wneessen/stepnav/internal/geometry"
)

const (
	// InlierRadius is the distance in meters within which two alignments agree on the device
	// position.
	InlierRadius = 2.0

	maxHistory = 16
)

// Resolution is a landmark pose reported by the AR session.
type Resolution struct {
	ID   string             `json:"id"`
	Pose geometry.Transform `json:"pose"`
	At   time.Time          `json:"at"`
}

// Aligner maintains the transform from map space to session space. It is safe for concurrent
// use.
type Aligner struct {
	mu        sync.RWMutex
	landmarks map[string]geometry.Transform
	resolved  map[string][]Resolution
	current   geometry.Transform
	aligned   bool
}

// New returns an Aligner without landmarks.
func New() *Aligner {
	return &Aligner{
		landmarks: make(map[string]geometry.Transform),
		resolved:  make(map[string][]Resolution),
	}
}

// SetLandmarks replaces the expected landmark poses in map space.
func (a *Aligner) SetLandmarks(landmarks map[string]geometry.Transform) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.landmarks = make(map[string]geometry.Transform, len(landmarks))
	for id, pose := range landmarks {
		a.landmarks[id] = pose
	}
}

// Landmarks returns a copy of the expected landmark poses.
func (a *Aligner) Landmarks() map[string]geometry.Transform {
	a.mu.RLock()
	defer a.mu.RUnlock()
	landmarks := make(map[string]geometry.Transform, len(a.landmarks))
	for id, pose := range a.landmarks {
		landmarks[id] = pose
	}
	return landmarks
}

// Resolve records a landmark pose. It returns false if the landmark is not part of the map;
// the resolution is kept anyway in case the landmarks change.
func (a *Aligner) Resolve(r Resolution) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	history := append(a.resolved[r.ID], r)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	a.resolved[r.ID] = history
	_, ok := a.landmarks[r.ID]
	return ok
}

// Adjust recomputes the alignment for the given device pose. Every landmark with a resolution
// proposes the alignment that maps its levelled map pose onto its levelled session pose. Each
// proposal collects a vote from every proposal, and from the current alignment, that puts the
// device within InlierRadius of where the proposal puts it. The proposal with most votes wins,
// ties go to the most recent resolution. Without proposals the current alignment is kept.
func (a *Aligner) Adjust(device geometry.Transform) (geometry.Transform, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	type proposal struct {
		at        time.Time
		alignment geometry.Transform
	}
	ids := make([]string, 0, len(a.resolved))
	for id := range a.resolved {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var proposals []proposal
	for _, id := range ids {
		mapPose, ok := a.landmarks[id]
		history := a.resolved[id]
		if !ok || len(history) == 0 {
			continue
		}
		last := history[len(history)-1]
		proposals = append(proposals, proposal{
			at:        last.At,
			alignment: last.Pose.AlignY(false).Mul(mapPose.AlignY(false).Inverse()),
		})
	}
	if len(proposals) == 0 {
		return a.current, a.aligned
	}

	voters := make([]geometry.Transform, 0, len(proposals)+1)
	for _, p := range proposals {
		voters = append(voters, p.alignment)
	}
	if a.aligned {
		voters = append(voters, a.current)
	}

	best, bestVotes := -1, 0
	for i, p := range proposals {
		projected := p.alignment.Mul(device).Translation()
		votes := 0
		for _, voter := range voters {
			if voter.Mul(device).Translation().Sub(projected).Len() < InlierRadius {
				votes++
			}
		}
		if best < 0 || votes > bestVotes || (votes == bestVotes && p.at.After(proposals[best].at)) {
			best, bestVotes = i, votes
		}
	}

	a.current = proposals[best].alignment
	a.aligned = true
	return a.current, true
}

// Current returns the current alignment.
func (a *Aligner) Current() (geometry.Transform, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current, a.aligned
}

// HasAligned reports whether an alignment has been found.
func (a *Aligner) HasAligned() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.aligned
}

// Locate maps a pose from map space into session space. Before the first alignment the pose
// is returned unchanged.
func (a *Aligner) Locate(t geometry.Transform) geometry.Transform {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.aligned {
		return t
	}
	return a.current.Mul(t)
}

// Reset forgets all resolutions and the current alignment. Landmarks are kept.
func (a *Aligner) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resolved = make(map[string][]Resolution)
	a.current = geometry.Transform{}
	a.aligned = false
}
