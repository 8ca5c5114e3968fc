// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package pose defines the samples that travel over the pose bus.
package pose

import (
	"strings"

	"github.com/wneessen/stepnav/internal/geometry"
)

const (
	// CameraKey is the bus key of the live camera pose.
	CameraKey = "camera"
	// LandmarkPrefix prefixes the bus keys of landmark resolutions.
	LandmarkPrefix = "landmark/"
)

// Sample is a single pose reported by the AR session. Timestamp is in seconds of session
// time.
type Sample struct {
	Pose      geometry.Transform `json:"pose"`
	Timestamp float64            `json:"timestamp"`
	SessionID string             `json:"session_id,omitempty"`
}

// LandmarkKey returns the bus key for the landmark with the given id.
func LandmarkKey(id string) string {
	return LandmarkPrefix + id
}

// LandmarkID returns the landmark id of a bus key, or false if key is not a landmark key.
func LandmarkID(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, LandmarkPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
