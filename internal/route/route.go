// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package route

import (
	"github.com/google/uuid"

	"github.com/wneessen/stepnav/internal/geometry"
)

// Waypoint is a recorded pose along a path. The pose never changes once recorded, only the
// visited flag is updated while the user walks the route.
type Waypoint struct {
	ID      uuid.UUID          `json:"id"`
	Pose    geometry.Transform `json:"pose"`
	Visited bool               `json:"visited"`
}

// NewWaypoint returns an unvisited waypoint with a random ID.
func NewWaypoint(pose geometry.Transform) Waypoint {
	return Waypoint{ID: uuid.New(), Pose: pose}
}

// Route is an ordered list of keypoints together with a cursor that points at the next keypoint
// to reach. A Route is not safe for concurrent use.
type Route struct {
	Name      string
	waypoints []Waypoint
	next      int
}

// New returns a Route over the given keypoints. The slice is copied.
func New(name string, waypoints []Waypoint) *Route {
	wps := make([]Waypoint, len(waypoints))
	copy(wps, waypoints)
	return &Route{Name: name, waypoints: wps}
}

// Next returns the keypoint the user is currently heading to.
func (r *Route) Next() (Waypoint, bool) {
	return r.at(r.next)
}

// Previous returns the most recently checked off keypoint.
func (r *Route) Previous() (Waypoint, bool) {
	return r.at(r.next - 1)
}

// CheckOff marks the next keypoint as visited and advances the cursor. It returns false if the
// route is already complete.
func (r *Route) CheckOff() bool {
	if r.IsComplete() {
		return false
	}
	r.waypoints[r.next].Visited = true
	r.next++
	return true
}

// OnLast reports whether the next keypoint is the final one.
func (r *Route) OnLast() bool {
	return r.Remaining() == 1
}

// IsComplete reports whether all keypoints have been checked off.
func (r *Route) IsComplete() bool {
	return r.next >= len(r.waypoints)
}

// Remaining returns the number of keypoints not yet checked off.
func (r *Route) Remaining() int {
	return max(0, len(r.waypoints)-r.next)
}

// Len returns the total number of keypoints.
func (r *Route) Len() int {
	return len(r.waypoints)
}

func (r *Route) at(i int) (Waypoint, bool) {
	if i < 0 || i >= len(r.waypoints) {
		return Waypoint{}, false
	}
	return r.waypoints[i], true
}
