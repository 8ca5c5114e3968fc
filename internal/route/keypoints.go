// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package route

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wneessen/stepnav/internal/geometry"
)

const (
	// DefaultPathWidth is the maximum width of a breadcrumb path in meters. Crumbs further away
	// from the straight line between two keypoints produce another keypoint.
	DefaultPathWidth = 0.3

	// manualPathWidth keeps every manually selected crumb as a keypoint.
	manualPathWidth = 0.0001

	epsilon = 1e-9
)

// ErrIndexOutOfRange is returned if a manual keypoint index does not reference a crumb.
var ErrIndexOutOfRange = errors.New("keypoint index out of range")

// ExtractKeypoints reduces a breadcrumb trail to the keypoints that describe its turns, using
// the Ramer-Douglas-Peucker algorithm. The first and the last crumb are always keypoints.
// A non-positive pathWidth selects DefaultPathWidth.
func ExtractKeypoints(crumbs []geometry.Transform, pathWidth float64) []Waypoint {
	if len(crumbs) == 0 {
		return nil
	}
	if pathWidth <= 0 {
		pathWidth = DefaultPathWidth
	}
	keypoints := []Waypoint{NewWaypoint(crumbs[0])}
	if len(crumbs) == 1 {
		return keypoints
	}
	keypoints = append(keypoints, simplify(crumbs, pathWidth)...)
	return append(keypoints, NewWaypoint(crumbs[len(crumbs)-1]))
}

// ManualKeypoints builds keypoints from the crumbs at the given indices only.
func ManualKeypoints(crumbs []geometry.Transform, indices []int) ([]Waypoint, error) {
	selected := make([]geometry.Transform, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(crumbs) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		selected = append(selected, crumbs[idx])
	}
	return ExtractKeypoints(selected, manualPathWidth), nil
}

// simplify returns the inner keypoints of crumbs, excluding the first and last crumb.
func simplify(crumbs []geometry.Transform, pathWidth float64) []Waypoint {
	first := crumbs[0].Translation()
	last := crumbs[len(crumbs)-1].Translation()

	maxDistance, maxIndex := 0.0, 0
	for i, crumb := range crumbs {
		distance := distanceFromLine(crumb.Translation().Sub(first), last.Sub(first))
		if distance > maxDistance {
			maxDistance, maxIndex = distance, i
		}
	}
	if maxDistance <= pathWidth {
		return nil
	}

	var keypoints []Waypoint
	keypoints = append(keypoints, simplify(crumbs[:maxIndex+1], pathWidth)...)
	keypoints = append(keypoints, NewWaypoint(crumbs[maxIndex]))
	return append(keypoints, simplify(crumbs[maxIndex:], pathWidth)...)
}

// distanceFromLine returns the distance of c from the line through the origin along direction.
// It is measured in the plane spanned by the horizontal normal of direction and the normal
// that is orthogonal to both, so height changes such as stairways count as well.
func distanceFromLine(c, direction mgl64.Vec3) float64 {
	if direction.Len() < epsilon {
		return c.Len()
	}
	normal := mgl64.Vec3{direction.Z(), 0, -direction.X()}
	if normal.Len() < epsilon {
		normal = mgl64.Vec3{1, 0, 0}
	}
	unitNormal := normal.Normalize()
	unitNormal2 := direction.Normalize().Cross(unitNormal)

	a := c.Dot(unitNormal2)
	b := c.Dot(unitNormal)
	return mgl64.Vec2{a, b}.Len()
}
