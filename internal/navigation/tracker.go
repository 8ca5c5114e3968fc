// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package navigation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wneessen/stepnav/internal/geometry"
	"github.com/wneessen/stepnav/internal/route"
)

var (
	// ErrNoRoute is returned if the tracker has no route to follow.
	ErrNoRoute = errors.New("no route to follow")

	// ErrRouteComplete is returned if all keypoints have been reached.
	ErrRouteComplete = errors.New("route is complete")

	// ErrNotAligned is returned as long as the map frame is not aligned to the session frame.
	ErrNotAligned = errors.New("map is not aligned to the session yet")
)

// EventKind classifies the outcome of a tracker update.
type EventKind int

const (
	EventDirection EventKind = iota
	EventKeypointReached
	EventArrived
)

func (k EventKind) String() string {
	switch k {
	case EventKeypointReached:
		return "keypoint_reached"
	case EventArrived:
		return "arrived"
	default:
		return "direction"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	for _, kind := range []EventKind{EventDirection, EventKeypointReached, EventArrived} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", text)
}

// Event is the result of a tracker update.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Direction DirectionInfo  `json:"direction"`
	Feedback  Feedback       `json:"feedback"`
	Target    route.Waypoint `json:"target"`
	Remaining int            `json:"remaining"`
	At        time.Time      `json:"at"`
}

// Locator maps poses from the map frame into the frame of the live camera pose.
type Locator interface {
	Locate(geometry.Transform) geometry.Transform
	HasAligned() bool
}

// IdentityLocator is a Locator for routes recorded in the session frame.
type IdentityLocator struct{}

func (IdentityLocator) Locate(t geometry.Transform) geometry.Transform { return t }
func (IdentityLocator) HasAligned() bool                               { return true }

// Tracker follows a route with the live camera pose. Every update computes the direction to
// the next keypoint and checks the keypoint off once the user reaches it.
type Tracker struct {
	mu      sync.Mutex
	nav     *Navigator
	route   *route.Route
	locator Locator
	last    Event
	hasLast bool
}

// NewTracker returns a Tracker for the given route.
func NewTracker(nav *Navigator, r *route.Route, locator Locator) *Tracker {
	if locator == nil {
		locator = IdentityLocator{}
	}
	return &Tracker{nav: nav, route: r, locator: locator}
}

// SetRoute replaces the route to follow.
func (t *Tracker) SetRoute(r *route.Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.route = r
	t.hasLast = false
}

// Update processes a new camera pose.
func (t *Tracker) Update(pose geometry.Transform) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.route == nil {
		return Event{}, ErrNoRoute
	}
	if t.route.IsComplete() {
		return Event{}, ErrRouteComplete
	}
	if !t.locator.HasAligned() {
		return Event{}, ErrNotAligned
	}

	event := t.direction(pose)
	if event.Direction.TargetState == AtTarget {
		onLast := t.route.OnLast()
		t.route.CheckOff()
		if onLast {
			event.Kind = EventArrived
			event.Remaining = 0
			event.Target.Visited = true
		} else {
			event = t.direction(pose)
			event.Kind = EventKeypointReached
		}
	}

	t.last, t.hasLast = event, true
	return event, nil
}

// Last returns the most recent event.
func (t *Tracker) Last() (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hasLast
}

// Route returns the route that is followed.
func (t *Tracker) Route() *route.Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.route
}

// Progress returns the number of reached and total keypoints.
func (t *Tracker) Progress() (reached, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.route == nil {
		return 0, 0
	}
	return t.route.Len() - t.route.Remaining(), t.route.Len()
}

// direction computes the direction to the current target. The caller must hold the lock and
// ensure the route is not complete.
func (t *Tracker) direction(pose geometry.Transform) Event {
	next, _ := t.route.Next()
	nextPos := t.locator.Locate(next.Pose).Translation()

	var prevPos *mgl64.Vec3
	if prev, ok := t.route.Previous(); ok {
		p := t.locator.Locate(prev.Pose).Translation()
		prevPos = &p
	}

	dir := t.nav.Directions(pose, nextPos, prevPos, t.route.OnLast())
	return Event{
		Kind:      EventDirection,
		Direction: dir,
		Feedback:  FeedbackFor(dir),
		Target:    next,
		Remaining: t.route.Remaining(),
		At:        time.Now(),
	}
}
