// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package navigation derives turn-by-turn directions from the live camera pose and the next
// keypoint of a route.
package navigation

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wneessen/stepnav/internal/geometry"
	"github.com/wneessen/stepnav/internal/vartype"
)

const (
	// DefaultCloseRadius is the horizontal distance in meters below which the user is
	// considered close to a keypoint.
	DefaultCloseRadius = 4.0

	stairsMinRise  = 1.0
	stairsMinSlope = 0.3
)

// TargetState describes the position of the user relative to the next keypoint.
type TargetState int

const (
	NotAtTarget TargetState = iota
	CloseToTarget
	AtTarget
)

func (s TargetState) String() string {
	switch s {
	case AtTarget:
		return "at_target"
	case CloseToTarget:
		return "close_to_target"
	default:
		return "not_at_target"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TargetState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TargetState) UnmarshalText(text []byte) error {
	for _, state := range []TargetState{NotAtTarget, CloseToTarget, AtTarget} {
		if state.String() == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown target state %q", text)
}

// Vertical tells whether the stretch to the next keypoint involves stairs.
type Vertical int

const (
	Level Vertical = iota
	Upstairs
	Downstairs
)

func (v Vertical) String() string {
	switch v {
	case Upstairs:
		return "upstairs"
	case Downstairs:
		return "downstairs"
	default:
		return "level"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Vertical) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Vertical) UnmarshalText(text []byte) error {
	for _, vertical := range []Vertical{Level, Upstairs, Downstairs} {
		if vertical.String() == string(text) {
			*v = vertical
			return nil
		}
	}
	return fmt.Errorf("unknown vertical direction %q", text)
}

// Target is the box around a keypoint in which the keypoint counts as reached. Depth is
// measured along the direction of travel, width across it.
type Target struct {
	Width  float64
	Depth  float64
	Height float64
}

var (
	// DefaultTarget is the box used for intermediate keypoints.
	DefaultTarget = Target{Width: 2, Depth: 0.5, Height: 3}

	// DefaultLastTarget is the box used for the final keypoint of a route.
	DefaultLastTarget = Target{Width: 1, Depth: 1, Height: 3}
)

// DirectionInfo is the position of the next keypoint relative to the user.
type DirectionInfo struct {
	// Distance is the horizontal distance to the keypoint in meters, rounded to tenths.
	Distance float64 `json:"distance"`
	// AngleDiff is the signed angle to the keypoint in radians. Positive is left.
	AngleDiff float64 `json:"angle_diff"`
	// ClockDirection is the direction as a clock position, 12 being straight ahead.
	ClockDirection int `json:"clock_direction"`
	// HapticDirection is one of six sectors, starting with 1 straight ahead and continuing
	// clockwise.
	HapticDirection int `json:"haptic_direction"`
	// LateralRatio is the lateral distance at which the user would pass the keypoint on the
	// current heading, relative to the target width. It is +Inf when walking away from it.
	LateralRatio float64     `json:"lateral_ratio"`
	TargetState  TargetState `json:"target_state"`
	Vertical     Vertical    `json:"vertical"`
}

// MarshalJSON encodes an infinite lateral ratio as null.
func (d DirectionInfo) MarshalJSON() ([]byte, error) {
	type plain DirectionInfo
	out := struct {
		plain
		LateralRatio *float64 `json:"lateral_ratio"`
	}{plain: plain(d)}
	if !math.IsInf(d.LateralRatio, 0) && !math.IsNaN(d.LateralRatio) {
		ratio := d.LateralRatio
		out.LateralRatio = &ratio
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null lateral ratio as positive infinity.
func (d *DirectionInfo) UnmarshalJSON(data []byte) error {
	type plain DirectionInfo
	in := struct {
		*plain
		LateralRatio *float64 `json:"lateral_ratio"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	d.LateralRatio = math.Inf(1)
	if in.LateralRatio != nil {
		d.LateralRatio = *in.LateralRatio
	}
	return nil
}

// Navigator computes directions. The zero value is not usable, use NewNavigator.
type Navigator struct {
	Target        Target
	LastTarget    Target
	CloseRadius   float64
	ArrivalRadius float64

	// HeadingOffset is added to the phone heading, counter-clockwise, if set.
	HeadingOffset vartype.VarFloat64
}

// NewNavigator returns a Navigator with the default target boxes.
func NewNavigator() *Navigator {
	return &Navigator{
		Target:      DefaultTarget,
		LastTarget:  DefaultLastTarget,
		CloseRadius: DefaultCloseRadius,
	}
}

// Directions returns the direction from pose to the keypoint at next. prev is the position of
// the keypoint before next, if any. isLast selects the target box of the final keypoint.
// All positions must be expressed in the frame of pose.
func (n *Navigator) Directions(pose geometry.Transform, next mgl64.Vec3, prev *mgl64.Vec3, isLast bool) DirectionInfo {
	target := n.Target
	if isLast {
		target = n.LastTarget
	}

	position := pose.Translation()
	heading := geometry.ForwardHeading(pose)
	if offset, ok := n.HeadingOffset.Get(); ok {
		heading = geometry.Rotate(heading, offset)
	}

	delta := position.Sub(next)
	planarDelta := mgl64.Vec3{delta.X(), 0, delta.Z()}
	angleDiff := geometry.SignedAngle(heading, planarDelta.Mul(-1))

	orientation := Orientation(next, prev)
	lateral := orientation.Cross(mgl64.Vec3{0, 1, 0})
	xDiff := delta.Dot(orientation)
	yDiff := delta.Y()
	zDiff := delta.Dot(lateral)

	dir := DirectionInfo{
		Distance:        RoundToTenths(planarDelta.Len()),
		AngleDiff:       angleDiff,
		ClockDirection:  ClockDirection(angleDiff),
		HapticDirection: HapticDirection(angleDiff),
		LateralRatio:    lateralRatio(heading, orientation, planarDelta, xDiff, target.Width),
		Vertical:        verticalCue(position, next, prev),
	}

	switch {
	case xDiff <= target.Depth && math.Abs(yDiff) <= target.Height && math.Abs(zDiff) <= target.Width:
		dir.TargetState = AtTarget
	case n.ArrivalRadius > 0 && planarDelta.Len() <= n.ArrivalRadius:
		dir.TargetState = AtTarget
	case math.Hypot(xDiff, zDiff) <= n.CloseRadius:
		dir.TargetState = CloseToTarget
	default:
		dir.TargetState = NotAtTarget
	}
	return dir
}

// Orientation returns the horizontal unit vector pointing from the keypoint at next back to
// the previous keypoint. Without a previous keypoint, or if both coincide, it is (1,0,0).
func Orientation(next mgl64.Vec3, prev *mgl64.Vec3) mgl64.Vec3 {
	fallback := mgl64.Vec3{1, 0, 0}
	if prev == nil {
		return fallback
	}
	o := mgl64.Vec3{prev.X() - next.X(), 0, prev.Z() - next.Z()}
	if o.Len() < 1e-9 {
		return fallback
	}
	return o.Normalize()
}

// lateralRatio projects the current heading onto the plane through the keypoint that is
// orthogonal to its orientation and returns the lateral offset of the crossing point relative
// to the target width.
func lateralRatio(heading, orientation, planarDelta mgl64.Vec3, xDiff, width float64) float64 {
	approach := -heading.Dot(orientation)
	if approach <= 0 || width <= 0 {
		return math.Inf(1)
	}
	crossing := planarDelta.Add(heading.Mul(xDiff / approach))
	return crossing.Len() / width
}

func verticalCue(position, next mgl64.Vec3, prev *mgl64.Vec3) Vertical {
	if prev == nil {
		return Level
	}
	rise := next.Y() - prev.Y()
	if math.Abs(rise) <= stairsMinRise {
		return Level
	}
	slope := rise / geometry.HorizontalDistance(position, next)
	switch {
	case slope > stairsMinSlope:
		return Upstairs
	case slope < -stairsMinSlope:
		return Downstairs
	default:
		return Level
	}
}

// ClockDirection converts an angle (positive is left) to a clock position from 1 to 12, where
// 12 is straight ahead and 3 is a right turn.
func ClockDirection(angle float64) int {
	a := -angle*(6/math.Pi) + 12.5
	dir := int(a) % 12
	if dir == 0 {
		return 12
	}
	return dir
}

// HapticDirection converts an angle (positive is left) to one of six sectors: 1 straight,
// 2 slight right, 3 right, 4 turn around, 5 left, 6 slight left. 0 is returned for invalid
// angles.
func HapticDirection(angle float64) int {
	a := -angle
	switch {
	case -math.Pi/6 <= a && a <= math.Pi/6:
		return 1
	case math.Pi/6 <= a && a <= math.Pi/3:
		return 2
	case math.Pi/3 <= a && a <= 2*math.Pi/3:
		return 3
	case 2*math.Pi/3 <= a && a <= math.Pi:
		return 4
	case -math.Pi <= a && a <= -2*math.Pi/3:
		return 4
	case -2*math.Pi/3 <= a && a <= -math.Pi/3:
		return 5
	case -math.Pi/3 <= a && a <= -math.Pi/6:
		return 6
	default:
		return 0
	}
}

// RoundToTenths rounds n to one decimal place.
func RoundToTenths(n float64) float64 {
	return math.Round(10*n) / 10
}
