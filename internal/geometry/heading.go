// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// StraightDistance returns the distance between the positions of camera and node on the
// horizontal (X/Z) plane.
func StraightDistance(camera, node Transform) float64 {
	return HorizontalDistance(camera.Translation(), node.Translation())
}

// HorizontalDistance returns the X/Z distance between two points.
func HorizontalDistance(a, b mgl64.Vec3) float64 {
	return math.Hypot(b.X()-a.X(), b.Z()-a.Z())
}

// AngleDifference returns the signed horizontal angle from the camera viewing direction to the
// node, in (-pi, pi]. Positive values mean the node is to the left of the camera, negative
// values mean it is to the right. A node at the camera position yields 0.
func AngleDifference(camera, node Transform) float64 {
	pointing := node.Translation().Sub(camera.Translation())
	return SignedAngle(camera.Forward(), pointing)
}

// SignedAngle returns the counter-clockwise angle around +Y from one horizontal direction to
// another, in (-pi, pi]. The vertical components are ignored. If either vector has no
// horizontal extent the angle is 0.
func SignedAngle(from, to mgl64.Vec3) float64 {
	fx, fz := from.X(), from.Z()
	tx, tz := to.X(), to.Z()
	if math.Hypot(fx, fz) < epsilon || math.Hypot(tx, tz) < epsilon {
		return 0
	}
	cross := fz*tx - fx*tz
	dot := fx*tx + fz*tz
	return WrapAngle(math.Atan2(cross, dot))
}

// WrapAngle normalizes an angle to (-pi, pi].
func WrapAngle(angle float64) float64 {
	angle = math.Mod(angle+math.Pi, 2*math.Pi)
	if angle <= 0 {
		angle += 2 * math.Pi
	}
	return angle - math.Pi
}

// HeadingYaw returns the yaw of the phone heading. The heading is the projection of the
// camera Z axis on the floor, or of the X axis if the phone is lying flatter than 45 degrees.
func HeadingYaw(t Transform) float64 {
	v := backAxis(t)
	return math.Atan2(v.X(), v.Z())
}

// ForwardHeading returns the unit horizontal direction the user is heading to, using the same
// axis selection as HeadingYaw. It returns the zero vector if no direction can be derived.
func ForwardHeading(t Transform) mgl64.Vec3 {
	v := backAxis(t)
	heading := mgl64.Vec3{-v.X(), 0, -v.Z()}
	if heading.Len() < epsilon {
		return mgl64.Vec3{}
	}
	return heading.Normalize()
}

// Rotate rotates a horizontal direction counter-clockwise around +Y by angle.
func Rotate(v mgl64.Vec3, angle float64) mgl64.Vec3 {
	return mgl64.QuatRotate(angle, up).Rotate(v)
}

func backAxis(t Transform) mgl64.Vec3 {
	z, x := t.Axis(2), t.Axis(0)
	if math.Abs(z.Y()) < math.Abs(x.Y()) {
		return z
	}
	return x
}
