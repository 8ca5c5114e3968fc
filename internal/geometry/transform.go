// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geometry implements the rigid-transform math used to turn live camera poses and
// recorded path poses into headings and distances.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// rigidTolerance is the maximum deviation from orthonormality accepted for a rotation block.
	rigidTolerance = 1e-3
	epsilon        = 1e-9
)

var (
	// ErrInvalidLength is returned if a column-major array does not hold exactly 16 values.
	ErrInvalidLength = errors.New("column-major transform must have 16 elements")

	// ErrNotRigid is returned if a matrix does not describe a rotation plus translation.
	ErrNotRigid = errors.New("matrix is not a rigid transform")
)

var (
	up      = mgl64.Vec3{0, 1, 0}
	down    = mgl64.Vec3{0, -1, 0}
	forward = mgl64.Vec4{0, 0, -1, 0}
)

// Transform is a 4x4 homogeneous rigid transform (rotation plus translation) stored in
// column-major order. The zero value is not a valid transform, use Identity instead.
type Transform struct {
	m mgl64.Mat4
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{m: mgl64.Ident4()}
}

// New returns a transform with the given translation and rotation. The rotation is normalized.
func New(translation mgl64.Vec3, rotation mgl64.Quat) Transform {
	m := rotation.Normalize().Mat4()
	m[12], m[13], m[14] = translation[0], translation[1], translation[2]
	return Transform{m: m}
}

// FromTranslation returns a transform without rotation at the given position.
func FromTranslation(x, y, z float64) Transform {
	return Transform{m: mgl64.Translate3D(x, y, z)}
}

// FromColumnMajor builds a transform from 16 column-major values as they are serialized by the
// AR tracker. The rotation block is re-orthonormalized after validation.
func FromColumnMajor(values []float64) (Transform, error) {
	if len(values) != 16 {
		return Transform{}, fmt.Errorf("%w: got %d", ErrInvalidLength, len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Transform{}, fmt.Errorf("%w: value %d is not finite", ErrNotRigid, i)
		}
	}
	var m mgl64.Mat4
	copy(m[:], values)

	if math.Abs(m[3]) > rigidTolerance || math.Abs(m[7]) > rigidTolerance || math.Abs(m[11]) > rigidTolerance ||
		math.Abs(m[15]-1) > rigidTolerance {
		return Transform{}, fmt.Errorf("%w: invalid homogeneous row", ErrNotRigid)
	}
	cols := [3]mgl64.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(cols[i].Dot(cols[j])-want) > rigidTolerance {
				return Transform{}, fmt.Errorf("%w: rotation is not orthonormal", ErrNotRigid)
			}
		}
	}
	if cols[0].Cross(cols[1]).Dot(cols[2]) < 0 {
		return Transform{}, fmt.Errorf("%w: rotation is a reflection", ErrNotRigid)
	}

	return New(m.Col(3).Vec3(), mgl64.Mat4ToQuat(m)), nil
}

// ColumnMajor returns the 16 matrix values in column-major order.
func (t Transform) ColumnMajor() []float64 {
	values := make([]float64, 16)
	copy(values, t.m[:])
	return values
}

// Mat4 returns the underlying matrix.
func (t Transform) Mat4() mgl64.Mat4 {
	return t.m
}

// IsZero reports whether t is the zero value.
func (t Transform) IsZero() bool {
	return t.m == mgl64.Mat4{}
}

// Mul composes t with o, so that the result applies o first and t second.
func (t Transform) Mul(o Transform) Transform {
	return Transform{m: t.m.Mul4(o.m)}
}

// Inverse returns the inverse of the rigid transform.
func (t Transform) Inverse() Transform {
	var inv mgl64.Mat4
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			inv[c*4+r] = t.m[r*4+c]
		}
	}
	tr := t.Translation()
	for r := 0; r < 3; r++ {
		inv[12+r] = -(inv[r]*tr[0] + inv[4+r]*tr[1] + inv[8+r]*tr[2])
	}
	inv[15] = 1
	return Transform{m: inv}
}

// Translation returns the position component.
func (t Transform) Translation() mgl64.Vec3 {
	return t.m.Col(3).Vec3()
}

// Rotation returns the orientation component as a unit quaternion.
func (t Transform) Rotation() mgl64.Quat {
	return mgl64.Mat4ToQuat(t.m).Normalize()
}

// Axis returns the i-th local axis (0 = X, 1 = Y, 2 = Z) expressed in the parent frame.
func (t Transform) Axis(i int) mgl64.Vec3 {
	return t.m.Col(i).Vec3()
}

// Apply transforms the point p.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.m.Mul4x1(p.Vec4(1)).Vec3()
}

// Forward returns the camera viewing direction, the local -Z axis.
func (t Transform) Forward() mgl64.Vec3 {
	return t.m.Mul4x1(forward).Vec3()
}

// ApproxEqual reports whether all matrix elements of t and o differ by less than eps. The
// comparison is absolute, so values that drift away from zero compare like any other value.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	for i := range t.m {
		if !(math.Abs(t.m[i]-o.m[i]) < eps) {
			return false
		}
	}
	return true
}

// Near reports whether the points a and b are less than eps apart.
func Near(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() < eps
}

// AlignY rotates the transform so that its local Y axis points along the global vertical while
// keeping its position. The target is straight up, unless allowNegativeY is set and the local
// Y axis currently points downward, in which case it is aligned straight down.
func (t Transform) AlignY(allowNegativeY bool) Transform {
	yAxis := t.Axis(1)
	target := up
	if allowNegativeY && yAxis.Y() < 0 {
		target = down
	}
	correction := mgl64.QuatBetweenVectors(yAxis, target)
	return New(t.Translation(), correction.Mul(t.Rotation()))
}

// String implements fmt.Stringer.
func (t Transform) String() string {
	p := t.Translation()
	return fmt.Sprintf("Transform{pos: (%.3f, %.3f, %.3f)}", p.X(), p.Y(), p.Z())
}

// MarshalJSON encodes the transform as a column-major array.
func (t Transform) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ColumnMajor())
}

// UnmarshalJSON decodes a column-major array.
func (t *Transform) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to decode transform: %w", err)
	}
	parsed, err := FromColumnMajor(values)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
