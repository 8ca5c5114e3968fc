// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package route

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wneessen/stepnav/internal/geometry"
)

func crumbsAlong(points ...mgl64.Vec3) []geometry.Transform {
	var crumbs []geometry.Transform
	for i := 0; i < len(points)-1; i++ {
		from, to := points[i], points[i+1]
		for step := 0; step < 10; step++ {
			p := from.Add(to.Sub(from).Mul(float64(step) / 10))
			crumbs = append(crumbs, geometry.FromTranslation(p.X(), p.Y(), p.Z()))
		}
	}
	last := points[len(points)-1]
	return append(crumbs, geometry.FromTranslation(last.X(), last.Y(), last.Z()))
}

func positions(wps []Waypoint) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(wps))
	for i, wp := range wps {
		out[i] = wp.Pose.Translation()
	}
	return out
}

func TestExtractKeypoints(t *testing.T) {
	t.Run("straight path keeps start and end", func(t *testing.T) {
		crumbs := crumbsAlong(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0})
		got := positions(ExtractKeypoints(crumbs, DefaultPathWidth))
		want := []mgl64.Vec3{{0, 0, 0}, {10, 0, 0}}
		if len(got) != len(want) {
			t.Fatalf("expected %d keypoints, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if !geometry.Near(got[i], want[i], 1e-9) {
				t.Errorf("keypoint %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})
	t.Run("right angle turn adds the corner", func(t *testing.T) {
		crumbs := crumbsAlong(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0}, mgl64.Vec3{10, 0, -10})
		got := positions(ExtractKeypoints(crumbs, DefaultPathWidth))
		want := []mgl64.Vec3{{0, 0, 0}, {10, 0, 0}, {10, 0, -10}}
		if len(got) != len(want) {
			t.Fatalf("expected %d keypoints, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if !geometry.Near(got[i], want[i], 1e-9) {
				t.Errorf("keypoint %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})
	t.Run("stairway adds the landing", func(t *testing.T) {
		crumbs := crumbsAlong(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 0, 0}, mgl64.Vec3{10, 3, 0})
		got := positions(ExtractKeypoints(crumbs, DefaultPathWidth))
		if len(got) != 3 {
			t.Fatalf("expected 3 keypoints, got %d: %v", len(got), got)
		}
		if !geometry.Near(got[1], mgl64.Vec3{5, 0, 0}, 1e-9) {
			t.Errorf("expected the landing at (5,0,0), got %v", got[1])
		}
	})
	t.Run("small wiggles stay within the path width", func(t *testing.T) {
		crumbs := crumbsAlong(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 0, 0.1}, mgl64.Vec3{10, 0, 0})
		if got := ExtractKeypoints(crumbs, DefaultPathWidth); len(got) != 2 {
			t.Errorf("expected 2 keypoints, got %d", len(got))
		}
	})
	t.Run("edge cases", func(t *testing.T) {
		if got := ExtractKeypoints(nil, 0); got != nil {
			t.Errorf("expected no keypoints, got %v", got)
		}
		if got := ExtractKeypoints([]geometry.Transform{geometry.Identity()}, 0); len(got) != 1 {
			t.Errorf("expected 1 keypoint, got %d", len(got))
		}
		loop := crumbsAlong(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{3, 0, 0}, mgl64.Vec3{0, 0, 0})
		if got := ExtractKeypoints(loop, 0); len(got) != 3 {
			t.Errorf("expected 3 keypoints for a loop, got %d", len(got))
		}
	})
	t.Run("keypoints get unique IDs", func(t *testing.T) {
		crumbs := crumbsAlong(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0}, mgl64.Vec3{10, 0, -10})
		seen := make(map[string]struct{})
		for _, wp := range ExtractKeypoints(crumbs, 0) {
			if _, ok := seen[wp.ID.String()]; ok {
				t.Fatalf("duplicate keypoint ID %s", wp.ID)
			}
			seen[wp.ID.String()] = struct{}{}
		}
	})
}

func TestManualKeypoints(t *testing.T) {
	crumbs := crumbsAlong(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0})
	t.Run("selected crumbs become keypoints", func(t *testing.T) {
		got, err := ManualKeypoints(crumbs, []int{0, 3, 5, 10})
		if err != nil {
			t.Fatalf("failed to build keypoints: %s", err)
		}
		// collinear crumbs are still dropped, only the ends remain
		if len(got) != 2 {
			t.Errorf("expected 2 keypoints, got %d", len(got))
		}
	})
	t.Run("out of range index fails", func(t *testing.T) {
		_, err := ManualKeypoints(crumbs, []int{0, 99})
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("expected error %s, got %v", ErrIndexOutOfRange, err)
		}
	})
}
