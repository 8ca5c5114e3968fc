// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geofix

import (
	"math"
	"testing"
)

func TestCoordinate_Distance(t *testing.T) {
	t.Run("same point", func(t *testing.T) {
		c := Coordinate{Lat: 42.3396, Lon: -71.0892}
		if d := c.Distance(c); d != 0 {
			t.Errorf("expected distance 0, got %f", d)
		}
	})
	t.Run("one degree of latitude", func(t *testing.T) {
		a := Coordinate{Lat: 0, Lon: 0}
		b := Coordinate{Lat: 1, Lon: 0}
		want := EarthRadius * math.Pi / 180
		if d := a.Distance(b); math.Abs(d-want) > 1e-6 {
			t.Errorf("expected distance %f, got %f", want, d)
		}
		if a.Distance(b) != b.Distance(a) {
			t.Error("expected distance to be symmetric")
		}
	})
	t.Run("antipodes", func(t *testing.T) {
		a := Coordinate{Lat: 0, Lon: 0}
		b := Coordinate{Lat: 0, Lon: 180}
		if d := a.Distance(b); math.Abs(d-EarthRadius*math.Pi) > 1e-6 {
			t.Errorf("expected half the circumference, got %f", d)
		}
	})
}

func TestCoordinate_PosHasSignificantChange(t *testing.T) {
	base := Coordinate{Lat: 42.3396, Lon: -71.0892, Acc: 30}
	tests := []struct {
		name  string
		other Coordinate
		want  bool
	}{
		{"same position", base, false},
		{"a few meters away", Coordinate{Lat: 42.33961, Lon: -71.0892, Acc: 30}, false},
		{"a block away", Coordinate{Lat: 42.3406, Lon: -71.0892, Acc: 30}, true},
		{"much better accuracy", Coordinate{Lat: 42.3396, Lon: -71.0892, Acc: 5}, true},
		{"slightly better accuracy", Coordinate{Lat: 42.3396, Lon: -71.0892, Acc: 25}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.other.PosHasSignificantChange(base); got != tc.want {
				t.Errorf("expected significant change to be %t, got %t", tc.want, got)
			}
		})
	}
}

func TestCoordinate_Valid(t *testing.T) {
	tests := []struct {
		coord Coordinate
		want  bool
	}{
		{Coordinate{Lat: 0, Lon: 0}, true},
		{Coordinate{Lat: 90, Lon: 180}, true},
		{Coordinate{Lat: -90.1, Lon: 0}, false},
		{Coordinate{Lat: 0, Lon: 180.5}, false},
	}
	for _, tc := range tests {
		if got := tc.coord.Valid(); got != tc.want {
			t.Errorf("%s: expected valid to be %t", tc.coord, tc.want)
		}
	}
}

func TestCoordinate_Truncate(t *testing.T) {
	c := Coordinate{Lat: 42.339612, Lon: -71.089234, Acc: 12}.Truncate(3)
	if c.Lat != 42.34 || c.Lon != -71.089 {
		t.Errorf("unexpected truncated coordinate: %s", c)
	}
	if c.Acc != 12 {
		t.Errorf("expected accuracy to be kept, got %f", c.Acc)
	}
}

func TestState_Update(t *testing.T) {
	var state State
	if _, ok := state.Last(); ok {
		t.Fatal("expected empty state")
	}
	first := Coordinate{Lat: 42.3396, Lon: -71.0892, Acc: 30}
	if !state.Update(first) {
		t.Error("expected first fix to be stored")
	}
	if state.Update(Coordinate{Lat: 42.33961, Lon: -71.0892, Acc: 30}) {
		t.Error("expected insignificant fix to be ignored")
	}
	if state.Update(Coordinate{Lat: 95, Lon: 0}) {
		t.Error("expected invalid fix to be ignored")
	}
	last, ok := state.Last()
	if !ok || last != first {
		t.Errorf("expected last fix %s, got %s", first, last)
	}
	moved := Coordinate{Lat: 42.3406, Lon: -71.0892, Acc: 30}
	if !state.Update(moved) {
		t.Error("expected significant fix to be stored")
	}
	if last, _ = state.Last(); last != moved {
		t.Errorf("expected last fix %s, got %s", moved, last)
	}
}
