// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package contrast

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRelativeLuminance(t *testing.T) {
	tests := []struct {
		name       string
		components []float64
		want       float64
		ok         bool
	}{
		{"black", []float64{0, 0, 0}, 0, true},
		{"white", []float64{1, 1, 1}, 1, true},
		{"white with alpha", []float64{1, 1, 1, 0.5}, 1, true},
		{"pure red", []float64{1, 0, 0}, 0.2126, true},
		{"pure green", []float64{0, 1, 0}, 0.7152, true},
		{"pure blue", []float64{0, 0, 1}, 0.0722, true},
		{"below linear threshold", []float64{0.03, 0.03, 0.03}, 0.03 / 12.92, true},
		{"mid grey", []float64{0.5, 0.5, 0.5}, math.Pow(0.555/1.055, 2.4), true},
		{"too few components", []float64{1, 1}, 0, false},
		{"no components", nil, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := RelativeLuminance(tc.components)
			if ok != tc.ok {
				t.Fatalf("expected ok to be %t, got %t", tc.ok, ok)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("expected luminance %f, got %f", tc.want, got)
			}
		})
	}
}

func TestContrastRatio(t *testing.T) {
	t.Run("black on white is 21", func(t *testing.T) {
		black, _ := RelativeLuminance([]float64{0, 0, 0})
		white, _ := RelativeLuminance([]float64{1, 1, 1})
		if got := ContrastRatio(black, white); math.Abs(got-21) > 1e-9 {
			t.Errorf("expected ratio 21, got %f", got)
		}
	})
	t.Run("equal luminances give 1", func(t *testing.T) {
		for _, l := range []float64{0, 0.18, 0.5, 1} {
			if got := ContrastRatio(l, l); got != 1 {
				t.Errorf("expected ratio 1 for %f, got %f", l, got)
			}
		}
	})
	t.Run("ratio is symmetric and within range", func(t *testing.T) {
		for a := 0.0; a <= 1; a += 0.05 {
			for b := 0.0; b <= 1; b += 0.05 {
				ab, ba := ContrastRatio(a, b), ContrastRatio(b, a)
				if ab != ba {
					t.Fatalf("expected symmetric ratio for %f and %f, got %f and %f", a, b, ab, ba)
				}
				if ab < 1 || ab > 21+1e-9 {
					t.Fatalf("ratio %f out of range", ab)
				}
			}
		}
	})
}

func TestParseHex(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-9)
	tests := []struct {
		in   string
		want Color
	}{
		{"#000000", Color{0, 0, 0, 1}},
		{"#fff", Color{1, 1, 1, 1}},
		{"ffff00", Color{1, 1, 0, 1}},
		{"#0000ff80", Color{0, 0, 1, 128.0 / 255}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseHex(tc.in)
			if err != nil {
				t.Fatalf("failed to parse colour: %s", err)
			}
			if diff := cmp.Diff(tc.want, got, approx); diff != "" {
				t.Errorf("unexpected colour (-want +got):\n%s", diff)
			}
		})
	}
	t.Run("invalid colours fail", func(t *testing.T) {
		for _, in := range []string{"", "#12", "#gggggg", "#1234567"} {
			if _, err := ParseHex(in); !errors.Is(err, ErrInvalidHex) {
				t.Errorf("expected error %s for %q, got %v", ErrInvalidHex, in, err)
			}
		}
	})
	t.Run("hex round trips", func(t *testing.T) {
		c, err := ParseHex("#1a2b3c")
		if err != nil {
			t.Fatalf("failed to parse colour: %s", err)
		}
		if c.Hex() != "#1a2b3c" {
			t.Errorf("expected #1a2b3c, got %s", c.Hex())
		}
	})
}

func TestScheme(t *testing.T) {
	t.Run("named schemes", func(t *testing.T) {
		tests := []struct {
			name string
			want Level
		}{
			{"black-on-white", LevelAAA},
			{"Yellow-On-Black", LevelAAA},
			{"yellow-on-blue", LevelAAA},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				pair, err := Scheme(tc.name, "", "")
				if err != nil {
					t.Fatalf("failed to resolve scheme: %s", err)
				}
				if got := pair.Level(); got != tc.want {
					t.Errorf("expected level %s, got %s", tc.want, got)
				}
			})
		}
	})
	t.Run("unknown scheme fails", func(t *testing.T) {
		if _, err := Scheme("pink-on-pink", "", ""); err == nil {
			t.Error("expected scheme lookup to fail")
		}
	})
	t.Run("custom colours", func(t *testing.T) {
		pair, err := Scheme("", "#777777", "#ffffff")
		if err != nil {
			t.Fatalf("failed to resolve scheme: %s", err)
		}
		ratio, ok := pair.Ratio()
		if !ok {
			t.Fatal("expected ratio to be computable")
		}
		if ratio < 4.4 || ratio > 4.5 {
			t.Errorf("expected ratio of about 4.48, got %f", ratio)
		}
		if got := pair.Level(); got != LevelAALarge {
			t.Errorf("expected level %s, got %s", LevelAALarge, got)
		}
	})
	t.Run("invalid custom colours fail", func(t *testing.T) {
		if _, err := Scheme("", "nope", "#ffffff"); err == nil {
			t.Error("expected foreground parsing to fail")
		}
		if _, err := Scheme("", "#ffffff", "nope"); err == nil {
			t.Error("expected background parsing to fail")
		}
	})
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		ratio float64
		want  Level
	}{
		{21, LevelAAA}, {7, LevelAAA}, {6.9, LevelAA}, {4.5, LevelAA}, {3, LevelAALarge}, {2.9, LevelFail}, {1, LevelFail},
	}
	for _, tc := range tests {
		if got := LevelFor(tc.ratio); got != tc.want {
			t.Errorf("LevelFor(%f): expected %s, got %s", tc.ratio, tc.want, got)
		}
	}
}
