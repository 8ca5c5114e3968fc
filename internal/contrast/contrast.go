// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package contrast computes WCAG relative luminance and contrast ratios for colour schemes.
package contrast

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	linearThreshold = 0.03928
	gamma           = 2.4

	weightRed   = 0.2126
	weightGreen = 0.7152
	weightBlue  = 0.0722

	flare = 0.05
)

// ErrInvalidHex is returned if a colour string can not be parsed.
var ErrInvalidHex = errors.New("invalid hex colour")

// RelativeLuminance returns the relative luminance of an sRGB colour given as components in
// [0, 1]. Only the first three components (red, green, blue) are used. The second return
// value is false if fewer than three components are given.
func RelativeLuminance(components []float64) (float64, bool) {
	if len(components) < 3 {
		return 0, false
	}
	r := linearize(components[0])
	g := linearize(components[1])
	b := linearize(components[2])
	return weightRed*r + weightGreen*g + weightBlue*b, true
}

func linearize(c float64) float64 {
	if c <= linearThreshold {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, gamma)
}

// ContrastRatio returns the contrast ratio of two relative luminances. The result does not
// depend on the argument order and ranges from 1 to 21.
func ContrastRatio(luma1, luma2 float64) float64 {
	return (math.Max(luma1, luma2) + flare) / (math.Min(luma1, luma2) + flare)
}

// Color is an RGBA colour with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Components returns the colour as a component slice.
func (c Color) Components() []float64 {
	return []float64{c.R, c.G, c.B, c.A}
}

// Luminance returns the relative luminance of the colour.
func (c Color) Luminance() float64 {
	l, _ := RelativeLuminance(c.Components())
	return l
}

// Hex returns the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", to8Bit(c.R), to8Bit(c.G), to8Bit(c.B))
}

// ParseHex parses colours in the form #rgb, #rrggbb or #rrggbbaa. The leading hash is optional.
func ParseHex(val string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(val), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, val)
	}
	raw, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, val)
	}
	return Color{
		R: float64(raw>>24&0xff) / 255,
		G: float64(raw>>16&0xff) / 255,
		B: float64(raw>>8&0xff) / 255,
		A: float64(raw&0xff) / 255,
	}, nil
}

func to8Bit(c float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, c)) * 255))
}
