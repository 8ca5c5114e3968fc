// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package contrast

import (
	"fmt"
	"strings"
)

// Level is a WCAG conformance level for text contrast.
type Level string

const (
	LevelAAA     Level = "AAA"
	LevelAA      Level = "AA"
	LevelAALarge Level = "AA-large"
	LevelFail    Level = "fail"
)

// Pair is a foreground colour rendered on a background colour.
type Pair struct {
	Foreground Color
	Background Color
}

// Ratio returns the contrast ratio of the pair.
func (p Pair) Ratio() (float64, bool) {
	fg, ok := RelativeLuminance(p.Foreground.Components())
	if !ok {
		return 0, false
	}
	bg, ok := RelativeLuminance(p.Background.Components())
	if !ok {
		return 0, false
	}
	return ContrastRatio(fg, bg), true
}

// Level grades the pair against the WCAG thresholds for normal sized text.
func (p Pair) Level() Level {
	ratio, _ := p.Ratio()
	return LevelFor(ratio)
}

// LevelFor grades a contrast ratio.
func LevelFor(ratio float64) Level {
	switch {
	case ratio >= 7:
		return LevelAAA
	case ratio >= 4.5:
		return LevelAA
	case ratio >= 3:
		return LevelAALarge
	default:
		return LevelFail
	}
}

var (
	black  = Color{0, 0, 0, 1}
	white  = Color{1, 1, 1, 1}
	yellow = Color{1, 1, 0, 1}
	blue   = Color{0, 0, 1, 1}
)

// Schemes holds the named high-contrast colour schemes.
var Schemes = map[string]Pair{
	"black-on-white":  {Foreground: black, Background: white},
	"white-on-black":  {Foreground: white, Background: black},
	"yellow-on-black": {Foreground: yellow, Background: black},
	"black-on-yellow": {Foreground: black, Background: yellow},
	"yellow-on-blue":  {Foreground: yellow, Background: blue},
}

// Scheme resolves a scheme by name, or from the given foreground and background hex colours if
// name is empty.
func Scheme(name, foreground, background string) (Pair, error) {
	if name != "" {
		pair, ok := Schemes[strings.ToLower(name)]
		if !ok {
			return Pair{}, fmt.Errorf("unknown colour scheme: %s", name)
		}
		return pair, nil
	}
	fg, err := ParseHex(foreground)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to parse foreground colour: %w", err)
	}
	bg, err := ParseHex(background)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to parse background colour: %w", err)
	}
	return Pair{Foreground: fg, Background: bg}, nil
}
