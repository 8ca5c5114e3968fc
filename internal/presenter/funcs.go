// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
)

const (
	metersPerFoot = 12 * 2.54 / 100
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":    p.timeFormat,
		"localizedTime": p.localizedTime,
		"naturalTime":   p.naturalTime,
		"floatFormat":   p.floatFormat,
		"loc":           p.loc,
		"dist":          p.dist,
		"clock":         p.clock,
		"arrow":         p.arrow,
		"vertical":      p.vertical,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	val = strings.ToLower(val)
	if raw, ok := i18nVars[val]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

func (p *Presenter) localizedTime(val time.Time) string {
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

func (p *Presenter) naturalTime(val time.Time) string {
	return p.humanizer.NaturalTime(val)
}

func (p *Presenter) timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func (p *Presenter) floatFormat(val float64, precision int) string {
	pow := math.Pow(10, float64(precision))
	return fmt.Sprintf("%.*f", precision, math.Trunc(val*pow)/pow)
}

// dist formats a distance in meters in the configured units. Imperial distances are rounded
// to whole feet.
func (p *Presenter) dist(meters float64) string {
	if p.units == "imperial" {
		return fmt.Sprintf("%d ft", int(math.Round(toFeet(meters))))
	}
	return fmt.Sprintf("%.1f m", meters)
}

// clock returns the localized phrase for a clock direction.
func (p *Presenter) clock(hour int) string {
	switch hour {
	case 12:
		return p.localizer.Get(clockAhead)
	case 6:
		return p.localizer.Get(clockBehind)
	case 0:
		return ""
	}
	return p.localizer.Getf(clockAt, hour)
}

// arrow returns the arrow for a clock direction, padded to a fixed cell width.
func (p *Presenter) arrow(hour int) string {
	icon, ok := clockArrows[hour]
	if !ok {
		return ""
	}
	return iconWithSpace(icon)
}

func (p *Presenter) vertical(val fmt.Stringer) string {
	return p.loc(val.String())
}

func toFeet(meters float64) float64 {
	return meters / metersPerFoot
}

func iconWithSpace(icon string) string {
	width := runewidth.StringWidth(icon)
	return icon + strings.Repeat(" ", max(1, 3-width))
}
