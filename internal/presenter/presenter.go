// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"

	"github.com/wneessen/stepnav/internal/config"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/mapgraph"
	"github.com/wneessen/stepnav/internal/navigation"
	"github.com/wneessen/stepnav/internal/vartype"
)

// States of the navigation as seen by the templates.
const (
	StateWaiting         = "waiting"
	StateNoRoute         = "no_route"
	StateNotAligned      = "not_aligned"
	StateDirection       = "direction"
	StateKeypointReached = "keypoint_reached"
	StateArrived         = "arrived"
)

// Status is the navigation state handed to the presenter. Reachable lists the anchors that
// can be reached from the start of the route. Heading is the yaw of the phone in degrees,
// measured in its session frame.
type Status struct {
	Route       string
	Destination string
	Total       int
	Event       navigation.Event
	HasEvent    bool
	Err         error
	Nearby      []mapgraph.NearbyAnchor
	Reachable   []string
	Position    *geofix.Coordinate
	Heading     vartype.VarFloat64
}

type TemplateContext struct {
	Route       string
	Destination string
	State       string
	Units       string

	Direction navigation.DirectionInfo
	Feedback  navigation.Feedback
	Remaining int
	Total     int

	Nearby     []mapgraph.NearbyAnchor
	Reachable  []string
	Position   geofix.Coordinate
	UpdateTime time.Time
}

// Output is a rendered set of templates.
type Output struct {
	Text       string
	AltText    string
	Tooltip    string
	AltTooltip string
}

type Presenter struct {
	Text       *template.Template
	AltText    *template.Template
	Tooltip    *template.Template
	AltTooltip *template.Template

	units     string
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
}

// New parses the templates of conf. Every template is rendered once with a sample context, so
// templates that reference unknown fields fail early.
func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	collection, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}
	pres := &Presenter{
		units:     conf.Units,
		localizer: loc,
		humanizer: collection.CreateHumanizer(loc.Language()),
	}

	templates := []struct {
		name string
		text string
		dst  **template.Template
	}{
		{"text", conf.Templates.Text, &pres.Text},
		{"alt_text", conf.Templates.AltText, &pres.AltText},
		{"tooltip", conf.Templates.Tooltip, &pres.Tooltip},
		{"alt_tooltip", conf.Templates.AltTooltip, &pres.AltTooltip},
	}
	for _, tpl := range templates {
		parsed, err := template.New(tpl.name).Funcs(pres.templateFuncMap()).Parse(tpl.text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", tpl.name, err)
		}
		*tpl.dst = parsed
	}

	if _, err = pres.Render(pres.BuildContext(sampleStatus())); err != nil {
		return nil, err
	}
	return pres, nil
}

// BuildContext converts a navigation status into the context for the templates.
func (p *Presenter) BuildContext(status Status) TemplateContext {
	ctx := TemplateContext{
		Route:       status.Route,
		Destination: status.Destination,
		State:       stateOf(status),
		Units:       p.units,
		Total:       status.Total,
		Nearby:      status.Nearby,
		Reachable:   status.Reachable,
		UpdateTime:  time.Now(),
	}
	if status.Position != nil {
		ctx.Position = *status.Position
	}
	if status.HasEvent {
		ctx.Direction = status.Event.Direction
		ctx.Feedback = status.Event.Feedback
		ctx.Remaining = status.Event.Remaining
		ctx.UpdateTime = status.Event.At
	}
	return ctx
}

// Render executes all templates with ctx.
func (p *Presenter) Render(ctx TemplateContext) (Output, error) {
	var out Output
	targets := []struct {
		tpl *template.Template
		dst *string
	}{
		{p.Text, &out.Text},
		{p.AltText, &out.AltText},
		{p.Tooltip, &out.Tooltip},
		{p.AltTooltip, &out.AltTooltip},
	}
	buf := bytes.NewBuffer(nil)
	for _, target := range targets {
		buf.Reset()
		if err := target.tpl.Execute(buf, ctx); err != nil {
			return out, fmt.Errorf("failed to render %s template: %w", target.tpl.Name(), err)
		}
		*target.dst = buf.String()
	}
	return out, nil
}

// Describe returns the localized direction of an event, like "At 3 o'clock, 4.2 m".
func (p *Presenter) Describe(event navigation.Event) string {
	return p.clock(event.Direction.ClockDirection) + ", " + p.dist(event.Direction.Distance)
}

func stateOf(status Status) string {
	switch {
	case errors.Is(status.Err, navigation.ErrNoRoute):
		return StateNoRoute
	case errors.Is(status.Err, navigation.ErrNotAligned):
		return StateNotAligned
	case errors.Is(status.Err, navigation.ErrRouteComplete):
		return StateArrived
	case !status.HasEvent:
		return StateWaiting
	}
	switch status.Event.Kind {
	case navigation.EventArrived:
		return StateArrived
	case navigation.EventKeypointReached:
		return StateKeypointReached
	default:
		return StateDirection
	}
}

func sampleStatus() Status {
	return Status{
		Route:       "Entrance_Library",
		Destination: "Library",
		Total:       4,
		HasEvent:    true,
		Event: navigation.Event{
			Kind: navigation.EventDirection,
			Direction: navigation.DirectionInfo{
				Distance:       3.2,
				ClockDirection: 2,
			},
			Remaining: 3,
			At:        time.Now(),
		},
		Nearby:    []mapgraph.NearbyAnchor{{Anchor: mapgraph.Anchor{ID: "a", Name: "Library"}, Distance: 12}},
		Reachable: []string{"a"},
	}
}
