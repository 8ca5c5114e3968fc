// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/vorlif/spreak"

	"github.com/wneessen/stepnav/internal/config"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/i18n"
	"github.com/wneessen/stepnav/internal/mapgraph"
	"github.com/wneessen/stepnav/internal/navigation"
)

var (
	now   = time.Now()
	event = navigation.Event{
		Kind: navigation.EventDirection,
		Direction: navigation.DirectionInfo{
			Distance:       12.3,
			AngleDiff:      -math.Pi / 2,
			ClockDirection: 3,
			TargetState:    navigation.NotAtTarget,
			Vertical:       navigation.Upstairs,
		},
		Feedback:  navigation.Feedback{Intensity: 0.5, Delay: 800 * time.Millisecond},
		Remaining: 2,
		At:        now,
	}
	status = Status{
		Route:       "Entrance_Library",
		Destination: "Library",
		Total:       5,
		Event:       event,
		HasEvent:    true,
		Nearby: []mapgraph.NearbyAnchor{
			{Anchor: mapgraph.Anchor{ID: "anchor-c", Name: "Library"}, Distance: 44},
		},
		Reachable: []string{"anchor-b", "anchor-c"},
		Position:  &geofix.Coordinate{Lat: 42.34, Lon: -71.09},
	}
)

func TestNew(t *testing.T) {
	t.Run("creating a new presenter succeeds", func(t *testing.T) {
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		if pres == nil {
			t.Fatal("expected presenter to be non-nil")
		}
	})
	t.Run("creating presenter with invalid templates fails", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(conf *config.Config)
		}{
			{"text", func(conf *config.Config) { conf.Templates.Text = "{{invalid" }},
			{"alt_text", func(conf *config.Config) { conf.Templates.AltText = "{{invalid" }},
			{"tooltip", func(conf *config.Config) { conf.Templates.Tooltip = "{{invalid" }},
			{"alt_tooltip", func(conf *config.Config) { conf.Templates.AltTooltip = "{{invalid" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t)
				tt.templateFn(conf)
				_, err := New(conf, lang)
				if err == nil {
					t.Fatal("expected presenter to fail, but didn't")
				}
				wantErr := "failed to parse"
				if !strings.Contains(err.Error(), wantErr) {
					t.Errorf("expected error to contain %q, got %q", wantErr, err)
				}
			})
		}
	})
	t.Run("creating presenter with template execution errors fails", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(conf *config.Config)
		}{
			{"text", func(conf *config.Config) { conf.Templates.Text = "{{.Data}}" }},
			{"alt_text", func(conf *config.Config) { conf.Templates.AltText = "{{.Data}}" }},
			{"tooltip", func(conf *config.Config) { conf.Templates.Tooltip = "{{.Data}}" }},
			{"alt_tooltip", func(conf *config.Config) { conf.Templates.AltTooltip = "{{.Data}}" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t)
				tt.templateFn(conf)
				_, err := New(conf, lang)
				if err == nil {
					t.Fatal("expected presenter to fail, but didn't")
				}
				wantErr := "failed to render"
				if !strings.Contains(err.Error(), wantErr) {
					t.Errorf("expected error to contain %q, got %q", wantErr, err)
				}
			})
		}
	})
}

func TestPresenter_BuildContext(t *testing.T) {
	t.Run("building context succeeds", func(t *testing.T) {
		pres := testPresenter(t, "metric")
		tplCtx := pres.BuildContext(status)
		if tplCtx.State != StateDirection {
			t.Errorf("expected state to be %s, got %s", StateDirection, tplCtx.State)
		}
		if tplCtx.Direction.Distance != event.Direction.Distance {
			t.Errorf("expected distance to be %f, got %f", event.Direction.Distance, tplCtx.Direction.Distance)
		}
		if tplCtx.Remaining != 2 || tplCtx.Total != 5 {
			t.Errorf("expected 2 of 5 keypoints remaining, got %d of %d", tplCtx.Remaining, tplCtx.Total)
		}
		if !tplCtx.UpdateTime.Equal(now) {
			t.Errorf("expected update time to be the event time, got %s", tplCtx.UpdateTime)
		}
		if tplCtx.Position.Lat != 42.34 {
			t.Errorf("expected position to be set, got %s", tplCtx.Position)
		}
		if tplCtx.Units != "metric" {
			t.Errorf("expected units to be metric, got %s", tplCtx.Units)
		}
		if len(tplCtx.Reachable) != 2 || tplCtx.Reachable[1] != "anchor-c" {
			t.Errorf("expected reachable anchors to be passed on, got %v", tplCtx.Reachable)
		}
	})
	t.Run("states are derived from the status", func(t *testing.T) {
		arrived := status
		arrived.Event.Kind = navigation.EventArrived
		reached := status
		reached.Event.Kind = navigation.EventKeypointReached
		tests := []struct {
			name   string
			status Status
			want   string
		}{
			{"waiting", Status{}, StateWaiting},
			{"no route", Status{Err: navigation.ErrNoRoute}, StateNoRoute},
			{"not aligned", Status{Err: navigation.ErrNotAligned}, StateNotAligned},
			{"route complete", Status{Err: navigation.ErrRouteComplete}, StateArrived},
			{"arrived", arrived, StateArrived},
			{"keypoint reached", reached, StateKeypointReached},
			{"direction", status, StateDirection},
		}
		pres := testPresenter(t, "metric")
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := pres.BuildContext(tt.status).State; got != tt.want {
					t.Errorf("expected state to be %s, got %s", tt.want, got)
				}
			})
		}
	})
}

func TestPresenter_Render(t *testing.T) {
	t.Run("default templates", func(t *testing.T) {
		pres := testPresenter(t, "metric")
		out, err := pres.Render(pres.BuildContext(status))
		if err != nil {
			t.Fatalf("failed to render templates: %s", err)
		}
		if out.Text != "→  12.3 m" {
			t.Errorf("unexpected text: %q", out.Text)
		}
		if out.AltText != "Library: 2/5" {
			t.Errorf("unexpected alt text: %q", out.AltText)
		}
		if !strings.Contains(out.Tooltip, "Next keypoint: At 3 o'clock, 12.3 m") {
			t.Errorf("unexpected tooltip: %q", out.Tooltip)
		}
		if !strings.Contains(out.AltTooltip, "State: Following route") {
			t.Errorf("unexpected alt tooltip: %q", out.AltTooltip)
		}
	})
	t.Run("imperial units in german", func(t *testing.T) {
		conf, err := config.New()
		if err != nil {
			t.Fatalf("failed to create config: %s", err)
		}
		conf.Units = "imperial"
		lang, err := i18n.New("de")
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		out, err := pres.Render(pres.BuildContext(status))
		if err != nil {
			t.Fatalf("failed to render templates: %s", err)
		}
		if !strings.Contains(out.Tooltip, "Nächster Wegpunkt: Auf 3 Uhr, 40 ft") {
			t.Errorf("unexpected tooltip: %q", out.Tooltip)
		}
	})
	t.Run("custom templates", func(t *testing.T) {
		conf, lang := testConfLang(t)
		conf.Templates.Text = `{{vertical .Direction.Vertical}} {{floatFormat .Feedback.Intensity 1}}` +
			`{{range .Nearby}} {{.Anchor.Name}}{{end}}`
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		out, err := pres.Render(pres.BuildContext(status))
		if err != nil {
			t.Fatalf("failed to render templates: %s", err)
		}
		if out.Text != "Upstairs 0.5 Library" {
			t.Errorf("unexpected text: %q", out.Text)
		}
	})
}

func TestPresenter_loc(t *testing.T) {
	t.Run("localized value is found", func(t *testing.T) {
		pres := testPresenter(t, "metric")
		want := "Destination"
		if got := pres.loc("destination"); got != want {
			t.Errorf("failed to get localized value: got %s, want %s", got, want)
		}
	})
	t.Run("localized german value is found", func(t *testing.T) {
		conf, err := config.New()
		if err != nil {
			t.Fatalf("failed to create config: %s", err)
		}
		lang, err := i18n.New("de")
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		want := "Treppe hinauf"
		if got := pres.loc("Upstairs"); got != want {
			t.Errorf("failed to get localized value: got %s, want %s", got, want)
		}
	})
	t.Run("localized value is not found", func(t *testing.T) {
		pres := testPresenter(t, "metric")
		want := "foobar"
		if got := pres.loc("foobar"); got != want {
			t.Errorf("failed to get localized value: got %s, want %s", got, want)
		}
	})
}

func TestPresenter_dist(t *testing.T) {
	tests := []struct {
		name  string
		units string
		val   float64
		want  string
	}{
		{"metric", "metric", 3.25, "3.2 m"},
		{"metric zero", "metric", 0, "0.0 m"},
		{"imperial", "imperial", 3.048, "10 ft"},
		{"imperial rounds", "imperial", 1, "3 ft"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pres := &Presenter{units: tt.units}
			if got := pres.dist(tt.val); got != tt.want {
				t.Errorf("failed to format distance: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPresenter_clock(t *testing.T) {
	pres := testPresenter(t, "metric")
	tests := []struct {
		hour int
		want string
	}{
		{12, "Straight ahead"},
		{6, "Behind you"},
		{3, "At 3 o'clock"},
		{11, "At 11 o'clock"},
		{0, ""},
	}
	for _, tt := range tests {
		if got := pres.clock(tt.hour); got != tt.want {
			t.Errorf("clock(%d): got %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestPresenter_arrow(t *testing.T) {
	pres := new(Presenter)
	tests := []struct {
		hour int
		want string
	}{
		{12, "↑  "},
		{3, "→  "},
		{7, "↙  "},
		{13, ""},
	}
	for _, tt := range tests {
		if got := pres.arrow(tt.hour); got != tt.want {
			t.Errorf("arrow(%d): got %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestPresenter_timeFormat(t *testing.T) {
	t.Run("RFC3339 format is used", func(t *testing.T) {
		pres := new(Presenter)
		if got := pres.timeFormat(now, time.RFC3339); got != now.Format(time.RFC3339) {
			t.Errorf("failed to get time format: got %s, want %s", got, now.Format(time.RFC3339))
		}
	})
}

func TestPresenter_floatFormat(t *testing.T) {
	tests := []struct {
		name string
		val  float64
		prec int
		want string
	}{
		{"0.0", 0.0, 0, "0"},
		{"0.4", 0.4, 1, "0.4"},
		{"0.1234", 0.1234, 4, "0.1234"},
		{"0.12", 0.1234, 2, "0.12"},
		{"0", 0.1234, 0, "0"},
	}

	pres := new(Presenter)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pres.floatFormat(tt.val, tt.prec); got != tt.want {
				t.Errorf("failed to get float format: got %s, want %s", got, tt.want)
			}
		})
	}
}

func testPresenter(t *testing.T, units string) *Presenter {
	t.Helper()
	conf, lang := testConfLang(t)
	conf.Units = units
	pres, err := New(conf, lang)
	if err != nil {
		t.Fatalf("failed to create presenter: %s", err)
	}
	return pres
}

func testConfLang(t *testing.T) (*config.Config, *spreak.Localizer) {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to create config: %s", err)
	}
	lang, err := i18n.New("en")
	if err != nil {
		t.Fatalf("failed to create i18n provider: %s", err)
	}
	return conf, lang
}

func TestPresenter_Describe(t *testing.T) {
	pres := testPresenter(t, "metric")
	want := "At 3 o'clock, 12.3 m"
	if got := pres.Describe(event); got != want {
		t.Errorf("failed to describe event: got %q, want %q", got, want)
	}
}
