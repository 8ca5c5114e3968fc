// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "STEPNAV"

	DefaultTextTpl    = "{{arrow .Direction.ClockDirection}}{{dist .Direction.Distance}}"
	DefaultAltTextTpl = "{{.Destination}}: {{.Remaining}}/{{.Total}}"
	DefaultTooltipTpl = "{{loc \"destination\"}}: {{.Destination}}\n" +
		"{{loc \"next\"}}: {{clock .Direction.ClockDirection}}, {{dist .Direction.Distance}}\n" +
		"{{loc \"remaining\"}}: {{.Remaining}}\n" +
		"{{loc \"updated\"}}: {{localizedTime .UpdateTime}}"
	DefaultAltTooltipTpl = "{{loc \"route\"}}: {{.Route}}\n{{loc \"state\"}}: {{loc .State}}"
)

var ErrNoPoseSource = errors.New("either an MQTT broker or a replay file is required")

// Config represents the application's configuration structure.
type Config struct {
	// Allowed values: metric, imperial
	Units    string     `fig:"units" default:"metric"`
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Intervals struct {
		FollowCrumb time.Duration `fig:"follow_crumb" default:"300ms"`
		Output      time.Duration `fig:"output" default:"1s"`
	} `fig:"intervals"`

	Navigation struct {
		Start       string  `fig:"start"`
		Destination string  `fig:"destination"`
		PathWidth   float64 `fig:"path_width" default:"0.3"`
		// Distance in meters at which a keypoint counts as reached regardless of the target box
		ArrivalRadius float64 `fig:"arrival_radius"`
		CloseRadius   float64 `fig:"close_radius" default:"4"`
		// Degrees, counter-clockwise
		HeadingOffset float64 `fig:"heading_offset"`
		// Radius in meters for the nearby destination list
		NearbyRadius float64 `fig:"nearby_radius" default:"1000"`
	} `fig:"navigation"`

	Map struct {
		File string `fig:"file"`
		URL  string `fig:"url"`
	} `fig:"map"`

	Pose struct {
		Broker        string  `fig:"broker"`
		ClientID      string  `fig:"client_id" default:"stepnav"`
		Topic         string  `fig:"topic" default:"stepnav/pose"`
		LandmarkTopic string  `fig:"landmark_topic" default:"stepnav/landmark/+"`
		ReplayFile    string  `fig:"replay_file"`
		ReplaySpeed   float64 `fig:"replay_speed" default:"1"`
		ReplayLoop    bool    `fig:"replay_loop"`
	} `fig:"pose"`

	GeoLocation struct {
		File                   string `fig:"file"`
		GPSD                   string `fig:"gpsd" default:"localhost:2947"`
		GPSDWatch              bool   `fig:"gpsd_watch"`
		NMEAPort               string `fig:"nmea_port"`
		NMEABaud               uint   `fig:"nmea_baud" default:"9600"`
		ICHNAEA                string `fig:"ichnaea" default:"https://api.beacondb.net/v1/geolocate"`
		DisableGPSD            bool   `fig:"disable_gpsd"`
		DisableGeolocationFile bool   `fig:"disable_geolocation_file"`
		DisableICHNAEA         bool   `fig:"disable_ichnaea"`
	} `fig:"geolocation"`

	Output struct {
		DisableStdout bool   `fig:"disable_stdout"`
		MQTTTopic     string `fig:"mqtt_topic"`
		WebAddr       string `fig:"web_addr"`
		Notifications bool   `fig:"notifications"`
	} `fig:"output"`

	Display struct {
		Scheme     string `fig:"scheme"`
		Foreground string `fig:"foreground" default:"#000000"`
		Background string `fig:"background" default:"#ffffff"`
	} `fig:"display"`

	PathLog struct {
		Enabled   bool   `fig:"enabled"`
		Dir       string `fig:"dir"`
		SQLite    string `fig:"sqlite"`
		UploadURL string `fig:"upload_url"`
	} `fig:"pathlog"`

	Templates struct {
		Text       string `fig:"text"`
		AltText    string `fig:"alt_text"`
		Tooltip    string `fig:"tooltip"`
		AltTooltip string `fig:"alt_tooltip"`
	} `fig:"templates"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Units != "metric" && c.Units != "imperial" {
		return fmt.Errorf("invalid units: %s", c.Units)
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Intervals.FollowCrumb <= 0 || c.Intervals.Output <= 0 {
		return fmt.Errorf("intervals must be positive: follow_crumb=%s, output=%s",
			c.Intervals.FollowCrumb, c.Intervals.Output)
	}
	if c.Navigation.PathWidth <= 0 {
		return fmt.Errorf("invalid path width: %f", c.Navigation.PathWidth)
	}
	if c.Navigation.ArrivalRadius < 0 || c.Navigation.CloseRadius < 0 {
		return fmt.Errorf("radii must not be negative")
	}
	if c.Navigation.HeadingOffset < -180 || c.Navigation.HeadingOffset > 180 {
		return fmt.Errorf("invalid heading offset: %f", c.Navigation.HeadingOffset)
	}
	if c.Pose.ReplaySpeed <= 0 {
		return fmt.Errorf("invalid replay speed: %f", c.Pose.ReplaySpeed)
	}
	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.AltText == "" {
		c.Templates.AltText = DefaultAltTextTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}
	if c.Templates.AltTooltip == "" {
		c.Templates.AltTooltip = DefaultAltTooltipTpl
	}

	home, _ := os.UserHomeDir()
	if c.GeoLocation.File == "" {
		c.GeoLocation.File = filepath.Join(home, ".config", "stepnav", "geolocation")
	}
	if c.Map.File == "" && c.Map.URL == "" {
		c.Map.File = filepath.Join(home, ".config", "stepnav", "map.yaml")
	}
	if c.PathLog.Enabled && c.PathLog.Dir == "" && c.PathLog.SQLite == "" && c.PathLog.UploadURL == "" {
		c.PathLog.Dir = filepath.Join(home, ".local", "share", "stepnav", "pathlogs")
	}

	return nil
}

// RequirePoseSource checks that the configuration names a source for camera poses.
func (c *Config) RequirePoseSource() error {
	if c.Pose.Broker == "" && c.Pose.ReplayFile == "" {
		return ErrNoPoseSource
	}
	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
