// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"

	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/bus/provider/geolocation_file"
	"github.com/wneessen/stepnav/internal/bus/provider/gpsd"
	"github.com/wneessen/stepnav/internal/bus/provider/ichnaea"
	"github.com/wneessen/stepnav/internal/bus/provider/mqtt"
	"github.com/wneessen/stepnav/internal/bus/provider/nmea"
	"github.com/wneessen/stepnav/internal/bus/provider/replay"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/http"
	"github.com/wneessen/stepnav/internal/logger"
	"github.com/wneessen/stepnav/internal/mapgraph"
	"github.com/wneessen/stepnav/internal/pathlog"
	"github.com/wneessen/stepnav/internal/pose"
)

func (s *Service) selectPoseProviders() []bus.Provider[pose.Sample] {
	var provider []bus.Provider[pose.Sample]

	if s.config.Pose.Broker != "" {
		provider = append(provider, mqtt.NewPoseProvider(s.config.Pose.Broker, s.config.Pose.ClientID,
			s.config.Pose.Topic, s.config.Pose.LandmarkTopic, s.logger))
	}

	if s.config.Pose.ReplayFile != "" {
		provider = append(provider, replay.NewReplayProvider(s.config.Pose.ReplayFile, s.config.Pose.ReplaySpeed,
			s.config.Pose.ReplayLoop, s.logger))
	}

	return provider
}

func (s *Service) selectGeoProviders() []bus.Provider[geofix.Coordinate] {
	var provider []bus.Provider[geofix.Coordinate]

	if !s.config.GeoLocation.DisableGeolocationFile && s.config.GeoLocation.File != "" {
		provider = append(provider, geolocation_file.NewGeolocationFileProvider(s.config.GeoLocation.File))
	}

	if !s.config.GeoLocation.DisableGPSD {
		provider = append(provider, gpsd.NewGeolocationGPSDProvider(s.config.GeoLocation.GPSD,
			s.config.GeoLocation.GPSDWatch, s.logger))
	}

	if !s.config.GeoLocation.DisableICHNAEA {
		ichnaeaProvider, err := ichnaea.NewGeolocationICHNAEAProvider(http.New(s.logger),
			s.config.GeoLocation.ICHNAEA, s.logger)
		if err != nil {
			s.logger.Error("failed to create ichnaea provider", logger.Err(err))
		} else {
			provider = append(provider, ichnaeaProvider)
		}
	}

	if s.config.GeoLocation.NMEAPort != "" {
		provider = append(provider, nmea.NewGeolocationNMEAProvider(s.config.GeoLocation.NMEAPort,
			s.config.GeoLocation.NMEABaud, s.logger))
	}

	return provider
}

// loadMap reads the map from the configured URL or file.
func (s *Service) loadMap(ctx context.Context) (*mapgraph.Graph, error) {
	if s.config.Map.URL != "" {
		return mapgraph.Fetch(ctx, http.New(s.logger), s.config.Map.URL)
	}
	return mapgraph.Load(s.config.Map.File)
}

// openStore returns the configured path log store. SQLite takes precedence over the upload
// URL, the log directory is the fallback.
func (s *Service) openStore(ctx context.Context) (pathlog.Store, error) {
	switch {
	case s.config.PathLog.SQLite != "":
		store, err := pathlog.OpenSQLite(ctx, s.config.PathLog.SQLite)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	case s.config.PathLog.UploadURL != "":
		return pathlog.HTTPStore{Client: http.New(s.logger), URL: s.config.PathLog.UploadURL}, nil
	default:
		return pathlog.FileStore{Dir: s.config.PathLog.Dir}, nil
	}
}
