// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package ichnaea locates the device from the WiFi access points in range, using an
// Ichnaea compatible geolocation API. Indoors this is usually the only source of a geo fix.
package ichnaea

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/http"
	"github.com/wneessen/stepnav/internal/logger"
)

const (
	DefaultEndpoint = "https://api.beacondb.net/v1/geolocate"

	name          = "ichnaea"
	lookupTimeout = time.Second * 5
	wifiScanTime  = time.Minute
	precision     = 6
)

var (
	// ErrNoAccessPoints is returned if no access points are in range.
	ErrNoAccessPoints = errors.New("no WiFi access points in range")
	// ErrUnknownLocation is returned if the API knows none of the access points.
	ErrUnknownLocation = errors.New("access points are unknown to the geolocation API")
)

// GeolocationICHNAEAProvider streams geo fixes computed from the visible access points.
type GeolocationICHNAEAProvider struct {
	name     string
	endpoint string
	http     *http.Client
	logger   *logger.Logger
	period   time.Duration
	ttl      time.Duration
	scanFn   func() ([]AccessPoint, error)
	locateFn func(ctx context.Context) (geofix.Coordinate, error)

	apLock sync.RWMutex
	aps    []AccessPoint
}

// APIResult is the response of the geolocation API.
type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

// AccessPoint is a WiFi access point as expected by the geolocation API.
type AccessPoint struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

// NewGeolocationICHNAEAProvider returns a provider that scans the station interfaces of the
// system. An empty endpoint selects DefaultEndpoint.
func NewGeolocationICHNAEAProvider(client *http.Client, endpoint string, log *logger.Logger) (*GeolocationICHNAEAProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	wlan, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create wifi client: %w", err)
	}
	provider := newProvider(client, endpoint, log)
	provider.scanFn = func() ([]AccessPoint, error) { return scan(wlan) }
	return provider, nil
}

func newProvider(client *http.Client, endpoint string, log *logger.Logger) *GeolocationICHNAEAProvider {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	provider := &GeolocationICHNAEAProvider{
		name:     name,
		endpoint: endpoint,
		http:     client,
		logger:   log,
		period:   time.Minute * 2,
		ttl:      time.Minute * 30,
	}
	provider.locateFn = provider.locate
	return provider
}

func (p *GeolocationICHNAEAProvider) Name() string {
	return p.name
}

// LookupStream scans for access points in the background and locates the device
// periodically. Only significant changes are emitted.
func (p *GeolocationICHNAEAProvider) LookupStream(ctx context.Context, key string) <-chan bus.Result[geofix.Coordinate] {
	out := make(chan bus.Result[geofix.Coordinate])
	go p.monitorAccessPoints(ctx)
	go func() {
		defer close(out)
		state := geofix.State{}
		firstRun := true

		for {
			if !firstRun {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
				}
			}
			firstRun = false

			coord, err := p.locateFn(ctx)
			if err != nil {
				p.logDebug("failed to locate via WiFi", err)
				continue
			}
			if !state.Update(coord) {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- p.createResult(key, coord):
			}
		}
	}()
	return out
}

func (p *GeolocationICHNAEAProvider) createResult(key string, coord geofix.Coordinate) bus.Result[geofix.Coordinate] {
	return bus.Result[geofix.Coordinate]{
		Key:      key,
		Value:    coord,
		Accuracy: coord.Acc,
		Source:   p.name,
		At:       time.Now(),
		TTL:      p.ttl,
	}
}

func (p *GeolocationICHNAEAProvider) monitorAccessPoints(ctx context.Context) {
	if p.scanFn == nil {
		return
	}
	firstRun := true
	for {
		if !firstRun {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wifiScanTime):
			}
		}
		firstRun = false

		list, err := p.scanFn()
		if err != nil {
			p.logDebug("failed to scan WiFi access points", err)
			continue
		}
		p.apLock.Lock()
		p.aps = list
		p.apLock.Unlock()
	}
}

// locate sends the known access points to the API. IP based lookups are disabled, they are
// too coarse to pick a building.
func (p *GeolocationICHNAEAProvider) locate(ctx context.Context) (geofix.Coordinate, error) {
	p.apLock.RLock()
	list := p.aps
	p.apLock.RUnlock()
	if len(list) == 0 {
		return geofix.Coordinate{}, ErrNoAccessPoints
	}

	type request struct {
		ConsiderIP   bool          `json:"considerIp"`
		AccessPoints []AccessPoint `json:"wifiAccessPoints"`
	}
	result := new(APIResult)
	req := http.Request{Body: request{AccessPoints: list}, Timeout: lookupTimeout}
	if _, err := p.http.PostJSON(ctx, p.endpoint, req, result); err != nil {
		if http.IsNotFound(err) {
			return geofix.Coordinate{}, ErrUnknownLocation
		}
		return geofix.Coordinate{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	coord := geofix.Coordinate{
		Lat: result.Location.Latitude,
		Lon: result.Location.Longitude,
		Acc: result.Accuracy,
	}
	return coord.Truncate(precision), nil
}

func (p *GeolocationICHNAEAProvider) logDebug(msg string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Debug(msg, logger.Err(err), slog.String("provider", p.name))
}

// scan lists the access points seen by all station interfaces. Access points that opted out
// of mapping are skipped.
func scan(wlan *wifi.Client) ([]AccessPoint, error) {
	ifaces, err := wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var list []AccessPoint
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		aps, err := wlan.AccessPoints(iface)
		if err != nil {
			continue
		}
		for _, ap := range aps {
			if !mappable(ap.SSID) {
				continue
			}
			list = append(list, AccessPoint{
				SignalStrength: ap.Signal / 100,
				MACAddress:     ap.BSSID.String(),
				LastSeen:       ap.LastSeen.Milliseconds(),
			})
		}
	}
	return list, nil
}

func mappable(ssid string) bool {
	return ssid != "" && ssid[0] != '\x00' && !strings.HasSuffix(ssid, "_nomap")
}
