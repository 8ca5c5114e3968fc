// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/geofix"
)

const (
	name = "geolocation_file"
)

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// GeolocationFileProvider reads a fixed position from a file and emits it via a stream. The file
// holds one "lat,lon" or "lat,lon,accuracy" line, lines starting with # are ignored. The file
// is re-read periodically and a result is only emitted if the position changed significantly.
type GeolocationFileProvider struct {
	name     string
	path     string
	period   time.Duration
	ttl      time.Duration
	locateFn func() (geofix.Coordinate, error)
}

// NewGeolocationFileProvider initializes a GeolocationFileProvider with a file path and default update
// interval and TTL settings.
func NewGeolocationFileProvider(path string) *GeolocationFileProvider {
	provider := &GeolocationFileProvider{
		name:   name,
		path:   path,
		period: time.Minute * 2,
		ttl:    time.Hour * 1,
	}
	provider.locateFn = provider.readFile
	return provider
}

// Name returns the name of the GeolocationFileProvider instance.
func (p *GeolocationFileProvider) Name() string {
	return p.name
}

// LookupStream streams the position from the file until the context ends.
func (p *GeolocationFileProvider) LookupStream(ctx context.Context, key string) <-chan bus.Result[geofix.Coordinate] {
	out := make(chan bus.Result[geofix.Coordinate])
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

			coord, err := p.locateFn()
			if err != nil {
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

// createResult composes a Result for the given coordinate.
func (p *GeolocationFileProvider) createResult(key string, coord geofix.Coordinate) bus.Result[geofix.Coordinate] {
	return bus.Result[geofix.Coordinate]{
		Key:      key,
		Value:    coord,
		Accuracy: coord.Acc,
		Source:   p.name,
		At:       time.Now(),
		TTL:      p.ttl,
	}
}

// readFile returns the first valid coordinate in the file at the configured path.
func (p *GeolocationFileProvider) readFile() (geofix.Coordinate, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return geofix.Coordinate{}, fmt.Errorf("failed to read geolocation file %q: %w", p.path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coord, ok := parseLine(line); ok {
			return coord, nil
		}
	}
	return geofix.Coordinate{}, ErrNoCoordinates
}

func parseLine(line string) (geofix.Coordinate, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != 2 && len(fields) != 3 {
		return geofix.Coordinate{}, false
	}
	values := make([]float64, len(fields))
	for i, field := range fields {
		val, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return geofix.Coordinate{}, false
		}
		values[i] = val
	}

	coord := geofix.Coordinate{Lat: values[0], Lon: values[1], Acc: geofix.AccuracyBuilding}
	if len(values) == 3 && values[2] > 0 {
		coord.Acc = values[2]
	}
	return coord, coord.Valid()
}
