// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nmea

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/jacobsa/go-serial/serial"

	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/logger"
)

const (
	name        = "nmea"
	DefaultBaud = 9600

	// userRangeError converts HDOP into meters.
	userRangeError = 5.0
)

// GeolocationNMEAProvider reads NMEA sentences from a serial GPS receiver. GGA sentences carry
// the accuracy through their HDOP, RMC sentences fall back to the typical 2D fix accuracy.
type GeolocationNMEAProvider struct {
	name   string
	port   string
	baud   uint
	ttl    time.Duration
	logger *logger.Logger
	openFn func() (io.ReadCloser, error)
}

// NewGeolocationNMEAProvider returns a provider for the receiver on the given serial port.
func NewGeolocationNMEAProvider(port string, baud uint, log *logger.Logger) *GeolocationNMEAProvider {
	if baud == 0 {
		baud = DefaultBaud
	}
	provider := &GeolocationNMEAProvider{
		name:   name,
		port:   port,
		baud:   baud,
		ttl:    time.Minute,
		logger: log,
	}
	provider.openFn = provider.openSerial
	return provider
}

func (p *GeolocationNMEAProvider) Name() string {
	return p.name
}

// LookupStream emits the fixes read from the receiver. The stream ends when the port can not
// be opened or read, or the context ends.
func (p *GeolocationNMEAProvider) LookupStream(ctx context.Context, key string) <-chan bus.Result[geofix.Coordinate] {
	out := make(chan bus.Result[geofix.Coordinate])
	go func() {
		defer close(out)

		port, err := p.openFn()
		if err != nil {
			p.logWarn("failed to open serial port", err)
			return
		}
		stop := context.AfterFunc(ctx, func() {
			_ = port.Close()
		})
		defer func() {
			if stop() {
				_ = port.Close()
			}
		}()

		state := geofix.State{}
		scanner := bufio.NewScanner(port)
		for scanner.Scan() {
			coord, ok := parseSentence(scanner.Text())
			if !ok || !state.Update(coord) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- p.createResult(key, coord):
			}
		}
		if err = scanner.Err(); err != nil && ctx.Err() == nil {
			p.logWarn("failed to read from serial port", err)
		}
	}()
	return out
}

// createResult composes a Result for the given coordinate.
func (p *GeolocationNMEAProvider) createResult(key string, coord geofix.Coordinate) bus.Result[geofix.Coordinate] {
	return bus.Result[geofix.Coordinate]{
		Key:      key,
		Value:    coord,
		Accuracy: coord.Acc,
		Source:   p.name,
		At:       time.Now(),
		TTL:      p.ttl,
	}
}

func (p *GeolocationNMEAProvider) openSerial() (io.ReadCloser, error) {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        p.port,
		BaudRate:        p.baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p.port, err)
	}
	return port, nil
}

func (p *GeolocationNMEAProvider) logWarn(msg string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, slog.String("port", p.port), logger.Err(err))
}

// parseSentence extracts a fix from a GGA or RMC sentence. Other sentences, sentences without
// a valid fix and malformed lines are rejected.
func parseSentence(line string) (geofix.Coordinate, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return geofix.Coordinate{}, false
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		return geofix.Coordinate{}, false
	}

	var coord geofix.Coordinate
	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid {
			return geofix.Coordinate{}, false
		}
		coord = geofix.Coordinate{Lat: s.Latitude, Lon: s.Longitude, Alt: s.Altitude, Acc: geofix.AccuracyGPS2D}
		if s.HDOP > 0 {
			coord.Acc = s.HDOP * userRangeError
		}
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return geofix.Coordinate{}, false
		}
		coord = geofix.Coordinate{Lat: s.Latitude, Lon: s.Longitude, Acc: geofix.AccuracyGPS2D}
	default:
		return geofix.Coordinate{}, false
	}
	return coord, coord.Valid()
}
