// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/gpspoll"
	"github.com/wneessen/stepnav/internal/logger"
)

const (
	name        = "gpsd"
	DefaultAddr = "localhost:2947"
	DefaultPort = "2947"
)

// GeolocationGPSDProvider emits position fixes reported by gpsd. By default gpsd is polled
// once per period. In watch mode a persistent session streams every report.
type GeolocationGPSDProvider struct {
	name     string
	addr     string
	watch    bool
	period   time.Duration
	ttl      time.Duration
	logger   *logger.Logger
	locateFn func(ctx context.Context) (gpspoll.Fix, error)
}

// NewGeolocationGPSDProvider returns a provider for the gpsd instance at addr. A missing port
// defaults to the gpsd port.
func NewGeolocationGPSDProvider(addr string, watch bool, log *logger.Logger) *GeolocationGPSDProvider {
	client := gpspoll.New(hostPort(addr))
	return &GeolocationGPSDProvider{
		name:     name,
		addr:     client.Addr,
		watch:    watch,
		period:   time.Second * 30,
		ttl:      time.Minute * 2,
		logger:   log,
		locateFn: client.Poll,
	}
}

func (p *GeolocationGPSDProvider) Name() string {
	return p.name
}

func (p *GeolocationGPSDProvider) LookupStream(ctx context.Context, key string) <-chan bus.Result[geofix.Coordinate] {
	out := make(chan bus.Result[geofix.Coordinate])
	if p.watch {
		go p.watchStream(ctx, key, out)
		return out
	}
	go p.pollStream(ctx, key, out)
	return out
}

func (p *GeolocationGPSDProvider) pollStream(ctx context.Context, key string, out chan<- bus.Result[geofix.Coordinate]) {
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

		fix, err := p.locateFn(ctx)
		if err != nil {
			p.logError("failed to poll gpsd", err)
			continue
		}
		if !fix.Has2DFix() || !state.Update(fix.Coordinate()) {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case out <- p.createResult(key, fix.Coordinate()):
		}
	}
}

func (p *GeolocationGPSDProvider) watchStream(ctx context.Context, key string, out chan<- bus.Result[geofix.Coordinate]) {
	defer close(out)
	state := geofix.State{}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		session, err := gpsd.Dial(p.addr)
		if err != nil {
			p.logError("failed to connect to gpsd", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
				continue
			}
		}

		session.AddFilter("TPV", func(r interface{}) {
			tpv, ok := r.(*gpsd.TPVReport)
			if !ok {
				return
			}
			fix := fixFromReport(tpv)
			if !fix.Has2DFix() || !state.Update(fix.Coordinate()) {
				return
			}
			select {
			case <-ctx.Done():
			case out <- p.createResult(key, fix.Coordinate()):
			}
		})

		// The session has no Close, the connection is torn down with the process.
		done := session.Watch()
		select {
		case <-ctx.Done():
			return
		case <-done:
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.period):
		}
	}
}

// createResult composes a Result for the given coordinate.
func (p *GeolocationGPSDProvider) createResult(key string, coord geofix.Coordinate) bus.Result[geofix.Coordinate] {
	return bus.Result[geofix.Coordinate]{
		Key:      key,
		Value:    coord.Truncate(6),
		Accuracy: coord.Acc,
		Source:   p.name,
		At:       time.Now(),
		TTL:      p.ttl,
	}
}

func (p *GeolocationGPSDProvider) logError(msg string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, slog.String("addr", p.addr), logger.Err(err))
}

func fixFromReport(tpv *gpsd.TPVReport) gpspoll.Fix {
	return gpspoll.FixFrom(tpv.Lat, tpv.Lon, tpv.Alt, int(tpv.Mode), 0, tpv.Epx, tpv.Epy)
}

// hostPort splits addr, falling back to the default gpsd port.
func hostPort(addr string) (string, string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, DefaultPort
	}
	return host, port
}
