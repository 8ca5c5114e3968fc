// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/gpspoll"
	"github.com/wneessen/stepnav/internal/logger"
)

const (
	testLat = 40.7185
	testLon = -74.0025
)

func TestNewGeolocationGPSDProvider(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{"host and port", "gps.local:1234", "gps.local:1234"},
		{"default address", DefaultAddr, "localhost:2947"},
		{"host without port", "gps.local", "gps.local:2947"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := NewGeolocationGPSDProvider(tc.addr, false, nil)
			if provider == nil {
				t.Fatal("expected provider to be non-nil")
			}
			if provider.addr != tc.want {
				t.Errorf("expected address to be %s, got %s", tc.want, provider.addr)
			}
		})
	}
}

func TestGeolocationGPSDProvider_Name(t *testing.T) {
	provider := NewGeolocationGPSDProvider(DefaultAddr, false, nil)
	if !strings.EqualFold(provider.Name(), name) {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
}

func TestGeolocationGPSDProvider_createResult(t *testing.T) {
	provider := NewGeolocationGPSDProvider(DefaultAddr, false, nil)
	result := provider.createResult("test", geofix.Coordinate{Lat: 40.71851234, Lon: testLon, Acc: 12})
	if result.Value.Lat != 40.718512 {
		t.Errorf("expected latitude to be %f, got %f", 40.718512, result.Value.Lat)
	}
	if result.Value.Lon != testLon {
		t.Errorf("expected longitude to be %f, got %f", testLon, result.Value.Lon)
	}
	if result.Key != "test" {
		t.Errorf("expected key to be %s, got %s", "test", result.Key)
	}
	if result.Accuracy != 12 {
		t.Errorf("expected accuracy to be %d, got %f", 12, result.Accuracy)
	}
	if result.Source != provider.Name() {
		t.Errorf("expected source to be %s, got %s", provider.Name(), result.Source)
	}
	if result.TTL != provider.ttl {
		t.Errorf("expected TTL to be %d, got %d", provider.ttl, result.TTL)
	}
}

func TestFixFromReport(t *testing.T) {
	tests := []struct {
		name   string
		report *gpsd.TPVReport
		acc    float64
		has2D  bool
	}{
		{"3D fix with error estimates", &gpsd.TPVReport{Mode: gpsd.Mode3D, Lat: testLat, Lon: testLon, Epx: 3, Epy: 4}, 5, true},
		{"3D fix without estimates", &gpsd.TPVReport{Mode: gpsd.Mode3D, Lat: testLat, Lon: testLon}, geofix.AccuracyGPS3D, true},
		{"2D fix without estimates", &gpsd.TPVReport{Mode: gpsd.Mode2D, Lat: testLat, Lon: testLon}, geofix.AccuracyGPS2D, true},
		{"no fix", &gpsd.TPVReport{Mode: gpsd.NoFix}, geofix.AccuracyUnknown, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fix := fixFromReport(tc.report)
			if fix.Acc != tc.acc {
				t.Errorf("expected accuracy to be %f, got %f", tc.acc, fix.Acc)
			}
			if fix.Has2DFix() != tc.has2D {
				t.Errorf("expected 2D fix to be %t, got %t", tc.has2D, fix.Has2DFix())
			}
		})
	}
}

func TestGeolocationGPSDProvider_LookupStream(t *testing.T) {
	t.Run("fetching GPS data fails on first run but then succeeds", func(t *testing.T) {
		runCount := 0
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			buf := bytes.NewBuffer(nil)
			provider := NewGeolocationGPSDProvider(DefaultAddr, false, logger.NewLogger(slog.LevelDebug, buf))
			provider.period = time.Millisecond * 10
			provider.locateFn = func(context.Context) (gpspoll.Fix, error) {
				switch runCount {
				case 0:
					runCount++
					return gpspoll.Fix{}, errors.New("intentionally failing")
				case 1:
					runCount++
					return gpspoll.Fix{Lat: 1, Lon: 2, Acc: 3, Mode: 1}, nil
				}
				return gpspoll.Fix{Lat: 1.0, Lon: 2.0, Acc: 3.0, Mode: 2}, nil
			}

			out := provider.LookupStream(ctx, "test")
			if out == nil {
				t.Fatal("expected stream to be non-nil")
			}

			var result bus.Result[geofix.Coordinate]
			select {
			case result = <-out:
				cancel()
			case <-ctx.Done():
				t.Fatalf("context done before result: %v", ctx.Err())
			}
			synctest.Wait()

			if result.Value.Lat != 1.0 {
				t.Errorf("expected latitude to be %f, got %f", 1.0, result.Value.Lat)
			}
			if result.Value.Lon != 2.0 {
				t.Errorf("expected longitude to be %f, got %f", 2.0, result.Value.Lon)
			}
			if result.Accuracy != 3.0 {
				t.Errorf("expected accuracy to be %f, got %f", 3.0, result.Accuracy)
			}
			if !strings.Contains(buf.String(), "intentionally failing") {
				t.Errorf("expected poll error to be logged, got: %s", buf.String())
			}
		})
	})
	t.Run("stream ends when the context is cancelled", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())

			provider := NewGeolocationGPSDProvider(DefaultAddr, false, nil)
			provider.period = time.Millisecond * 10
			provider.locateFn = func(context.Context) (gpspoll.Fix, error) {
				return gpspoll.Fix{}, gpspoll.ErrNoReport
			}

			out := provider.LookupStream(ctx, "test")
			time.Sleep(time.Millisecond * 50)
			cancel()
			synctest.Wait()

			if _, ok := <-out; ok {
				t.Error("expected stream to be closed")
			}
		})
	})
}
