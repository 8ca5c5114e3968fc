// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpspoll asks a gpsd daemon for a single position report.
package gpspoll

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/wneessen/stepnav/internal/geofix"
)

const (
	watchTimeout = time.Second * 2
	noFixAcc     = geofix.AccuracyUnknown
)

// ErrNoReport is returned if gpsd closed the stream without sending a TPV report.
var ErrNoReport = errors.New("no TPV report received from gpsd")

// Client is a minimal gpsd client
type Client struct {
	Addr string
}

// Fix is a single TPV report from gpsd. Acc is the horizontal accuracy in meters.
type Fix struct {
	Lat  float64
	Lon  float64
	Alt  float64
	Acc  float64
	Mode int
}

// tpvReport matches the subset of gpsd's TPV report we care about.
type tpvReport struct {
	Class string  `json:"class"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	Mode  int     `json:"mode"`
	Epx   float64 `json:"epx"`
	Epy   float64 `json:"epy"`
	Eph   float64 `json:"eph"`
}

// New returns a Client for the gpsd instance at host and port.
func New(host, port string) *Client {
	return &Client{
		Addr: net.JoinHostPort(host, port),
	}
}

// Poll enables watching on gpsd and returns the first TPV report. The connection is closed
// before returning.
func (c *Client) Poll(ctx context.Context) (Fix, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return Fix{}, fmt.Errorf("failed to connect to gpsd: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(watchTimeout)
	}
	_ = conn.SetDeadline(deadline)

	if _, err = fmt.Fprint(conn, `?WATCH={"enable":true,"json":true}`+"\n"); err != nil {
		return Fix{}, fmt.Errorf("failed to send WATCH command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if err = ctx.Err(); err != nil {
			return Fix{}, err
		}

		var report tpvReport
		if err = json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if report.Class != "TPV" {
			continue
		}
		return FixFrom(report.Lat, report.Lon, report.Alt, report.Mode, report.Eph, report.Epx, report.Epy), nil
	}
	if err = scanner.Err(); err != nil {
		return Fix{}, fmt.Errorf("failed to read gpsd response: %w", err)
	}
	return Fix{}, ErrNoReport
}

// FixFrom builds a Fix from the fields of a TPV report. The accuracy is taken from eph, from
// epx and epy, or estimated from the fix mode, in that order.
func FixFrom(lat, lon, alt float64, mode int, eph, epx, epy float64) Fix {
	fix := Fix{Lat: lat, Lon: lon, Alt: alt, Mode: mode}
	switch {
	case eph > 0:
		fix.Acc = eph
	case epx > 0 && epy > 0:
		fix.Acc = math.Hypot(epx, epy)
	case mode >= 3:
		fix.Acc = geofix.AccuracyGPS3D
	case mode == 2:
		fix.Acc = geofix.AccuracyGPS2D
	default:
		fix.Acc = noFixAcc
	}
	return fix
}

// Has2DFix reports whether the fix has at least a 2D fix.
func (f Fix) Has2DFix() bool {
	return f.Mode >= 2
}

// Coordinate returns the fix as a coordinate.
func (f Fix) Coordinate() geofix.Coordinate {
	return geofix.Coordinate{Lat: f.Lat, Lon: f.Lon, Alt: f.Alt, Acc: f.Acc}
}
