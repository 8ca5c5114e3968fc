// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geofix holds coarse geographic fixes. They are used to pick the anchors near the
// user, not for the navigation itself.
package geofix

import (
	"fmt"
	"math"
)

const (
	EarthRadius       = 6371000.0 // meters
	DistanceThreshold = 25.0      // meters
	AccuracyThreshold = 20.0
)

// Typical accuracies in meters for fixes that carry no accuracy of their own.
const (
	AccuracyGPS3D    = 10
	AccuracyGPS2D    = 25
	AccuracyBuilding = 100
	AccuracyUnknown  = 1000000
)

// Coordinate represents a geographic coordinate.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
	Alt float64 `json:"alt,omitempty" yaml:"alt,omitempty"`
	Acc float64 `json:"acc,omitempty" yaml:"acc,omitempty"`
}

// Distance returns the great-circle distance to other in meters using the Haversine formula.
func (c Coordinate) Distance(other Coordinate) float64 {
	dLat := (c.Lat - other.Lat) * math.Pi / 180
	dLon := (c.Lon - other.Lon) * math.Pi / 180
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(min(1, h)))
}

// PosHasSignificantChange checks if the position differs from other by more than the
// distance threshold.
func (c Coordinate) PosHasSignificantChange(other Coordinate) bool {
	// Higher accuracy always trumps the distance threshold.
	if c.Acc < other.Acc && math.Abs(c.Acc-other.Acc) > AccuracyThreshold {
		return true
	}
	return c.Distance(other) > DistanceThreshold
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Truncate rounds latitude and longitude to the given number of decimals.
func (c Coordinate) Truncate(decimals int) Coordinate {
	factor := math.Pow(10, float64(decimals))
	c.Lat = math.Round(c.Lat*factor) / factor
	c.Lon = math.Round(c.Lon*factor) / factor
	return c
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}
