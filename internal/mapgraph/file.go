// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package mapgraph

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/geometry"
	"github.com/wneessen/stepnav/internal/http"
	"github.com/wneessen/stepnav/internal/route"
)

// fetchTimeout allows for large maps on slow connections.
const fetchTimeout = time.Second * 30

// File is the on-disk and over-the-wire representation of a map. Poses are 16 column-major
// values.
type File struct {
	Name    string       `yaml:"name" json:"name"`
	Anchors []AnchorFile `yaml:"anchors" json:"anchors"`
	Edges   []EdgeFile   `yaml:"edges" json:"edges"`
}

type AnchorFile struct {
	ID       string             `yaml:"id" json:"id"`
	Name     string             `yaml:"name" json:"name"`
	Category string             `yaml:"category,omitempty" json:"category,omitempty"`
	Position *geofix.Coordinate `yaml:"position,omitempty" json:"position,omitempty"`
}

type EdgeFile struct {
	From        string               `yaml:"from" json:"from"`
	To          string               `yaml:"to" json:"to"`
	Version     int                  `yaml:"version,omitempty" json:"version,omitempty"`
	Start       []float64            `yaml:"start" json:"start"`
	End         []float64            `yaml:"end" json:"end"`
	Path        [][]float64          `yaml:"path,omitempty" json:"path,omitempty"`
	PathAnchors map[string][]float64 `yaml:"path_anchors,omitempty" json:"path_anchors,omitempty"`
	Keypoints   []int                `yaml:"keypoints,omitempty" json:"keypoints,omitempty"`
}

// Load reads a YAML map file and builds its graph.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}
	return Parse(data)
}

// Parse builds a graph from YAML map data. Since YAML is a superset of JSON, JSON data works
// too.
func Parse(data []byte) (*Graph, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal map: %w", err)
	}
	return file.Graph()
}

// Fetch downloads a JSON map from url and builds its graph.
func Fetch(ctx context.Context, client *http.Client, url string) (*Graph, error) {
	var file File
	if _, err := client.GetJSON(ctx, url, http.Request{Timeout: fetchTimeout}, &file); err != nil {
		return nil, fmt.Errorf("failed to fetch map: %w", err)
	}
	return file.Graph()
}

// Graph validates the poses of the file and builds the graph.
func (f File) Graph() (*Graph, error) {
	anchors := make([]Anchor, 0, len(f.Anchors))
	for i, a := range f.Anchors {
		if a.ID == "" {
			return nil, fmt.Errorf("anchor %d has no ID", i)
		}
		if a.Position != nil && !a.Position.Valid() {
			return nil, fmt.Errorf("anchor %s has an invalid position", a.ID)
		}
		anchors = append(anchors, Anchor{ID: a.ID, Name: a.Name, Category: a.Category, Position: a.Position})
	}

	edges := make([]Edge, 0, len(f.Edges))
	for i, e := range f.Edges {
		edge, err := e.edge()
		if err != nil {
			return nil, fmt.Errorf("edge %d (%s -> %s): %w", i, e.From, e.To, err)
		}
		edges = append(edges, edge)
	}
	return New(f.Name, anchors, edges), nil
}

func (e EdgeFile) edge() (Edge, error) {
	edge := Edge{From: e.From, To: e.To, Version: e.Version}
	var err error
	if edge.Start, err = geometry.FromColumnMajor(e.Start); err != nil {
		return Edge{}, fmt.Errorf("start anchor: %w", err)
	}
	if edge.End, err = geometry.FromColumnMajor(e.End); err != nil {
		return Edge{}, fmt.Errorf("end anchor: %w", err)
	}
	edge.Path = make([]geometry.Transform, len(e.Path))
	for i, p := range e.Path {
		if edge.Path[i], err = geometry.FromColumnMajor(p); err != nil {
			return Edge{}, fmt.Errorf("path pose %d: %w", i, err)
		}
	}
	// keypoint indices count the start anchor as 0 and the end anchor as len(path)+1
	for _, idx := range e.Keypoints {
		if idx < 0 || idx > len(e.Path)+1 {
			return Edge{}, fmt.Errorf("%w: %d", route.ErrIndexOutOfRange, idx)
		}
	}
	edge.Keypoints = slices.Clone(e.Keypoints)
	if len(e.PathAnchors) > 0 {
		edge.PathAnchors = make(map[string]geometry.Transform, len(e.PathAnchors))
		for id, p := range e.PathAnchors {
			if edge.PathAnchors[id], err = geometry.FromColumnMajor(p); err != nil {
				return Edge{}, fmt.Errorf("path anchor %s: %w", id, err)
			}
		}
	}
	return edge, nil
}
