// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package mapgraph holds the anchor graph of a recorded map. Anchors are nodes, recorded paths
// between two anchors are directed edges weighted by their walking distance.
package mapgraph

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/geometry"
	"github.com/wneessen/stepnav/internal/route"
)

// DefaultNearbyRadius is the radius in meters used to list anchors near the user.
const DefaultNearbyRadius = 1000.0

var (
	ErrUnknownAnchor = errors.New("unknown anchor")
	ErrUnreachable   = errors.New("destination is not reachable")
	ErrMissingEdge   = errors.New("no recorded path between anchors")
	ErrRouteTooShort = errors.New("route needs at least two anchors")
)

// Anchor is a resolvable location in the map.
type Anchor struct {
	ID       string
	Name     string
	Category string
	Position *geofix.Coordinate
}

// Edge is a path recorded from one anchor to another. All poses are expressed in the session
// frame of the recording.
type Edge struct {
	From    string
	To      string
	Version int

	Start       geometry.Transform
	End         geometry.Transform
	Path        []geometry.Transform
	PathAnchors map[string]geometry.Transform

	// Keypoints optionally selects the poses of the edge that become keypoints, indexed over
	// the start anchor, the path and the end anchor.
	Keypoints []int
}

// Cost returns the walking distance of the edge: from the start anchor along the path to the
// end anchor.
func (e Edge) Cost() float64 {
	if len(e.Path) == 0 {
		return e.Start.Translation().Sub(e.End.Translation()).Len()
	}
	d := e.Start.Translation().Sub(e.Path[0].Translation()).Len()
	for i := 1; i < len(e.Path); i++ {
		d += e.Path[i-1].Translation().Sub(e.Path[i].Translation()).Len()
	}
	return d + e.Path[len(e.Path)-1].Translation().Sub(e.End.Translation()).Len()
}

type pair struct {
	from, to string
}

// Graph is an immutable anchor graph.
type Graph struct {
	name    string
	anchors map[string]Anchor
	edges   map[pair]Edge
	nodes   map[string]graph.Node
	ids     map[int64]string
	g       *simple.WeightedDirectedGraph
}

// New builds a graph. Edges that reference unknown anchors or loop back onto their start
// anchor are ignored. Of two edges between the same anchors the one with the higher version
// wins.
func New(name string, anchors []Anchor, edges []Edge) *Graph {
	g := &Graph{
		name:    name,
		anchors: make(map[string]Anchor, len(anchors)),
		edges:   make(map[pair]Edge, len(edges)),
		nodes:   make(map[string]graph.Node, len(anchors)),
		ids:     make(map[int64]string, len(anchors)),
		g:       simple.NewWeightedDirectedGraph(0, math.Inf(1)),
	}

	ids := make([]string, 0, len(anchors))
	for _, a := range anchors {
		if _, ok := g.anchors[a.ID]; !ok {
			ids = append(ids, a.ID)
		}
		g.anchors[a.ID] = a
	}
	slices.Sort(ids)
	for i, id := range ids {
		node := simple.Node(int64(i))
		g.g.AddNode(node)
		g.nodes[id] = node
		g.ids[node.ID()] = id
	}

	for _, e := range edges {
		from, okFrom := g.nodes[e.From]
		to, okTo := g.nodes[e.To]
		if !okFrom || !okTo || e.From == e.To {
			continue
		}
		key := pair{e.From, e.To}
		if existing, ok := g.edges[key]; ok && existing.Version > e.Version {
			continue
		}
		g.edges[key] = e
		g.g.SetWeightedEdge(g.g.NewWeightedEdge(from, to, e.Cost()))
	}
	return g
}

// Name returns the name of the map.
func (g *Graph) Name() string {
	return g.name
}

// Anchor returns the anchor with the given ID.
func (g *Graph) Anchor(id string) (Anchor, bool) {
	a, ok := g.anchors[id]
	return a, ok
}

// Anchors returns all anchors sorted by name.
func (g *Graph) Anchors() []Anchor {
	list := make([]Anchor, 0, len(g.anchors))
	for _, a := range g.anchors {
		list = append(list, a)
	}
	slices.SortFunc(list, func(a, b Anchor) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return list
}

// Edge returns the recorded path from one anchor to another.
func (g *Graph) Edge(from, to string) (Edge, bool) {
	e, ok := g.edges[pair{from, to}]
	return e, ok
}

// EdgeCount returns the number of usable edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// ShortestPath returns the anchors on the cheapest route from one anchor to another, including
// both ends, and the total cost.
func (g *Graph) ShortestPath(from, to string) ([]string, float64, error) {
	src, ok := g.nodes[from]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownAnchor, from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownAnchor, to)
	}
	if from == to {
		return []string{from}, 0, nil
	}

	nodes, cost := path.DijkstraFrom(src, g.g).To(dst.ID())
	if len(nodes) == 0 || math.IsInf(cost, 1) {
		return nil, 0, fmt.Errorf("%w: %s -> %s", ErrUnreachable, from, to)
	}
	stops := make([]string, len(nodes))
	for i, n := range nodes {
		stops[i] = g.ids[n.ID()]
	}
	return stops, cost, nil
}

// Reachable returns the anchors that can be reached from the given anchor, cheapest first.
func (g *Graph) Reachable(from string) ([]string, error) {
	src, ok := g.nodes[from]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAnchor, from)
	}
	shortest := path.DijkstraFrom(src, g.g)

	type reach struct {
		id   string
		cost float64
	}
	var reached []reach
	for id, node := range g.nodes {
		if id == from {
			continue
		}
		if cost := shortest.WeightTo(node.ID()); !math.IsInf(cost, 1) {
			reached = append(reached, reach{id, cost})
		}
	}
	slices.SortFunc(reached, func(a, b reach) int {
		if c := cmp.Compare(a.cost, b.cost); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	ids := make([]string, len(reached))
	for i, r := range reached {
		ids[i] = r.id
	}
	return ids, nil
}

// Composite is a route across several edges, expressed in the session frame of the first edge.
// Keypoints indexes Poses and is only set if every edge of the route selects its keypoints.
type Composite struct {
	Name      string
	Anchors   []string
	Poses     []geometry.Transform
	Landmarks map[string]geometry.Transform
	Keypoints []int
}

// ComposePath chains the edges between consecutive anchors into one pose sequence. Each edge
// is moved so that its start anchor coincides with the end anchor of the previous edge. Anchor
// poses are levelled before chaining.
func (g *Graph) ComposePath(ids []string) (Composite, error) {
	if len(ids) < 2 {
		return Composite{}, ErrRouteTooShort
	}

	comp := Composite{
		Name:      g.routeName(ids),
		Anchors:   slices.Clone(ids),
		Landmarks: make(map[string]geometry.Transform),
	}
	aligner := geometry.Identity()
	manual := true
	var prevEnd *geometry.Transform
	for i := 0; i < len(ids)-1; i++ {
		edge, ok := g.edges[pair{ids[i], ids[i+1]}]
		if !ok {
			return Composite{}, fmt.Errorf("%w: %s -> %s", ErrMissingEdge, ids[i], ids[i+1])
		}
		if manual = manual && len(edge.Keypoints) > 0; manual {
			offset := len(comp.Poses)
			for _, idx := range edge.Keypoints {
				comp.Keypoints = append(comp.Keypoints, offset+idx)
			}
		}
		start := edge.Start.AlignY(false)
		if prevEnd != nil {
			aligner = prevEnd.Mul(start.Inverse())
		}

		comp.Landmarks[edge.From] = aligner.Mul(start)
		comp.Landmarks[edge.To] = aligner.Mul(edge.End.AlignY(false))
		comp.Poses = append(comp.Poses, aligner.Mul(start))
		for _, p := range edge.Path {
			comp.Poses = append(comp.Poses, aligner.Mul(p))
		}
		for id, p := range edge.PathAnchors {
			comp.Landmarks[id] = aligner.Mul(p.AlignY(false))
		}

		end := aligner.Mul(edge.End.AlignY(false))
		comp.Poses = append(comp.Poses, end)
		prevEnd = &end
	}
	if !manual {
		comp.Keypoints = nil
	}
	return comp, nil
}

// Route builds the route of the composite. Manually selected keypoints take precedence over
// the keypoints extracted from the poses.
func (c Composite) Route(pathWidth float64) *route.Route {
	if len(c.Keypoints) > 0 {
		if keypoints, err := route.ManualKeypoints(c.Poses, c.Keypoints); err == nil {
			return route.New(c.Name, keypoints)
		}
	}
	return route.New(c.Name, route.ExtractKeypoints(c.Poses, pathWidth))
}

// PlanRoute computes the shortest path between two anchors and composes it.
func (g *Graph) PlanRoute(from, to string) (Composite, error) {
	stops, _, err := g.ShortestPath(from, to)
	if err != nil {
		return Composite{}, err
	}
	return g.ComposePath(stops)
}

// NearbyAnchor is an anchor with its distance from the user.
type NearbyAnchor struct {
	Anchor   Anchor
	Distance float64
}

// Nearby returns the anchors with a geographic position within radius meters of c, closest
// first.
func (g *Graph) Nearby(c geofix.Coordinate, radius float64) []NearbyAnchor {
	var list []NearbyAnchor
	for _, a := range g.anchors {
		if a.Position == nil {
			continue
		}
		if d := c.Distance(*a.Position); d <= radius {
			list = append(list, NearbyAnchor{Anchor: a, Distance: d})
		}
	}
	slices.SortFunc(list, func(a, b NearbyAnchor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Anchor.ID, b.Anchor.ID)
	})
	return list
}

func (g *Graph) routeName(ids []string) string {
	name := func(id string) string {
		if a, ok := g.anchors[id]; ok && a.Name != "" {
			return a.Name
		}
		return id
	}
	return name(ids[0]) + "_" + name(ids[len(ids)-1])
}
