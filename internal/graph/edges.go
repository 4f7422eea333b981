package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Node names a port in the engine graph.
type Node int

const (
	NodeSource Node = iota
	NodeUnitIn
	NodeUnitOut
	NodeTap
	NodeSink
)

var nodeNames = [...]string{"source", "unit.in", "unit.out", "tap", "sink"}

func (n Node) String() string {
	if n >= 0 && int(n) < len(nodeNames) {
		return nodeNames[n]
	}
	return fmt.Sprintf("Node(%d)", int(n))
}

// MarshalText encodes the node name.
func (n Node) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText decodes a node name.
func (n *Node) UnmarshalText(text []byte) error {
	i := slices.Index(nodeNames[:], string(text))
	if i < 0 {
		return fmt.Errorf("graph: unknown node %q", text)
	}
	*n = Node(i)
	return nil
}

// Edge is a directed connection between two ports.
type Edge struct {
	From Node `json:"from"`
	To   Node `json:"to"`
}

func (e Edge) String() string { return e.From.String() + "->" + e.To.String() }

var (
	// ErrInvalidEdge is returned for a connection the node set does not allow.
	ErrInvalidEdge = errors.New("graph: invalid edge")
	// ErrDuplicateEdge is returned when an edge already exists.
	ErrDuplicateEdge = errors.New("graph: duplicate edge")
	// ErrInputTaken is returned when a single-input port is already fed.
	ErrInputTaken = errors.New("graph: input already connected")
)

var allowedEdges = []Edge{
	{NodeSource, NodeUnitIn},
	{NodeSource, NodeTap},
	{NodeUnitOut, NodeTap},
	{NodeTap, NodeSink},
}

// Edges is the mutable edge set owned by the control side. The tap and
// the sink accept at most one incoming edge.
type Edges struct {
	list []Edge
}

// Connect adds from->to.
func (g *Edges) Connect(from, to Node) error {
	e := Edge{from, to}
	if !slices.Contains(allowedEdges, e) {
		return fmt.Errorf("%w: %s", ErrInvalidEdge, e)
	}
	if slices.Contains(g.list, e) {
		return fmt.Errorf("%w: %s", ErrDuplicateEdge, e)
	}
	if to == NodeTap || to == NodeSink {
		if src, ok := g.Input(to); ok {
			return fmt.Errorf("%w: %s fed by %s", ErrInputTaken, to, src)
		}
	}

	g.list = append(g.list, e)

	return nil
}

// Disconnect removes from->to and reports whether it existed.
func (g *Edges) Disconnect(from, to Node) bool {
	i := slices.Index(g.list, Edge{from, to})
	if i < 0 {
		return false
	}
	g.list = slices.Delete(g.list, i, i+1)
	return true
}

// DisconnectAll removes every edge.
func (g *Edges) DisconnectAll() {
	g.list = g.list[:0]
}

// Has reports whether from->to exists.
func (g *Edges) Has(from, to Node) bool {
	return slices.Contains(g.list, Edge{from, to})
}

// Input returns the node feeding to, if any.
func (g *Edges) Input(to Node) (Node, bool) {
	for _, e := range g.list {
		if e.To == to {
			return e.From, true
		}
	}
	return 0, false
}

// Len returns the number of edges.
func (g *Edges) Len() int { return len(g.list) }

// List returns a copy of the edges in connection order.
func (g *Edges) List() []Edge { return slices.Clone(g.list) }

func (g *Edges) String() string {
	parts := make([]string, len(g.list))
	for i, e := range g.list {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
