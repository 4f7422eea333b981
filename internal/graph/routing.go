package graph

import (
	"errors"
	"fmt"
)

// Processor is the unit port contract the renderer drives.
type Processor interface {
	Process(dst, src []float64, start int64)
}

// Observer receives the signal passing through the tap.
type Observer interface {
	Observe(block []float64)
}

// Routing is an immutable compiled edge set. The renderer reads it
// without locking.
type Routing struct {
	Source *Sampler
	Unit   Processor

	feedUnit bool
	tapFrom  Node
	tapped   bool
	toSink   bool
}

// Silent is the routing with no edges.
var Silent = &Routing{}

// Compile validates edges against the objects they reference.
func Compile(edges []Edge, src *Sampler, unit Processor) (*Routing, error) {
	r := &Routing{Source: src, Unit: unit}

	var errs []error
	for _, e := range edges {
		switch e {
		case Edge{NodeSource, NodeUnitIn}:
			r.feedUnit = true
		case Edge{NodeSource, NodeTap}, Edge{NodeUnitOut, NodeTap}:
			if r.tapped {
				errs = append(errs, fmt.Errorf("%w: tap", ErrInputTaken))
			}
			r.tapFrom, r.tapped = e.From, true
		case Edge{NodeTap, NodeSink}:
			r.toSink = true
		default:
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidEdge, e))
		}

		if e.From == NodeSource && src == nil {
			errs = append(errs, fmt.Errorf("graph: %s without a source", e))
		}
		if (e.From == NodeUnitOut || e.To == NodeUnitIn) && unit == nil {
			errs = append(errs, fmt.Errorf("graph: %s without a unit", e))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return r, nil
}

// Edges lists the compiled connections.
func (r *Routing) Edges() []Edge {
	var out []Edge
	if r.feedUnit {
		out = append(out, Edge{NodeSource, NodeUnitIn})
	}
	if r.tapped {
		out = append(out, Edge{r.tapFrom, NodeTap})
	}
	if r.toSink {
		out = append(out, Edge{NodeTap, NodeSink})
	}
	return out
}
