package effectchain

import (
	"errors"
	"fmt"
)

// ErrUnknownEffect is returned when a stage references an unregistered effect type.
var ErrUnknownEffect = errors.New("unknown effect type")

type stageRuntime struct {
	params  Params
	runtime Runtime
}

// Chain owns an ordered list of stage runtimes. It is independent of any
// application engine and is not safe for concurrent use.
type Chain struct {
	ctx      Context
	registry *Registry
	stages   []*stageRuntime
}

// New creates a Chain with the given context and registry.
func New(ctx Context, registry *Registry) *Chain {
	return &Chain{ctx: ctx, registry: registry}
}

// Context returns the chain context.
func (c *Chain) Context() Context {
	return c.ctx
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	return len(c.stages)
}

// Load replaces the stage list. Runtimes whose ID and type are unchanged
// are reused and reconfigured; others are created from the registry.
// On error the previous stage list is kept.
func (c *Chain) Load(stages []Params) error {
	existing := make(map[string]*stageRuntime, len(c.stages))
	for _, st := range c.stages {
		existing[st.params.ID] = st
	}

	next := make([]*stageRuntime, 0, len(stages))
	seen := make(map[string]struct{}, len(stages))

	for _, p := range stages {
		if p.ID == "" {
			return fmt.Errorf("effectchain: stage of type %q has empty id", p.Type)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("effectchain: duplicate stage id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		st := existing[p.ID]
		if st == nil || st.params.Type != p.Type {
			rt, err := c.newRuntime(p.Type)
			if err != nil {
				return fmt.Errorf("effectchain: stage %q: %w", p.ID, err)
			}
			st = &stageRuntime{runtime: rt}
		}

		if err := st.runtime.Configure(c.ctx, p); err != nil {
			return fmt.Errorf("effectchain: configure stage %q (%s): %w", p.ID, p.Type, err)
		}
		st.params = p
		next = append(next, st)
	}

	c.stages = next

	return nil
}

// Configure updates the parameters of one existing stage.
func (c *Chain) Configure(p Params) error {
	for _, st := range c.stages {
		if st.params.ID != p.ID {
			continue
		}
		if p.Type == "" {
			p.Type = st.params.Type
		}
		if p.Type != st.params.Type {
			return fmt.Errorf("effectchain: stage %q type change %s -> %s requires Load", p.ID, st.params.Type, p.Type)
		}
		if err := st.runtime.Configure(c.ctx, p); err != nil {
			return fmt.Errorf("effectchain: configure stage %q (%s): %w", p.ID, p.Type, err)
		}
		st.params = p

		return nil
	}

	return fmt.Errorf("effectchain: no stage %q", p.ID)
}

// Process applies every non-bypassed stage to block in order.
func (c *Chain) Process(block []float64) {
	if len(block) == 0 {
		return
	}

	for _, st := range c.stages {
		if st.params.Bypassed {
			continue
		}
		st.runtime.Process(block)
	}
}

// Reset clears the signal history of every stage.
func (c *Chain) Reset() {
	for _, st := range c.stages {
		if r, ok := st.runtime.(Resetter); ok {
			r.Reset()
		}
	}
}

// StageRuntime returns the Runtime for the given stage ID, or nil.
func (c *Chain) StageRuntime(id string) Runtime {
	for _, st := range c.stages {
		if st.params.ID == id {
			return st.runtime
		}
	}

	return nil
}

// StageParams returns the last applied parameters of a stage.
func (c *Chain) StageParams(id string) (Params, bool) {
	for _, st := range c.stages {
		if st.params.ID == id {
			return st.params, true
		}
	}

	return Params{}, false
}

func (c *Chain) newRuntime(effectType string) (Runtime, error) {
	factory := c.registry.Lookup(effectType)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, effectType)
	}

	return factory(c.ctx)
}
