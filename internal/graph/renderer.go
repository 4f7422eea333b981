package graph

import (
	"context"
	"sync/atomic"
	"time"
)

// Renderer executes the published routing on the real-time goroutine.
// Render is not safe for concurrent use with itself; Publish may be called
// from any control goroutine.
type Renderer struct {
	maxBlock int
	tap      Observer

	routing atomic.Pointer[Routing]
	clock   atomic.Int64

	active atomic.Bool
	epoch  atomic.Uint64

	src     []float64
	out     []float64
	silence []float64
}

// NewRenderer creates a renderer that splits device buffers into blocks
// of at most maxBlock frames. tap may be nil.
func NewRenderer(maxBlock int, tap Observer) *Renderer {
	r := &Renderer{
		maxBlock: maxBlock,
		tap:      tap,
		src:      make([]float64, maxBlock),
		out:      make([]float64, maxBlock),
		silence:  make([]float64, maxBlock),
	}
	r.routing.Store(Silent)
	return r
}

// Clock returns the engine frame of the next sample to render.
func (r *Renderer) Clock() int64 { return r.clock.Load() }

// Routing returns the routing currently rendered.
func (r *Renderer) Routing() *Routing { return r.routing.Load() }

// Publish swaps in next and waits until no render still uses the routing
// it replaced, so the caller may release objects only the old routing
// referenced. It returns the replaced routing.
func (r *Renderer) Publish(ctx context.Context, next *Routing) (*Routing, error) {
	if next == nil {
		next = Silent
	}

	prev := r.routing.Swap(next)

	epoch := r.epoch.Load()
	for r.active.Load() && r.epoch.Load() == epoch {
		select {
		case <-ctx.Done():
			return prev, ctx.Err()
		case <-time.After(50 * time.Microsecond):
		}
	}

	return prev, nil
}

// Render fills dst with the next len(dst) frames.
func (r *Renderer) Render(dst []float64) {
	r.active.Store(true)
	rt := r.routing.Load()

	start := r.clock.Load()
	for off := 0; off < len(dst); off += r.maxBlock {
		end := min(off+r.maxBlock, len(dst))
		r.renderBlock(rt, dst[off:end], start+int64(off))
	}
	r.clock.Add(int64(len(dst)))

	r.active.Store(false)
	r.epoch.Add(1)
}

func (r *Renderer) renderBlock(rt *Routing, dst []float64, frame int64) {
	n := len(dst)

	src := r.silence[:n]
	if rt.Source != nil && (rt.feedUnit || (rt.tapped && rt.tapFrom == NodeSource)) {
		src = r.src[:n]
		rt.Source.Read(src)
	}

	var out []float64
	if rt.tapped {
		switch rt.tapFrom {
		case NodeSource:
			out = src
		case NodeUnitOut:
			in := r.silence[:n]
			if rt.feedUnit {
				in = src
			}
			out = r.out[:n]
			rt.Unit.Process(out, in, frame)
		}
	}

	if out == nil {
		clear(dst)
		return
	}

	if r.tap != nil {
		r.tap.Observe(out)
	}

	if rt.toSink {
		copy(dst, out)
	} else {
		clear(dst)
	}
}
