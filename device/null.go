package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Null pulls blocks at the wall-clock rate of its sample rate and
// discards them. It drives the engine where no audio output exists.
type Null struct {
	*Manual
	blockSize int

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	buffer []float64
}

// NewNull creates a clocked device pulling blockSize frames per tick.
func NewNull(sampleRate float64, blockSize int) (*Null, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("device: block size %d must be > 0", blockSize)
	}
	m, err := NewManual(sampleRate)
	if err != nil {
		return nil, err
	}
	return &Null{Manual: m, blockSize: blockSize, buffer: make([]float64, blockSize)}, nil
}

func (n *Null) Resume(ctx context.Context) error {
	if err := n.Manual.Resume(ctx); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stop != nil {
		return nil
	}

	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	period := time.Duration(float64(time.Second) * float64(n.blockSize) / n.sampleRate)
	go n.run(period, n.stop, n.done)

	return nil
}

func (n *Null) run(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.Pull(n.buffer)
		}
	}
}

func (n *Null) halt() {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (n *Null) Suspend() error {
	n.halt()
	return n.Manual.Suspend()
}

func (n *Null) Close() error {
	n.halt()
	return n.Manual.Close()
}
