package sampler

import (
	"context"
	"time"
)

// DefaultTick is the sampling period.
const DefaultTick = 20 * time.Millisecond

// Counter is a read-and-clear edge counter.
type Counter interface {
	// ReadAndReset returns the number of edges seen since the previous
	// call and resets the count to zero.
	ReadAndReset() int
}

// Sampler moves edge counts from a Counter into a History once per tick.
type Sampler struct {
	counter Counter
	history *History
}

// New creates a sampler writing into history.
func New(counter Counter, history *History) *Sampler {
	return &Sampler{counter: counter, history: history}
}

// Tick records one sample. It never blocks.
func (s *Sampler) Tick() {
	s.history.Append(s.counter.ReadAndReset())
}

// Run calls Tick on every value received from tick until ctx is done.
func (s *Sampler) Run(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.Tick()
		}
	}
}
