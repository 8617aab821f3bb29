//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// RealCounter counts rising edges reported by the kernel for one line.
// The event handler runs on gpiocdev's watcher goroutine; the count is an
// atomic so ReadAndReset can be called from the sampling loop.
type RealCounter struct {
	line  *gpiocdev.Line
	edges atomic.Int32
}

// NewRealCounter requests pin on chip as an edge-detecting input.
func NewRealCounter(chip string, pin int) (*RealCounter, error) {
	c := &RealCounter{}
	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(c.handleEvent),
	)
	if err != nil {
		return nil, fmt.Errorf("request count pin %d: %w", pin, err)
	}
	c.line = line
	return c, nil
}

func (c *RealCounter) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type == gpiocdev.LineEventRisingEdge {
		c.edges.Add(1)
	}
}

// ReadAndReset returns the edges seen since the previous call.
func (c *RealCounter) ReadAndReset() int {
	return int(c.edges.Swap(0))
}

// Close reconfigures the line without edge detection and releases it.
func (c *RealCounter) Close() error {
	var errs []error
	if c.line != nil {
		if err := c.line.Reconfigure(gpiocdev.WithoutEdges); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure count pin: %w", err))
		}
		if err := c.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close count pin: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealLine is an output line on actual hardware.
type RealLine struct {
	line *gpiocdev.Line
}

// NewRealLine requests pin on chip as an output driven to initial.
func NewRealLine(chip string, pin, initial int) (*RealLine, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("request test pin %d: %w", pin, err)
	}
	return &RealLine{line: line}, nil
}

// SetValue drives the line.
func (l *RealLine) SetValue(v int) error {
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set test pin: %w", err)
	}
	return nil
}

// Close returns the line to its idle level, then to an input with
// pull-down (matching Pi boot defaults) and releases it.
func (l *RealLine) Close() error {
	var errs []error
	if l.line != nil {
		if err := l.line.SetValue(LevelIdle); err != nil {
			errs = append(errs, fmt.Errorf("idle test pin: %w", err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure test pin: %w", err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close test pin: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
