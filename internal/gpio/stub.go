//go:build !linux

package gpio

import "errors"

// RealCounter is not available on non-Linux platforms.
type RealCounter struct{}

// NewRealCounter returns an error on non-Linux platforms.
func NewRealCounter(chip string, pin int) (*RealCounter, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadAndReset is not implemented on non-Linux platforms.
func (c *RealCounter) ReadAndReset() int {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (c *RealCounter) Close() error {
	return nil
}

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(chip string, pin, initial int) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetValue is not implemented on non-Linux platforms.
func (l *RealLine) SetValue(v int) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (l *RealLine) Close() error {
	return nil
}
