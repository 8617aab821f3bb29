// Package gpio provides the buzzer edge counter and the self-test line with
// hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Counter counts rising edges on the buzzer input.
type Counter interface {
	// ReadAndReset returns the edges counted since the previous call and
	// clears the count.
	ReadAndReset() int

	// Close releases GPIO resources.
	Close() error
}

// Line is a binary output line.
type Line interface {
	// SetValue drives the line to 0 or 1.
	SetValue(v int) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinCount = 17 // buzzer sense input
	DefaultPinTest  = 27 // self-test trigger output
)

// Self-test line levels. The trigger is active low.
const (
	LevelIdle   = 1
	LevelActive = 0
)

// DefaultChip is the GPIO character device used on a Raspberry Pi.
const DefaultChip = "gpiochip0"
