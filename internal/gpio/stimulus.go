package gpio

import (
	"fmt"
	"time"
)

// DefaultStimulusHold is how long the self-test line is held active.
const DefaultStimulusHold = 25 * time.Millisecond

// Stimulus pulses the self-test line as a two-phase action: Trigger drives
// the line active and arms a timer, and the owner's loop calls Restore when
// Release fires. Nothing here sleeps.
//
// Not safe for concurrent use; owned by the decode loop.
type Stimulus struct {
	line    Line
	hold    time.Duration
	after   func(time.Duration) <-chan time.Time
	release <-chan time.Time
}

// NewStimulus creates a stimulus on line. after is normally time.After.
func NewStimulus(line Line, hold time.Duration, after func(time.Duration) <-chan time.Time) *Stimulus {
	return &Stimulus{line: line, hold: hold, after: after}
}

// Trigger drives the line active and arms the release timer. A trigger
// while a pulse is already in flight is ignored.
func (s *Stimulus) Trigger() error {
	if s.release != nil {
		return nil
	}
	if err := s.line.SetValue(LevelActive); err != nil {
		return fmt.Errorf("trigger self test: %w", err)
	}
	s.release = s.after(s.hold)
	return nil
}

// Release returns the channel that fires when the line should be restored.
// It is nil while no pulse is in flight, so a select on it blocks.
func (s *Stimulus) Release() <-chan time.Time {
	return s.release
}

// Active reports whether a pulse is in flight.
func (s *Stimulus) Active() bool {
	return s.release != nil
}

// Restore drives the line back to idle and disarms the timer.
func (s *Stimulus) Restore() error {
	s.release = nil
	if err := s.line.SetValue(LevelIdle); err != nil {
		return fmt.Errorf("restore self test line: %w", err)
	}
	return nil
}
