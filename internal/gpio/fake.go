package gpio

import "errors"

// FakeCounter is a test double that returns scripted edge counts.
type FakeCounter struct {
	// Counts contains scripted values. Each call to ReadAndReset consumes
	// the next one; once exhausted the line is quiet and 0 is returned.
	Counts []int

	// index tracks current position in Counts
	index int

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeCounter creates a FakeCounter with the given counts.
func NewFakeCounter(counts []int) *FakeCounter {
	return &FakeCounter{Counts: counts}
}

// ReadAndReset returns the next scripted count.
func (f *FakeCounter) ReadAndReset() int {
	if f.index >= len(f.Counts) {
		return 0
	}
	c := f.Counts[f.index]
	f.index++
	return c
}

// Remaining returns the number of scripted counts not yet consumed.
func (f *FakeCounter) Remaining() int {
	return len(f.Counts) - f.index
}

// Close marks the counter as closed.
func (f *FakeCounter) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the beginning of Counts.
func (f *FakeCounter) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeLine records the values driven onto an output line.
type FakeLine struct {
	// Values contains every value passed to SetValue, in order.
	Values []int

	// SetError, if set, will be returned by SetValue.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeLine creates a FakeLine.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// SetValue records v.
func (f *FakeLine) SetValue(v int) error {
	if f.SetError != nil {
		return f.SetError
	}
	if v != 0 && v != 1 {
		return errors.New("invalid line value")
	}
	f.Values = append(f.Values, v)
	return nil
}

// Value returns the last value driven, or -1 if none.
func (f *FakeLine) Value() int {
	if len(f.Values) == 0 {
		return -1
	}
	return f.Values[len(f.Values)-1]
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}
