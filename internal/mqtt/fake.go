package mqtt

import (
	"github.com/sweeney/dryer-vent-sensor/internal/logic"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// Events contains all packet events that were published.
	Events []logic.Event

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// Readings contains every readings snapshot pushed, one per cycle.
	Readings []logic.Readings

	// Channels selects which channels are rendered into Messages. Nil means all.
	Channels []Channel

	// Messages contains the rendered channel values in publish order.
	Messages []ChannelMessage

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishReadingsError, if set, will be returned by PublishReadings.
	PublishReadingsError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the packet event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, event)

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishReadings records the snapshot and its rendered channel values.
func (f *FakePublisher) PublishReadings(r logic.Readings) error {
	if f.PublishReadingsError != nil {
		return f.PublishReadingsError
	}

	channels := f.Channels
	if channels == nil {
		channels = AllChannels
	}
	f.Readings = append(f.Readings, r)
	f.Messages = append(f.Messages, FormatReadings(r, channels)...)
	return nil
}

// LastReadings returns the most recent snapshot, or false if none was pushed.
func (f *FakePublisher) LastReadings() (logic.Readings, bool) {
	if len(f.Readings) == 0 {
		return logic.Readings{}, false
	}
	return f.Readings[len(f.Readings)-1], true
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.Events = nil
	f.Payloads = nil
	f.Readings = nil
	f.Messages = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishReadingsError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
