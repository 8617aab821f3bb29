// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sweeney/dryer-vent-sensor/internal/logic"
)

// DefaultTopicPrefix is the root of every topic the daemon publishes to.
const DefaultTopicPrefix = "home/dryer/vent"

// EventsTopic is the topic for classified packet events.
func EventsTopic(prefix string) string {
	return prefix + "/events"
}

// SystemTopic is the topic for system lifecycle events.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// ChannelTopic is the topic for one result channel.
func ChannelTopic(prefix string, ch Channel) string {
	return prefix + "/" + string(ch)
}

// Channel names one of the result outputs pushed every decode cycle.
type Channel string

const (
	ChannelOverheat       Channel = "overheat"
	ChannelClog           Channel = "clog"
	ChannelSelfTestFailed Channel = "selftest_failed"
	ChannelShortPacket    Channel = "short_packet"
	ChannelShortStart     Channel = "short_start"
	ChannelLongStart      Channel = "long_start"
	ChannelShortClog      Channel = "short_clog"
	ChannelLongClog       Channel = "long_clog"
	ChannelShortOverheat  Channel = "short_overheat"
	ChannelLongOverheat   Channel = "long_overheat"
	ChannelUnknownPacket  Channel = "unknown_packet"
	ChannelSelfTestCount  Channel = "selftest_count"
)

// AllChannels lists every channel in publish order.
var AllChannels = []Channel{
	ChannelOverheat,
	ChannelClog,
	ChannelSelfTestFailed,
	ChannelShortPacket,
	ChannelShortStart,
	ChannelLongStart,
	ChannelShortClog,
	ChannelLongClog,
	ChannelShortOverheat,
	ChannelLongOverheat,
	ChannelUnknownPacket,
	ChannelSelfTestCount,
}

// ParseChannels converts channel names to Channels, rejecting unknown names.
func ParseChannels(names []string) ([]Channel, error) {
	out := make([]Channel, 0, len(names))
	for _, n := range names {
		ch := Channel(n)
		if !ch.valid() {
			return nil, fmt.Errorf("unknown channel %q", n)
		}
		out = append(out, ch)
	}
	return out, nil
}

func (c Channel) valid() bool {
	for _, known := range AllChannels {
		if c == known {
			return true
		}
	}
	return false
}

// ChannelMessage is one channel value ready to publish.
type ChannelMessage struct {
	Channel Channel
	Payload string
}

// FormatReadings renders the value of each requested channel. Flags are
// "ON"/"OFF", counters are decimal. Channels not in the list are skipped.
func FormatReadings(r logic.Readings, channels []Channel) []ChannelMessage {
	msgs := make([]ChannelMessage, 0, len(channels))
	for _, ch := range channels {
		v, ok := channelValue(r, ch)
		if !ok {
			continue
		}
		msgs = append(msgs, ChannelMessage{Channel: ch, Payload: v})
	}
	return msgs
}

func channelValue(r logic.Readings, ch Channel) (string, bool) {
	c := r.Counts
	switch ch {
	case ChannelOverheat:
		return flag(r.Overheat), true
	case ChannelClog:
		return flag(r.Clog), true
	case ChannelSelfTestFailed:
		return flag(r.SelfTestFailed), true
	case ChannelShortPacket:
		return strconv.Itoa(c.ShortPacket), true
	case ChannelShortStart:
		return strconv.Itoa(c.ShortStart), true
	case ChannelLongStart:
		return strconv.Itoa(c.LongStart), true
	case ChannelShortClog:
		return strconv.Itoa(c.ShortClog), true
	case ChannelLongClog:
		return strconv.Itoa(c.LongClog), true
	case ChannelShortOverheat:
		return strconv.Itoa(c.ShortOverheat), true
	case ChannelLongOverheat:
		return strconv.Itoa(c.LongOverheat), true
	case ChannelUnknownPacket:
		return strconv.Itoa(c.UnknownPacket), true
	case ChannelSelfTestCount:
		return strconv.Itoa(c.SelfTestCount), true
	}
	return "", false
}

func flag(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// Publisher publishes decoder output to MQTT.
type Publisher interface {
	// Publish sends a classified packet event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishReadings pushes every enabled result channel once.
	PublishReadings(r logic.Readings) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a packet event.
type Payload struct {
	Dryer DryerPayload `json:"dryer"`
}

// DryerPayload contains the packet event details.
type DryerPayload struct {
	Timestamp      string `json:"timestamp"`
	Event          string `json:"event"`
	Variant        string `json:"variant,omitempty"`
	Pulses         int    `json:"pulses"`
	LastPulseTicks int    `json:"last_pulse_ticks"`
}

// FormatPayload creates the JSON payload for a packet event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Dryer: DryerPayload{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
			Event:          string(event.Outcome),
			Variant:        string(event.Variant),
			Pulses:         event.Pulses,
			LastPulseTicks: event.LastPulse,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
