// Package status provides a thread-safe status tracker for the dryer-vent-sensor daemon.
// It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dryer-vent-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	SampleMs    int64
	DecodeMs    int64
	HeartbeatMs int64
	HistorySize int
	Chip        string
	CountPin    int
	TestPin     int
	Broker      string
	TopicPrefix string
	Channels    []string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// SamplerHealth describes how the decoder is keeping up with the sampler.
type SamplerHealth struct {
	Written  uint64    // samples appended since start
	Decoded  uint64    // samples consumed by the decoder
	Overruns int       // times the decoder was lapped
	Skipped  uint64    // samples discarded by overrun recovery
	LastPass time.Time // end of the most recent decode cycle
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Readings      logic.Readings
	SelfTest      logic.SelfTestState
	InPacket      bool
	LastEvent     *logic.Event
	Sampler       SamplerHealth
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// stallCycles is how many decode intervals may pass without a decode cycle
// before the decoder counts as stalled.
const stallCycles = 3

// Problems lists what is currently wrong with the daemon, or nil when
// healthy. A failed self test and a decode loop that stopped running are
// problems; a lost MQTT connection is not, since messages are buffered.
func (s Snapshot) Problems() []string {
	var out []string
	if s.Readings.SelfTestFailed {
		out = append(out, "selftest failed")
	}
	if s.Config.DecodeMs > 0 {
		last := s.Sampler.LastPass
		if last.IsZero() {
			last = s.StartTime
		}
		limit := time.Duration(s.Config.DecodeMs) * time.Millisecond * stallCycles
		if s.Now.Sub(last) > limit {
			out = append(out, "decoder stalled")
		}
	}
	return out
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the decoder output of one decode cycle.
func (t *Tracker) Update(r logic.Readings, st logic.SelfTestState, inPacket bool) {
	t.mu.Lock()
	t.snap.Readings = r
	t.snap.SelfTest = st
	t.snap.InPacket = inPacket
	t.mu.Unlock()
}

// RecordEvent keeps the most recent classified packet.
func (t *Tracker) RecordEvent(e logic.Event) {
	t.mu.Lock()
	t.snap.LastEvent = &e
	t.mu.Unlock()
}

// SetSampler records sampler/decoder health.
func (t *Tracker) SetSampler(h SamplerHealth) {
	t.mu.Lock()
	t.snap.Sampler = h
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.LastEvent != nil {
		e := *s.LastEvent
		s.LastEvent = &e
	}
	s.Now = t.now()
	return s
}
