package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Overheat      string       `json:"overheat"`
	Clog          string       `json:"clog"`
	InPacket      bool         `json:"in_packet"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	SelfTest      SelfTestJSON `json:"selftest"`
	Counts        CountsJSON   `json:"counts"`
	LastEvent     *EventJSON   `json:"last_event,omitempty"`
	Sampler       SamplerJSON  `json:"sampler"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SelfTestJSON reports the watchdog state.
type SelfTestJSON struct {
	Failed      bool   `json:"failed"`
	Outstanding bool   `json:"outstanding"`
	Elapsed     int    `json:"elapsed_cycles"`
	NextTest    string `json:"next_test"`
}

// CountsJSON is the JSON representation of the packet counters.
type CountsJSON struct {
	ShortPacket   int `json:"short_packet"`
	ShortStart    int `json:"short_start"`
	LongStart     int `json:"long_start"`
	ShortClog     int `json:"short_clog"`
	LongClog      int `json:"long_clog"`
	ShortOverheat int `json:"short_overheat"`
	LongOverheat  int `json:"long_overheat"`
	UnknownPacket int `json:"unknown_packet"`
	SelfTestCount int `json:"selftest_count"`
}

// EventJSON is the last classified packet.
type EventJSON struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Variant   string `json:"variant,omitempty"`
	Pulses    int    `json:"pulses"`
}

// SamplerJSON reports decoder lag and overrun recovery.
type SamplerJSON struct {
	Written  uint64 `json:"written"`
	Decoded  uint64 `json:"decoded"`
	Overruns int    `json:"overruns"`
	Skipped  uint64 `json:"skipped"`
	LastPass string `json:"last_pass,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs    int64    `json:"sample_ms"`
	DecodeMs    int64    `json:"decode_ms"`
	HeartbeatMs int64    `json:"heartbeat_ms"`
	HistorySize int      `json:"history_size"`
	Chip        string   `json:"chip"`
	CountPin    int      `json:"count_pin"`
	TestPin     int      `json:"test_pin"`
	Broker      string   `json:"broker"`
	TopicPrefix string   `json:"topic_prefix"`
	Channels    []string `json:"channels,omitempty"`
	HTTPPort    string   `json:"http_port"`
	WSBroker    string   `json:"ws_broker,omitempty"`
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	r := snap.Readings
	c := r.Counts

	inner := StatusInner{
		Overheat:      onOff(r.Overheat),
		Clog:          onOff(r.Clog),
		InPacket:      snap.InPacket,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		SelfTest: SelfTestJSON{
			Failed:      snap.SelfTest.Failed,
			Outstanding: snap.SelfTest.Outstanding,
			Elapsed:     snap.SelfTest.Elapsed,
			NextTest:    formatTime(snap.SelfTest.NextTest),
		},
		Counts: CountsJSON{
			ShortPacket:   c.ShortPacket,
			ShortStart:    c.ShortStart,
			LongStart:     c.LongStart,
			ShortClog:     c.ShortClog,
			LongClog:      c.LongClog,
			ShortOverheat: c.ShortOverheat,
			LongOverheat:  c.LongOverheat,
			UnknownPacket: c.UnknownPacket,
			SelfTestCount: c.SelfTestCount,
		},
		Sampler: SamplerJSON{
			Written:  snap.Sampler.Written,
			Decoded:  snap.Sampler.Decoded,
			Overruns: snap.Sampler.Overruns,
			Skipped:  snap.Sampler.Skipped,
			LastPass: formatTime(snap.Sampler.LastPass),
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			SampleMs:    snap.Config.SampleMs,
			DecodeMs:    snap.Config.DecodeMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			HistorySize: snap.Config.HistorySize,
			Chip:        snap.Config.Chip,
			CountPin:    snap.Config.CountPin,
			TestPin:     snap.Config.TestPin,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			Channels:    snap.Config.Channels,
			HTTPPort:    snap.Config.HTTPPort,
			WSBroker:    snap.Config.WSBroker,
		},
	}

	if e := snap.LastEvent; e != nil {
		inner.LastEvent = &EventJSON{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(e.Outcome),
			Variant:   string(e.Variant),
			Pulses:    e.Pulses,
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
