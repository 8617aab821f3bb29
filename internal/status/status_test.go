package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/dryer-vent-sensor/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{SampleMs: 20, DecodeMs: 15000, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.DecodeMs != 15000 {
		t.Errorf("Config.DecodeMs: got %d, want 15000", snap.Config.DecodeMs)
	}
	if snap.Readings.Clog || snap.Readings.Overheat {
		t.Error("expected alarms clear initially")
	}
	if snap.LastEvent != nil {
		t.Error("expected no last event initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	next := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	tr.Update(
		logic.Readings{Clog: true, Counts: logic.Counts{LongClog: 2}},
		logic.SelfTestState{NextTest: next, Outstanding: true, Elapsed: 1},
		true,
	)

	snap := tr.Snapshot()
	if !snap.Readings.Clog {
		t.Error("expected Clog=true")
	}
	if snap.Readings.Counts.LongClog != 2 {
		t.Errorf("LongClog: got %d, want 2", snap.Readings.Counts.LongClog)
	}
	if !snap.SelfTest.Outstanding || snap.SelfTest.Elapsed != 1 {
		t.Errorf("unexpected self test %+v", snap.SelfTest)
	}
	if !snap.InPacket {
		t.Error("expected InPacket=true")
	}
}

func TestRecordEventIsCopied(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.RecordEvent(logic.Event{Outcome: logic.OutcomeClog, Pulses: 3})

	snap := tr.Snapshot()
	snap.LastEvent.Pulses = 99

	again := tr.Snapshot()
	if again.LastEvent.Pulses != 3 {
		t.Errorf("snapshot mutation leaked into tracker: got %d", again.LastEvent.Pulses)
	}
}

func TestSetSampler(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetSampler(SamplerHealth{Written: 1000, Decoded: 990, Overruns: 1, Skipped: 750})

	snap := tr.Snapshot()
	if snap.Sampler.Written != 1000 || snap.Sampler.Overruns != 1 || snap.Sampler.Skipped != 750 {
		t.Errorf("unexpected sampler health %+v", snap.Sampler)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.50", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected Network to be set")
	}
	if snap.Network.IP != "192.168.1.50" {
		t.Errorf("Network.IP: got %q, want 192.168.1.50", snap.Network.IP)
	}
}

func TestSnapshotUsesClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{})
	tr.now = func() time.Time { return start.Add(90 * time.Second) }

	if got := tr.Snapshot().Uptime(); got != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", got)
	}
}

func TestProblems(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{DecodeMs: 15000}

	snap := Snapshot{StartTime: start, Now: start.Add(30 * time.Second), Config: cfg}
	if p := snap.Problems(); p != nil {
		t.Errorf("fresh start: got %v, want none", p)
	}

	snap.Now = start.Add(46 * time.Second)
	if p := snap.Problems(); len(p) != 1 || p[0] != "decoder stalled" {
		t.Errorf("no decode pass yet: got %v", p)
	}

	snap.Sampler.LastPass = start.Add(45 * time.Second)
	snap.Readings.SelfTestFailed = true
	if p := snap.Problems(); len(p) != 1 || p[0] != "selftest failed" {
		t.Errorf("selftest failed: got %v", p)
	}

	snap.Config.DecodeMs = 0
	snap.Readings.SelfTestFailed = false
	snap.Now = start.Add(time.Hour)
	if p := snap.Problems(); p != nil {
		t.Errorf("stall check without decode interval: got %v", p)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Readings: logic.Readings{
			Overheat: true,
			Counts:   logic.Counts{ShortOverheat: 1, SelfTestCount: 4},
		},
		SelfTest:      logic.SelfTestState{NextTest: start.Add(24 * time.Hour), Failed: true},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Sampler:       SamplerHealth{Written: 45000, Decoded: 45000},
		Config: Config{
			SampleMs:    20,
			DecodeMs:    15000,
			HeartbeatMs: 900000,
			HistorySize: 1500,
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "home/dryer/vent",
			HTTPPort:    ":80",
		},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Overheat != "ON" {
		t.Errorf("Overheat: got %q, want ON", s.Overheat)
	}
	if s.Clog != "OFF" {
		t.Errorf("Clog: got %q, want OFF", s.Clog)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.SelfTest.Failed {
		t.Error("expected SelfTest.Failed=true")
	}
	if s.SelfTest.NextTest != "2026-01-02T00:00:00Z" {
		t.Errorf("NextTest: got %q", s.SelfTest.NextTest)
	}
	if s.Counts.ShortOverheat != 1 || s.Counts.SelfTestCount != 4 {
		t.Errorf("unexpected counts %+v", s.Counts)
	}
	if s.Sampler.Written != 45000 {
		t.Errorf("Sampler.Written: got %d", s.Sampler.Written)
	}
	if s.Sampler.LastPass != "" {
		t.Errorf("LastPass should be omitted when zero, got %q", s.Sampler.LastPass)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Config.TopicPrefix != "home/dryer/vent" {
		t.Errorf("Config.TopicPrefix: got %q", s.Config.TopicPrefix)
	}
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
	if s.LastEvent != nil {
		t.Error("expected no last_event")
	}
}

func TestFormatJSONLastEvent(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: ts,
		Now:       ts,
		LastEvent: &logic.Event{Timestamp: ts, Outcome: logic.OutcomeClog, Variant: logic.VariantShort, Pulses: 3},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	e := parsed.Status.LastEvent
	if e == nil {
		t.Fatal("expected last_event")
	}
	if e.Event != "CLOG" || e.Variant != "SHORT" || e.Pulses != 3 {
		t.Errorf("unexpected last event %+v", e)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(time.Hour),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if strings.Contains(string(data), "\n") {
		t.Error("event payload should be compact")
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: time.Now(), Now: time.Now()}
	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
	if _, ok := raw["status"]["network"]; ok {
		t.Error("network should be omitted when nil")
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Now(),
		Now:       time.Now(),
		Network:   &NetworkInfo{Type: "wifi", IP: "10.0.0.5", Status: "up", SSID: "MyNet"},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Network == nil {
		t.Fatal("expected network")
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.Readings{Counts: logic.Counts{UnknownPacket: i}}, logic.SelfTestState{}, i%2 == 0)
			tr.RecordEvent(logic.Event{Outcome: logic.OutcomeUnknown})
			tr.SetSampler(SamplerHealth{Written: uint64(i)})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
