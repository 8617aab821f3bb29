// Package logic contains pure decoding logic for the dryer vent buzzer.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Decoder thresholds, in edges per tick or in ticks.
const (
	// PulseThreshold is the edge count above which a tick belongs to a pulse.
	PulseThreshold = 5
	// PacketGap is the gap length a packet must exceed to be closed.
	PacketGap = 50
	// GapCeiling and GapClamp bound the gap length during long idle periods.
	GapCeiling = 65000
	GapClamp   = 101
)

// Pulse width bands used for classification, in ticks.
const (
	startShortBelow = 25
	startLongAbove  = 45
	alarmShortBelow = 3
	alarmLongAbove  = 7
)

// Outcome is the classification of a closed packet.
type Outcome string

const (
	OutcomeShortStart Outcome = "UNKNOWN_SHORT_START"
	OutcomeLongStart  Outcome = "UNKNOWN_LONG_START"
	OutcomeStart      Outcome = "START"
	OutcomeSelfTest   Outcome = "SELFTEST_OK"
	OutcomeClog       Outcome = "CLOG"
	OutcomeOverheat   Outcome = "OVERHEAT"
	OutcomeUnknown    Outcome = "UNKNOWN_PACKET"
)

// Variant qualifies clog and overheat outcomes by final pulse width.
type Variant string

const (
	VariantNone  Variant = ""
	VariantShort Variant = "SHORT"
	VariantLong  Variant = "LONG"
)

// Event describes one classified packet.
type Event struct {
	Timestamp time.Time
	Outcome   Outcome
	Variant   Variant
	Pulses    int // pulses in the packet
	LastPulse int // length of the final pulse in ticks
}

// Counts holds the running packet counters since startup.
// Counters only ever increase.
type Counts struct {
	ShortPacket   int // pulses exactly one tick long
	ShortStart    int
	LongStart     int
	ShortClog     int
	LongClog      int
	ShortOverheat int
	LongOverheat  int
	UnknownPacket int
	SelfTestCount int // successful self tests
}

// Readings is the full set of values pushed to the result channels.
type Readings struct {
	Overheat       bool
	Clog           bool
	SelfTestFailed bool
	Counts         Counts
}

// SelfTestState tracks the self-test watchdog.
type SelfTestState struct {
	NextTest    time.Time
	Elapsed     int // decode cycles since the stimulus fired
	Outstanding bool
	Failed      bool
}

// State is the complete decoder state. It survives across decode passes so
// that a pulse or packet spanning two passes is reconstructed intact.
type State struct {
	InPulse      bool
	InPacket     bool
	PacketPulses int
	PulseLength  int
	GapLength    int

	Clog     bool
	Overheat bool
	Counts   Counts
	SelfTest SelfTestState
}

// SelfTestConfig controls the self-test schedule.
type SelfTestConfig struct {
	FirstDelay time.Duration // delay after start before the first test
	Period     time.Duration
	MaxCycles  int // decode cycles to wait for the response
}

// DefaultSelfTestConfig returns the stock schedule: first test 40s after
// start, then daily, with three decode cycles to answer.
func DefaultSelfTestConfig() SelfTestConfig {
	return SelfTestConfig{
		FirstDelay: 40 * time.Second,
		Period:     24 * time.Hour,
		MaxCycles:  3,
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Readings  Readings
}
