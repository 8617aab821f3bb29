package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sweeney/dryer-vent-sensor/internal/mqtt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}

	// ---- gpio ----

	if cfg.GPIO.Chip == "" {
		return errors.New("gpio.chip must be set")
	}
	if cfg.GPIO.CountPin < 0 || cfg.GPIO.TestPin < 0 {
		return errors.Errorf("gpio pins must be non-negative (count_pin=%d test_pin=%d)",
			cfg.GPIO.CountPin, cfg.GPIO.TestPin)
	}
	if cfg.GPIO.CountPin == cfg.GPIO.TestPin {
		return errors.Errorf("gpio.count_pin and gpio.test_pin are both %d", cfg.GPIO.CountPin)
	}

	// ---- timing ----

	t := cfg.Timing
	if t.Sample <= 0 {
		return errors.Errorf("timing.sample must be positive, got %v", t.Sample)
	}
	if t.Decode < t.Sample {
		return errors.Errorf("timing.decode (%v) must not be shorter than timing.sample (%v)", t.Decode, t.Sample)
	}
	if t.HistorySize < 2 {
		return errors.Errorf("timing.history_size must be at least 2, got %d", t.HistorySize)
	}
	// ring must span more than one decode period
	if span := t.Sample * time.Duration(t.HistorySize); span <= t.Decode {
		return errors.Errorf("timing.history_size %d covers only %v, less than timing.decode %v",
			t.HistorySize, span, t.Decode)
	}
	if t.Heartbeat < 0 {
		return errors.Errorf("timing.heartbeat must not be negative, got %v", t.Heartbeat)
	}

	// ---- self test ----

	st := cfg.SelfTest
	if st.FirstDelay < 0 {
		return errors.Errorf("selftest.first_delay must not be negative, got %v", st.FirstDelay)
	}
	if st.Period <= 0 {
		return errors.Errorf("selftest.period must be positive, got %v", st.Period)
	}
	if st.MaxCycles < 1 {
		return errors.Errorf("selftest.max_cycles must be at least 1, got %d", st.MaxCycles)
	}
	if st.Hold <= 0 || st.Hold >= t.Decode {
		return errors.Errorf("selftest.hold must be within (0, %v), got %v", t.Decode, st.Hold)
	}

	// ---- mqtt ----

	if cfg.MQTT.Broker == "" {
		return errors.New("mqtt.broker must be set")
	}
	if cfg.MQTT.TopicPrefix == "" {
		return errors.New("mqtt.topic_prefix must be set")
	}
	if strings.ContainsAny(cfg.MQTT.TopicPrefix, "+#") {
		return errors.Errorf("mqtt.topic_prefix %q must not contain wildcards", cfg.MQTT.TopicPrefix)
	}
	if strings.HasSuffix(cfg.MQTT.TopicPrefix, "/") {
		return errors.Errorf("mqtt.topic_prefix %q must not end with /", cfg.MQTT.TopicPrefix)
	}
	if cfg.MQTT.BufferSize < 0 {
		return errors.Errorf("mqtt.buffer_size must not be negative, got %d", cfg.MQTT.BufferSize)
	}

	// ---- channels ----

	if _, err := mqtt.ParseChannels(cfg.Channels); err != nil {
		return errors.Wrap(err, "channels")
	}
	seen := make(map[string]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		if seen[ch] {
			return errors.Errorf("channels: %q listed twice", ch)
		}
		seen[ch] = true
	}

	return nil
}
