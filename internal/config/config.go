// Package config loads the daemon configuration from YAML.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/dryer-vent-sensor/internal/gpio"
	"github.com/sweeney/dryer-vent-sensor/internal/logic"
	"github.com/sweeney/dryer-vent-sensor/internal/mqtt"
	"github.com/sweeney/dryer-vent-sensor/internal/sampler"
)

type Config struct {
	GPIO     GPIOConfig     `yaml:"gpio"`
	Timing   TimingConfig   `yaml:"timing"`
	SelfTest SelfTestConfig `yaml:"selftest"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`

	// Channels lists the result outputs that are published. Empty means all.
	Channels []string `yaml:"channels"`
}

// ---- GPIO ----

type GPIOConfig struct {
	Chip     string `yaml:"chip"`
	CountPin int    `yaml:"count_pin"` // buzzer edge input
	TestPin  int    `yaml:"test_pin"`  // self-test stimulus output
}

// ---- TIMING ----

type TimingConfig struct {
	Sample      time.Duration `yaml:"sample"`
	Decode      time.Duration `yaml:"decode"`
	Heartbeat   time.Duration `yaml:"heartbeat"` // 0 disables
	HistorySize int           `yaml:"history_size"`
}

// ---- SELF TEST ----

type SelfTestConfig struct {
	FirstDelay time.Duration `yaml:"first_delay"`
	Period     time.Duration `yaml:"period"`
	MaxCycles  int           `yaml:"max_cycles"`
	Hold       time.Duration `yaml:"hold"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"`
	WSBroker    string `yaml:"ws_broker"` // "=broker" derives from Broker, "off" disables
}

// ---- HTTP ----

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// Default returns the configuration used when no file or flag overrides it.
func Default() *Config {
	st := logic.DefaultSelfTestConfig()
	return &Config{
		GPIO: GPIOConfig{
			Chip:     gpio.DefaultChip,
			CountPin: gpio.DefaultPinCount,
			TestPin:  gpio.DefaultPinTest,
		},
		Timing: TimingConfig{
			Sample:      sampler.DefaultTick,
			Decode:      15 * time.Second,
			Heartbeat:   15 * time.Minute,
			HistorySize: sampler.DefaultCapacity,
		},
		SelfTest: SelfTestConfig{
			FirstDelay: st.FirstDelay,
			Period:     st.Period,
			MaxCycles:  st.MaxCycles,
			Hold:       gpio.DefaultStimulusHold,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "dryer-vent-sensor",
			TopicPrefix: mqtt.DefaultTopicPrefix,
			BufferSize:  mqtt.DefaultBufferSize,
			WSBroker:    "=broker",
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value; unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse decodes YAML bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// SelfTestLogic converts the watchdog settings for the decoder.
func (c *Config) SelfTestLogic() logic.SelfTestConfig {
	return logic.SelfTestConfig{
		FirstDelay: c.SelfTest.FirstDelay,
		Period:     c.SelfTest.Period,
		MaxCycles:  c.SelfTest.MaxCycles,
	}
}

// PublishChannels returns the configured channels, or all of them when none
// are listed. Call only after Validate.
func (c *Config) PublishChannels() []mqtt.Channel {
	if len(c.Channels) == 0 {
		return mqtt.AllChannels
	}
	chs, err := mqtt.ParseChannels(c.Channels)
	if err != nil {
		return mqtt.AllChannels
	}
	return chs
}
