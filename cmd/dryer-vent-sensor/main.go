// Command dryer-vent-sensor decodes the dryer vent buzzer and publishes alarms and counters to MQTT.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sweeney/dryer-vent-sensor/internal/config"
	"github.com/sweeney/dryer-vent-sensor/internal/gpio"
	"github.com/sweeney/dryer-vent-sensor/internal/logic"
	"github.com/sweeney/dryer-vent-sensor/internal/metrics"
	"github.com/sweeney/dryer-vent-sensor/internal/mqtt"
	"github.com/sweeney/dryer-vent-sensor/internal/sampler"
	"github.com/sweeney/dryer-vent-sensor/internal/status"
	"github.com/sweeney/dryer-vent-sensor/internal/web"
)

func main() {
	cfg, printState, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags builds the configuration: defaults, then the YAML file given
// by --config, then any flag set explicitly on the command line.
func parseFlags(args []string) (*config.Config, bool, error) {
	def := config.Default()
	fs := pflag.NewFlagSet("dryer-vent-sensor", pflag.ContinueOnError)

	cfgPath := fs.StringP("config", "c", "", "YAML config file")
	chip := fs.String("chip", def.GPIO.Chip, "GPIO chip")
	countPin := fs.Int("count-pin", def.GPIO.CountPin, "BCM pin for the buzzer edge input")
	testPin := fs.Int("test-pin", def.GPIO.TestPin, "BCM pin for the self-test output")
	sample := fs.Duration("sample", def.Timing.Sample, "Edge counter sampling interval")
	decode := fs.Duration("decode", def.Timing.Decode, "Decode interval")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address")
	prefix := fs.String("topic-prefix", def.MQTT.TopicPrefix, "MQTT topic prefix")
	heartbeat := fs.Duration("heartbeat", def.Timing.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	wsBroker := fs.String("ws-broker", def.MQTT.WSBroker, `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	printState := fs.Bool("print-state", false, "Count buzzer edges for one second, print and exit")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg := def
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}

	if fs.Changed("chip") {
		cfg.GPIO.Chip = *chip
	}
	if fs.Changed("count-pin") {
		cfg.GPIO.CountPin = *countPin
	}
	if fs.Changed("test-pin") {
		cfg.GPIO.TestPin = *testPin
	}
	if fs.Changed("sample") {
		cfg.Timing.Sample = *sample
	}
	if fs.Changed("decode") {
		cfg.Timing.Decode = *decode
	}
	if fs.Changed("heartbeat") {
		cfg.Timing.Heartbeat = *heartbeat
	}
	if fs.Changed("broker") {
		cfg.MQTT.Broker = *broker
	}
	if fs.Changed("topic-prefix") {
		cfg.MQTT.TopicPrefix = *prefix
	}
	if fs.Changed("ws-broker") {
		cfg.MQTT.WSBroker = *wsBroker
	}
	if fs.Changed("http") {
		cfg.HTTP.Addr = *httpAddr
	}

	if err := config.Validate(cfg); err != nil {
		return nil, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *printState, nil
}

func run(cfg *config.Config, printState bool) error {
	// Initialize GPIO
	counter, err := gpio.NewRealCounter(cfg.GPIO.Chip, cfg.GPIO.CountPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer counter.Close()

	// Print state mode
	if printState {
		counter.ReadAndReset()
		time.Sleep(time.Second)
		n := counter.ReadAndReset()
		perTick := float64(n) * float64(cfg.Timing.Sample) / float64(time.Second)
		fmt.Printf("edges: %d in 1s (%.1f per %v tick, buzzer %s)\n",
			n, perTick, cfg.Timing.Sample, buzzerState(perTick))
		return nil
	}

	testLine, err := gpio.NewRealLine(cfg.GPIO.Chip, cfg.GPIO.TestPin, gpio.LevelIdle)
	if err != nil {
		return fmt.Errorf("init self-test line: %w", err)
	}
	defer testLine.Close()

	channels := cfg.PublishChannels()
	ws := resolveWSBroker(cfg.MQTT.WSBroker, cfg.MQTT.Broker)

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Config{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Channels:    channels,
		BufferSize:  cfg.MQTT.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	m := metrics.New()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg, channels, ws))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	// Sampler runs in its own goroutine on the fast tick.
	history := sampler.NewHistory(cfg.Timing.HistorySize)
	d := newDaemon(cfg, history, gpio.NewStimulus(testLine, cfg.SelfTest.Hold, time.After), publisher, publisher, tracker, m, time.Now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sampleTicker := time.NewTicker(cfg.Timing.Sample)
	defer sampleTicker.Stop()
	go sampler.New(counter, history).Run(ctx, sampleTicker.C)

	log.Printf("started: sample=%v decode=%v history=%d broker=%s prefix=%s heartbeat=%v",
		cfg.Timing.Sample, cfg.Timing.Decode, cfg.Timing.HistorySize,
		cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, cfg.Timing.Heartbeat)

	decodeTicker := time.NewTicker(cfg.Timing.Decode)
	defer decodeTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(d, decodeTicker.C, sigCh)
}

func statusConfig(cfg *config.Config, channels []mqtt.Channel, ws string) status.Config {
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = string(ch)
	}
	return status.Config{
		SampleMs:    cfg.Timing.Sample.Milliseconds(),
		DecodeMs:    cfg.Timing.Decode.Milliseconds(),
		HeartbeatMs: cfg.Timing.Heartbeat.Milliseconds(),
		HistorySize: cfg.Timing.HistorySize,
		Chip:        cfg.GPIO.Chip,
		CountPin:    cfg.GPIO.CountPin,
		TestPin:     cfg.GPIO.TestPin,
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Channels:    names,
		HTTPPort:    cfg.HTTP.Addr,
		WSBroker:    ws,
	}
}

// daemon owns everything the decode loop touches. All fields are used from
// the loop goroutine only.
type daemon struct {
	history   *sampler.History
	reader    *sampler.Reader
	decoder   *logic.Decoder
	stim      *gpio.Stimulus
	publisher mqtt.Publisher
	mqttState mqtt.ConnectionStatus
	tracker   *status.Tracker
	metrics   *metrics.Metrics
	now       func() time.Time

	sample    time.Duration
	heartbeat time.Duration

	batch      []int
	decoded    uint64
	overruns   int
	skipped    uint64
	lastFailed bool
}

func newDaemon(cfg *config.Config, history *sampler.History, stim *gpio.Stimulus, publisher mqtt.Publisher, mqttState mqtt.ConnectionStatus, tracker *status.Tracker, m *metrics.Metrics, now func() time.Time) *daemon {
	return &daemon{
		history:   history,
		reader:    history.NewReader(),
		decoder:   logic.NewDecoder(now(), cfg.SelfTestLogic()),
		stim:      stim,
		publisher: publisher,
		mqttState: mqttState,
		tracker:   tracker,
		metrics:   m,
		now:       now,
		sample:    cfg.Timing.Sample,
		heartbeat: cfg.Timing.Heartbeat,
		batch:     make([]int, 0, history.Capacity()),
	}
}

func runLoop(d *daemon, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.shutdown(s)
			return nil

		case <-d.stim.Release():
			if err := d.stim.Restore(); err != nil {
				log.Printf("selftest: %v", err)
			}

		case <-tick:
			d.decodeCycle(d.now())
		}
	}
}

// decodeCycle drains the history, feeds the decoder, runs the self-test
// watchdog and pushes every result channel.
func (d *daemon) decodeCycle(now time.Time) {
	started := time.Now()

	d.batch = d.batch[:0]
	res := d.reader.Drain(func(c int) { d.batch = append(d.batch, c) })
	if res.Overrun {
		d.decoder.Resync()
		d.overruns++
		d.skipped += res.Skipped
		if d.metrics != nil {
			d.metrics.RecordOverrun(res.Skipped)
		}
		log.Printf("decoder: history overrun, skipped %d samples", res.Skipped)
	}

	// Samples are timestamped backwards from now, one tick apart.
	n := len(d.batch)
	for i, c := range d.batch {
		ts := now.Add(-time.Duration(n-1-i) * d.sample)
		if e := d.decoder.Process(c, ts); e != nil {
			d.handleEvent(*e)
		}
	}
	d.decoded += uint64(n)

	if d.decoder.EndCycle(now) {
		log.Printf("selftest: pulsing test line")
		if err := d.stim.Trigger(); err != nil {
			log.Printf("selftest: %v", err)
		}
	}
	st := d.decoder.SelfTest()
	if st.Failed && !d.lastFailed {
		log.Printf("selftest: no response, marking failed")
	} else if !st.Failed && d.lastFailed {
		log.Printf("selftest: response received, failure cleared")
	}
	d.lastFailed = st.Failed

	readings := d.decoder.Readings()
	if err := d.publisher.PublishReadings(readings); err != nil {
		log.Printf("publish readings error: %v", err)
	}

	connected := d.mqttState != nil && d.mqttState.IsConnected()

	if d.tracker != nil {
		d.tracker.Update(readings, st, d.decoder.InPacket())
		d.tracker.SetSampler(status.SamplerHealth{
			Written:  d.history.Written(),
			Decoded:  d.decoded,
			Overruns: d.overruns,
			Skipped:  d.skipped,
			LastPass: now,
		})
		if d.mqttState != nil {
			d.tracker.SetMQTTConnected(connected)
		}
	}

	// Check for heartbeat
	if hb := d.decoder.CheckHeartbeat(now, d.heartbeat); hb != nil {
		c := hb.Readings.Counts
		log.Printf("heartbeat: uptime=%v overheat=%v clog=%v selftest_failed=%v selftests=%d unknown=%d",
			hb.Uptime, hb.Readings.Overheat, hb.Readings.Clog, hb.Readings.SelfTestFailed,
			c.SelfTestCount, c.UnknownPacket)

		hbEvent := mqtt.SystemEvent{
			Timestamp: hb.Timestamp,
			Event:     "HEARTBEAT",
		}
		if d.tracker != nil {
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				d.tracker.SetNetwork(net)
			}
			hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
		}
		if err := d.publisher.PublishSystem(hbEvent); err != nil {
			log.Printf("heartbeat publish error: %v", err)
		}
	}

	if d.metrics != nil {
		d.metrics.ObserveReadings(readings)
		d.metrics.SetMQTTConnected(connected)
		d.metrics.RecordPass(n, time.Since(started))
	}
}

func (d *daemon) handleEvent(e logic.Event) {
	if e.Variant != logic.VariantNone {
		log.Printf("event: %s %s (pulses=%d last=%d)", e.Outcome, e.Variant, e.Pulses, e.LastPulse)
	} else {
		log.Printf("event: %s (pulses=%d last=%d)", e.Outcome, e.Pulses, e.LastPulse)
	}
	if d.tracker != nil {
		d.tracker.RecordEvent(e)
	}
	if d.metrics != nil {
		d.metrics.RecordEvent(e)
	}
	if err := d.publisher.Publish(e); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
}

func (d *daemon) shutdown(s os.Signal) {
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	// Never leave the test line held active.
	if d.stim.Active() {
		if err := d.stim.Restore(); err != nil {
			log.Printf("selftest: %v", err)
		}
	}

	event := mqtt.SystemEvent{
		Timestamp: d.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if d.tracker != nil {
		if d.mqttState != nil {
			d.tracker.SetMQTTConnected(d.mqttState.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// buzzerState labels an average per-tick edge count against the pulse threshold.
func buzzerState(perTick float64) string {
	if perTick > logic.PulseThreshold {
		return "sounding"
	}
	return "quiet"
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
