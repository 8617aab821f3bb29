package logic

import "time"

// Decoder reconstructs pulses and packets from per-tick edge counts and
// classifies each closed packet.
type Decoder struct {
	st            State
	cfg           SelfTestConfig
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewDecoder creates a decoder with zeroed counters. The first self test is
// scheduled cfg.FirstDelay after startTime.
func NewDecoder(startTime time.Time, cfg SelfTestConfig) *Decoder {
	st := State{}
	st.SelfTest.NextTest = startTime.Add(cfg.FirstDelay)
	return NewDecoderFromState(st, cfg, startTime)
}

// NewDecoderFromState creates a decoder that resumes from an arbitrary state.
func NewDecoderFromState(st State, cfg SelfTestConfig, startTime time.Time) *Decoder {
	return &Decoder{
		st:            st,
		cfg:           cfg,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process consumes one tick's edge count. It returns an event when the tick
// closes a packet, nil otherwise.
func (d *Decoder) Process(count int, now time.Time) *Event {
	st := &d.st

	if count > PulseThreshold {
		if !st.InPulse {
			if !st.InPacket {
				st.InPacket = true
				st.PacketPulses = 1
			} else {
				st.PacketPulses++
			}
			st.InPulse = true
			st.PulseLength = 0
		}
		st.PulseLength++
		return nil
	}

	if st.InPulse {
		if st.PulseLength == 1 {
			st.Counts.ShortPacket++
		}
		st.InPulse = false
		st.GapLength = 0
	}
	st.GapLength++

	var event *Event
	if st.GapLength > PacketGap && st.InPacket {
		event = d.classify(now)
		st.InPacket = false
	}

	if st.GapLength > GapCeiling {
		st.GapLength = GapClamp
	}
	return event
}

// classify closes the open packet using its pulse count and final pulse length.
func (d *Decoder) classify(now time.Time) *Event {
	st := &d.st
	e := &Event{
		Timestamp: now,
		Pulses:    st.PacketPulses,
		LastPulse: st.PulseLength,
	}

	switch st.PacketPulses {
	case 1:
		switch {
		case st.PulseLength < startShortBelow:
			e.Outcome = OutcomeShortStart
			st.Counts.ShortStart++
		case st.PulseLength > startLongAbove:
			e.Outcome = OutcomeLongStart
			st.Counts.LongStart++
		case d.respondSelfTest():
			e.Outcome = OutcomeSelfTest
		default:
			e.Outcome = OutcomeStart
		}

	case 3:
		e.Outcome = OutcomeClog
		e.Variant = alarmVariant(st.PulseLength)
		switch e.Variant {
		case VariantShort:
			st.Counts.ShortClog++
		case VariantLong:
			st.Counts.LongClog++
		}
		st.Clog = true

	case 5:
		e.Outcome = OutcomeOverheat
		e.Variant = alarmVariant(st.PulseLength)
		switch e.Variant {
		case VariantShort:
			st.Counts.ShortOverheat++
		case VariantLong:
			st.Counts.LongOverheat++
		}
		st.Overheat = true

	default:
		e.Outcome = OutcomeUnknown
		st.Counts.UnknownPacket++
	}

	return e
}

func alarmVariant(pulseLength int) Variant {
	switch {
	case pulseLength < alarmShortBelow:
		return VariantShort
	case pulseLength > alarmLongAbove:
		return VariantLong
	}
	return VariantNone
}

// Resync drops any partially decoded pulse or packet. Counters, flags and
// self-test state are kept. Used after the sample history was lapped and
// the next sample no longer follows the last one decoded.
func (d *Decoder) Resync() {
	d.st.InPulse = false
	d.st.InPacket = false
	d.st.PacketPulses = 0
	d.st.PulseLength = 0
	d.st.GapLength = 0
}

// Readings returns the current counters and flags.
func (d *Decoder) Readings() Readings {
	return Readings{
		Overheat:       d.st.Overheat,
		Clog:           d.st.Clog,
		SelfTestFailed: d.st.SelfTest.Failed,
		Counts:         d.st.Counts,
	}
}

// State returns a copy of the full decoder state.
func (d *Decoder) State() State {
	return d.st
}

// InPacket reports whether a packet is currently open.
func (d *Decoder) InPacket() bool {
	return d.st.InPacket
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed
// or if interval is <= 0 (disabled).
func (d *Decoder) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Readings:  d.Readings(),
	}
}
