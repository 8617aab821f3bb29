package logic

import "time"

// EndCycle runs the self-test watchdog once per decode pass, after the
// history has been drained. It returns true when a new test starts and the
// caller must pulse the stimulus line.
//
// The cycle that starts a test already counts towards MaxCycles, so the
// response must arrive within the following MaxCycles passes.
func (d *Decoder) EndCycle(now time.Time) bool {
	t := &d.st.SelfTest
	fire := false

	if now.After(t.NextTest) {
		t.Outstanding = true
		t.Elapsed = 0
		t.NextTest = now.Add(d.cfg.Period)
		fire = true
	}

	if t.Outstanding {
		t.Elapsed++
		if t.Elapsed > d.cfg.MaxCycles {
			t.Failed = true
			t.Outstanding = false
		}
	}

	return fire
}

// respondSelfTest handles a mid-length single-pulse packet. It reports
// whether the packet answered an outstanding self test.
func (d *Decoder) respondSelfTest() bool {
	t := &d.st.SelfTest
	if !t.Outstanding {
		return false
	}
	t.Outstanding = false
	t.Failed = false
	d.st.Counts.SelfTestCount++
	return true
}

// SelfTest returns the current watchdog state.
func (d *Decoder) SelfTest() SelfTestState {
	return d.st.SelfTest
}
