package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sweeney/dryer-vent-sensor/internal/logic"
)

func TestObserveReadings(t *testing.T) {
	m := New()
	m.ObserveReadings(logic.Readings{
		Clog:           true,
		SelfTestFailed: false,
		Counts:         logic.Counts{LongClog: 3, SelfTestCount: 2},
	})

	if got := testutil.ToFloat64(m.alarm.WithLabelValues("clog")); got != 1 {
		t.Errorf("clog alarm: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.alarm.WithLabelValues("overheat")); got != 0 {
		t.Errorf("overheat alarm: got %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.counts.WithLabelValues("long_clog")); got != 3 {
		t.Errorf("long_clog: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.counts.WithLabelValues("selftest_count")); got != 2 {
		t.Errorf("selftest_count: got %v, want 2", got)
	}

	// A later snapshot replaces, not adds.
	m.ObserveReadings(logic.Readings{Counts: logic.Counts{LongClog: 4}})
	if got := testutil.ToFloat64(m.counts.WithLabelValues("long_clog")); got != 4 {
		t.Errorf("long_clog after update: got %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.alarm.WithLabelValues("clog")); got != 0 {
		t.Errorf("clog alarm after clear: got %v, want 0", got)
	}
}

func TestRecordEvent(t *testing.T) {
	m := New()
	m.RecordEvent(logic.Event{Outcome: logic.OutcomeClog})
	m.RecordEvent(logic.Event{Outcome: logic.OutcomeClog})
	m.RecordEvent(logic.Event{Outcome: logic.OutcomeStart})

	if got := testutil.ToFloat64(m.events.WithLabelValues("CLOG")); got != 2 {
		t.Errorf("CLOG events: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("START")); got != 1 {
		t.Errorf("START events: got %v, want 1", got)
	}
}

func TestRecordOverrun(t *testing.T) {
	m := New()
	m.RecordOverrun(750)
	m.RecordOverrun(10)

	if got := testutil.ToFloat64(m.overruns); got != 2 {
		t.Errorf("overruns: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.skipped); got != 760 {
		t.Errorf("skipped: got %v, want 760", got)
	}
}

func TestRecordPass(t *testing.T) {
	m := New()
	m.RecordPass(50, 200*time.Microsecond)
	m.RecordPass(50, 300*time.Microsecond)

	if got := testutil.ToFloat64(m.samples); got != 100 {
		t.Errorf("samples: got %v, want 100", got)
	}
	if n := testutil.CollectAndCount(m.pass); n != 1 {
		t.Errorf("expected one histogram series, got %d", n)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	m := New()
	m.SetMQTTConnected(true)
	if got := testutil.ToFloat64(m.mqttUp); got != 1 {
		t.Errorf("got %v, want 1", got)
	}
	m.SetMQTTConnected(false)
	if got := testutil.ToFloat64(m.mqttUp); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.ObserveReadings(logic.Readings{Overheat: true})
	m.RecordOverrun(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`dryer_vent_alarm{kind="overheat"} 1`,
		`dryer_vent_history_overruns_total 1`,
		`dryer_vent_history_skipped_samples_total 5`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestPrivateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := New()
	b := New()
	a.RecordOverrun(1)
	if got := testutil.ToFloat64(b.overruns); got != 0 {
		t.Errorf("registries leak: got %v, want 0", got)
	}
}
