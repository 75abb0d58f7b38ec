package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestStep_SuccessAndFailure(t *testing.T) {
	fb := &fakeBackend{}
	r := New(fb, "sales")

	r.Step("read", nil, 2*time.Second)
	r.Step("write", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 || len(fb.callsHistograms) != 2 {
		t.Fatalf("calls = %d counters, %d histograms; want 2, 2", len(fb.callsCounters), len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != StepTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, StepTotal)
	}
	if cc0.labels["job"] != "sales" || cc0.labels["step"] != "read" || cc0.labels["status"] != "success" {
		t.Fatalf("counter[0].labels = %v", cc0.labels)
	}

	h0 := fb.callsHistograms[0]
	if h0.name != StepDurationSeconds {
		t.Fatalf("hist[0].name=%q; want %s", h0.name, StepDurationSeconds)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	if got := fb.callsCounters[1].labels["status"]; got != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want failure", got)
	}
}

func TestRowsAndObjects(t *testing.T) {
	fb := &fakeBackend{}
	r := New(fb, "sales")

	r.Rows("read", 3)
	r.Rows("read", 0) // ignored
	r.Objects(2)
	r.Objects(-1) // ignored

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if c := fb.callsCounters[0]; c.name != RowsTotal || c.delta != 3 || c.labels["kind"] != "read" {
		t.Fatalf("counter[0] = %#v", c)
	}
	if c := fb.callsCounters[1]; c.name != ObjectsTotal || c.delta != 2 || c.labels["job"] != "sales" {
		t.Fatalf("counter[1] = %#v", c)
	}
}

func TestFlush(t *testing.T) {
	fb := &fakeBackend{}
	if err := New(fb, "j").Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}
}

// A nil Recorder and a Recorder over a nil backend are both safe no-ops.
func TestNilSafety(t *testing.T) {
	var r *Recorder
	r.Step("read", nil, time.Second)
	r.Rows("read", 1)
	r.Objects(1)
	if err := r.Flush(); err != nil {
		t.Fatalf("nil Flush: %v", err)
	}

	r = New(nil, "j")
	r.Step("read", nil, time.Second)
	if err := r.Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
