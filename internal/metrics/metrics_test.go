package metrics

import (
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

// install swaps the global backend for the duration of a test. Tests that
// use it do not run in parallel.
func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := current()
	t.Cleanup(func() { SetBackend(orig) })
	fb := &fakeBackend{}
	SetBackend(fb)
	return fb
}

func TestRecordTask(t *testing.T) {
	fb := install(t)

	RecordTask("nightly", "cities", "valid", 2*time.Second)
	RecordTask("nightly", "people", "invalid", 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("counter calls = %d, want 2", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("histogram calls = %d, want 2", len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != TaskTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v, want name=%s delta=1", cc0, TaskTotal)
	}
	if cc0.labels["job"] != "nightly" || cc0.labels["task"] != "cities" || cc0.labels["status"] != "valid" {
		t.Fatalf("counter[0].labels = %v, want job=nightly task=cities status=valid", cc0.labels)
	}

	h1 := fb.callsHistograms[1]
	if h1.name != TaskDurationSeconds {
		t.Fatalf("hist[1].name = %q, want %q", h1.name, TaskDurationSeconds)
	}
	if h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value = %v, want ~1.5", h1.value)
	}
	if h1.labels["status"] != "invalid" {
		t.Fatalf("hist[1].labels[status] = %q, want invalid", h1.labels["status"])
	}
}

func TestRecordRows(t *testing.T) {
	fb := install(t)

	RecordRows("jobX", "read", 3)
	RecordRows("jobX", "read", 0) // ignored
	RecordRows("jobY", "invalid", 5)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("counter calls = %d, want 2", len(fb.callsCounters))
	}
	c1 := fb.callsCounters[1]
	if c1.name != RowsTotal || c1.delta != 5 {
		t.Fatalf("counter[1] = %#v, want name=%s delta=5", c1, RowsTotal)
	}
	if c1.labels["job"] != "jobY" || c1.labels["kind"] != "invalid" {
		t.Fatalf("counter[1].labels = %v, want job=jobY kind=invalid", c1.labels)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", fb.flushCount)
	}

	SetBackend(nil)
	if current() != Backend(fb) {
		t.Fatalf("SetBackend(nil) changed the backend")
	}
}
