package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	Name   string
	Delta  float64
	Labels Labels
}

type histCall struct {
	Name   string
	Value  float64
	Labels Labels
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

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStep("jobA", "decode", nil, 2*time.Second)
	RecordStep("jobB", "ingest", errors.New("boom"), 1500*time.Millisecond)

	want := []counterCall{
		{StepTotal, 1, Labels{"job": "jobA", "step": "decode", "status": "success"}},
		{StepTotal, 1, Labels{"job": "jobB", "step": "ingest", "status": "failure"}},
	}
	if diff := cmp.Diff(want, fb.callsCounters); diff != "" {
		t.Fatalf("counters mismatch (-want +got):\n%s", diff)
	}

	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}
	h0 := fb.callsHistograms[0]
	if h0.Name != StepDuration {
		t.Fatalf("hist[0].name=%q; want %s", h0.Name, StepDuration)
	}
	if h0.Value < 2.0-0.001 || h0.Value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.Value)
	}
	if h1 := fb.callsHistograms[1]; h1.Value < 1.5-0.001 || h1.Value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.Value)
	}
}

func TestRecordFileAndRows(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordFile("jobX", FileIngested)
	RecordRows("jobX", "record", 3)
	RecordRows("jobX", "record", 0) // ignored
	RecordFile("jobX", FileDecodeFailed)

	want := []counterCall{
		{FilesTotal, 1, Labels{"job": "jobX", "status": "ingested"}},
		{RowsTotal, 3, Labels{"job": "jobX", "message": "record"}},
		{FilesTotal, 1, Labels{"job": "jobX", "status": "decode_failed"}},
	}
	if diff := cmp.Diff(want, fb.callsCounters); diff != "" {
		t.Fatalf("counters mismatch (-want +got):\n%s", diff)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
