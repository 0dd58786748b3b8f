// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the ingestion pipeline.
//
// A global, pluggable backend defaults to a no-op implementation, so the
// Record helpers are always safe to call even when no real backend is
// configured. Concrete metric systems live in subpackages (prompush, datadog).
package metrics

import "time"

// Metric names emitted by the Record helpers.
const (
	StepTotal    = "fitload_step_total"
	StepDuration = "fitload_step_duration_seconds"
	FilesTotal   = "fitload_files_total"
	RowsTotal    = "fitload_rows_total"
)

// File outcome statuses for RecordFile.
const (
	FileIngested     = "ingested"
	FileDecodeFailed = "decode_failed"
	FilePartial      = "partial"
	FileSkipped      = "skipped"
	FileInsertFailed = "insert_failed"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep records latency and success/failure for one pipeline stage
// (decode, reconcile, create, ingest).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordFile counts one file outcome, e.g. FileIngested or FileDecodeFailed.
func RecordFile(job, status string) {
	backend.IncCounter(FilesTotal, 1, Labels{
		"job":    job,
		"status": status,
	})
}

// RecordRows increments the inserted-row counter for a message type.
func RecordRows(job, messageType string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":     job,
		"message": messageType,
	})
}
