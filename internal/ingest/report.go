package ingest

import (
	"log"
	"time"

	"github.com/jonasinn/fitextractor/internal/schema"
)

// Report summarises a run.
type Report struct {
	Schema schema.Schema
	// Files holds one outcome per source, in submission order. Empty when
	// the run stopped before ingestion, except for decode failures.
	Files []FileOutcome

	FilesTotal     int
	FilesIngested  int
	FilesPartial   int
	FilesSkipped   int
	FilesFailed    int
	RowsInserted   int64
	InsertFailures int
	Mismatches     int
	Duration       time.Duration
}

func newReport(s schema.Schema, units []*FileUnit, outcomes []FileOutcome, d time.Duration) Report {
	r := Report{Schema: s, FilesTotal: len(units), Duration: d}
	if outcomes == nil {
		for _, u := range units {
			if !u.OK() {
				r.Files = append(r.Files, FileOutcome{File: u.Name(), Status: StatusDecodeFailed, Err: u.Err})
				r.FilesFailed++
			}
		}
		return r
	}

	r.Files = outcomes
	for _, o := range outcomes {
		switch o.Status {
		case StatusIngested:
			r.FilesIngested++
		case StatusPartial:
			r.FilesPartial++
		case StatusSkipped:
			r.FilesSkipped++
		default:
			r.FilesFailed++
		}
		r.Mismatches += len(o.Mismatches)
		for _, m := range o.Messages {
			r.RowsInserted += m.Rows
			if m.Err != nil {
				r.InsertFailures++
			}
		}
	}
	return r
}

// Failed returns the outcomes that did not fully succeed.
func (r Report) Failed() []FileOutcome {
	var out []FileOutcome
	for _, o := range r.Files {
		if o.Status != StatusIngested && o.Status != StatusSkipped {
			out = append(out, o)
		}
	}
	return out
}

// Log writes the end-of-run summary line.
func (r Report) Log() {
	log.Printf(
		"ingest: summary files=%d ingested=%d partial=%d skipped=%d failed=%d message_types=%d rows=%d insert_failures=%d mismatches=%d elapsed=%s",
		r.FilesTotal, r.FilesIngested, r.FilesPartial, r.FilesSkipped, r.FilesFailed,
		len(r.Schema), r.RowsInserted, r.InsertFailures, r.Mismatches, r.Duration.Truncate(time.Millisecond),
	)
}
