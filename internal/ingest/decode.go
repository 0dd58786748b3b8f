package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonasinn/fitextractor/internal/datasource"
	"github.com/jonasinn/fitextractor/internal/extract"
	"github.com/jonasinn/fitextractor/internal/metrics"
	"github.com/jonasinn/fitextractor/internal/schema"
)

// FileUnit is one input file moving through the run. A unit with a non-nil
// Err is excluded from reconciliation and ingestion.
type FileUnit struct {
	// Index is the submission position.
	Index     int
	Source    datasource.Source
	Extractor *extract.Extractor
	Hash      string
	Summary   extract.Summary

	// Mismatches lists fields whose type in this file differs from the
	// canonical type; set by BuildSchema.
	Mismatches []schema.Mismatch

	Err error
}

// Name returns the source name.
func (u *FileUnit) Name() string { return u.Source.Name() }

// OK reports whether the unit decoded successfully.
func (u *FileUnit) OK() bool { return u.Err == nil }

// DecodeAll builds and processes one extractor per source. Failures are
// logged and recorded on the unit; they never abort the stage. Sources not
// started because ctx was canceled carry the context error.
func (c *Coordinator) DecodeAll(ctx context.Context, sources []datasource.Source) []*FileUnit {
	c.setState(Decoding)
	start := time.Now()

	units := make([]*FileUnit, len(sources))
	for i, src := range sources {
		units[i] = &FileUnit{Index: i, Source: src}
	}

	started, err := c.forEach(ctx, len(units), func(ctx context.Context, i int) {
		c.decodeUnit(ctx, units[i])
	})
	for _, u := range units[started:] {
		u.Err = fmt.Errorf("ingest: %s not decoded: %w", u.Name(), err)
	}

	failed := 0
	for _, u := range units {
		if !u.OK() {
			failed++
		}
	}
	log.Printf("ingest: decoded files=%d failed=%d elapsed=%s",
		len(units), failed, time.Since(start).Truncate(time.Millisecond))
	metrics.RecordStep(c.job, "decode", err, time.Since(start))
	return units
}

func (c *Coordinator) decodeUnit(ctx context.Context, u *FileUnit) {
	u.Extractor = extract.New(u.Source, c.decoder, extract.WithIncludeUnknown(c.includeUnknown))

	err := u.Extractor.Process(ctx)
	if err == nil {
		u.Hash, err = u.Extractor.ContentHash(ctx)
	}
	if err == nil {
		u.Summary, err = u.Extractor.Summary()
	}
	if err != nil {
		u.Err = err
		log.Printf("ingest: decode failed file=%s err=%v", u.Name(), err)
		metrics.RecordFile(c.job, metrics.FileDecodeFailed)
		return
	}
	if c.verbose {
		log.Printf("ingest: decoded file=%s messages=%d rows=%d hash=%s",
			u.Name(), len(u.Summary.Names()), u.Summary.Rows(), u.Hash)
	}
}

// BuildSchema reconciles the summaries of the successful units into the
// canonical schema and records per-unit type mismatches. It is the barrier
// between decoding and table creation and touches no database.
func (c *Coordinator) BuildSchema(units []*FileUnit) schema.Schema {
	c.setState(Reconciling)
	start := time.Now()

	var sums []schema.Summarizer
	for _, u := range units {
		if u.OK() {
			sums = append(sums, u.Summary)
		}
	}
	s := schema.BuildSchema(sums...)

	for _, u := range units {
		if !u.OK() {
			continue
		}
		u.Mismatches = schema.Mismatches(s, u.Summary)
		for _, m := range u.Mismatches {
			if m.Lossy() {
				log.Printf("ingest: type mismatch file=%s %s (rows will fail to insert)", u.Name(), m)
			} else if c.verbose {
				log.Printf("ingest: type mismatch file=%s %s", u.Name(), m)
			}
		}
	}

	log.Printf("ingest: schema message_types=%d files=%d", len(s), len(sums))
	metrics.RecordStep(c.job, "reconcile", nil, time.Since(start))
	return s
}
