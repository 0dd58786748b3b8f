// Package ingest coordinates a run: decode every file, reconcile one schema,
// create the tables once, then insert each file's rows.
//
// Decoding and insertion fan out over a bounded worker pool; schema building
// and table creation happen in between, on the calling goroutine. A file that
// fails to decode is left out of everything after it. A message type that
// fails to insert is reported and does not stop its siblings.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonasinn/fitextractor/internal/datasource"
	"github.com/jonasinn/fitextractor/internal/fit"
	"github.com/jonasinn/fitextractor/internal/ident"
	"github.com/jonasinn/fitextractor/internal/metrics"
	"github.com/jonasinn/fitextractor/internal/schema"
	"github.com/jonasinn/fitextractor/internal/storage"
)

// Coordinator drives one run against one repository.
type Coordinator struct {
	repo    storage.Repository
	dialect storage.Dialect

	decoder        fit.Decoder
	parallel       bool
	workers        int
	includeUnknown bool
	duplicates     DuplicatePolicy
	job            string
	newID          func() uuid.UUID
	verbose        bool

	mu    sync.Mutex
	state State
}

// New returns an idle coordinator writing through repo with dialect's SQL.
func New(repo storage.Repository, dialect storage.Dialect, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:     repo,
		dialect:  dialect,
		decoder:  fit.SDKDecoder{},
		parallel: true,
		workers:  runtime.NumCPU(),
		job:      "fitload",
		newID:    uuid.New,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect opens the repository for cfg and looks up its dialect. Failures are
// *ConnectionError.
func Connect(ctx context.Context, cfg storage.Config) (storage.Repository, storage.Dialect, error) {
	d, err := storage.LookupDialect(cfg.Kind)
	if err != nil {
		return nil, storage.Dialect{}, &ConnectionError{Kind: cfg.Kind, Err: err}
	}
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, storage.Dialect{}, &ConnectionError{Kind: cfg.Kind, Err: err}
	}
	return repo, d, nil
}

// FileStatus is the outcome of one file.
type FileStatus string

const (
	StatusIngested     FileStatus = metrics.FileIngested
	StatusPartial      FileStatus = metrics.FilePartial
	StatusDecodeFailed FileStatus = metrics.FileDecodeFailed
	StatusSkipped      FileStatus = metrics.FileSkipped
	StatusInsertFailed FileStatus = metrics.FileInsertFailed
)

// MessageOutcome is the result of inserting one message type of one file.
type MessageOutcome struct {
	MessageType string
	Table       string
	Rows        int64
	Err         error
}

// FileOutcome is the result of one file.
type FileOutcome struct {
	File   string
	Hash   string
	Status FileStatus
	// ID is the registry identifier; zero when no registry row was written.
	ID         uuid.UUID
	Messages   []MessageOutcome
	Mismatches []schema.Mismatch
	Err        error
}

// Rows returns the number of message rows inserted for the file.
func (o FileOutcome) Rows() int64 {
	var n int64
	for _, m := range o.Messages {
		n += m.Rows
	}
	return n
}

// IngestFile writes one decoded file: a registry row under a fresh
// identifier, then the rows of every message type present in both the file
// and s. A failing message type yields an *InsertFailureError in its
// MessageOutcome and the remaining types are still written.
func (c *Coordinator) IngestFile(ctx context.Context, u *FileUnit, s schema.Schema, tables Tables) FileOutcome {
	out := FileOutcome{File: u.Name(), Hash: u.Hash, Mismatches: u.Mismatches}
	if !u.OK() {
		out.Status, out.Err = StatusDecodeFailed, u.Err
		return out
	}

	sess, err := c.repo.Acquire(ctx)
	if err != nil {
		out.Status, out.Err = StatusInsertFailed, fmt.Errorf("ingest: %s: %w", u.Name(), err)
		c.fileDone(out)
		return out
	}
	defer sess.Release()

	if c.duplicates == DuplicateSkip {
		dup, err := sess.Exists(ctx, c.dialect.SelectWhere(RegistryTable, colContentHash), u.Hash)
		if err != nil {
			out.Status, out.Err = StatusInsertFailed, fmt.Errorf("ingest: %s: duplicate check: %w", u.Name(), err)
			c.fileDone(out)
			return out
		}
		if dup {
			out.Status = StatusSkipped
			c.fileDone(out)
			return out
		}
	}

	id := c.newID()
	if err := c.insertRegistry(ctx, sess, u, id); err != nil {
		out.Status, out.Err = StatusInsertFailed, err
		c.fileDone(out)
		return out
	}
	out.ID = id

	var failed []error
	for _, mt := range u.Summary.Names() {
		if !s.Has(mt) {
			continue
		}
		mo := c.insertMessages(ctx, sess, u, mt, tables.Messages[mt], id)
		if mo.Err != nil {
			failed = append(failed, mo.Err)
			log.Printf("ingest: file=%s message=%s rows=%d err=%v", u.Name(), mt, mo.Rows, mo.Err)
		} else {
			metrics.RecordRows(c.job, mt, mo.Rows)
		}
		out.Messages = append(out.Messages, mo)
	}

	out.Status = StatusIngested
	if len(failed) > 0 {
		out.Status = StatusPartial
		out.Err = errors.Join(failed...)
	}
	c.fileDone(out)
	return out
}

func (c *Coordinator) fileDone(o FileOutcome) {
	metrics.RecordFile(c.job, string(o.Status))
	if o.Err != nil && o.Status != StatusPartial {
		log.Printf("ingest: file=%s status=%s err=%v", o.File, o.Status, o.Err)
	} else if c.verbose {
		log.Printf("ingest: file=%s status=%s id=%s rows=%d", o.File, o.Status, o.ID, o.Rows())
	}
}

func (c *Coordinator) insertRegistry(ctx context.Context, sess storage.Session, u *FileUnit, id uuid.UUID) error {
	fail := func(err error) error {
		return &InsertFailureError{File: u.Name(), Table: RegistryTable, Rows: 1, Err: err}
	}
	raw, err := u.Extractor.RawBytes(ctx)
	if err != nil {
		return fail(err)
	}
	types, err := c.dialect.ListValue(u.Summary.Names())
	if err != nil {
		return fail(err)
	}
	row := []any{c.dialect.IDValue(id), u.Name(), u.Hash, types, raw}
	if _, err := sess.CopyFrom(ctx, RegistryTable, registryColumns, [][]any{row}); err != nil {
		return fail(err)
	}
	return nil
}

func (c *Coordinator) insertMessages(ctx context.Context, sess storage.Session, u *FileUnit, mt string, t MessageTable, id uuid.UUID) MessageOutcome {
	mo := MessageOutcome{MessageType: mt, Table: t.Def.FQN}
	fail := func(rows int, err error) MessageOutcome {
		mo.Err = &InsertFailureError{File: u.Name(), MessageType: mt, Table: t.Def.FQN, Rows: rows, Err: err}
		return mo
	}

	proj, err := u.Extractor.ProjectMessages(mt)
	if err != nil {
		return fail(0, err)
	}

	// Column order follows the table; fields absent from this file stay NULL.
	pos := make(map[string]int, len(proj.Columns))
	for i, f := range proj.Columns {
		pos[f] = i
	}
	cols := []string{ident.ParentColumn, ident.IndexColumn}
	var fields []string
	for _, f := range t.Fields {
		if _, ok := pos[f]; ok {
			cols = append(cols, t.Columns[f])
			fields = append(fields, f)
		}
	}
	if len(fields) < len(proj.Columns) && c.verbose {
		log.Printf("ingest: file=%s message=%s ignoring %d fields outside the schema", u.Name(), mt, len(proj.Columns)-len(fields))
	}

	idv := c.dialect.IDValue(id)
	rows := make([][]any, len(proj.Rows))
	for r, src := range proj.Rows {
		row := make([]any, 0, len(cols))
		row = append(row, idv, int64(r))
		for _, f := range fields {
			v, err := convert(src[pos[f]], t.Types[f])
			if err != nil {
				return fail(len(proj.Rows), fmt.Errorf("row %d field %s: %w", r, f, err))
			}
			row = append(row, v)
		}
		rows[r] = row
	}

	n, err := sess.CopyFrom(ctx, t.Def.FQN, cols, rows)
	if err != nil {
		return fail(len(rows), err)
	}
	mo.Rows = n
	return mo
}

// IngestAll ingests the successful units over the worker pool. Under
// DuplicateSkip, a unit whose hash appeared in an earlier unit is skipped
// without touching the database. Outcomes are ordered by submission.
func (c *Coordinator) IngestAll(ctx context.Context, units []*FileUnit, s schema.Schema, tables Tables) []FileOutcome {
	c.setState(Ingesting)
	start := time.Now()

	outcomes := make([]FileOutcome, len(units))
	var todo []int
	seen := map[string]bool{}
	for i, u := range units {
		switch {
		case !u.OK():
			outcomes[i] = FileOutcome{File: u.Name(), Status: StatusDecodeFailed, Err: u.Err}
		case c.duplicates == DuplicateSkip && seen[u.Hash]:
			outcomes[i] = FileOutcome{File: u.Name(), Hash: u.Hash, Status: StatusSkipped}
			c.fileDone(outcomes[i])
		default:
			seen[u.Hash] = true
			todo = append(todo, i)
		}
	}

	started, err := c.forEach(ctx, len(todo), func(ctx context.Context, k int) {
		i := todo[k]
		outcomes[i] = c.IngestFile(ctx, units[i], s, tables)
	})
	for _, i := range todo[started:] {
		outcomes[i] = FileOutcome{File: units[i].Name(), Hash: units[i].Hash, Status: StatusInsertFailed,
			Err: fmt.Errorf("ingest: %s not ingested: %w", units[i].Name(), err)}
	}

	metrics.RecordStep(c.job, "ingest", err, time.Since(start))
	return outcomes
}

// Run executes decode, reconcile, create and ingest for sources. Per-file
// failures are reported in the Report; schema conflicts and store errors
// during table creation are returned and leave the coordinator Failed.
func (c *Coordinator) Run(ctx context.Context, sources []datasource.Source, reset bool) (Report, error) {
	if st := c.State(); st != Idle {
		return Report{}, fmt.Errorf("%w (state %s)", ErrNotIdle, st)
	}
	start := time.Now()

	units := c.DecodeAll(ctx, sources)
	s := c.BuildSchema(units)

	tables, err := c.CreateTables(ctx, s, reset)
	if err != nil {
		rep := newReport(s, units, nil, time.Since(start))
		return rep, err
	}

	outcomes := c.IngestAll(ctx, units, s, tables)
	rep := newReport(s, units, outcomes, time.Since(start))
	c.setState(Done)
	rep.Log()
	return rep, nil
}
