// Package probe inspects FIT files without touching a database. It decodes
// the sources, reconciles the canonical schema and reports, per message type,
// the column each field would land in, the types observed across files and
// optionally the CREATE TABLE statements for a backend.
//
// The output is meant to be read before a first load, to spot type conflicts
// and unexpected message types.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jonasinn/fitextractor/internal/datasource"
	"github.com/jonasinn/fitextractor/internal/fit"
	"github.com/jonasinn/fitextractor/internal/ingest"
	"github.com/jonasinn/fitextractor/internal/schema"
	"github.com/jonasinn/fitextractor/internal/storage"
)

// Options control decoding and output.
type Options struct {
	// Backend selects the dialect for table names and DDL. Defaults to
	// "postgres".
	Backend string
	// DDL adds CREATE TABLE statements to the result.
	DDL bool
	// IncludeUnknown keeps message types and fields without a profile name.
	IncludeUnknown bool
	// Sequential disables the worker pool.
	Sequential bool
	// Decoder overrides the FIT decoder (nil = SDK decoder).
	Decoder fit.Decoder
}

// Field describes one canonical field.
type Field struct {
	Name   string `json:"name"`
	Column string `json:"column"`
	Type   string `json:"type"`
	// Observed lists every type seen across files, highest priority first.
	// Only set when the files disagree.
	Observed []string `json:"observed,omitempty"`
}

// Message describes one message type and its table.
type Message struct {
	MessageType string  `json:"message_type"`
	Table       string  `json:"table"`
	Files       int     `json:"files"`
	Rows        int     `json:"rows"`
	Fields      []Field `json:"fields"`
}

// FileInfo describes one input file.
type FileInfo struct {
	Name       string   `json:"name"`
	Hash       string   `json:"hash,omitempty"`
	Rows       int      `json:"rows"`
	Error      string   `json:"error,omitempty"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// Result is the probe output.
type Result struct {
	Backend  string     `json:"backend"`
	Files    []FileInfo `json:"files"`
	Messages []Message  `json:"messages"`
	DDL      []string   `json:"ddl,omitempty"`
}

// Probe decodes sources and reports the schema a load would create. Decode
// failures are reported per file; an error is returned only for an unknown
// backend or when rendering DDL fails.
func Probe(ctx context.Context, sources []datasource.Source, opt Options) (Result, error) {
	if opt.Backend == "" {
		opt.Backend = "postgres"
	}
	d, err := storage.LookupDialect(opt.Backend)
	if err != nil {
		return Result{}, fmt.Errorf("probe: %w", err)
	}

	opts := []ingest.Option{
		ingest.WithParallel(!opt.Sequential),
		ingest.WithIncludeUnknown(opt.IncludeUnknown),
		ingest.WithJob("fitprobe"),
	}
	if opt.Decoder != nil {
		opts = append(opts, ingest.WithDecoder(opt.Decoder))
	}
	c := ingest.New(nil, d, opts...)

	units := c.DecodeAll(ctx, sources)
	s := c.BuildSchema(units)
	tables := ingest.PlanTables(s, d)

	res := Result{Backend: opt.Backend}
	var sums []schema.Summarizer
	files := map[string]int{}
	rows := map[string]int{}
	for _, u := range units {
		fi := FileInfo{Name: u.Name()}
		if !u.OK() {
			fi.Error = u.Err.Error()
			res.Files = append(res.Files, fi)
			continue
		}
		fi.Hash, fi.Rows = u.Hash, u.Summary.Rows()
		for _, m := range u.Mismatches {
			fi.Mismatches = append(fi.Mismatches, m.String())
		}
		res.Files = append(res.Files, fi)

		sums = append(sums, u.Summary)
		for name, info := range u.Summary.MessageInfos() {
			files[name]++
			rows[name] += info.Rows
		}
	}

	observed := schema.CollectFieldTypes(sums...)
	for _, mt := range s.MessageTypes() {
		t := tables.Messages[mt]
		m := Message{MessageType: mt, Table: t.Def.FQN, Files: files[mt], Rows: rows[mt]}
		for _, f := range t.Fields {
			fd := Field{Name: f, Column: t.Columns[f], Type: t.Types[f].String()}
			if set := observed[mt][f]; len(set) > 1 {
				for _, ct := range set.Sorted() {
					fd.Observed = append(fd.Observed, ct.String())
				}
			}
			m.Fields = append(m.Fields, fd)
		}
		res.Messages = append(res.Messages, m)
	}

	if opt.DDL {
		stmt, err := d.CreateTableSQL(tables.Registry)
		if err != nil {
			return res, fmt.Errorf("probe: render %s: %w", tables.Registry.FQN, err)
		}
		res.DDL = append(res.DDL, stmt)
		for _, mt := range s.MessageTypes() {
			def := tables.Messages[mt].Def
			stmt, err := d.CreateTableSQL(def)
			if err != nil {
				return res, fmt.Errorf("probe: render %s: %w", def.FQN, err)
			}
			res.DDL = append(res.DDL, stmt)
		}
	}
	return res, nil
}

// Failed returns the names of files that did not decode.
func (r Result) Failed() []string {
	var out []string
	for _, f := range r.Files {
		if f.Error != "" {
			out = append(out, f.Name)
		}
	}
	sort.Strings(out)
	return out
}

// JSON renders the result, indented when pretty is set.
func (r Result) JSON(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}
