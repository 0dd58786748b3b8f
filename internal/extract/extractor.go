// Package extract decodes one FIT source into per-message-type occurrences and
// projects them into tables with inferred column types.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jonasinn/fitextractor/internal/datasource"
	"github.com/jonasinn/fitextractor/internal/fit"
)

// unknownPrefix marks message and field names the FIT profile does not define.
const unknownPrefix = "unknown"

// Occurrence is the ordered field list of one data frame.
type Occurrence []fit.Field

// Option configures an Extractor.
type Option func(*Extractor)

// WithIncludeUnknown keeps messages and fields the profile does not name.
func WithIncludeUnknown(v bool) Option {
	return func(e *Extractor) { e.includeUnknown = v }
}

// Extractor holds the decoded content of one source. It is not safe for
// concurrent use; one goroutine owns it at a time.
type Extractor struct {
	src            datasource.Source
	dec            fit.Decoder
	includeUnknown bool

	processed  bool
	processErr error

	header   *fit.Header
	crc      *fit.CRC
	order    []string
	messages map[string][]Occurrence

	hashed  bool
	hash    string
	hashErr error

	summarized bool
	summary    Summary
}

// New returns an unprocessed Extractor for src.
func New(src datasource.Source, dec fit.Decoder, opts ...Option) *Extractor {
	e := &Extractor{src: src, dec: dec, messages: map[string][]Occurrence{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Source returns the underlying data source.
func (e *Extractor) Source() datasource.Source { return e.src }

// Processed reports whether Process has completed successfully.
func (e *Extractor) Processed() bool { return e.processed && e.processErr == nil }

// Process decodes the source. Only the first call does any work; later calls
// return the first result.
func (e *Extractor) Process(ctx context.Context) error {
	if e.processed {
		return e.processErr
	}
	e.processErr = e.process(ctx)
	e.processed = true
	if e.processErr != nil {
		e.header, e.crc, e.order = nil, nil, nil
		e.messages = map[string][]Occurrence{}
	}
	return e.processErr
}

func (e *Extractor) process(ctx context.Context) error {
	rc, err := e.src.Open(ctx)
	if err != nil {
		return &DecodeError{Source: e.src.Name(), Err: err}
	}
	defer rc.Close()

	if err := e.dec.Decode(ctx, rc, e.accept); err != nil {
		return &DecodeError{Source: e.src.Name(), Err: err}
	}
	return nil
}

func (e *Extractor) accept(f fit.Frame) error {
	switch f.Kind {
	case fit.FrameHeader:
		e.header = f.Header
	case fit.FrameCRC:
		e.crc = f.CRC
	case fit.FrameData:
		e.addData(f)
	}
	return nil
}

func (e *Extractor) addData(f fit.Frame) {
	if f.Name == "" {
		return
	}
	if !e.includeUnknown && isUnknown(f.Name) {
		return
	}

	occ := make(Occurrence, 0, len(f.Fields))
	for _, fld := range f.Fields {
		if !e.includeUnknown && isUnknown(fld.Name) {
			continue
		}
		occ = append(occ, fld)
	}
	if len(occ) == 0 {
		return
	}

	if _, ok := e.messages[f.Name]; !ok {
		e.order = append(e.order, f.Name)
	}
	e.messages[f.Name] = append(e.messages[f.Name], occ)
}

func isUnknown(name string) bool { return strings.HasPrefix(name, unknownPrefix) }

// Header returns the decoded file header, nil before Process or when the
// decoder emitted none.
func (e *Extractor) Header() *fit.Header { return e.header }

// CRC returns the trailing checksum frame, if any.
func (e *Extractor) CRC() *fit.CRC { return e.crc }

// MessageTypes returns the message types in the order they first appeared.
func (e *Extractor) MessageTypes() []string {
	return append([]string(nil), e.order...)
}

// Occurrences returns the occurrences of a message type in file order.
func (e *Extractor) Occurrences(messageType string) []Occurrence {
	return e.messages[messageType]
}

// RawBytes reads the whole payload.
func (e *Extractor) RawBytes(ctx context.Context) ([]byte, error) {
	rc, err := e.src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: open %s: %w", e.src.Name(), err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", e.src.Name(), err)
	}
	return b, nil
}

// errNotProcessed is wrapped by Summary when called too early.
var errNotProcessed = errors.New("extract: source not processed")
