// Package file implements local filesystem data sources.
package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/jonasinn/fitextractor/internal/datasource"
)

// Local is a filesystem data source that opens files from the local disk.
// Paths ending in ".gz" are transparently decompressed, so "ride.fit.gz" reads
// exactly like "ride.fit".
type Local struct{ path string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured filesystem path.
func (l *Local) Path() string { return l.path }

// Name returns the base filename with any ".gz" suffix removed.
func (l *Local) Name() string {
	return strings.TrimSuffix(filepath.Base(l.path), ".gz")
}

// Open opens the configured path for reading.
//
// If the context is already done, Open returns the context error without
// touching the filesystem. Filesystem errors are wrapped with the path while
// still permitting errors.Is checks (e.g. os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	if !strings.HasSuffix(l.path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gunzip %s: %w", l.path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return zerr
}

// Bytes is an in-memory data source, used for payloads that arrive as an
// already-open stream.
type Bytes struct {
	name string
	data []byte
}

var _ datasource.Source = (*Bytes)(nil)

// NewBytes returns a source serving data under the given name.
func NewBytes(name string, data []byte) *Bytes { return &Bytes{name: name, data: data} }

// FromReader drains r into memory so the payload can be re-read.
func FromReader(name string, r io.Reader) (*Bytes, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return NewBytes(name, b), nil
}

func (b *Bytes) Name() string { return b.name }

func (b *Bytes) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}
