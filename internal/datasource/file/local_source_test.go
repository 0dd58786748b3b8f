package file

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeGzip(t *testing.T, path string, payload []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
}

// TestLocalOpen covers plain and compressed files, missing files, and a
// pre-canceled context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name            string
		prepare         func(t *testing.T) string // returns path to open
		canceled        bool
		wantErrIs       error  // checked via errors.Is
		wantErrContains string // substring expected in error message
		wantContent     string
	}

	cases := []tc{
		{
			name: "success_reads_content",
			prepare: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "data.fit")
				if err := os.WriteFile(p, []byte("hello\nworld"), 0o644); err != nil {
					t.Fatalf("write test file: %v", err)
				}
				return p
			},
			wantContent: "hello\nworld",
		},
		{
			name: "gzip_is_transparent",
			prepare: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "data.fit.gz")
				writeGzip(t, p, []byte("compressed payload"))
				return p
			},
			wantContent: "compressed payload",
		},
		{
			name: "corrupt_gzip_errors",
			prepare: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "data.fit.gz")
				if err := os.WriteFile(p, []byte("not gzip"), 0o644); err != nil {
					t.Fatalf("write test file: %v", err)
				}
				return p
			},
			wantErrContains: "gunzip ",
		},
		{
			name: "missing_file_errors_with_wrapping",
			prepare: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.fit")
			},
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name: "pre_canceled_context_short_circuits",
			prepare: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "data.fit")
				if err := os.WriteFile(p, []byte("ignored"), 0o644); err != nil {
					t.Fatalf("write test file: %v", err)
				}
				return p
			},
			canceled:  true,
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			path := c.prepare(t)
			ctx := context.Background()
			if c.canceled {
				var cancel context.CancelFunc
				ctx, cancel = context.WithCancel(ctx)
				cancel()
			}

			rc, err := NewLocal(path).Open(ctx)

			if c.wantErrIs != nil || c.wantErrContains != "" {
				if err == nil {
					rc.Close()
					t.Fatalf("expected error, got nil")
				}
				if c.wantErrIs != nil && !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if c.wantErrContains != "" && !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain substring %q", err, c.wantErrContains)
				}
				if rc != nil {
					t.Fatalf("got non-nil ReadCloser on error: %T", rc)
				}
				return
			}

			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer rc.Close()

			got, rerr := io.ReadAll(rc)
			if rerr != nil {
				t.Fatalf("reading: %v", rerr)
			}
			if string(got) != c.wantContent {
				t.Fatalf("content mismatch: got %q, want %q", string(got), c.wantContent)
			}
		})
	}
}

func TestLocalName(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]string{
		"/data/rides/a.fit":      "a.fit",
		"/data/rides/b.fit.gz":   "b.fit",
		filepath.Join("c", "d"): "d",
	} {
		if got := NewLocal(path).Name(); got != want {
			t.Fatalf("NewLocal(%q).Name() = %q, want %q", path, got, want)
		}
	}
}

func TestBytes_Reopenable(t *testing.T) {
	t.Parallel()

	src, err := FromReader("stream.fit", strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if src.Name() != "stream.fit" {
		t.Fatalf("Name = %q", src.Name())
	}
	for i := 0; i < 2; i++ {
		rc, err := src.Open(context.Background())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		if string(b) != "abc" {
			t.Fatalf("read #%d = %q", i, b)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Open on canceled ctx: %v", err)
	}
}

// BenchmarkLocalOpen_Success measures the steady-state cost of opening a small file.
func BenchmarkLocalOpen_Success(b *testing.B) {
	p := filepath.Join(b.TempDir(), "data.fit")
	if err := os.WriteFile(p, []byte("payload"), 0o644); err != nil {
		b.Fatalf("write test file: %v", err)
	}

	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := rc.Close(); err != nil {
			b.Fatal(err)
		}
	}
}
