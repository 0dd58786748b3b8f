// Package datasource defines the byte-stream boundary the extractor reads FIT
// payloads from.
package datasource

import (
	"context"
	"io"
)

// Source is a named, re-openable byte stream. Open may be called more than
// once (decode, hashing and the registry insert each read the payload); every
// call returns a fresh reader positioned at the start.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name is the display name recorded in the registry (usually a base
	// filename).
	Name() string
}
