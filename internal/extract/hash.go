package extract

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
)

// hashChunk is the read size used when streaming a source through the digest.
const hashChunk = 4096

// ContentHash returns the hex MD5 digest of the raw payload. The digest is
// computed once; later calls return the cached value (or error).
func (e *Extractor) ContentHash(ctx context.Context) (string, error) {
	if e.hashed {
		return e.hash, e.hashErr
	}
	e.hash, e.hashErr = hashSource(ctx, e)
	e.hashed = true
	return e.hash, e.hashErr
}

func hashSource(ctx context.Context, e *Extractor) (string, error) {
	rc, err := e.src.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("extract: hash %s: %w", e.src.Name(), err)
	}
	defer rc.Close()

	h := md5.New()
	buf := make([]byte, hashChunk)
	if _, err := io.CopyBuffer(h, rc, buf); err != nil {
		return "", fmt.Errorf("extract: hash %s: %w", e.src.Name(), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
