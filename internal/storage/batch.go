// This file implements the batched copy helper backends use to split a large
// insert into statements of bounded size.
//
// Logging: when progress logging is enabled, a concise line is emitted per
// flushed batch with running totals and rows/sec since the previous flush.

package storage

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to 'columns' order) and return the number of rows
// reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

var progress atomic.Bool

// SetProgressLogging toggles the per-batch progress lines.
func SetProgressLogging(on bool) { progress.Store(on) }

// CopyBatches splits rows into batches of at most batchSize and calls copyFn
// for each. It returns the total number of rows reported by copyFn and stops
// at the first error.
//
// Cancellation: returns (total, ctx.Err()) when canceled between batches.
func CopyBatches(
	ctx context.Context,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total       int64
		batches     int64
		start       = time.Now()
		lastFlushTS = start
	)

	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := lo + batchSize
		if hi > len(rows) {
			hi = len(rows)
		}

		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		if err != nil {
			log.Printf("storage: copy failed batch=%d after=%d total=%d err=%v", batches+1, n, total, err)
			return total, err
		}

		batches++
		if progress.Load() {
			now := time.Now()
			sinceLast := now.Sub(lastFlushTS)
			rps := float64(0)
			if sinceLast > 0 {
				rps = float64(n) / sinceLast.Seconds()
			}
			log.Printf(
				"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
				batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond),
			)
			lastFlushTS = now
		}
	}
	return total, nil
}

// BatchSize returns how many rows of width columns fit under a bind
// parameter limit, never less than one.
func BatchSize(maxParams, columns int) int {
	if columns <= 0 || maxParams <= columns {
		return 1
	}
	return maxParams / columns
}
