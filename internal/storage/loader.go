package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultBatchSize bounds the rows sent per bulk call.
const DefaultBatchSize = 1000

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to columns) and return the number inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// CopyBatches splits rows into batches of batchSize and calls copyFn for each.
// It returns the total reported by copyFn and the first error. Progress is
// logged per batch when verbose is set.
func CopyBatches(
	ctx context.Context,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
	verbose bool,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("storage: batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("storage: copyFn must not be nil")
	}

	var (
		total   int64
		batches int
		start   = time.Now()
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))
		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		if err != nil {
			log.Printf("loader: copy failed batch=%d total=%d err=%v", batches+1, total, err)
			return total, err
		}
		batches++
		if verbose {
			log.Printf("loader: batch=%d inserted=%d total=%d elapsed=%s",
				batches, n, total, time.Since(start).Truncate(time.Millisecond))
		}
	}
	return total, nil
}
