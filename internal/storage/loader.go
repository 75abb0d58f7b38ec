package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/som4n/DataLake/internal/table"
)

// CopyFn abstracts a backend's bulk insert. Implementations insert rows
// aligned to columns and return the number reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error.
//
// Cancellation returns (total, ctx.Err()). Progress is logged at debug level
// on each successful flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
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
		total     int64
		batches   int64
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
		lastTotal int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			slog.ErrorContext(ctx, "loader: copy failed", "inserted", n, "total", total, "error", err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlush)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		slog.DebugContext(ctx, "loader: batch flushed",
			"batch", batches,
			"rps", int64(rps),
			"inserted", n,
			"total", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond))
		lastFlush = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// StreamRows sends every row of tbl to a new channel, closing it when done
// or when ctx is canceled.
func StreamRows(ctx context.Context, tbl *table.Table) <-chan []any {
	out := make(chan []any)
	go func() {
		defer close(out)
		for i := 0; i < tbl.NumRows(); i++ {
			select {
			case out <- tbl.Row(i):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
