package storage

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"
)

// CopyFn inserts rows aligned to columns and returns how many were written.
// It must not retain rows after returning.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains seq into batches of batchSize and hands each non-empty
// batch to copyFn. It returns the total copyFn reported and the first error
// from either side. The batch slice is reused between calls.
func LoadBatches(ctx context.Context, columns []string, seq iter.Seq2[[]any, error], batchSize int, copyFn CopyFn) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	p := newProgress()
	batch := make([][]any, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		batch = batch[:0]
		p.add(n)
		if err != nil {
			log.Printf("loader: batch #%d failed inserted=%d total=%d err=%v", p.batches+1, n, p.total, err)
			return err
		}
		p.logBatch(n)
		return nil
	}

	for row, err := range seq {
		if err != nil {
			return p.total, err
		}
		if err := ctx.Err(); err != nil {
			return p.total, err
		}
		batch = append(batch, row)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return p.total, err
			}
		}
	}
	tail := len(batch)
	if err := flush(); err != nil {
		return p.total, err
	}
	log.Printf("loader: drained final_batch=%d total_inserted=%d elapsed=%s", tail, p.total, time.Since(p.start).Truncate(time.Millisecond))
	return p.total, nil
}

// progress tracks throughput between batches for the log lines.
type progress struct {
	start, last time.Time
	total       int64
	lastTotal   int64
	batches     int
}

func newProgress() *progress {
	now := time.Now()
	return &progress{start: now, last: now}
}

func (p *progress) add(n int64) { p.total += n }

func (p *progress) logBatch(n int64) {
	p.batches++
	now := time.Now()
	since := now.Sub(p.last)
	var rps float64
	if since > 0 {
		rps = float64(p.total-p.lastTotal) / since.Seconds()
	}
	log.Printf("loader: batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
		p.batches, rps, n, p.total, now.Sub(p.start).Truncate(time.Millisecond), since.Truncate(time.Millisecond))
	p.last, p.lastTotal = now, p.total
}
