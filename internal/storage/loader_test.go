package storage

import (
	"context"
	"errors"
	"iter"
	"testing"
)

func seqOf(rows ...[]any) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func countRows(n int) [][]any {
	out := make([][]any, n)
	for i := range out {
		out[i] = []any{i, "x"}
	}
	return out
}

// TestLoadBatches_Basic verifies rows are grouped into batches and copyFn is
// called with the expected counts.
func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	var calls []int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		calls = append(calls, len(rows))
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"c1", "c2"}, seqOf(countRows(7)...), 3, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if len(calls) != 3 || calls[0] != 3 || calls[2] != 1 {
		t.Fatalf("batch sizes = %v, want [3 3 1]", calls)
	}
}

// TestLoadBatches_ErrorPropagation ensures the first copy error is propagated
// and processing stops after that batch.
func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("copy failed")
	var batches int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return 0, wantErr
		}
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"c"}, seqOf(countRows(6)...), 2, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 2 || batches != 2 {
		t.Fatalf("total = %d batches = %d, want 2 and 2", total, batches)
	}
}

// TestLoadBatches_SourceError stops at a failing row without flushing.
func TestLoadBatches_SourceError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("bad row")
	seq := func(yield func([]any, error) bool) {
		if !yield([]any{1}, nil) {
			return
		}
		yield(nil, wantErr)
	}
	var calls int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		calls++
		return int64(len(rows)), nil
	}
	_, err := LoadBatches(context.Background(), []string{"c"}, seq, 10, copyFn)
	if !errors.Is(err, wantErr) || calls != 0 {
		t.Fatalf("err = %v calls = %d, want bad row and 0", err, calls)
	}
}

// TestLoadBatches_ContextCancel checks the loader exits on cancellation.
func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		return int64(len(rows)), nil
	}
	if _, err := LoadBatches(ctx, []string{"c"}, seqOf(countRows(3)...), 2, copyFn); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLoadBatches_BadArgs(t *testing.T) {
	t.Parallel()

	if _, err := LoadBatches(context.Background(), nil, seqOf(), 0, nil); err == nil {
		t.Fatalf("batchSize 0: want error")
	}
	if _, err := LoadBatches(context.Background(), nil, seqOf(), 1, nil); err == nil {
		t.Fatalf("nil copyFn: want error")
	}
}
