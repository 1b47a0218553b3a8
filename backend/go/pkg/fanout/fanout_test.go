package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapPreservesOrder(t *testing.T) {
	inputs := []int{5, 3, 1, 4, 2}

	results := Map(context.Background(), 4, inputs, func(_ context.Context, i int, v int) (string, error) {
		// Stagger completion so goroutines finish out of submission order.
		time.Sleep(time.Duration(v) * time.Millisecond)
		return fmt.Sprintf("%d:%d", i, v), nil
	})

	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, r := range results {
		want := fmt.Sprintf("%d:%d", i, inputs[i])
		if r.Value != want {
			t.Errorf("result[%d] = %q, want %q", i, r.Value, want)
		}
		if r.Index != i {
			t.Errorf("result[%d].Index = %d", i, r.Index)
		}
	}
}

func TestMapSequentialEquivalence(t *testing.T) {
	inputs := []int{1, 2, 3}
	boom := errors.New("boom")

	fn := func(_ context.Context, _ int, v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v * 10, nil
	}

	seq := Map(context.Background(), 1, inputs, fn)
	par := Map(context.Background(), 3, inputs, fn)

	for i := range inputs {
		if seq[i].Value != par[i].Value || !errors.Is(seq[i].Err, par[i].Err) && seq[i].Err != par[i].Err {
			t.Errorf("sequential and parallel results diverge at %d: %+v vs %+v", i, seq[i], par[i])
		}
	}
	if seq[1].Err != boom {
		t.Errorf("expected per-item error for input 2, got %v", seq[1].Err)
	}
	if seq[0].Value != 10 || seq[2].Value != 30 {
		t.Errorf("unexpected values: %+v", seq)
	}
}

func TestMapRespectsLimit(t *testing.T) {
	var inFlight, peak int64
	inputs := make([]int, 20)

	Map(context.Background(), 3, inputs, func(_ context.Context, _ int, _ int) (struct{}, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return struct{}{}, nil
	})

	if peak > 3 {
		t.Errorf("concurrency peak %d exceeds limit 3", peak)
	}
}

func TestMapCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Map(ctx, 2, []int{1, 2}, func(_ context.Context, _ int, v int) (int, error) {
		return v, nil
	})

	for i, r := range results {
		if r.Err == nil {
			t.Errorf("result[%d] expected cancellation error", i)
		}
	}
}
