package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"landwatch/internal/land"
)

type countingRunnable struct {
	runs   *int32
	panics int32 // panic on this many first runs, then run cleanly
}

func (r *countingRunnable) Run(ctx context.Context) error {
	n := atomic.AddInt32(r.runs, 1)
	if n <= r.panics {
		panic("boom")
	}
	<-ctx.Done()
	return nil
}

func TestSupervisorSpawnsOneWorkerPerLand(t *testing.T) {
	var starts int32
	sup := New(5, func(l land.Id) Runnable {
		atomic.AddInt32(&starts, 1)
		return &countingRunnable{runs: new(int32)}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { sup.Run(ctx); close(done) }()

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&starts); got != 5 {
		t.Fatalf("spawned %d workers, want 5", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSupervisorRestartsOnPanic(t *testing.T) {
	var runs int32
	runnable := &countingRunnable{runs: &runs, panics: 2}

	sup := New(1, func(l land.Id) Runnable { return runnable })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	// two panics each incur at least initialBackoff before respawn
	time.Sleep(4 * initialBackoff)
	if got := atomic.LoadInt32(&runs); got < 3 {
		t.Fatalf("expected at least 3 runs after panics+respawns, got %d", got)
	}
}
