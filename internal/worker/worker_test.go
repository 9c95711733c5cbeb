package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"landwatch/internal/land"
	"landwatch/internal/store"
)

type fakeDispatch struct {
	raw   land.RawState
	err   error
	calls int32
}

func (f *fakeDispatch) Fetch(ctx context.Context, l land.Id) (land.RawState, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func unblockedRaw(tokenID string) land.RawState {
	return land.RawState{
		"permissions": map[string]interface{}{"use": []interface{}{"ANY"}},
		"nft":         map[string]interface{}{"tokenId": tokenID},
		"entities":    map[string]interface{}{},
		"players":     []interface{}{},
	}
}

func TestTickOnCacheMissFetchesParsesAndPersists(t *testing.T) {
	st := store.NewMemoryStore()
	dispatch := &fakeDispatch{raw: unblockedRaw("1")}
	w := New(1, st, dispatch)

	sleep, err := w.tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sleep != 86400*time.Second {
		t.Fatalf("sleep=%v, want 86400s for an idle land", sleep)
	}
	if atomic.LoadInt32(&dispatch.calls) != 1 {
		t.Fatalf("expected exactly one fetch call")
	}

	snap, err := st.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a persisted snapshot")
	}
}

func TestTickOnLiveCacheSkipsFetch(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	_ = st.Put(ctx, 1, land.CachedSnapshot{ExpiresAt: time.Now().Add(time.Hour)}, 3600)

	dispatch := &fakeDispatch{raw: unblockedRaw("1")}
	w := New(1, st, dispatch)

	sleep, err := w.tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sleep <= 0 {
		t.Fatalf("expected a positive sleep for a live cache hit, got %v", sleep)
	}
	if atomic.LoadInt32(&dispatch.calls) != 0 {
		t.Fatalf("expected no fetch call on a cache hit")
	}
}

func TestTickOnTransientFetchErrorBacksOff(t *testing.T) {
	st := store.NewMemoryStore()
	dispatch := &fakeDispatch{err: context.DeadlineExceeded}
	w := New(1, st, dispatch)

	sleep, err := w.tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sleep < 60*time.Second || sleep > 300*time.Second {
		t.Fatalf("sleep=%v, want in [60s,300s]", sleep)
	}
}

func TestTickPublishesOnlyAfterFreshPut(t *testing.T) {
	st := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := st.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	dispatch := &fakeDispatch{raw: unblockedRaw("7")}
	w := New(7, st, dispatch)
	if _, err := w.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	select {
	case event := <-ch:
		if event.LandNumber != 7 {
			t.Fatalf("landNumber=%d, want 7", event.LandNumber)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a publish after a fresh put")
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	st := store.NewMemoryStore()
	_ = st.Put(context.Background(), 1, land.CachedSnapshot{ExpiresAt: time.Now().Add(time.Hour)}, 3600)
	dispatch := &fakeDispatch{raw: unblockedRaw("1")}
	w := New(1, st, dispatch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on cancellation: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop promptly after cancellation")
	}
}
