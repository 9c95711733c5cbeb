package store

import (
	"context"
	"testing"
	"time"

	"landwatch/internal/land"
)

func TestMemoryStorePutThenGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	snap := land.CachedSnapshot{CreatedAt: time.Now(), Raw: land.RawState{"x": 1.0}}

	if err := s.Put(ctx, 1, snap, 60); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected snapshot, got nil")
	}
}

func TestMemoryStoreGetMissReturnsNil(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.Get(context.Background(), 999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing land")
	}
}

func TestMemoryStorePutOverwritesPriorSnapshot(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Put(ctx, 1, land.CachedSnapshot{Raw: land.RawState{"v": 1.0}}, 60)
	_ = s.Put(ctx, 1, land.CachedSnapshot{Raw: land.RawState{"v": 2.0}}, 60)

	got, _ := s.Get(ctx, 1)
	if got.Raw["v"] != 2.0 {
		t.Fatalf("expected overwritten value 2.0, got %v", got.Raw["v"])
	}
}

func TestMemoryStoreExpiredEntryIsAbsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Put(ctx, 1, land.CachedSnapshot{}, 0)
	time.Sleep(5 * time.Millisecond)

	got, _ := s.Get(ctx, 1)
	if got != nil {
		t.Fatalf("expected expired entry to read as absent")
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 0 {
		t.Fatalf("expected no live keys, got %v", keys)
	}
}

func TestMemoryStoreSubscribeReceivesPublishedEvent(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	event := land.UpdateEvent{LandNumber: 5}
	if err := s.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.LandNumber != 5 {
			t.Fatalf("landNumber=%d, want 5", got.LandNumber)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestMemoryStoreSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := s.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = s.Publish(ctx, land.UpdateEvent{LandNumber: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full, unread subscriber channel")
	}
}

func TestMemoryStoreSubscribeClosesOnContextCancel(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel to close, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
