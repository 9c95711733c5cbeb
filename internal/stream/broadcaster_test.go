package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"landwatch/internal/land"
	"landwatch/internal/store"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []envelope
	failOn   int // fail the call at this index (0-based); -1 never fails
	calls    int
}

func (s *recordingSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.calls
	s.calls++
	if s.failOn >= 0 && n == s.failOn {
		return errors.New("connection closed")
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	s.messages = append(s.messages, env)
	return nil
}

func (s *recordingSender) snapshot() []envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]envelope, len(s.messages))
	copy(out, s.messages)
	return out
}

func seedSnapshot(t *testing.T, st store.StateStore, l land.Id) {
	t.Helper()
	ctx := context.Background()
	if err := st.Put(ctx, l, land.CachedSnapshot{
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
		Raw:       land.RawState{"nft": map[string]interface{}{"tokenId": "1"}},
	}, 60); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func TestServeSessionBackfillsCachedSnapshots(t *testing.T) {
	st := store.NewMemoryStore()
	seedSnapshot(t, st, land.Id(2))
	seedSnapshot(t, st, land.Id(4))

	b := New(st, 5, 16)
	sender := &recordingSender{failOn: -1}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.ServeSession(ctx, sender)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	msgs := sender.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 backfilled snapshots, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.Message.Type != "cached" {
			t.Errorf("expected type cached, got %s", m.Message.Type)
		}
	}
}

func TestServeSessionForwardsLiveUpdates(t *testing.T) {
	st := store.NewMemoryStore()
	b := New(st, 0, 16)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go b.Run(runCtx)

	sender := &recordingSender{failOn: -1}
	sessionCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.ServeSession(sessionCtx, sender)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	if err := st.Publish(context.Background(), land.UpdateEvent{LandNumber: 7}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		msgs := sender.snapshot()
		if len(msgs) == 1 && msgs[0].Message.LandNumber == 7 && msgs[0].Message.Type == "update" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for live update, got %v", msgs)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeSession did not return after context cancel")
	}
}

func TestServeSessionStopsOnSenderError(t *testing.T) {
	st := store.NewMemoryStore()
	seedSnapshot(t, st, land.Id(1))
	seedSnapshot(t, st, land.Id(2))
	seedSnapshot(t, st, land.Id(3))

	b := New(st, 3, 16)
	sender := &recordingSender{failOn: 1}

	done := make(chan struct{})
	go func() {
		b.ServeSession(context.Background(), sender)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeSession did not return after sender error")
	}
}

func TestServeSessionUnsubscribesOnExit(t *testing.T) {
	st := store.NewMemoryStore()
	b := New(st, 0, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.ServeSession(ctx, &recordingSender{failOn: -1})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	b.bus.mu.RLock()
	count := len(b.bus.subscribers)
	b.bus.mu.RUnlock()
	if count != 0 {
		t.Fatalf("expected subscriber to be removed from bus, got %d remaining", count)
	}
}
