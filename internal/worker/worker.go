// Package worker implements LandWorker: the per-land state machine that
// checks the cache, dispatches a fetch on miss, parses and applies the
// refresh policy, and persists/publishes the result before sleeping until
// the next refresh.
package worker

import (
	"context"
	"log"
	"math/rand"
	"time"

	"landwatch/internal/fetch"
	"landwatch/internal/land"
	"landwatch/internal/policy"
	"landwatch/internal/store"
)

// Fetcher is the subset of Dispatcher a LandWorker needs.
type Fetcher interface {
	Fetch(ctx context.Context, l land.Id) (land.RawState, error)
}

// Worker runs the Idle→Checking→Fetching→Persisting→Publishing→Sleeping
// loop for a single land until its context is cancelled.
type Worker struct {
	Land      land.Id
	Store     store.StateStore
	Dispatch  Fetcher
	now       func() time.Time
	logger    *log.Logger
}

// New builds a Worker for a single land.
func New(l land.Id, st store.StateStore, dispatcher Fetcher) *Worker {
	return &Worker{
		Land:     l,
		Store:    st,
		Dispatch: dispatcher,
		now:      time.Now,
		logger:   log.New(log.Writer(), "worker: ", log.LstdFlags),
	}
}

// Run blocks, executing the worker's loop, until ctx is cancelled. It never
// returns an error for transient conditions; those are logged and retried
// on the next tick. A cancelled context causes Run to return nil.
func (w *Worker) Run(ctx context.Context) error {
	for {
		sleep, err := w.tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := w.sleepFor(ctx, sleep); err != nil {
			return nil
		}
	}
}

// tick performs one pass of Checking→Fetching→Persisting→Publishing and
// returns how long to sleep before the next pass.
func (w *Worker) tick(ctx context.Context) (time.Duration, error) {
	now := w.now()

	snap, err := w.Store.Get(ctx, w.Land)
	if err != nil {
		w.logger.Printf("land %d: store get failed: %v", w.Land, err)
		return shortBackoff(), nil
	}
	if snap != nil && snap.ExpiresAt.After(now) {
		return snap.ExpiresAt.Sub(now), nil
	}

	raw, err := w.Dispatch.Fetch(ctx, w.Land)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		w.logger.Printf("land %d: fetch failed: %v", w.Land, err)
		return shortBackoff(), nil
	}

	parsed, err := land.Parse(raw)
	if err != nil {
		w.logger.Printf("land %d: parse failed: %v", w.Land, err)
		return shortBackoff(), nil
	}

	ttl := policy.NextDelay(parsed, now)
	snapshot := land.CachedSnapshot{
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(ttl) * time.Second),
		Raw:       raw,
	}

	if err := w.Store.Put(ctx, w.Land, snapshot, ttl); err != nil {
		w.logger.Printf("land %d: store put failed: %v", w.Land, err)
		return shortBackoff(), nil
	}

	event := land.UpdateEvent{
		LandNumber: int(w.Land),
		CreatedAt:  snapshot.CreatedAt,
		ExpiresAt:  snapshot.ExpiresAt,
		Raw:        snapshot.Raw,
	}
	if err := w.Store.Publish(ctx, event); err != nil {
		w.logger.Printf("land %d: publish failed: %v", w.Land, err)
	}

	return time.Duration(ttl) * time.Second, nil
}

func (w *Worker) sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shortBackoff is the random [60,300]s sleep used for transient fetch and
// parse failures, avoiding a thundering herd of immediate retries.
func shortBackoff() time.Duration {
	return time.Duration(60+rand.Intn(241)) * time.Second
}
