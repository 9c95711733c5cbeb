// Package store implements the StateStore port: a per-land durable cache
// with TTL eviction, an aggregate index, and pub/sub fan-out, backed by
// Redis.
package store

import (
	"context"
	"fmt"

	"landwatch/internal/land"
)

const (
	landKeyPrefix = "app:land:"
	landKeySuffix = ":state"
	aggregateKey  = "app:lands:states"
	updateChannel = "app:lands:states:channel"
)

func landKey(l land.Id) string {
	return fmt.Sprintf("%s%d%s", landKeyPrefix, l, landKeySuffix)
}

// StateStore is the port consumed by LandWorker, the HTTP API, the
// StreamBroadcaster, and the chat bot. Any implementation offering
// GET/SET-with-TTL/HGETALL/PUBLISH/SUBSCRIBE can satisfy it; tests use an
// in-memory fake.
type StateStore interface {
	// Put overwrites the snapshot for land, atomically, with the given TTL
	// in seconds, and updates the aggregate all-lands index.
	Put(ctx context.Context, l land.Id, snap land.CachedSnapshot, ttlSeconds int) error
	// Get returns the current snapshot for land, or nil if absent/expired.
	Get(ctx context.Context, l land.Id) (*land.CachedSnapshot, error)
	// Keys returns the set of land ids with a live snapshot.
	Keys(ctx context.Context) ([]land.Id, error)
	// CachedLandIds returns the land ids present in the aggregate
	// "all-lands" index written by Put, for the bulk-listing endpoint. The
	// aggregate index is a write-time record, not TTL-aware like Keys: a
	// land whose per-key snapshot just expired may still appear until its
	// next Put.
	CachedLandIds(ctx context.Context) ([]land.Id, error)
	// Publish delivers event to every active subscriber.
	Publish(ctx context.Context, event land.UpdateEvent) error
	// Subscribe returns a channel of UpdateEvents, live until ctx is
	// cancelled. The returned channel is closed on cancellation or
	// unrecoverable subscription error.
	Subscribe(ctx context.Context) (<-chan land.UpdateEvent, error)
}
