// Package fetch implements the bounded-concurrency FetchDispatcher: the
// only component allowed to call the external RawStateFetcher, gated by a
// process-wide semaphore, a per-call timeout, empty-result retries, and
// optional proxy rotation.
package fetch

import (
	"context"
	"log"
	"time"

	"landwatch/internal/land"
	"landwatch/internal/proxy"
)

// RawStateFetcher is the opaque external collaborator that extracts a raw
// game-state blob from a browser-rendered land page. A nil, nil result
// means "not ready yet" and triggers Dispatcher's retry-on-empty loop.
type RawStateFetcher interface {
	FetchOnce(ctx context.Context, l land.Id, p *proxy.Settings) (land.RawState, error)
}

// Dispatcher bounds concurrent calls into a RawStateFetcher, applies a
// per-call timeout, retries empty results, and rotates an optional proxy.
type Dispatcher struct {
	fetcher     RawStateFetcher
	yielder     proxy.Yielder
	sem         chan struct{}
	timeout     time.Duration
	retryEvery  time.Duration
	logger      *log.Logger
}

// Config configures a Dispatcher.
type Config struct {
	Concurrency int
	Timeout     time.Duration
	Yielder     proxy.Yielder // nil disables proxy rotation
}

// NewDispatcher builds a Dispatcher with a concurrency semaphore sized to
// cfg.Concurrency and a per-call timeout of cfg.Timeout.
func NewDispatcher(fetcher RawStateFetcher, cfg Config) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Dispatcher{
		fetcher:    fetcher,
		yielder:    cfg.Yielder,
		sem:        make(chan struct{}, cfg.Concurrency),
		timeout:    cfg.Timeout,
		retryEvery: time.Second,
		logger:     log.New(log.Writer(), "fetch: ", log.LstdFlags),
	}
}

// Fetch acquires the concurrency semaphore, invokes the external fetcher
// under a timeout, and retries on an empty result once a second until the
// timeout elapses or a non-empty value is returned.
func (d *Dispatcher) Fetch(ctx context.Context, l land.Id) (land.RawState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-d.sem }()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var p *proxy.Settings
	if d.yielder != nil {
		p = d.yielder.Next()
	}

	maxAttempts := int(d.timeout / d.retryEvery)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		raw, err := d.fetcher.FetchOnce(ctx, l, p)
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			return raw, nil
		}

		select {
		case <-time.After(d.retryEvery):
		case <-ctx.Done():
			return nil, ErrFetchTimeout
		}
	}

	return nil, ErrEmptyState
}
