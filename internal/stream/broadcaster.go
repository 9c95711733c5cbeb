// Package stream implements StreamBroadcaster: it maintains a single live
// subscription to the StateStore's update channel and multiplexes it, via
// an in-process event bus, to many WebSocket sessions with per-session
// backpressure.
package stream

import (
	"context"
	"encoding/json"
	"log"

	"landwatch/internal/eventbus"
	"landwatch/internal/land"
	"landwatch/internal/store"

	"github.com/google/uuid"
)

// Message is the envelope sent to every WebSocket session, matching the
// documented protocol: {message:{type, landNumber, createdAt, expiresAt, state}}.
type Message struct {
	Type       string        `json:"type"`
	LandNumber int           `json:"landNumber"`
	CreatedAt  interface{}   `json:"createdAt"`
	ExpiresAt  interface{}   `json:"expiresAt"`
	State      land.RawState `json:"state"`
}

type envelope struct {
	Message Message `json:"message"`
}

// Broadcaster owns the single store subscription and the in-process bus
// that fans it out to sessions.
type Broadcaster struct {
	store     store.StateStore
	maxLand   int
	queueSize int
	bus       *eventbus.Bus
	logger    *log.Logger
}

// New builds a Broadcaster for lands [1, maxLand] with a per-session queue
// of the given size.
func New(st store.StateStore, maxLand, queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Broadcaster{
		store:     st,
		maxLand:   maxLand,
		queueSize: queueSize,
		bus:       eventbus.New(),
		logger:    log.New(log.Writer(), "stream: ", log.LstdFlags),
	}
}

// Run opens the single store subscription and republishes every event onto
// the in-process bus until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	updates, err := b.store.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case event, ok := <-updates:
			if !ok {
				return nil
			}
			b.bus.Publish(event)
		case <-ctx.Done():
			return nil
		}
	}
}

// Sender is the capability set a session transport (e.g. a WebSocket
// connection) must offer: write a marshaled message, or report closure.
type Sender interface {
	Send(payload []byte) error
}

// ServeSession runs one client session end to end: backfill every
// currently cached land, then forward live updates, until ctx is
// cancelled or the sender reports an error.
func (b *Broadcaster) ServeSession(ctx context.Context, sender Sender) {
	sessionID := uuid.NewString()
	b.logger.Printf("session %s: connected", sessionID)
	defer b.logger.Printf("session %s: disconnected", sessionID)

	session := newSession(b.queueSize)
	b.bus.Subscribe(session.updates)
	// Unsubscribe (write lock) must complete before close, so no in-flight
	// Publish (read lock) can still be holding this channel when it closes.
	defer close(session.updates)
	defer b.bus.Unsubscribe(session.updates)

	if err := b.backfill(ctx, sender); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-session.updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(envelope{Message: Message{
				Type:       "update",
				LandNumber: event.LandNumber,
				CreatedAt:  event.CreatedAt,
				ExpiresAt:  event.ExpiresAt,
				State:      event.Raw,
			}})
			if err != nil {
				continue
			}
			if err := sender.Send(payload); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *Broadcaster) backfill(ctx context.Context, sender Sender) error {
	for n := 1; n <= b.maxLand; n++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		snap, err := b.store.Get(ctx, land.Id(n))
		if err != nil {
			b.logger.Printf("backfill: land %d: %v", n, err)
			continue
		}
		if snap == nil {
			continue
		}
		payload, err := json.Marshal(envelope{Message: Message{
			Type:       "cached",
			LandNumber: n,
			CreatedAt:  snap.CreatedAt,
			ExpiresAt:  snap.ExpiresAt,
			State:      snap.Raw,
		}})
		if err != nil {
			continue
		}
		if err := sender.Send(payload); err != nil {
			return err
		}
	}
	return nil
}

// session holds one client's bounded update queue. When the queue is full,
// the bus drops the incoming update rather than blocking the broadcaster;
// the updates already queued are kept, so the oldest are not evicted.
type session struct {
	updates chan land.UpdateEvent
}

func newSession(queueSize int) *session {
	return &session{updates: make(chan land.UpdateEvent, queueSize)}
}
