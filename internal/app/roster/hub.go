/*
Package roster implements the roster broadcaster.

The hub fans the current roster snapshot out to every open WebSocket
subscriber whenever the registry or presence tracker mutates state. Pushes
are full snapshots rather than deltas; room counts are small and the
simplicity pays for itself. Each subscriber has an independently bounded
send buffer, and one that cannot keep up is disconnected rather than
stalling the broadcast for others.
*/
package roster

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/app/event"
	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

// Hub tracks open roster subscriptions and drives snapshot fan-out.
type Hub struct {
	reg *registry.Registry

	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}

	events <-chan event.Event
	wg     sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a Hub consuming mutation events from bus.
func NewHub(reg *registry.Registry, bus *event.Bus) *Hub {
	return &Hub{
		reg:         reg,
		subscribers: make(map[*Subscriber]struct{}),
		events:      bus.Subscribe(eventBuffer),
		logger:      logx.Logger().With().Str("component", "RosterHub").Logger(),
	}
}

// eventBuffer bounds how far the hub may lag behind mutations. Every push is
// a full snapshot, so a dropped event at worst delays one cycle.
const eventBuffer = 64

// Run consumes mutation events and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.wg.Add(1)
	defer h.wg.Done()

	h.logger.Info().Msg("Roster broadcast loop started.")

	for {
		select {
		case e := <-h.events:
			h.broadcast(e)
		case <-ctx.Done():
			h.logger.Info().Msg("Roster broadcast loop stopped.")
			h.closeAll()
			return
		}
	}
}

// Attach registers a subscriber and immediately queues its first snapshot so
// a fresh connection never waits for the next mutation.
func (h *Hub) Attach(s *Subscriber) {
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info().
		Str("viewer_id", s.viewerID).
		Int("total_subscribers", total).
		Msg("Roster subscriber attached.")

	h.push(s)
}

// Detach removes a subscriber. Safe to call more than once.
func (h *Hub) Detach(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[s]
	if ok {
		delete(h.subscribers, s)
	}
	total := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		h.logger.Info().
			Str("viewer_id", s.viewerID).
			Int("total_subscribers", total).
			Msg("Roster subscriber detached.")
	}
}

// broadcast pushes a viewer-specific snapshot to every open subscriber.
func (h *Hub) broadcast(e event.Event) {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		h.push(s)
	}
}

// push queues the current snapshot for one subscriber. A full send buffer
// means the consumer is not keeping up; it gets disconnected instead of
// blocking the fan-out.
func (h *Hub) push(s *Subscriber) {
	snapshot := h.reg.Snapshot(s.viewerID)

	payload, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal roster snapshot.")
		return
	}

	if !s.queue(payload) {
		h.logger.Warn().
			Str("viewer_id", s.viewerID).
			Msg("Subscriber send buffer full, disconnecting slow consumer.")
		h.Detach(s)
		s.close()
	}
}

// closeAll disconnects every subscriber during shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.subscribers = make(map[*Subscriber]struct{})
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// Shutdown waits for the broadcast loop to finish after ctx cancellation.
func (h *Hub) Shutdown() {
	h.wg.Wait()
}
