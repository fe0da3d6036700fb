/*
Package presence implements heartbeat ingestion and stale-participant eviction.

The tracker exclusively owns PresenceRecords, keyed by (client, room). A
two-tier timeout separates roster liveness from room reclamation: a missed
staleness window flips the DJ-online flag, but the room itself is destroyed
only after the longer DJ-absence grace elapses without a re-join. That keeps
the online indicator from flapping on a single missed heartbeat while still
reclaiming abandoned rooms.
*/
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/app/event"
	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

// recordKey identifies a PresenceRecord.
type recordKey struct {
	clientID string
	roomID   string
}

// record is the mutable liveness state for one membership.
type record struct {
	role       registry.Role
	lastBeatAt time.Time
}

// Config carries the presence timing knobs.
type Config struct {
	// StaleThreshold is how long after the last beat a participant counts
	// as offline. Roughly three client heartbeat periods.
	StaleThreshold time.Duration

	// DJAbsentGrace is how long a room survives with its DJ offline before
	// the sweep destroys it.
	DJAbsentGrace time.Duration

	// SweepInterval is the period of the background eviction sweep.
	SweepInterval time.Duration
}

// Tracker ingests heartbeats and evicts stale participants.
type Tracker struct {
	mu      sync.Mutex
	records map[recordKey]*record

	// djMissingSince marks rooms whose DJ record has been evicted, keyed by
	// room id. The entry is cleared when the DJ beats again.
	djMissingSince map[string]time.Time

	cfg Config
	reg *registry.Registry
	bus *event.Bus

	logger zerolog.Logger
}

// NewTracker constructs a Tracker bound to the given registry and bus.
func NewTracker(cfg Config, reg *registry.Registry, bus *event.Bus) *Tracker {
	return &Tracker{
		records:        make(map[recordKey]*record),
		djMissingSince: make(map[string]time.Time),
		cfg:            cfg,
		reg:            reg,
		bus:            bus,
		logger:         logx.Logger().With().Str("component", "Presence").Logger(),
	}
}

// Beat upserts the presence record for (clientID, roomID). A beat for a
// membership that no longer exists is silently ignored; that is the expected
// outcome of a close/leave race, not an error.
func (t *Tracker) Beat(clientID, roomID string, role registry.Role) {
	if !t.reg.HasMembership(clientID, roomID, role) {
		return
	}

	now := time.Now()

	t.mu.Lock()

	key := recordKey{clientID: clientID, roomID: roomID}
	rec, existed := t.records[key]
	if existed {
		rec.lastBeatAt = now
	} else {
		t.records[key] = &record{role: role, lastBeatAt: now}
	}

	djReturned := false
	if role == registry.RoleDJ {
		if _, missing := t.djMissingSince[roomID]; missing {
			delete(t.djMissingSince, roomID)
			djReturned = true
		}
	}

	t.mu.Unlock()

	// First beat and DJ revival both change roster-visible liveness.
	if !existed || djReturned {
		t.bus.Publish(event.Event{Kind: event.KindPresenceChanged, RoomID: roomID, ClientID: clientID})
	}

	if djReturned {
		t.logger.Info().
			Str("room_id", roomID).
			Str("client_id", clientID).
			Msg("DJ back online within grace window.")
	}
}

// IsOnline reports whether the participant has beaten within the staleness
// window. It backs the roster's djOnline flag.
func (t *Tracker) IsOnline(clientID, roomID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[recordKey{clientID: clientID, roomID: roomID}]
	return ok && time.Since(rec.lastBeatAt) <= t.cfg.StaleThreshold
}

// forgetRoom drops all presence state for a room. Caller holds t.mu.
func (t *Tracker) forgetRoom(roomID string) {
	for key := range t.records {
		if key.roomID == roomID {
			delete(t.records, key)
		}
	}
	delete(t.djMissingSince, roomID)
}

// sweep evicts records whose last beat is older than the staleness
// threshold, and destroys rooms whose DJ has been absent beyond the grace
// window. Registry mutations go through the registry's own per-room
// serialization, so the sweep cannot race a concurrent join destructively.
func (t *Tracker) sweep(now time.Time) {
	type eviction struct {
		key  recordKey
		role registry.Role
	}

	t.mu.Lock()

	var evicted []eviction
	for key, rec := range t.records {
		if now.Sub(rec.lastBeatAt) > t.cfg.StaleThreshold {
			delete(t.records, key)
			evicted = append(evicted, eviction{key: key, role: rec.role})
		}
	}

	for _, e := range evicted {
		if e.role == registry.RoleDJ {
			if _, marked := t.djMissingSince[e.key.roomID]; !marked {
				t.djMissingSince[e.key.roomID] = now
			}
		}
	}

	var expiredRooms []string
	for roomID, since := range t.djMissingSince {
		if now.Sub(since) > t.cfg.DJAbsentGrace {
			expiredRooms = append(expiredRooms, roomID)
		}
	}
	for _, roomID := range expiredRooms {
		t.forgetRoom(roomID)
	}

	t.mu.Unlock()

	for _, e := range evicted {
		if e.role == registry.RoleListener {
			// Eviction removes the listener membership entirely; the
			// registry publishes the roster change.
			t.reg.LeaveRoom(e.key.roomID, e.key.clientID)
		} else {
			t.logger.Info().
				Str("room_id", e.key.roomID).
				Str("client_id", e.key.clientID).
				Msg("DJ presence stale, room marked DJ-offline.")
			t.bus.Publish(event.Event{Kind: event.KindPresenceChanged, RoomID: e.key.roomID, ClientID: e.key.clientID})
		}
	}

	for _, roomID := range expiredRooms {
		t.reg.DestroyRoom(roomID)
	}
}

// Run executes the periodic sweep until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	t.logger.Info().
		Dur("sweep_interval", t.cfg.SweepInterval).
		Dur("stale_threshold", t.cfg.StaleThreshold).
		Dur("dj_absent_grace", t.cfg.DJAbsentGrace).
		Msg("Presence sweep started.")

	for {
		select {
		case <-ticker.C:
			t.sweep(time.Now())
		case <-ctx.Done():
			t.logger.Info().Msg("Presence sweep stopped.")
			return
		}
	}
}
