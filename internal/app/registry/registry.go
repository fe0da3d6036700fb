/*
Package registry implements the authoritative in-memory room registry.

It owns Room and Membership state: room creation with collision-retried ids,
the single-DJ-per-room invariant, join/leave/close lifecycle, and roster
snapshots. Per-room mutations are serialized through a per-room mutex so
create, join, and close never interleave destructively, while operations on
different rooms proceed independently.
*/
package registry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/app/event"
	"github.com/dataO1/hush-fm/internal/pkg/errs"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
	"github.com/dataO1/hush-fm/internal/pkg/randx"
)

// roomIDRetryBudget bounds how many times room id generation retries on
// collision before the create fails outright.
const roomIDRetryBudget = 5

// Role identifies a participant's function within a room.
type Role string

const (
	// RoleDJ is the single broadcasting role of a room.
	RoleDJ Role = "dj"

	// RoleListener is the subscribing role.
	RoleListener Role = "listener"
)

// Valid reports whether the role is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleDJ || r == RoleListener
}

// Room holds the immutable identity of a listening room.
type Room struct {
	ID         string
	Name       string
	DJClientID string
	CreatedAt  time.Time
}

// Membership binds a client to a room under a role. A client holds at most
// one membership per room; a room holds exactly one DJ membership.
type Membership struct {
	RoomID   string
	ClientID string
	Role     Role
	JoinedAt time.Time
}

// NameLookup resolves a client id to its display name. The identity service
// implements it.
type NameLookup interface {
	DisplayName(clientID string) string
}

// PresenceSource answers roster liveness questions. The presence tracker
// implements it; it is injected after construction because the tracker
// itself depends on the registry.
type PresenceSource interface {
	IsOnline(clientID, roomID string) bool
}

// roomState couples a Room with its memberships and the mutex serializing
// all mutations of that room.
type roomState struct {
	mu      sync.Mutex
	room    Room
	members map[string]Membership
	closed  bool
}

// Registry is the authoritative store of rooms and memberships.
type Registry struct {
	// mu protects the rooms map itself; individual room mutations take the
	// per-room mutex instead.
	mu    sync.RWMutex
	rooms map[string]*roomState

	names    NameLookup
	presence PresenceSource
	bus      *event.Bus

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry publishing mutations on bus.
func NewRegistry(names NameLookup, bus *event.Bus) *Registry {
	return &Registry{
		rooms:  make(map[string]*roomState),
		names:  names,
		bus:    bus,
		logger: logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// SetPresence injects the presence source used for roster liveness.
func (r *Registry) SetPresence(p PresenceSource) {
	r.presence = p
}

// CreateRoom creates a room with a fresh 8-hex id and a DJ membership for
// creatorID. If the creator already owns a live room, that room is reused
// (existing=true) instead of creating a second one: one DJ, one room.
// The room is fully built before it becomes observable.
func (r *Registry) CreateRoom(name, creatorID string) (roomID string, existing bool, cerr *errs.CustomError) {
	now := time.Now()

	r.mu.Lock()

	for id, rs := range r.rooms {
		if rs.room.DJClientID != creatorID {
			continue
		}

		// Taking rs.mu under r.mu is safe here: removeLocked releases rs.mu
		// before it touches r.mu, so no path holds them in the other order.
		rs.mu.Lock()
		if rs.closed {
			// The room died between the scan and the lock; it is mid-removal
			// from the map. Create a fresh room instead.
			rs.mu.Unlock()
			continue
		}

		// Refresh the DJ membership so a reconnect behaves like a join.
		rs.members[creatorID] = Membership{RoomID: id, ClientID: creatorID, Role: RoleDJ, JoinedAt: now}
		rs.mu.Unlock()
		r.mu.Unlock()

		r.logger.Info().
			Str("room_id", id).
			Str("client_id", creatorID).
			Msg("Reusing existing room for DJ.")

		r.bus.Publish(event.Event{Kind: event.KindMemberJoined, RoomID: id, ClientID: creatorID})
		return id, true, nil
	}

	var id string
	for attempt := 0; attempt < roomIDRetryBudget; attempt++ {
		candidate, err := randx.RoomID()
		if err != nil {
			r.mu.Unlock()
			r.logger.Error().Err(err).Msg("Room id generation failed.")
			return "", false, errs.NewError(errs.ErrUnknown)
		}

		if _, taken := r.rooms[candidate]; !taken {
			id = candidate
			break
		}
	}

	if id == "" {
		r.mu.Unlock()
		r.logger.Error().Msg("Room id collision retry budget exhausted.")
		return "", false, errs.NewError(errs.ErrRoomIDGeneration)
	}

	rs := &roomState{
		room: Room{
			ID:         id,
			Name:       name,
			DJClientID: creatorID,
			CreatedAt:  now,
		},
		members: map[string]Membership{
			creatorID: {RoomID: id, ClientID: creatorID, Role: RoleDJ, JoinedAt: now},
		},
	}
	r.rooms[id] = rs

	r.mu.Unlock()

	r.logger.Info().
		Str("room_id", id).
		Str("room_name", name).
		Str("dj_client_id", creatorID).
		Msg("Room created.")

	r.bus.Publish(event.Event{Kind: event.KindRoomCreated, RoomID: id, ClientID: creatorID})
	return id, false, nil
}

// getRoom fetches the live state for a room id.
func (r *Registry) getRoom(roomID string) *roomState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.rooms[roomID]
}

// JoinRoom joins a client to a room under the given role.
//
// A DJ join succeeds only for the room's original DJ (re-entry after a
// reconnect is idempotent); any other identity gets RoleConflict. Listener
// joins always succeed, creating or refreshing the listener membership.
// The room's name is returned for the client's UI.
func (r *Registry) JoinRoom(roomID, clientID string, role Role) (roomName string, cerr *errs.CustomError) {
	rs := r.getRoom(roomID)
	if rs == nil {
		return "", errs.NewError(errs.ErrRoomNotFound)
	}

	rs.mu.Lock()

	if rs.closed {
		rs.mu.Unlock()
		return "", errs.NewError(errs.ErrRoomNotFound)
	}

	if role == RoleDJ && clientID != rs.room.DJClientID {
		rs.mu.Unlock()

		r.logger.Warn().
			Str("room_id", roomID).
			Str("client_id", clientID).
			Msg("Rejected second DJ join attempt.")
		return "", errs.NewError(errs.ErrRoleConflict)
	}

	rs.members[clientID] = Membership{
		RoomID:   roomID,
		ClientID: clientID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	roomName = rs.room.Name

	rs.mu.Unlock()

	r.logger.Info().
		Str("room_id", roomID).
		Str("client_id", clientID).
		Str("role", string(role)).
		Msg("Client joined room.")

	r.bus.Publish(event.Event{Kind: event.KindMemberJoined, RoomID: roomID, ClientID: clientID})
	return roomName, nil
}

// LeaveRoom removes a listener membership. Unknown rooms or memberships are
// a silent no-op: races with close and eviction are expected. The DJ
// membership is never removed this way; the DJ leaves by closing the room
// or by being reclaimed through the presence grace window.
func (r *Registry) LeaveRoom(roomID, clientID string) {
	rs := r.getRoom(roomID)
	if rs == nil {
		return
	}

	rs.mu.Lock()

	m, ok := rs.members[clientID]
	if !ok || rs.closed || m.Role == RoleDJ {
		rs.mu.Unlock()
		return
	}

	delete(rs.members, clientID)
	rs.mu.Unlock()

	r.logger.Info().
		Str("room_id", roomID).
		Str("client_id", clientID).
		Msg("Listener left room.")

	r.bus.Publish(event.Event{Kind: event.KindMemberLeft, RoomID: roomID, ClientID: clientID})
}

// CloseRoom removes the room and all memberships. Only the room's DJ may
// close it; anyone else gets ErrNotRoomDJ and the room is unchanged.
func (r *Registry) CloseRoom(roomID, requesterID string) *errs.CustomError {
	rs := r.getRoom(roomID)
	if rs == nil {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	rs.mu.Lock()

	if rs.closed {
		rs.mu.Unlock()
		return errs.NewError(errs.ErrRoomNotFound)
	}

	if requesterID != rs.room.DJClientID {
		rs.mu.Unlock()

		r.logger.Warn().
			Str("room_id", roomID).
			Str("client_id", requesterID).
			Msg("Rejected close attempt by non-DJ.")
		return errs.NewError(errs.ErrNotRoomDJ)
	}

	r.removeLocked(rs)

	r.logger.Info().
		Str("room_id", roomID).
		Str("client_id", requesterID).
		Msg("Room closed by DJ.")

	r.bus.Publish(event.Event{Kind: event.KindRoomClosed, RoomID: roomID, ClientID: requesterID})
	return nil
}

// DestroyRoom removes a room without an authorization check. It is reserved
// for the presence sweep reclaiming a room whose DJ stayed absent beyond
// the grace window.
func (r *Registry) DestroyRoom(roomID string) {
	rs := r.getRoom(roomID)
	if rs == nil {
		return
	}

	rs.mu.Lock()

	if rs.closed {
		rs.mu.Unlock()
		return
	}

	r.removeLocked(rs)

	r.logger.Info().
		Str("room_id", roomID).
		Msg("Room destroyed after DJ absence grace elapsed.")

	r.bus.Publish(event.Event{Kind: event.KindRoomClosed, RoomID: roomID})
}

// removeLocked marks the room closed, clears its memberships, and deletes it
// from the map. The caller holds rs.mu; it is released here.
func (r *Registry) removeLocked(rs *roomState) {
	rs.closed = true
	roomID := rs.room.ID
	rs.members = make(map[string]Membership)
	rs.mu.Unlock()

	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
}

// RoomExists reports whether the room is currently live.
func (r *Registry) RoomExists(roomID string) bool {
	return r.getRoom(roomID) != nil
}

// HasMembership reports whether the given (client, room, role) triple is a
// current membership. The token issuer and the presence tracker validate
// against it.
func (r *Registry) HasMembership(clientID, roomID string, role Role) bool {
	rs := r.getRoom(roomID)
	if rs == nil {
		return false
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.closed {
		return false
	}

	m, ok := rs.members[clientID]
	return ok && m.Role == role
}

// DJClientID returns the DJ identity of a live room.
func (r *Registry) DJClientID(roomID string) (string, bool) {
	rs := r.getRoom(roomID)
	if rs == nil {
		return "", false
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.closed {
		return "", false
	}

	return rs.room.DJClientID, true
}
