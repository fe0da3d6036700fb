/*
Package event provides the typed event bus connecting the session core to its consumers.

Registry and presence mutations are emitted as Events; the roster broadcaster
subscribes and turns each one into a snapshot push. Components never call into
each other's presentation paths directly.
*/
package event

import (
	"sync"

	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

// Kind identifies the category of a state mutation.
type Kind string

const (
	// KindRoomCreated is emitted when a new room becomes visible on the roster.
	KindRoomCreated Kind = "ROOM_CREATED"

	// KindRoomClosed is emitted when a room is removed, whether by its DJ or
	// by the presence sweep.
	KindRoomClosed Kind = "ROOM_CLOSED"

	// KindMemberJoined is emitted when a membership is created or refreshed.
	KindMemberJoined Kind = "MEMBER_JOINED"

	// KindMemberLeft is emitted when a membership is removed (leave or eviction).
	KindMemberLeft Kind = "MEMBER_LEFT"

	// KindPresenceChanged is emitted when roster-visible liveness flips,
	// e.g. a DJ going offline or coming back within the grace window.
	KindPresenceChanged Kind = "PRESENCE_CHANGED"
)

// Event describes a single roster-relevant mutation.
type Event struct {
	Kind     Kind
	RoomID   string
	ClientID string
}

// Bus is a small fan-out bus for Events. Publishing never blocks: a
// subscriber whose channel is full misses the event and is expected to
// resynchronize from the authoritative state on its next cycle.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber and returns its receive channel.
// The buffer size bounds how far the subscriber may lag.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	return ch
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			logx.Warn("Event subscriber channel full, dropping event.", "kind", string(e.Kind), "room_id", e.RoomID)
		}
	}
}
