/*
Package join implements the client-side join controller.

This file defines the typed UI events the controller emits. Components never
reach into presentation state directly; a single dispatcher consumes these
events and updates the view, keeping the signaling core decoupled from
rendering.
*/
package join

// EventKind identifies a UI-facing event.
type EventKind string

const (
	// EventNavigateRoom moves the UI into the joined room view.
	EventNavigateRoom EventKind = "NAVIGATE_ROOM"

	// EventNavigateLanding returns the UI to the landing view, used both for
	// a clean leave and for the rollback after a failed join.
	EventNavigateLanding EventKind = "NAVIGATE_LANDING"

	// EventJoinFailed reports a genuine join failure the user should see,
	// with a retry affordance. Superseded joins never emit it.
	EventJoinFailed EventKind = "JOIN_FAILED"

	// EventReconnected reports a transparent relay reconnect after a token
	// expiry, mostly useful for diagnostics overlays.
	EventReconnected EventKind = "RECONNECTED"
)

// Event is one typed UI event.
type Event struct {
	Kind     EventKind
	RoomID   string
	RoomName string
	Message  string
}

// Dispatcher consumes controller events. One per session.
type Dispatcher func(Event)
