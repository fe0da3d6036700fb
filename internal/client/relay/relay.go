/*
Package relay defines the interface this system consumes from the external media relay (SFU).

Media transport itself is out of scope: connection establishment, codec
negotiation, and packet delivery all belong to the relay vendor's client
library. The join and audio-switch controllers program against these
interfaces only, which also makes them trivially fakeable in tests.
*/
package relay

import "context"

// DisconnectReason classifies why a relay session ended.
type DisconnectReason string

const (
	// DisconnectTokenExpired signals that the relay rejected the session's
	// access token TTL. The join controller reacts by re-requesting a token
	// and reconnecting.
	DisconnectTokenExpired DisconnectReason = "TOKEN_EXPIRED"

	// DisconnectUnknown covers every other relay-side disconnect.
	DisconnectUnknown DisconnectReason = "UNKNOWN"
)

// EventKind identifies relay session events.
type EventKind string

const (
	EventParticipantConnected    EventKind = "PARTICIPANT_CONNECTED"
	EventParticipantDisconnected EventKind = "PARTICIPANT_DISCONNECTED"
	EventTrackPublished          EventKind = "TRACK_PUBLISHED"
	EventTrackUnpublished        EventKind = "TRACK_UNPUBLISHED"
	EventTrackSubscribed         EventKind = "TRACK_SUBSCRIBED"
	EventTrackUnsubscribed       EventKind = "TRACK_UNSUBSCRIBED"
)

// Event is a relay session event.
type Event struct {
	Kind        EventKind
	Participant string
	TrackID     string
}

// Track is an opaque handle to a captured local audio track. The switch
// controller owns it until it is unpublished and stopped.
type Track interface {
	// ID identifies the track for logging and event correlation.
	ID() string

	// Stop releases the underlying capture resource.
	Stop()
}

// Publication represents one published track within a session.
type Publication interface {
	// Track returns the published track.
	Track() Track

	// SetMuted mutes or unmutes the publication at the relay.
	SetMuted(muted bool) error
}

// Session is an established connection to the relay.
type Session interface {
	// PublishTrack publishes a local track and returns its publication.
	PublishTrack(ctx context.Context, track Track) (Publication, error)

	// UnpublishTrack withdraws a publication.
	UnpublishTrack(ctx context.Context, pub Publication) error

	// Events delivers participant and track events for this session.
	Events() <-chan Event

	// OnDisconnected registers a handler invoked once when the relay drops
	// the session, with the relay-reported reason.
	OnDisconnected(fn func(reason DisconnectReason))

	// Close tears the session down locally.
	Close() error
}

// Connector establishes relay sessions. The vendor client library satisfies
// it in production.
type Connector interface {
	Connect(ctx context.Context, url, token string) (Session, error)
}
