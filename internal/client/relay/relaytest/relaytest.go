/*
Package relaytest provides in-memory fakes for the relay interfaces.

The fakes record publish, unpublish, and mute calls, can be made to fail or
stall on demand, and can simulate relay-side disconnects, so the controller
tests never need a network.
*/
package relaytest

import (
	"context"
	"errors"
	"sync"

	"github.com/dataO1/hush-fm/internal/client/relay"
)

// ErrClosed is returned by operations on a closed fake session.
var ErrClosed = errors.New("relaytest: session closed")

// Track is a fake local audio track.
type Track struct {
	TrackID string

	mu      sync.Mutex
	stopped bool
}

// ID implements relay.Track.
func (t *Track) ID() string { return t.TrackID }

// Stop implements relay.Track.
func (t *Track) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Stopped reports whether Stop was called.
func (t *Track) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stopped
}

// Publication is a fake published track.
type Publication struct {
	track    relay.Track
	sess     *Session
	muteGate chan struct{}

	mu    sync.Mutex
	muted bool
}

// Track implements relay.Publication.
func (p *Publication) Track() relay.Track { return p.track }

// SetMuted implements relay.Publication.
func (p *Publication) SetMuted(muted bool) error {
	if p.muteGate != nil {
		<-p.muteGate
	}

	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
	return nil
}

// Muted reports the last applied mute state.
func (p *Publication) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.muted
}

// Session is a fake relay session.
type Session struct {
	// PublishErr, when set, fails every PublishTrack call.
	PublishErr error

	// PublishGate, when non-nil, blocks PublishTrack until the gate is
	// closed or the call's context ends. It opens a deterministic window
	// for supersede tests.
	PublishGate chan struct{}

	// NextMuteGate, when non-nil, arms the next publication PublishTrack
	// creates: that publication's SetMuted blocks until the gate is
	// closed. Exactly one publication is armed, then the gate clears.
	NextMuteGate chan struct{}

	mu             sync.Mutex
	pubs           []*Publication
	closed         bool
	onDisconnected func(relay.DisconnectReason)

	events chan relay.Event
}

// NewSession constructs an open fake session.
func NewSession() *Session {
	return &Session{events: make(chan relay.Event, 8)}
}

// PublishTrack implements relay.Session.
func (s *Session) PublishTrack(ctx context.Context, track relay.Track) (relay.Publication, error) {
	if s.PublishGate != nil {
		select {
		case <-s.PublishGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.PublishErr != nil {
		return nil, s.PublishErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	pub := &Publication{track: track, sess: s, muteGate: s.NextMuteGate}
	s.NextMuteGate = nil
	s.pubs = append(s.pubs, pub)
	return pub, nil
}

// UnpublishTrack implements relay.Session.
func (s *Session) UnpublishTrack(ctx context.Context, pub relay.Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, p := range s.pubs {
		if p == pub {
			s.pubs = append(s.pubs[:idx], s.pubs[idx+1:]...)
			return nil
		}
	}

	return errors.New("relaytest: publication not found")
}

// Events implements relay.Session.
func (s *Session) Events() <-chan relay.Event { return s.events }

// OnDisconnected implements relay.Session.
func (s *Session) OnDisconnected(fn func(relay.DisconnectReason)) {
	s.mu.Lock()
	s.onDisconnected = fn
	s.mu.Unlock()
}

// Close implements relay.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Published returns the currently published fake publications.
func (s *Session) Published() []*Publication {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Publication, len(s.pubs))
	copy(out, s.pubs)
	return out
}

// Disconnect simulates a relay-side disconnect with the given reason.
func (s *Session) Disconnect(reason relay.DisconnectReason) {
	s.mu.Lock()
	fn := s.onDisconnected
	s.mu.Unlock()

	if fn != nil {
		fn(reason)
	}
}

// Connector is a fake relay.Connector handing out fake sessions.
type Connector struct {
	// Err, when set, fails every Connect call.
	Err error

	// PublishErr is copied onto every session this connector hands out.
	PublishErr error

	// PublishGate is copied onto every session this connector hands out.
	PublishGate chan struct{}

	mu       sync.Mutex
	sessions []*Session
}

// Connect implements relay.Connector.
func (c *Connector) Connect(ctx context.Context, url, token string) (relay.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.Err != nil {
		return nil, c.Err
	}

	sess := NewSession()
	sess.PublishErr = c.PublishErr
	sess.PublishGate = c.PublishGate

	c.mu.Lock()
	c.sessions = append(c.sessions, sess)
	c.mu.Unlock()

	return sess, nil
}

// Sessions returns every session handed out so far, in order.
func (c *Connector) Sessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Session, len(c.sessions))
	copy(out, c.sessions)
	return out
}
