/*
Package session holds the per-tab session context and the cancellation-token
abstraction shared by the client-side controllers.

The Context replaces ambient global state: every component receives it
explicitly, and there is exactly one owner per logical session (one per
browser tab). The Sequencer generalizes the supersede-in-flight pattern:
each orchestrated sequence owns a Token, starting a new sequence invalidates
the prior Token, and every suspension point checks Token validity before
proceeding and before committing results.
*/
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by a sequence step whose token was invalidated
// by a newer sequence. It marks the benign kind of abort that is never
// reported to the user.
var ErrSuperseded = errors.New("superseded by a newer sequence")

// Context is the explicit state of one logical session.
type Context struct {
	ClientID    string
	DisplayName string

	// RoomID and Role are set while joined, empty otherwise.
	RoomID string
	Role   string
}

// Joined reports whether the session is currently in a room.
func (c *Context) Joined() bool {
	return c.RoomID != ""
}

// Reset clears the room binding after a leave or rollback.
func (c *Context) Reset() {
	c.RoomID = ""
	c.Role = ""
}

// Sequencer hands out cancellation tokens, one live token at a time.
type Sequencer struct {
	mu     sync.Mutex
	active *Token
}

// Token represents ownership of one orchestrated sequence.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
	seq    *Sequencer
}

// Begin starts a new sequence, cancelling any in-flight one. The returned
// token's context is derived from parent.
func (s *Sequencer) Begin(parent context.Context) *Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.active.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	t := &Token{ctx: ctx, cancel: cancel, seq: s}
	s.active = t
	return t
}

// End releases the token if it is still the active one.
func (t *Token) End() {
	t.cancel()

	t.seq.mu.Lock()
	if t.seq.active == t {
		t.seq.active = nil
	}
	t.seq.mu.Unlock()
}

// Context returns the token's cancellable context for use across suspension
// points.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Live reports whether this token is still the active sequence and has not
// been cancelled.
func (t *Token) Live() bool {
	t.seq.mu.Lock()
	active := t.seq.active == t
	t.seq.mu.Unlock()

	if !active {
		return false
	}

	select {
	case <-t.ctx.Done():
		return false
	default:
		return true
	}
}

// Check returns nil while the token is live and ErrSuperseded once it is not.
// Call it before and after every suspension point.
func (t *Token) Check() error {
	if !t.Live() {
		return ErrSuperseded
	}
	return nil
}
