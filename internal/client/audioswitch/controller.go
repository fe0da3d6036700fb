/*
Package audioswitch implements the audio source switch controller.

The controller swaps the live published track without dead air, overlapping
audio, or orphaned publications. A new switch request supersedes any switch
still in flight: the older request's completion is discarded, and only the
latest request's result is committed. The switch sequence mutes the outgoing
publication first, unpublishes in parallel to shorten the silent window,
publishes the candidate, and finally restores the mute state from the
session's on-air flag.
*/
package audioswitch

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/client/relay"
	"github.com/dataO1/hush-fm/internal/client/session"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

// ErrNotConnected is returned when a switch is requested before the
// controller is bound to a relay session.
var ErrNotConnected = errors.New("audioswitch: no relay session bound")

// State is the controller's externally visible mode.
type State int

const (
	// StateIdle means no switch is in flight.
	StateIdle State = iota

	// StateSwitching means a switch sequence is between its first step and
	// its commit.
	StateSwitching
)

// Controller owns the published audio state of one relay session.
type Controller struct {
	mu        sync.Mutex
	state     State
	sess      relay.Session
	published []relay.Publication
	onAir     bool

	seq session.Sequencer

	logger zerolog.Logger
}

// New constructs an idle Controller.
func New() *Controller {
	return &Controller{
		logger: logx.Logger().With().Str("component", "AudioSwitch").Logger(),
	}
}

// Bind attaches the controller to a freshly connected relay session,
// discarding any publication records from a previous session.
func (c *Controller) Bind(sess relay.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sess = sess
	c.published = nil
	c.state = StateIdle
}

// Unbind detaches from the session, e.g. after leaving a room.
func (c *Controller) Unbind() {
	c.Bind(nil)
}

// State returns the controller's current mode.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Published returns the currently committed publications.
func (c *Controller) Published() []relay.Publication {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]relay.Publication, len(c.published))
	copy(out, c.published)
	return out
}

// SetOnAir flips the global on-air flag and applies the matching mute state
// to every committed publication.
func (c *Controller) SetOnAir(on bool) {
	c.mu.Lock()
	c.onAir = on
	pubs := make([]relay.Publication, len(c.published))
	copy(pubs, c.published)
	c.mu.Unlock()

	for _, pub := range pubs {
		if err := pub.SetMuted(!on); err != nil {
			c.logger.Warn().Err(err).Bool("on_air", on).Msg("Failed to apply on-air mute state.")
		}
	}
}

// Switch swaps the published audio source to track.
//
// Failures while muting or unpublishing the outgoing source are logged and
// swallowed; tearing down an already-gone track is harmless. A publish
// failure is fatal to this attempt and leaves the previous committed state
// untouched. A switch superseded mid-flight withdraws its own publication
// and reports session.ErrSuperseded.
func (c *Controller) Switch(ctx context.Context, track relay.Track) error {
	c.mu.Lock()

	if c.sess == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}

	// Begin must share the critical section with the prior snapshot. Begun
	// after the unlock, an in-flight switch could still commit a
	// publication the snapshot never saw, and nobody would unpublish it.
	t := c.seq.Begin(ctx)

	sess := c.sess
	prior := make([]relay.Publication, len(c.published))
	copy(prior, c.published)
	onAir := c.onAir
	c.state = StateSwitching

	c.mu.Unlock()

	defer c.settle(t)

	// Mute the outgoing publications to minimize bleed during the window.
	for _, pub := range prior {
		if err := pub.SetMuted(true); err != nil {
			c.logger.Debug().Err(err).Msg("Mute before switch failed, continuing.")
		}
	}

	// Unpublish in parallel to shorten the silent window.
	var wg sync.WaitGroup
	for _, pub := range prior {
		wg.Add(1)
		go func(p relay.Publication) {
			defer wg.Done()
			if err := sess.UnpublishTrack(t.Context(), p); err != nil {
				c.logger.Debug().Err(err).Msg("Unpublish before switch failed, continuing.")
			}
		}(pub)
	}
	wg.Wait()

	if err := t.Check(); err != nil {
		return err
	}

	pub, err := sess.PublishTrack(t.Context(), track)
	if err != nil {
		if t.Check() != nil {
			return session.ErrSuperseded
		}

		c.logger.Error().Err(err).Str("track_id", track.ID()).Msg("Publish failed, switch aborted.")
		return err
	}

	// Restore the mute state to match the on-air flag. T is live either
	// way; a mute failure does not abandon the switch.
	if err := pub.SetMuted(!onAir); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to restore mute state after switch.")
	}

	c.mu.Lock()
	if t.Check() != nil {
		c.mu.Unlock()

		// A newer switch owns the outcome now; withdraw our publication so
		// it does not linger as an orphan.
		if err := sess.UnpublishTrack(context.Background(), pub); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to withdraw superseded publication.")
		}
		return session.ErrSuperseded
	}

	c.published = []relay.Publication{pub}
	c.mu.Unlock()

	c.logger.Info().Str("track_id", track.ID()).Bool("on_air", onAir).Msg("Audio source switched.")
	return nil
}

// settle ends the sequence token and returns the controller to Idle if this
// switch was still the live one.
func (c *Controller) settle(t *session.Token) {
	live := t.Live()
	t.End()

	if live {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
	}
}
