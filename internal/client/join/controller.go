/*
Package join implements the client-side join controller.

The join sequence runs existence check, role join, token fetch, relay
connect, and post-connect setup, with a suspension point between each step.
Starting a new join cancels any join still in flight; a join that has passed
its cancellation point rejects newcomers outright instead of queueing them.
Any step failure rolls the session back to the landing view so the UI is
never left half-joined.
*/
package join

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/client/audioswitch"
	"github.com/dataO1/hush-fm/internal/client/relay"
	"github.com/dataO1/hush-fm/internal/client/session"
	"github.com/dataO1/hush-fm/internal/client/signal"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

// ErrJoinInFlight is returned when a join request arrives while another join
// has already passed its cancellation point.
var ErrJoinInFlight = errors.New("join: another join is finalizing")

// ErrRoomGone is returned when the existence check finds no such room.
var ErrRoomGone = errors.New("join: room no longer exists")

// joined captures the resources of one successful join.
type joined struct {
	roomID    string
	role      string
	relaySess relay.Session
	stop      context.CancelFunc // cancels heartbeat and listeners
}

// Controller orchestrates the cancellable join sequence for one session.
type Controller struct {
	api       *signal.Client
	connector relay.Connector
	sess      *session.Context
	audio     *audioswitch.Controller
	dispatch  Dispatcher

	heartbeatInterval time.Duration

	seq session.Sequencer

	mu         sync.Mutex
	finalizing bool
	current    *joined

	logger zerolog.Logger
}

// NewController wires a Controller for one session context. audio may be nil
// for roles that never publish.
func NewController(api *signal.Client, connector relay.Connector, sess *session.Context, audio *audioswitch.Controller, dispatch Dispatcher, heartbeatInterval time.Duration) *Controller {
	if dispatch == nil {
		dispatch = func(Event) {}
	}

	return &Controller{
		api:               api,
		connector:         connector,
		sess:              sess,
		audio:             audio,
		dispatch:          dispatch,
		heartbeatInterval: heartbeatInterval,
		logger: logx.Logger().With().
			Str("component", "JoinController").
			Str("client_id", sess.ClientID).
			Logger(),
	}
}

// Join runs the full join sequence for roomID under role. For a DJ join,
// track is the initial audio source to publish after connecting; it may be
// nil to start silent. Returns session.ErrSuperseded when a newer join took
// over, which the caller should swallow.
func (c *Controller) Join(ctx context.Context, roomID, role string, track relay.Track) error {
	// The admission check and Begin share a critical section with run's
	// flip to finalizing: a competing join is either superseded before it
	// finalizes or rejected here, never both.
	c.mu.Lock()
	if c.finalizing {
		c.mu.Unlock()
		return ErrJoinInFlight
	}
	t := c.seq.Begin(ctx)
	c.mu.Unlock()

	defer t.End()

	// A fully joined previous room is torn down before the new sequence
	// touches the server.
	c.teardown()

	err := c.run(t, roomID, role, track)
	if err == nil {
		return nil
	}

	if errors.Is(err, session.ErrSuperseded) || errors.Is(err, context.Canceled) {
		// run already released everything this sequence acquired, and
		// c.current belongs to the newer sequence now; tearing it down
		// here would destroy what the winner just committed.
		c.logger.Debug().Str("room_id", roomID).Msg("Join superseded.")
		return session.ErrSuperseded
	}

	if t.Live() {
		c.rollback()
	}

	c.logger.Warn().Err(err).Str("room_id", roomID).Msg("Join failed.")
	c.dispatch(Event{Kind: EventJoinFailed, RoomID: roomID, Message: userMessage(err)})
	return err
}

// run executes the five join steps under token t.
func (c *Controller) run(t *session.Token, roomID, role string, track relay.Track) error {
	// Step 1: existence check.
	roster, err := c.api.ListRooms(t.Context(), c.sess.ClientID)
	if err != nil {
		return err
	}
	if err := t.Check(); err != nil {
		return err
	}

	found := false
	for _, room := range roster.Rooms {
		if room.ID == roomID {
			found = true
			break
		}
	}
	if !found {
		return ErrRoomGone
	}

	// Step 2: role join.
	roomName, err := c.api.JoinRoom(t.Context(), roomID, c.sess.ClientID, role)
	if err != nil {
		return err
	}
	if err := t.Check(); err != nil {
		return err
	}

	// Step 3: token fetch.
	grant, err := c.api.IssueToken(t.Context(), c.sess.ClientID, roomID, role)
	if err != nil {
		return err
	}
	if err := t.Check(); err != nil {
		return err
	}

	// Step 4: relay connect.
	relaySess, err := c.connector.Connect(t.Context(), grant.URL, grant.Token)
	if err != nil {
		return err
	}
	// Step 5: post-connect setup. Past this point a competing join is
	// rejected rather than cancelling us. The last supersession check and
	// the flip to finalizing must be one critical section; split apart, a
	// competing join could slip between them, complete alongside us, and
	// overwrite this relay session without closing it.
	c.mu.Lock()
	if err := t.Check(); err != nil {
		c.mu.Unlock()
		relaySess.Close()
		return err
	}
	c.finalizing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.finalizing = false
		c.mu.Unlock()
	}()

	stopCtx, stop := context.WithCancel(context.Background())

	if c.audio != nil {
		c.audio.Bind(relaySess)

		if role == signal.RoleDJ && track != nil {
			if err := c.audio.Switch(stopCtx, track); err != nil {
				c.audio.Unbind()
				relaySess.Close()
				stop()
				return err
			}
		}
	}

	relaySess.OnDisconnected(func(reason relay.DisconnectReason) {
		if reason == relay.DisconnectTokenExpired {
			go c.reconnect(roomID, role)
		}
	})

	go c.api.Heartbeat(stopCtx, c.sess.ClientID, roomID, role, c.heartbeatInterval)

	c.mu.Lock()
	c.current = &joined{roomID: roomID, role: role, relaySess: relaySess, stop: stop}
	c.mu.Unlock()

	c.sess.RoomID = roomID
	c.sess.Role = role

	c.logger.Info().
		Str("room_id", roomID).
		Str("room_name", roomName).
		Str("role", role).
		Msg("Join sequence completed.")

	c.dispatch(Event{Kind: EventNavigateRoom, RoomID: roomID, RoomName: roomName})
	return nil
}

// reconnect transparently re-issues a token and re-establishes the relay
// session after a TOKEN_EXPIRED disconnect. Invisible to the user when it
// succeeds; a failure rolls back like any join failure.
func (c *Controller) reconnect(roomID, role string) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur == nil || cur.roomID != roomID {
		return
	}

	c.logger.Info().Str("room_id", roomID).Msg("Relay token expired, reconnecting.")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	grant, err := c.api.IssueToken(ctx, c.sess.ClientID, roomID, role)
	if err == nil {
		var relaySess relay.Session
		relaySess, err = c.connector.Connect(ctx, grant.URL, grant.Token)
		if err == nil {
			c.mu.Lock()
			stillCurrent := c.current == cur
			if stillCurrent {
				cur.relaySess = relaySess
			}
			c.mu.Unlock()

			if !stillCurrent {
				relaySess.Close()
				return
			}

			if c.audio != nil {
				c.audio.Bind(relaySess)
			}

			relaySess.OnDisconnected(func(reason relay.DisconnectReason) {
				if reason == relay.DisconnectTokenExpired {
					go c.reconnect(roomID, role)
				}
			})

			c.dispatch(Event{Kind: EventReconnected, RoomID: roomID})
			return
		}
	}

	c.logger.Warn().Err(err).Str("room_id", roomID).Msg("Relay reconnect failed.")
	c.rollback()
	c.dispatch(Event{Kind: EventJoinFailed, RoomID: roomID, Message: "Connection to the audio relay was lost."})
}

// Leave tears the current join down and, for a listener, releases the
// membership on the server.
func (c *Controller) Leave(ctx context.Context) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur != nil && cur.role == signal.RoleListener {
		if err := c.api.LeaveRoom(ctx, cur.roomID, c.sess.ClientID); err != nil {
			c.logger.Debug().Err(err).Msg("Leave request failed, eviction will reclaim the membership.")
		}
	}

	c.teardown()
	c.dispatch(Event{Kind: EventNavigateLanding})
}

// CloseRoom closes the DJ's room and tears the session down.
func (c *Controller) CloseRoom(ctx context.Context) error {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur == nil {
		return nil
	}

	if err := c.api.CloseRoom(ctx, cur.roomID, c.sess.ClientID); err != nil {
		return err
	}

	c.teardown()
	c.dispatch(Event{Kind: EventNavigateLanding})
	return nil
}

// teardown releases all resources of the current join, if any.
func (c *Controller) teardown() {
	c.mu.Lock()
	cur := c.current
	c.current = nil
	c.mu.Unlock()

	if cur == nil {
		return
	}

	cur.stop()

	if c.audio != nil {
		c.audio.Unbind()
	}

	if err := cur.relaySess.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Relay session close error during teardown.")
	}

	c.sess.Reset()
}

// rollback restores the known-good landing state after a failed or
// superseded join.
func (c *Controller) rollback() {
	c.teardown()
	c.dispatch(Event{Kind: EventNavigateLanding})
}

// userMessage converts an error into the message shown next to the retry
// affordance.
func userMessage(err error) string {
	var apiErr *signal.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	if errors.Is(err, ErrRoomGone) {
		return "That room is gone."
	}

	return "Could not join the room. Please try again."
}
