/*
Package rosterfeed implements the client side of roster delivery.

The feed prefers the WebSocket push channel and degrades to HTTP polling
when push cannot be kept alive: reconnect attempts back off exponentially
from one second to a thirty-second cap, and after five straight failures the
feed switches to polling, starting at ten seconds and stretching
multiplicatively toward a sixty-second ceiling while requests keep failing.
Push and polling are mutually exclusive at any instant; each polling cycle
first probes the push channel and polls only if the probe fails, so a
network recovery snaps the feed back to push immediately.
*/
package rosterfeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/client/signal"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

// Mode reports which delivery channel the feed currently uses.
type Mode int

const (
	// ModeConnecting means no channel is established yet.
	ModeConnecting Mode = iota

	// ModePush means snapshots arrive over the WebSocket.
	ModePush

	// ModePolling means snapshots are fetched over HTTP.
	ModePolling
)

// Policy carries the reconnect and polling knobs.
type Policy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int

	PollInitial time.Duration
	PollFactor  float64
	PollMax     time.Duration

	PingInterval time.Duration
}

// DefaultPolicy returns the production policy.
func DefaultPolicy() Policy {
	return Policy{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxAttempts:    5,
		PollInitial:    10 * time.Second,
		PollFactor:     1.5,
		PollMax:        60 * time.Second,
		PingInterval:   30 * time.Second,
	}
}

// Feed delivers roster snapshots to one consumer.
type Feed struct {
	api      *signal.Client
	wsURL    string
	viewerID string
	policy   Policy

	dialer    *websocket.Dialer
	snapshots chan signal.Roster

	mu   sync.Mutex
	mode Mode

	logger zerolog.Logger
}

// New constructs a Feed. wsURL is the full roster socket URL, e.g.
// "ws://localhost:8080/ws/roster".
func New(api *signal.Client, wsURL, viewerID string, policy Policy) *Feed {
	f := &Feed{
		api:       api,
		wsURL:     wsURL,
		viewerID:  viewerID,
		policy:    policy,
		dialer:    websocket.DefaultDialer,
		snapshots: make(chan signal.Roster, 8),
		logger:    logx.Logger().With().Str("component", "RosterFeed").Logger(),
	}
	return f
}

// Snapshots returns the channel on which roster updates arrive. Slow
// consumers lose intermediate snapshots, never the freshest one's
// successor.
func (f *Feed) Snapshots() <-chan signal.Roster {
	return f.snapshots
}

func (f *Feed) setMode(m Mode) {
	f.mu.Lock()
	f.mode = m
	f.mu.Unlock()
}

// Mode reports the feed's current delivery mode.
func (f *Feed) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.mode
}

// dialURL appends the viewer id when present.
func (f *Feed) dialURL() string {
	if f.viewerID == "" {
		return f.wsURL
	}
	return f.wsURL + "?clientId=" + f.viewerID
}

// Run drives the feed until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	attempts := 0
	backoff := f.policy.InitialBackoff

	for ctx.Err() == nil {
		if attempts >= f.policy.MaxAttempts {
			f.logger.Warn().
				Int("attempts", attempts).
				Msg("Push reconnect attempts exhausted, falling back to polling.")

			f.poll(ctx)

			// poll returns only when push is live again or ctx ended.
			attempts = 0
			backoff = f.policy.InitialBackoff
			continue
		}

		f.setMode(ModeConnecting)

		conn, _, err := f.dialer.DialContext(ctx, f.dialURL(), nil)
		if err != nil {
			attempts++
			f.logger.Info().
				Err(err).
				Int("attempt", attempts).
				Dur("backoff", backoff).
				Msg("Roster push connect failed.")

			if !sleep(ctx, backoff) {
				return
			}

			backoff *= 2
			if backoff > f.policy.MaxBackoff {
				backoff = f.policy.MaxBackoff
			}
			continue
		}

		attempts = 0
		backoff = f.policy.InitialBackoff

		f.setMode(ModePush)
		f.consume(ctx, conn)
	}
}

// consume reads snapshots off an open push connection until it dies,
// keeping it alive with application-level pings.
func (f *Feed) consume(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(f.policy.PingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					conn.Close()
					return
				}
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			f.logger.Info().Err(err).Msg("Roster push connection lost.")
			conn.Close()
			return
		}

		var roster signal.Roster
		if err := json.Unmarshal(payload, &roster); err != nil {
			f.logger.Warn().Err(err).Msg("Discarding malformed roster push.")
			continue
		}

		f.deliver(roster)
	}
}

// poll fetches the roster over HTTP until the push channel can be
// re-established. Entering and leaving polling swaps the mode atomically,
// so push and polling never run at the same instant.
func (f *Feed) poll(ctx context.Context) {
	f.setMode(ModePolling)

	interval := f.policy.PollInitial

	for ctx.Err() == nil {
		// Probe push first: a recovered network ends polling immediately.
		conn, _, err := f.dialer.DialContext(ctx, f.dialURL(), nil)
		if err == nil {
			f.logger.Info().Msg("Roster push recovered, leaving polling mode.")
			f.setMode(ModePush)
			f.consume(ctx, conn)
			return
		}

		roster, err := f.api.ListRooms(ctx, f.viewerID)
		if err != nil {
			interval = time.Duration(float64(interval) * f.policy.PollFactor)
			if interval > f.policy.PollMax {
				interval = f.policy.PollMax
			}
			f.logger.Warn().Err(err).Dur("next_poll", interval).Msg("Roster poll failed.")
		} else {
			interval = f.policy.PollInitial
			f.deliver(roster)
		}

		if !sleep(ctx, interval) {
			return
		}
	}
}

// deliver hands a snapshot to the consumer, dropping the oldest queued one
// when the consumer lags.
func (f *Feed) deliver(roster signal.Roster) {
	for {
		select {
		case f.snapshots <- roster:
			return
		default:
			select {
			case <-f.snapshots:
			default:
			}
		}
	}
}

// sleep waits for d or ctx cancellation, reporting false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
