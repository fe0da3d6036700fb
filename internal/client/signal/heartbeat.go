/*
Package signal provides the client for the hush-fm signaling surface.

This file contains the heartbeat loop. Beats are fire-and-forget: a failed
beat is never retried out of band, the next scheduled one simply tries
again, so presence self-heals within the staleness window once connectivity
returns.
*/
package signal

import (
	"context"
	"time"

	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

// Heartbeat sends a presence beat for the given membership every interval
// until ctx is cancelled. Run it in its own goroutine, one per joined room.
func (c *Client) Heartbeat(ctx context.Context, clientID, roomID, role string, interval time.Duration) {
	logger := logx.Logger().With().
		Str("component", "Heartbeat").
		Str("client_id", clientID).
		Str("room_id", roomID).
		Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug().Dur("interval", interval).Msg("Heartbeat loop started.")

	for {
		select {
		case <-ticker.C:
			if err := c.Beat(ctx, clientID, roomID, role); err != nil {
				// Transient failure, next tick retries.
				logger.Warn().Err(err).Msg("Heartbeat failed.")
			}
		case <-ctx.Done():
			logger.Debug().Msg("Heartbeat loop stopped.")
			return
		}
	}
}
