/*
Package roster implements the roster broadcaster.

This file defines the Subscriber struct, one per roster WebSocket
connection. The read pump consumes the client's application-level pings and
enforces the idle timeout; the write pump drains the bounded send buffer.
*/
package roster

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

const (
	// writeWait is the timeout for a single write to the connection.
	writeWait = 10 * time.Second

	// idleWait is how long the server tolerates a connection with no
	// inbound traffic. Clients ping every 30s, so this allows two misses.
	idleWait = 75 * time.Second

	// maxMessageSize bounds inbound frames; subscribers only ever send pings.
	maxMessageSize = 512

	// sendBuffer is the per-subscriber snapshot queue. Overflowing it marks
	// the consumer as too slow to keep.
	sendBuffer = 16
)

// Subscriber represents one open roster connection.
type Subscriber struct {
	hub      *Hub
	conn     *websocket.Conn
	viewerID string

	send      chan []byte
	closeOnce sync.Once

	// idle is the read deadline window, idleWait unless shortened in tests.
	idle time.Duration

	logger zerolog.Logger
}

// NewSubscriber wraps an upgraded connection for the given viewer.
func NewSubscriber(hub *Hub, conn *websocket.Conn, viewerID string) *Subscriber {
	return &Subscriber{
		hub:      hub,
		conn:     conn,
		viewerID: viewerID,
		send:     make(chan []byte, sendBuffer),
		idle:     idleWait,
		logger: logx.Logger().With().
			Str("component", "RosterSubscriber").
			Str("viewer_id", viewerID).
			Logger(),
	}
}

// queue offers a payload to the send buffer without blocking. It reports
// false when the buffer is full or the subscriber is already closed.
func (s *Subscriber) queue(payload []byte) (ok bool) {
	defer func() {
		// Losing a race with close() can send on a closed channel.
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// close shuts the send channel, which terminates the write pump and closes
// the connection.
func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// ReadPump consumes inbound frames until the connection dies or stays idle
// past idleWait. Any traffic, including the application-level "ping",
// refreshes the idle deadline.
func (s *Subscriber) ReadPump() {
	defer func() {
		s.hub.Detach(s)
		s.close()
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Subscriber connection close error.")
		}
	}()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(s.idle)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline.")
		return
	}

	for {
		_, _, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Roster subscriber read ended.")
			}
			return
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.idle)); err != nil {
			s.logger.Error().Err(err).Msg("Failed to refresh read deadline.")
			return
		}
	}
}

// WritePump drains the send buffer onto the connection.
func (s *Subscriber) WritePump() {
	defer func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Subscriber connection close error in WritePump.")
		}
	}()

	for payload := range s.send {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			s.logger.Error().Err(err).Msg("Failed to set write deadline.")
			return
		}

		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Info().Err(err).Msg("Error writing roster snapshot.")
			return
		}
	}

	// Send channel closed: say goodbye properly.
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		s.logger.Debug().Err(err).Msg("Error writing close message.")
	}
}
