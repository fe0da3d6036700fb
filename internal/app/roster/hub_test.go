package roster

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataO1/hush-fm/internal/app/event"
	"github.com/dataO1/hush-fm/internal/app/registry"
)

func newTestHub(t *testing.T) (*Hub, *registry.Registry, *event.Bus) {
	t.Helper()

	bus := event.NewBus()
	reg := registry.NewRegistry(nil, bus)
	return NewHub(reg, bus), reg, bus
}

func Test_Attach_queuesInitialSnapshot(t *testing.T) {
	hub, reg, _ := newTestHub(t)

	roomID, _, cerr := reg.CreateRoom("Friday Mix", "client_aaaaaaaaa")
	require.Nil(t, cerr)

	sub := NewSubscriber(hub, nil, "client_bbbbbbbbb")
	hub.Attach(sub)
	defer hub.Detach(sub)

	select {
	case payload := <-sub.send:
		var snap registry.Snapshot
		require.NoError(t, json.Unmarshal(payload, &snap))
		require.Len(t, snap.Rooms, 1)
		assert.Equal(t, roomID, snap.Rooms[0].ID)
	default:
		t.Fatal("expected an initial snapshot without waiting for a mutation")
	}
}

func Test_broadcast_reachesEverySubscriber(t *testing.T) {
	hub, reg, _ := newTestHub(t)

	first := NewSubscriber(hub, nil, "client_aaaaaaaaa")
	second := NewSubscriber(hub, nil, "client_bbbbbbbbb")
	hub.Attach(first)
	hub.Attach(second)

	// Drain the initial snapshots.
	<-first.send
	<-second.send

	_, _, cerr := reg.CreateRoom("Friday Mix", "client_aaaaaaaaa")
	require.Nil(t, cerr)

	hub.broadcast(event.Event{Kind: event.KindRoomCreated})

	for _, sub := range []*Subscriber{first, second} {
		select {
		case payload := <-sub.send:
			var snap registry.Snapshot
			require.NoError(t, json.Unmarshal(payload, &snap))
			assert.Len(t, snap.Rooms, 1)
		default:
			t.Fatal("expected a snapshot on every subscriber")
		}
	}

	// Ownership marks are viewer-specific.
	hub.broadcast(event.Event{Kind: event.KindPresenceChanged})

	var snap registry.Snapshot
	require.NoError(t, json.Unmarshal(<-first.send, &snap))
	assert.True(t, snap.Rooms[0].IsOwnRoom, "expected the DJ's own view flagged")

	require.NoError(t, json.Unmarshal(<-second.send, &snap))
	assert.False(t, snap.Rooms[0].IsOwnRoom)
}

func Test_push_disconnectsSlowConsumer(t *testing.T) {
	hub, reg, _ := newTestHub(t)

	_, _, cerr := reg.CreateRoom("Friday Mix", "client_aaaaaaaaa")
	require.Nil(t, cerr)

	sub := NewSubscriber(hub, nil, "client_bbbbbbbbb")
	hub.Attach(sub)

	// Nothing drains the send buffer; enough pushes must overflow it and
	// evict the subscriber instead of blocking the fan-out.
	for n := 0; n < sendBuffer+1; n++ {
		hub.push(sub)
	}

	hub.mu.Lock()
	_, stillAttached := hub.subscribers[sub]
	hub.mu.Unlock()
	assert.False(t, stillAttached, "expected the slow consumer to be detached")

	assert.False(t, sub.queue([]byte("late")), "expected the closed subscriber to refuse new payloads")
}

func Test_ReadPump_disconnectsIdleSubscriber(t *testing.T) {
	hub, reg, _ := newTestHub(t)

	upgrader := websocket.Upgrader{}
	done := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		sub := NewSubscriber(hub, conn, "client_bbbbbbbbb")
		sub.idle = 500 * time.Millisecond
		hub.Attach(sub)

		go sub.WritePump()
		sub.ReadPump()
		close(done)
	}))
	t.Cleanup(server.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err, "expected the roster dial to succeed")
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// Drain the initial snapshot.
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	// A ping inside the window refreshes the idle deadline: the connection
	// must still deliver snapshots past the original deadline.
	time.Sleep(250 * time.Millisecond)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	time.Sleep(300 * time.Millisecond)

	_, _, cerr := reg.CreateRoom("Friday Mix", "client_aaaaaaaaa")
	require.Nil(t, cerr)
	hub.broadcast(event.Event{Kind: event.KindRoomCreated})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err, "expected the pinged connection to outlive the original deadline")

	var snap registry.Snapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	assert.Len(t, snap.Rooms, 1)

	// Now stay silent; the server must drop the connection.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "expected the idle connection dropped by the server")

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout: idle subscriber read pump did not end")
	}

	hub.mu.Lock()
	remaining := len(hub.subscribers)
	hub.mu.Unlock()
	assert.Zero(t, remaining, "expected the idle subscriber detached from the hub")
}

func Test_Detach_isIdempotent(t *testing.T) {
	hub, _, _ := newTestHub(t)

	sub := NewSubscriber(hub, nil, "client_aaaaaaaaa")
	hub.Attach(sub)

	hub.Detach(sub)
	hub.Detach(sub)
}
