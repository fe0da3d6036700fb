package handler

import (
	"bytes"
	"context"
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
	"github.com/dataO1/hush-fm/internal/app/identity"
	"github.com/dataO1/hush-fm/internal/app/presence"
	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/app/roster"
	"github.com/dataO1/hush-fm/internal/app/token"
	"github.com/dataO1/hush-fm/internal/configs"
	"github.com/dataO1/hush-fm/internal/pkg/errs"
	"github.com/dataO1/hush-fm/internal/pkg/randx"
)

// envelope mirrors the response shape for decoding in tests.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type testApp struct {
	server *httptest.Server
	deps   *AppDeps
}

// newTestApp wires a full application behind an httptest server. Each call
// gets fresh rate limiters, so tests do not starve each other's buckets.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:       "development",
		Port:              8080,
		AllowedOrigins:    []string{},
		RelayWSURL:        "wss://relay.example.com",
		RelayAPIKey:       "test-key",
		RelayAPISecret:    "test-secret",
		HeartbeatInterval: 15 * time.Second,
		StaleThreshold:    45 * time.Second,
		DJAbsentGrace:     2 * time.Minute,
		SweepInterval:     15 * time.Second,
		TokenTTL:          10 * time.Minute,
	}

	bus := event.NewBus()
	identities := identity.NewService()
	reg := registry.NewRegistry(identities, bus)

	tracker := presence.NewTracker(presence.Config{
		StaleThreshold: cfg.StaleThreshold,
		DJAbsentGrace:  cfg.DJAbsentGrace,
		SweepInterval:  cfg.SweepInterval,
	}, reg, bus)
	reg.SetPresence(tracker)

	issuer := token.NewIssuer(cfg, reg, identities)
	hub := roster.NewHub(reg, bus)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Shutdown()
	})

	deps := &AppDeps{
		Config:   cfg,
		Identity: identities,
		Registry: reg,
		Presence: tracker,
		Issuer:   issuer,
		Hub:      hub,
	}

	server := httptest.NewServer(Router(deps))
	t.Cleanup(server.Close)

	return &testApp{server: server, deps: deps}
}

// post sends a JSON body and decodes the envelope.
func (a *testApp) post(t *testing.T, path string, body any) (int, envelope) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	res, err := http.Post(a.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err, "expected the request to reach the server")
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env), "expected an envelope response")
	return res.StatusCode, env
}

func (a *testApp) get(t *testing.T, path string) (int, envelope) {
	t.Helper()

	res, err := http.Get(a.server.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

// identify issues a fresh identity and returns its client id.
func (a *testApp) identify(t *testing.T, name string) string {
	t.Helper()

	status, env := a.post(t, "/identity", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, env.Code)

	var data struct {
		ClientID string `json:"clientId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.ClientID
}

func Test_HandleHealth(t *testing.T) {
	app := newTestApp(t)

	status, env := app.get(t, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Zero(t, env.Code)
}

func Test_HandleIdentify(t *testing.T) {
	app := newTestApp(t)

	t.Run("fresh identity", func(t *testing.T) {
		status, env := app.post(t, "/identity", map[string]string{})
		require.Equal(t, http.StatusOK, status)
		require.Zero(t, env.Code)

		var data struct {
			ClientID    string `json:"clientId"`
			DisplayName string `json:"displayName"`
			Reused      bool   `json:"reused"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))

		assert.True(t, randx.IsValidClientID(data.ClientID))
		assert.NotEmpty(t, data.DisplayName)
		assert.False(t, data.Reused)
	})

	t.Run("reuse is idempotent", func(t *testing.T) {
		clientID := app.identify(t, "FunkyBeats42")

		status, env := app.post(t, "/identity", map[string]string{"clientId": clientID})
		require.Equal(t, http.StatusOK, status)

		var data struct {
			ClientID string `json:"clientId"`
			Reused   bool   `json:"reused"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))

		assert.Equal(t, clientID, data.ClientID)
		assert.True(t, data.Reused)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		status, env := app.post(t, "/identity", map[string]string{"unexpected": "field"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, errs.ErrInvalidJSONFormat, env.Code)
	})
}

func Test_roomLifecycle(t *testing.T) {
	app := newTestApp(t)

	djID := app.identify(t, "FunkyBeats42")
	listenerID := app.identify(t, "NeonWave7")

	// DJ creates the room.
	status, env := app.post(t, "/rooms", map[string]string{"name": "Friday Mix", "clientId": djID})
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, env.Code)

	var created struct {
		RoomID   string `json:"roomId"`
		Existing bool   `json:"existing"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.True(t, randx.IsValidRoomID(created.RoomID), "expected an 8-hex room id, got %q", created.RoomID)
	assert.False(t, created.Existing)

	// Listener joins.
	status, env = app.post(t, "/rooms/"+created.RoomID+"/join", map[string]string{
		"clientId": listenerID,
		"role":     "listener",
	})
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, env.Code)

	var joinData struct {
		RoomName string `json:"roomName"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &joinData))
	assert.Equal(t, "Friday Mix", joinData.RoomName)

	// A second DJ claim conflicts.
	status, env = app.post(t, "/rooms/"+created.RoomID+"/join", map[string]string{
		"clientId": listenerID,
		"role":     "dj",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, errs.ErrRoleConflict, env.Code)

	// The roster reflects the membership.
	status, env = app.get(t, "/rooms?clientId="+djID)
	require.Equal(t, http.StatusOK, status)

	var roster struct {
		Rooms []registry.RoomSummary `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &roster))
	require.Len(t, roster.Rooms, 1)
	assert.Equal(t, 1, roster.Rooms[0].ListenerCount)
	assert.True(t, roster.Rooms[0].IsOwnRoom)
	assert.Equal(t, "FunkyBeats42", roster.Rooms[0].DJName)

	// Tokens for both roles.
	status, env = app.post(t, "/tokens", map[string]string{
		"clientId": djID, "roomId": created.RoomID, "role": "dj",
	})
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, env.Code)

	var grant struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &grant))
	assert.Equal(t, "wss://relay.example.com", grant.URL)
	assert.NotEmpty(t, grant.Token)

	// A listener cannot mint a DJ token.
	status, env = app.post(t, "/tokens", map[string]string{
		"clientId": listenerID, "roomId": created.RoomID, "role": "dj",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, errs.ErrTokenForbidden, env.Code)

	// Only the DJ may close.
	status, env = app.post(t, "/rooms/"+created.RoomID+"/close", map[string]string{"clientId": listenerID})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, errs.ErrNotRoomDJ, env.Code)

	status, env = app.post(t, "/rooms/"+created.RoomID+"/close", map[string]string{"clientId": djID})
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, env.Code)

	status, env = app.get(t, "/rooms")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &roster))
	assert.Empty(t, roster.Rooms, "expected the roster empty after close")
}

func Test_HandleCreateRoom_reusesExisting(t *testing.T) {
	app := newTestApp(t)
	djID := app.identify(t, "FunkyBeats42")

	_, env := app.post(t, "/rooms", map[string]string{"name": "Friday Mix", "clientId": djID})
	require.Zero(t, env.Code)

	var first struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))

	_, env = app.post(t, "/rooms", map[string]string{"name": "Other", "clientId": djID})
	require.Zero(t, env.Code)

	var second struct {
		RoomID   string `json:"roomId"`
		Existing bool   `json:"existing"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &second))

	assert.True(t, second.Existing)
	assert.Equal(t, first.RoomID, second.RoomID)
}

func Test_HandleJoinRoom_validation(t *testing.T) {
	app := newTestApp(t)
	clientID := app.identify(t, "NeonWave7")

	t.Run("malformed room id", func(t *testing.T) {
		status, env := app.post(t, "/rooms/not-a-room/join", map[string]string{
			"clientId": clientID, "role": "listener",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, errs.ErrInvalidParams, env.Code)
	})

	t.Run("unknown room", func(t *testing.T) {
		status, env := app.post(t, "/rooms/deadbeef/join", map[string]string{
			"clientId": clientID, "role": "listener",
		})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, errs.ErrRoomNotFound, env.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		status, env := app.post(t, "/rooms/deadbeef/join", map[string]string{
			"clientId": clientID, "role": "producer",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, errs.ErrInvalidParams, env.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		status, env := app.post(t, "/rooms/deadbeef/join", map[string]string{
			"clientId": "client_notissued", "role": "listener",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, errs.ErrUnknownClient, env.Code)
	})
}

func Test_HandleBeat_bestEffort(t *testing.T) {
	app := newTestApp(t)
	clientID := app.identify(t, "NeonWave7")

	// Beats that reference no membership still succeed.
	status, env := app.post(t, "/presence/beat", map[string]string{
		"clientId": clientID, "roomId": "deadbeef", "role": "listener",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Zero(t, env.Code)
}

func Test_createRoomRateLimit(t *testing.T) {
	app := newTestApp(t)
	djID := app.identify(t, "FunkyBeats42")
	otherID := app.identify(t, "NeonWave7")

	// Burst allows two creates; the third from the same IP is throttled.
	_, env := app.post(t, "/rooms", map[string]string{"clientId": djID})
	require.Zero(t, env.Code)

	_, env = app.post(t, "/rooms", map[string]string{"clientId": otherID})
	require.Zero(t, env.Code)

	status, env := app.post(t, "/rooms", map[string]string{"clientId": otherID})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, errs.ErrRateLimitExceeded, env.Code)
}

func Test_HandleRosterSocket(t *testing.T) {
	app := newTestApp(t)

	djID := app.identify(t, "FunkyBeats42")
	viewerID := app.identify(t, "NeonWave7")

	wsURL := "ws" + strings.TrimPrefix(app.server.URL, "http") + "/ws/roster?clientId=" + viewerID

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "expected the roster socket to upgrade")
	defer conn.Close()

	readSnapshot := func() registry.Snapshot {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err, "expected a snapshot frame")

		var snap registry.Snapshot
		require.NoError(t, json.Unmarshal(payload, &snap))
		return snap
	}

	// The initial snapshot arrives without waiting for a mutation.
	snap := readSnapshot()
	assert.Empty(t, snap.Rooms)

	// A mutation triggers a push.
	_, env := app.post(t, "/rooms", map[string]string{"name": "Friday Mix", "clientId": djID})
	require.Zero(t, env.Code)

	snap = readSnapshot()
	require.Len(t, snap.Rooms, 1)
	assert.Equal(t, "Friday Mix", snap.Rooms[0].Name)
	assert.False(t, snap.Rooms[0].IsOwnRoom, "expected the viewer's perspective, not the DJ's")
}

func Test_HandleRosterSocket_unknownViewer(t *testing.T) {
	app := newTestApp(t)

	wsURL := "ws" + strings.TrimPrefix(app.server.URL, "http") + "/ws/roster?clientId=client_notissued"

	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err, "expected the upgrade to be refused")
	require.NotNil(t, res)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
