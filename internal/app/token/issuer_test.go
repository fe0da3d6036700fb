package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataO1/hush-fm/internal/app/event"
	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/configs"
	"github.com/dataO1/hush-fm/internal/pkg/errs"
)

type stubNames map[string]string

func (s stubNames) DisplayName(clientID string) string { return s[clientID] }

const (
	djID       = "client_aaaaaaaaa"
	listenerID = "client_bbbbbbbbb"
	apiSecret  = "test-secret"
)

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:    "development",
		RelayWSURL:     "wss://relay.example.com",
		RelayAPIKey:    "test-key",
		RelayAPISecret: apiSecret,
		TokenTTL:       10 * time.Minute,
	}
}

func newTestIssuer(t *testing.T, cfg *configs.AppConfig) (*Issuer, *registry.Registry, string) {
	t.Helper()

	names := stubNames{djID: "FunkyBeats42", listenerID: "NeonWave7"}
	reg := registry.NewRegistry(names, event.NewBus())

	roomID, _, cerr := reg.CreateRoom("Friday Mix", djID)
	require.Nil(t, cerr, "expected room creation to succeed")

	_, cerr = reg.JoinRoom(roomID, listenerID, registry.RoleListener)
	require.Nil(t, cerr, "expected listener join to succeed")

	return NewIssuer(cfg, reg, names), reg, roomID
}

// parseClaims verifies the signature and returns the claims.
func parseClaims(t *testing.T, signed string) jwt.MapClaims {
	t.Helper()

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return []byte(apiSecret), nil
	})
	require.NoError(t, err, "expected the token to parse and verify")
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func Test_Issue_djGrant(t *testing.T) {
	issuer, _, roomID := newTestIssuer(t, testConfig())

	grant, cerr := issuer.Issue(djID, roomID, registry.RoleDJ)
	require.Nil(t, cerr, "expected the DJ grant to be issued")

	assert.Equal(t, "wss://relay.example.com", grant.URL, "expected the relay endpoint in the grant")

	claims := parseClaims(t, grant.Token)
	assert.Equal(t, "test-key", claims["iss"])
	assert.Equal(t, djID, claims["sub"])
	assert.Equal(t, "FunkyBeats42", claims["name"])
	assert.NotEmpty(t, claims["jti"], "expected a unique token id")

	video, ok := claims["video"].(map[string]any)
	require.True(t, ok, "expected a video grant block")
	assert.Equal(t, roomID, video["room"], "expected the token scoped to the room")
	assert.Equal(t, true, video["canPublish"], "expected the DJ to hold publish permission")
	assert.Equal(t, true, video["canSubscribe"])

	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	iat, ok := claims["iat"].(float64)
	require.True(t, ok)
	assert.InDelta(t, (10 * time.Minute).Seconds(), exp-iat, 1, "expected the configured TTL")
}

func Test_Issue_listenerGrantCannotPublish(t *testing.T) {
	issuer, _, roomID := newTestIssuer(t, testConfig())

	grant, cerr := issuer.Issue(listenerID, roomID, registry.RoleListener)
	require.Nil(t, cerr, "expected the listener grant to be issued")

	claims := parseClaims(t, grant.Token)
	video, ok := claims["video"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, false, video["canPublish"], "expected no publish permission for a listener")
	assert.Equal(t, true, video["canSubscribe"])
	assert.Equal(t, true, video["canPublishData"])
}

func Test_Issue_requiresMembership(t *testing.T) {
	issuer, _, roomID := newTestIssuer(t, testConfig())

	tcases := []struct {
		name     string
		clientID string
		roomID   string
		role     registry.Role
	}{
		{name: "stranger", clientID: "client_ccccccccc", roomID: roomID, role: registry.RoleListener},
		{name: "listener claiming dj", clientID: listenerID, roomID: roomID, role: registry.RoleDJ},
		{name: "unknown room", clientID: djID, roomID: "deadbeef", role: registry.RoleDJ},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, cerr := issuer.Issue(tc.clientID, tc.roomID, tc.role)
			require.NotNil(t, cerr, "expected the grant to be refused")
			assert.Equal(t, errs.ErrTokenForbidden, cerr.Code)
		})
	}
}

func Test_Issue_relayNotConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.RelayAPISecret = ""

	issuer, _, roomID := newTestIssuer(t, cfg)

	_, cerr := issuer.Issue(djID, roomID, registry.RoleDJ)
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrRelayNotConfigured, cerr.Code)
}
