/*
Package token implements the relay access token issuer.

Tokens are short-lived JWTs scoped to a (client, room, role) triple and are
opaque to the rest of this system: the external media relay validates them
independently and enforces their TTL. Minting requires a current membership,
so a listener can neither obtain a DJ-scoped token nor impersonate another
client.
*/
package token

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/configs"
	"github.com/dataO1/hush-fm/internal/pkg/errs"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

// clockSkewTolerance is subtracted from the not-before claim so a relay with
// a slightly trailing clock still accepts a freshly minted token.
const clockSkewTolerance = 5 * time.Second

// Grant is the issued credential handed back to the client: the relay
// endpoint and the signed token.
type Grant struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// NameLookup resolves a client id to its display name for the token's name claim.
type NameLookup interface {
	DisplayName(clientID string) string
}

// Issuer mints relay-scoped session tokens.
type Issuer struct {
	cfg   *configs.AppConfig
	reg   *registry.Registry
	names NameLookup

	logger zerolog.Logger
}

// NewIssuer constructs an Issuer backed by the registry for membership checks.
func NewIssuer(cfg *configs.AppConfig, reg *registry.Registry, names NameLookup) *Issuer {
	return &Issuer{
		cfg:    cfg,
		reg:    reg,
		names:  names,
		logger: logx.Logger().With().Str("component", "TokenIssuer").Logger(),
	}
}

// Issue validates that (clientID, roomID, role) is a current membership and
// mints a relay access token for it. The DJ role alone carries publish
// permission; everyone may subscribe and exchange data messages.
func (i *Issuer) Issue(clientID, roomID string, role registry.Role) (Grant, *errs.CustomError) {
	if !i.cfg.RelayConfigured() {
		return Grant{}, errs.NewError(errs.ErrRelayNotConfigured)
	}

	if !i.reg.HasMembership(clientID, roomID, role) {
		i.logger.Warn().
			Str("client_id", clientID).
			Str("room_id", roomID).
			Str("role", string(role)).
			Msg("Token request without matching membership.")
		return Grant{}, errs.NewError(errs.ErrTokenForbidden)
	}

	name := i.names.DisplayName(clientID)
	if name == "" {
		name = clientID
	}

	now := time.Now()

	claims := jwt.MapClaims{
		"iss": i.cfg.RelayAPIKey,
		"sub": clientID,
		"jti": uuid.New().String(),
		"name": name,
		"nbf": now.Add(-clockSkewTolerance).Unix(),
		"iat": now.Unix(),
		"exp": now.Add(i.cfg.TokenTTL).Unix(),
		"video": map[string]any{
			"room":           roomID,
			"roomJoin":       true,
			"roomCreate":     role == registry.RoleDJ,
			"canPublish":     role == registry.RoleDJ,
			"canPublishData": true,
			"canSubscribe":   true,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.RelayAPISecret))
	if err != nil {
		i.logger.Error().Err(err).Msg("Failed to sign relay token.")
		return Grant{}, errs.NewError(errs.ErrUnknown)
	}

	i.logger.Info().
		Str("client_id", clientID).
		Str("room_id", roomID).
		Str("role", string(role)).
		Dur("ttl", i.cfg.TokenTTL).
		Msg("Relay token issued.")

	return Grant{URL: i.cfg.RelayWSURL, Token: signed}, nil
}
