/*
Package identity implements the pseudonymous identity service.

Each browser obtains a client identity on first contact and replays it on
reconnect (the caller persists the id, e.g. in local storage). Identities are
immutable once issued: re-identifying with a known id always returns the same
display name and never creates a duplicate.
*/
package identity

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/pkg/errs"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
	"github.com/dataO1/hush-fm/internal/pkg/randx"
)

// idRetryBudget bounds collision retries during id generation. Collisions in
// a 36^9 space are vanishingly rare; the budget only guards against a broken
// random source looping forever.
const idRetryBudget = 5

// Client represents an issued pseudonymous identity.
type Client struct {
	ID          string    `json:"clientId"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"-"`
}

// Service is the in-memory identity store.
type Service struct {
	mu      sync.RWMutex
	clients map[string]Client

	logger zerolog.Logger
}

// NewService constructs an empty identity Service.
func NewService() *Service {
	return &Service{
		clients: make(map[string]Client),
		logger:  logx.Logger().With().Str("component", "Identity").Logger(),
	}
}

// Identify creates or reuses a client identity. When reuseID names a known
// client, that identity is returned unchanged and reused is true. Otherwise a
// fresh id is minted; name is used as the display name when present, or a
// pseudonymous one is generated.
func (s *Service) Identify(reuseID, name string) (client Client, reused bool, cerr *errs.CustomError) {
	if reuseID != "" {
		s.mu.RLock()
		existing, ok := s.clients[reuseID]
		s.mu.RUnlock()

		if ok {
			s.logger.Info().
				Str("client_id", existing.ID).
				Str("display_name", existing.DisplayName).
				Msg("Reusing existing client identity.")
			return existing, true, nil
		}
	}

	if name == "" {
		generated, err := randx.DisplayName()
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to generate display name.")
			return Client{}, false, errs.NewError(errs.ErrUnknown)
		}
		name = generated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	for attempt := 0; attempt < idRetryBudget; attempt++ {
		candidate, err := randx.ClientID()
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to generate client id.")
			return Client{}, false, errs.NewError(errs.ErrUnknown)
		}

		if _, taken := s.clients[candidate]; !taken {
			id = candidate
			break
		}
	}

	if id == "" {
		return Client{}, false, errs.NewError(errs.ErrUnknown)
	}

	client = Client{
		ID:          id,
		DisplayName: name,
		CreatedAt:   time.Now(),
	}
	s.clients[id] = client

	s.logger.Info().
		Str("client_id", id).
		Str("display_name", name).
		Msg("New client identity issued.")

	return client, false, nil
}

// Lookup returns the identity for the given client id.
func (s *Service) Lookup(id string) (Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[id]
	return client, ok
}

// DisplayName returns the display name for a client id, or the empty string
// for unknown ids. It satisfies the name lookup needed by the registry and
// the token issuer.
func (s *Service) DisplayName(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clients[id].DisplayName
}
