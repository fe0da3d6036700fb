/*
Package signal provides the client for the hush-fm signaling surface.

It wraps the REST contract (identity, rooms, tokens, presence) behind typed
methods and decodes the server's response envelope, surfacing business
errors as APIError values the orchestration layer can branch on.
*/
package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Roles on the wire contract.
const (
	RoleDJ       = "dj"
	RoleListener = "listener"
)

// Identity is the result of POST /identity.
type Identity struct {
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName"`
	Reused      bool   `json:"reused"`
}

// RoomSummary is one roster entry as pushed or polled from the server.
type RoomSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DJName        string `json:"djName"`
	DJOnline      bool   `json:"djOnline"`
	ListenerCount int    `json:"listenerCount"`
	IsOwnRoom     bool   `json:"isOwnRoom"`
}

// Roster is the full room list.
type Roster struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Grant is the relay credential returned by POST /tokens.
type Grant struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// APIError is a business error decoded from the server's response envelope.
type APIError struct {
	Code       int
	Message    string
	HTTPStatus int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("signaling error %d (HTTP %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// envelope mirrors the server's standardized JSON response.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client talks to one signaling server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// do executes one request and decodes the envelope. A non-zero envelope code
// comes back as *APIError; out may be nil when the caller ignores the data.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("signaling request failed: %w", err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if env.Code != 0 {
		return &APIError{Code: env.Code, Message: env.Message, HTTPStatus: res.StatusCode}
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}

// Identify creates or reuses a client identity.
func (c *Client) Identify(ctx context.Context, reuseID, name string) (Identity, error) {
	var out Identity
	err := c.do(ctx, http.MethodPost, "/identity", map[string]string{
		"clientId": reuseID,
		"name":     name,
	}, &out)
	return out, err
}

// ListRooms fetches the current roster. viewerID may be empty.
func (c *Client) ListRooms(ctx context.Context, viewerID string) (Roster, error) {
	path := "/rooms"
	if viewerID != "" {
		path += "?clientId=" + viewerID
	}

	var out Roster
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// CreateRoom creates (or reuses) a room owned by clientID.
func (c *Client) CreateRoom(ctx context.Context, name, clientID string) (roomID string, existing bool, err error) {
	var out struct {
		RoomID   string `json:"roomId"`
		Existing bool   `json:"existing"`
	}
	err = c.do(ctx, http.MethodPost, "/rooms", map[string]string{
		"name":     name,
		"clientId": clientID,
	}, &out)
	return out.RoomID, out.Existing, err
}

// JoinRoom joins a room under the given role and returns the room's name.
func (c *Client) JoinRoom(ctx context.Context, roomID, clientID, role string) (roomName string, err error) {
	var out struct {
		RoomName string `json:"roomName"`
	}
	err = c.do(ctx, http.MethodPost, "/rooms/"+roomID+"/join", map[string]string{
		"clientId": clientID,
		"role":     role,
	}, &out)
	return out.RoomName, err
}

// LeaveRoom removes a listener membership. Best-effort on the server side.
func (c *Client) LeaveRoom(ctx context.Context, roomID, clientID string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+roomID+"/leave", map[string]string{
		"clientId": clientID,
	}, nil)
}

// CloseRoom closes a room. Succeeds only for the room's DJ.
func (c *Client) CloseRoom(ctx context.Context, roomID, clientID string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+roomID+"/close", map[string]string{
		"clientId": clientID,
	}, nil)
}

// IssueToken mints a relay access token for the given membership.
func (c *Client) IssueToken(ctx context.Context, clientID, roomID, role string) (Grant, error) {
	var out Grant
	err := c.do(ctx, http.MethodPost, "/tokens", map[string]string{
		"clientId": clientID,
		"roomId":   roomID,
		"role":     role,
	}, &out)
	return out, err
}

// Beat sends one presence heartbeat.
func (c *Client) Beat(ctx context.Context, clientID, roomID, role string) error {
	return c.do(ctx, http.MethodPost, "/presence/beat", map[string]string{
		"clientId": clientID,
		"roomId":   roomID,
		"role":     role,
	}, nil)
}
