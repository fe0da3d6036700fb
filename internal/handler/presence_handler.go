/*
Package handler provides the HTTP handler function for presence heartbeats.
*/
package handler

import (
	"net/http"

	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/pkg/req"
	"github.com/dataO1/hush-fm/internal/pkg/resp"
)

// BeatInput is the request body for POST /presence/beat.
type BeatInput struct {
	ClientID string `json:"clientId"`
	RoomID   string `json:"roomId"`
	Role     string `json:"role"`
}

// HandleBeat ingests a presence heartbeat. The endpoint is best-effort by
// contract: beats referencing vanished memberships are silently dropped and
// the response is success either way, so a racing close never surfaces as a
// client error.
func HandleBeat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input BeatInput

		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		role := registry.Role(input.Role)
		if role.Valid() {
			deps.Presence.Beat(input.ClientID, input.RoomID, role)
		}

		resp.RespondSuccess(w, r, nil)
	}
}
