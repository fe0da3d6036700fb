/*
Package handler provides HTTP handler functions for room lifecycle and roster reads.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/pkg/errs"
	"github.com/dataO1/hush-fm/internal/pkg/randx"
	"github.com/dataO1/hush-fm/internal/pkg/req"
	"github.com/dataO1/hush-fm/internal/pkg/resp"
)

// DefaultRoomName is used when a create request carries no name.
const DefaultRoomName = "My Disco"

// CreateRoomInput is the request body for POST /rooms.
type CreateRoomInput struct {
	Name     string `json:"name,omitempty"`
	ClientID string `json:"clientId"`
}

// HandleCreateRoom creates a room owned by the requesting client, or reuses
// the client's existing room when it already DJs one.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateRoomInput

		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if _, known := deps.Identity.Lookup(input.ClientID); !known {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknownClient))
			return
		}

		name := input.Name
		if name == "" {
			name = DefaultRoomName
		}

		roomID, existing, customErr := deps.Registry.CreateRoom(name, input.ClientID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomId":   roomID,
			"existing": existing,
		})
	}
}

// JoinRoomInput is the request body for POST /rooms/{id}/join.
type JoinRoomInput struct {
	ClientID string `json:"clientId"`
	Role     string `json:"role"`
}

// HandleJoinRoom joins a client to a room as DJ or listener.
func HandleJoinRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "id")
		if !randx.IsValidRoomID(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input JoinRoomInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		role := registry.Role(input.Role)
		if !role.Valid() {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, known := deps.Identity.Lookup(input.ClientID); !known {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknownClient))
			return
		}

		roomName, customErr := deps.Registry.JoinRoom(roomID, input.ClientID, role)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomName": roomName,
		})
	}
}

// CloseRoomInput is the request body for POST /rooms/{id}/close.
type CloseRoomInput struct {
	ClientID string `json:"clientId"`
}

// HandleCloseRoom closes a room. Only its DJ is allowed to.
func HandleCloseRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "id")

		var input CloseRoomInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if _, known := deps.Identity.Lookup(input.ClientID); !known {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknownClient))
			return
		}

		if customErr := deps.Registry.CloseRoom(roomID, input.ClientID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// LeaveRoomInput is the request body for POST /rooms/{id}/leave.
type LeaveRoomInput struct {
	ClientID string `json:"clientId"`
}

// HandleLeaveRoom removes a listener membership. Best-effort: leaving a room
// that is already gone still succeeds.
func HandleLeaveRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "id")

		var input LeaveRoomInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		deps.Registry.LeaveRoom(roomID, input.ClientID)
		resp.RespondSuccess(w, r, nil)
	}
}

// HandleListRooms returns the current roster snapshot. The optional clientId
// query parameter marks the viewer's own room in the result.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID := r.URL.Query().Get("clientId")

		snapshot := deps.Registry.Snapshot(viewerID)
		resp.RespondSuccess(w, r, snapshot)
	}
}
