/*
Package handler provides the HTTP handler function for roster WebSocket subscriptions.

This file contains HandleRosterSocket, which validates the viewer, upgrades
the connection, and hands it to the roster hub for snapshot fan-out.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dataO1/hush-fm/internal/app/roster"
	"github.com/dataO1/hush-fm/internal/pkg/errs"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
	"github.com/dataO1/hush-fm/internal/pkg/resp"
)

// HandleRosterSocket upgrades GET /ws/roster to a WebSocket and attaches the
// connection to the roster hub. The clientId query parameter identifies the
// viewer so their own room can be flagged in pushed snapshots; an unknown or
// missing id still gets the roster, just without ownership marks.
func HandleRosterSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID := r.URL.Query().Get("clientId")

		if viewerID != "" {
			if _, known := deps.Identity.Lookup(viewerID); !known {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknownClient))
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade roster connection to WebSocket")
			return
		}

		sub := roster.NewSubscriber(deps.Hub, conn, viewerID)

		go sub.WritePump()

		deps.Hub.Attach(sub)

		sub.ReadPump()
	}
}
