/*
Package handler provides the HTTP handlers and routing setup for the hush-fm signaling server.

This file defines the main Router, applying middleware like logging, CORS,
and IP-based rate limiting before delegating requests to the identity, room,
token, presence, and roster handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/dataO1/hush-fm/internal/pkg/limiter"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
	"github.com/dataO1/hush-fm/internal/pkg/resp"
)

const (
	// CreateRate limits room creation per IP: one room every 20 seconds.
	CreateRate  = 0.05
	CreateBurst = 2

	// JoinRate limits join attempts per IP.
	JoinRate  = 0.2
	JoinBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "hush-fm signaling",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Post("/identity", HandleIdentify(deps))

	r.Get("/rooms", HandleListRooms(deps))
	r.Method(http.MethodPost, "/rooms", createLimiter.Middleware(HandleCreateRoom(deps)))
	r.Method(http.MethodPost, "/rooms/{id}/join", joinLimiter.Middleware(HandleJoinRoom(deps)))
	r.Post("/rooms/{id}/close", HandleCloseRoom(deps))
	r.Post("/rooms/{id}/leave", HandleLeaveRoom(deps))

	r.Post("/tokens", HandleIssueToken(deps))
	r.Post("/presence/beat", HandleBeat(deps))

	r.Get("/ws/roster", HandleRosterSocket(wsUpgrader, deps))

	return r
}
