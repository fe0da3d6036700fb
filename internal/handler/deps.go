package handler

import (
	"github.com/dataO1/hush-fm/internal/app/identity"
	"github.com/dataO1/hush-fm/internal/app/presence"
	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/app/roster"
	"github.com/dataO1/hush-fm/internal/app/token"
	"github.com/dataO1/hush-fm/internal/configs"
)

// AppDeps bundles the components the HTTP layer dispatches into.
type AppDeps struct {
	Config   *configs.AppConfig
	Identity *identity.Service
	Registry *registry.Registry
	Presence *presence.Tracker
	Issuer   *token.Issuer
	Hub      *roster.Hub
}
