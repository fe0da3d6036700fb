/*
Package handler provides HTTP handler functions for identity issuance.
*/
package handler

import (
	"net/http"

	"github.com/dataO1/hush-fm/internal/pkg/req"
	"github.com/dataO1/hush-fm/internal/pkg/resp"
)

// IdentifyInput is the request body for POST /identity.
type IdentifyInput struct {
	// ClientID replays a previously issued identity (e.g. from local storage).
	ClientID string `json:"clientId,omitempty"`

	// Name is the desired display name for a brand-new identity. Ignored
	// when ClientID resolves to a known identity.
	Name string `json:"name,omitempty"`
}

// HandleIdentify creates or reuses a pseudonymous client identity.
// Re-identifying with a known id is idempotent: same id, same display name.
func HandleIdentify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input IdentifyInput

		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		client, reused, customErr := deps.Identity.Identify(input.ClientID, input.Name)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"clientId":    client.ID,
			"displayName": client.DisplayName,
			"reused":      reused,
		})
	}
}
