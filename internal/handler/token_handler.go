/*
Package handler provides the HTTP handler function for relay token issuance.
*/
package handler

import (
	"net/http"

	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/pkg/errs"
	"github.com/dataO1/hush-fm/internal/pkg/req"
	"github.com/dataO1/hush-fm/internal/pkg/resp"
)

// IssueTokenInput is the request body for POST /tokens.
type IssueTokenInput struct {
	ClientID string `json:"clientId"`
	RoomID   string `json:"roomId"`
	Role     string `json:"role"`
}

// HandleIssueToken mints a relay access token scoped to the requested
// (client, room, role) triple. The issuer rejects requests without a
// matching membership.
func HandleIssueToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input IssueTokenInput

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

		grant, customErr := deps.Issuer.Issue(input.ClientID, input.RoomID, role)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, grant)
	}
}
