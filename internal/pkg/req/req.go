/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates JSON body parsing with strict field checking so that
malformed or oversized requests are rejected before reaching business logic.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dataO1/hush-fm/internal/pkg/errs"
)

// MaxBodyBytes defines the maximum allowed size for a signaling request body.
// Every payload on this surface is a small JSON object; anything larger is abuse.
const MaxBodyBytes int64 = 64 << 10 // 64 KB

// BindJSON binds the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
