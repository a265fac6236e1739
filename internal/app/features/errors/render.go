// internal/app/features/errors/render.go
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
)

// RenderUnauthorized reports that a signed-in account is required.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusUnauthorized, detail{Kind: "unauthorized", Message: "Please sign in to continue."})
}

// RenderForbidden reports that the signed-in account may not do this.
// An empty msg uses a generic message.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg string) {
	if msg == "" {
		msg = "You don't have permission to do that."
	}
	writeBody(w, http.StatusForbidden, detail{Kind: "forbidden", Message: msg})
}

// RenderBadRequest reports a body that could not be read at all.
func RenderBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	if msg == "" {
		msg = "The request could not be read."
	}
	writeBody(w, http.StatusBadRequest, detail{Kind: "bad_request", Message: msg})
}

// RenderTooManyRequests reports a throttled sign-in attempt.
func RenderTooManyRequests(w http.ResponseWriter, r *http.Request, msg string) {
	writeBody(w, http.StatusTooManyRequests, detail{Kind: "rate_limited", Message: msg})
}

// NotFound is the router's fallback handler.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusNotFound, detail{Kind: "not_found", Message: "Not found."})
}

// MethodNotAllowed is the router's 405 handler.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusMethodNotAllowed, detail{Kind: "method_not_allowed", Message: "Method not allowed."})
}

func asAppErr(err error, target **apperr.Error) bool {
	return err != nil && stderrors.As(err, target)
}
