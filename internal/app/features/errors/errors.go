// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
)

// body is the JSON envelope for every error response.
type body struct {
	Error detail `json:"error"`
}

type detail struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Status maps an error to the HTTP status the browser shell sees.
//
//	ValidationFailure → 422
//	InvalidState      → 409
//	ServerRejected    → the upstream 4xx, otherwise 502
//	NetworkFailure    → 504
//	DeviceUnavailable → 503
//	anything else     → 500
func Status(err error) int {
	var ae *apperr.Error
	if !asAppErr(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case apperr.ValidationFailure:
		return http.StatusUnprocessableEntity
	case apperr.InvalidState:
		return http.StatusConflict
	case apperr.ServerRejected:
		if ae.Status >= 400 && ae.Status < 500 {
			return ae.Status
		}
		return http.StatusBadGateway
	case apperr.NetworkFailure:
		return http.StatusGatewayTimeout
	case apperr.DeviceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write renders err as {"error":{"kind","message","fields"}}. Errors
// outside the taxonomy are reported as "internal" without their text.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	d := detail{Kind: "internal", Message: "Something went wrong. Please try again."}
	var ae *apperr.Error
	if asAppErr(err, &ae) {
		d = detail{Kind: string(ae.Kind), Message: apperr.MessageOf(ae), Fields: ae.Fields}
	}
	writeBody(w, Status(err), d)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBody(w http.ResponseWriter, status int, d detail) {
	WriteJSON(w, status, body{Error: d})
}
