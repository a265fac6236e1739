package errors_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/orgdirectory/internal/app/features/errors"
	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Invalid("op", "Please enter a team name", nil), http.StatusUnprocessableEntity},
		{"state", apperr.State("op", "select an organization first"), http.StatusConflict},
		{"rejected 404", apperr.Rejected("op", 404, "Organization not found"), http.StatusNotFound},
		{"rejected 401", apperr.Rejected("op", 401, "bad credentials"), http.StatusUnauthorized},
		{"rejected 500", apperr.Rejected("op", 500, "boom"), http.StatusBadGateway},
		{"malformed", apperr.Malformed("op", fmt.Errorf("missing id")), http.StatusBadGateway},
		{"network", apperr.Network("op", fmt.Errorf("dial")), http.StatusGatewayTimeout},
		{"device", apperr.Device("op", fmt.Errorf("denied")), http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("outer: %w", apperr.State("op", "x")), http.StatusConflict},
		{"plain", fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uierrors.Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

type envelope struct {
	Error struct {
		Kind    string            `json:"kind"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func TestWrite_ValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	err := apperr.Invalid("forms.Validate", "Please select a team.", map[string]string{"teamId": "Please select a team."})

	uierrors.Write(rec, req, err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got envelope
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error.Kind != "validation_failure" || got.Error.Message != "Please select a team." {
		t.Errorf("body = %+v", got.Error)
	}
	if got.Error.Fields["teamId"] == "" {
		t.Errorf("fields = %v", got.Error.Fields)
	}
}

func TestWrite_HidesUntypedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("secret detail"))

	var got envelope
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got.Error.Kind != "internal" {
		t.Errorf("kind = %q", got.Error.Kind)
	}
	if got.Error.Message == "secret detail" {
		t.Errorf("internal error text leaked")
	}
}

func TestFallbackHandlers(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
		want int
		kind string
	}{
		{"not found", uierrors.NotFound, http.StatusNotFound, "not_found"},
		{"method", uierrors.MethodNotAllowed, http.StatusMethodNotAllowed, "method_not_allowed"},
		{"unauthorized", uierrors.RenderUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { uierrors.RenderForbidden(w, r, "") }, http.StatusForbidden, "forbidden"},
		{"throttled", func(w http.ResponseWriter, r *http.Request) { uierrors.RenderTooManyRequests(w, r, "slow down") }, http.StatusTooManyRequests, "rate_limited"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var got envelope
			_ = json.NewDecoder(rec.Body).Decode(&got)
			if got.Error.Kind != tt.kind || got.Error.Message == "" {
				t.Errorf("body = %+v", got.Error)
			}
		})
	}
}
