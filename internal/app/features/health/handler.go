package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger checks that the directory API answers.
type Pinger interface {
	Ping(ctx context.Context) error
	BaseURL() string
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	API     Pinger
	Screens *screens.Registry
	Log     *zap.Logger
}

// NewHandler constructs a health Handler. reg may be nil.
func NewHandler(api Pinger, reg *screens.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		API:     api,
		Screens: reg,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status  string              `json:"status"`
	API     string              `json:"api"`
	BaseURL string              `json:"base_url"`
	Message string              `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
	Screens []screens.KindCount `json:"screens,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "api":"reachable", "base_url":"http://…", "screens":[…] }
//
// When the directory API cannot be reached: 503 and
//
//	{ "status":"error", "api":"unreachable", "message":"Directory API unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:  "ok",
		API:     "reachable",
		BaseURL: h.API.BaseURL(),
	}
	if h.Screens != nil {
		resp.Screens = h.Screens.Counts()
	}

	if err := h.API.Ping(ctx); err != nil {
		h.Log.Error("health-check: directory ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.API = "unreachable"
		resp.Message = "Directory API unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	_ = json.NewEncoder(w).Encode(resp)
}
