// internal/app/features/heartbeat/handler.go
package heartbeat

import (
	"net/http"

	uierrors "github.com/dalemusser/orgdirectory/internal/app/features/errors"
	"github.com/dalemusser/orgdirectory/internal/app/system/formutil"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"go.uber.org/zap"
)

// maxScreens bounds how many tokens one heartbeat may carry.
const maxScreens = 32

// Handler keeps a browser's open screens from being swept while the user
// is looking at them without clicking.
type Handler struct {
	Screens *screens.Registry
	Log     *zap.Logger
}

// NewHandler creates a new heartbeat handler.
func NewHandler(reg *screens.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		Screens: reg,
		Log:     logger,
	}
}

// heartbeatRequest is the JSON body for the heartbeat endpoint.
type heartbeatRequest struct {
	Screens []string `json:"screens"`
}

// heartbeatResponse splits the submitted tokens into those still open and
// those already closed, so the browser can drop dead screens.
type heartbeatResponse struct {
	Alive  []string `json:"alive"`
	Closed []string `json:"closed"`
}

// ServeHeartbeat handles POST /heartbeat.
func (h *Handler) ServeHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := formutil.Decode(w, r, &req); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if len(req.Screens) > maxScreens {
		uierrors.RenderBadRequest(w, r, "Too many screens in one heartbeat.")
		return
	}

	out := heartbeatResponse{Alive: []string{}, Closed: []string{}}
	for _, token := range req.Screens {
		if _, err := h.Screens.Lookup(token, ""); err != nil {
			out.Closed = append(out.Closed, token)
			continue
		}
		out.Alive = append(out.Alive, token)
	}
	if len(out.Closed) > 0 {
		h.Log.Debug("heartbeat named closed screens", zap.Int("closed", len(out.Closed)))
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}
