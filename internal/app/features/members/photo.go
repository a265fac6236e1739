// internal/app/features/members/photo.go
package members

import (
	"net/http"
	"net/url"

	"github.com/dalemusser/orgdirectory/internal/app/capture"
	"github.com/dalemusser/orgdirectory/internal/app/directory"
	uierrors "github.com/dalemusser/orgdirectory/internal/app/features/errors"
	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/dalemusser/orgdirectory/internal/app/system/formutil"
	"github.com/dalemusser/orgdirectory/internal/app/system/forms"
	"github.com/dalemusser/orgdirectory/internal/app/system/limits"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type pendingImage struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// photoView is the JSON view model of a photo dialog. Member is set only
// in the response to a successful upload, after which the dialog is gone.
type photoView struct {
	Screen       string         `json:"screen"`
	MemberID     string         `json:"memberId"`
	State        capture.State  `json:"state"`
	HasStream    bool           `json:"hasStream"`
	Pending      *pendingImage  `json:"pending,omitempty"`
	CameraSocket string         `json:"cameraSocket"`
	Member       *models.Member `json:"member,omitempty"`
}

// HandleOpenPhoto handles POST /members/{id}/photo. The dialog is offered
// only to members without a photo.
func (h *Handler) HandleOpenPhoto(w http.ResponseWriter, r *http.Request) {
	const op = "members.OpenPhoto"
	id := forms.Clean(chi.URLParam(r, "id"))
	owner := ""
	if u, ok := auth.CurrentUser(r); ok {
		owner = u.ID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "open photo dialog")
	defer cancel()

	m, err := h.API.GetMember(ctx, id)
	if err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if m.HasImage() {
		uierrors.Write(w, r, apperr.State(op, "This member already has a profile image."))
		return
	}

	s, token, err := h.Screens.Open(screens.KindPhoto, owner, func(s *screens.Screen) error {
		s.Subject = m.ID
		s.Capture = capture.NewSession(h.Relay.Device(s.ID, h.AttachTimeout),
			h.Log.With(zap.String("screen", s.ID)), capture.WithMaxBytes(h.MaxUpload))
		s.OnClose(func() { h.Relay.Detach(s.ID) })
		return nil
	})
	if err != nil {
		uierrors.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, photo(token, s))
}

// ServePhoto handles GET /members/photo/{screen}.
func (h *Handler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, photo(token, s))
}

// HandleChooseFile handles POST /members/photo/{screen}/file with the
// image in the multipart part "image".
func (h *Handler) HandleChooseFile(w http.ResponseWriter, r *http.Request) {
	const op = "members.ChooseFile"
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := formutil.ParseMultipart(w, r, limits.MultipartBody(h.MaxUpload)); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	f, found, err := formutil.FilePart(r, "image")
	if err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if !found {
		uierrors.Write(w, r, apperr.Invalid(op, "Please choose an image", map[string]string{"image": "required"}))
		return
	}
	if err := s.Capture.ArmWithFile(capture.File{Name: f.Name, Data: f.Data}); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, photo(token, s))
}

// HandleStartCamera handles POST /members/photo/{screen}/camera. It
// returns once the browser's camera is streaming on the dialog's socket.
func (h *Handler) HandleStartCamera(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Capture.StartCamera(r.Context()); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, photo(token, s))
}

// ServeCameraSocket handles GET /members/photo/{screen}/camera/ws, the
// browser end of the camera relay.
func (h *Handler) ServeCameraSocket(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.Relay.ServeWS(w, r, s.ID); err != nil {
		h.Log.Debug("camera socket ended", zap.String("screen", s.ID), zap.Error(err))
	}
}

// HandleCapture handles POST /members/photo/{screen}/capture.
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Device(), h.Log, "capture frame")
	defer cancel()
	if err := s.Capture.CaptureFrame(ctx); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, photo(token, s))
}

// HandleReset handles POST /members/photo/{screen}/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s.Capture.Reset()
	uierrors.WriteJSON(w, http.StatusOK, photo(token, s))
}

// HandleUpload handles POST /members/photo/{screen}/upload. On success the
// dialog closes; on failure the pending image is kept for a retry.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "members.UploadPhoto"
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	blob, ok := s.Capture.Pending()
	if !ok {
		uierrors.Write(w, r, apperr.Invalid(op, "Please choose an image", map[string]string{"image": "required"}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upload(), h.Log, "upload member photo")
	defer cancel()

	m, err := h.API.UploadMemberImage(ctx, s.Subject, directory.Image{
		Filename:    blob.Filename,
		ContentType: blob.ContentType,
		Data:        blob.Data,
	})
	if err != nil {
		h.Log.Warn("member photo upload failed", zap.String("member", s.Subject), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	h.Log.Info("member photo uploaded", zap.String("member", m.ID), zap.Int("bytes", len(blob.Data)))

	s.Capture.Complete()
	out := photo(token, s)
	out.Member = &m
	h.Screens.Dismiss(token)
	uierrors.WriteJSON(w, http.StatusOK, out)
}

// HandleClosePhoto handles DELETE /members/photo/{screen}. Closing the
// dialog stops the camera.
func (h *Handler) HandleClosePhoto(w http.ResponseWriter, r *http.Request) {
	h.Screens.Dismiss(chi.URLParam(r, "screen"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (string, *screens.Screen, bool) {
	token := chi.URLParam(r, "screen")
	s, err := h.Screens.Lookup(token, screens.KindPhoto)
	if err != nil {
		uierrors.Write(w, r, err)
		return "", nil, false
	}
	return token, s, true
}

func photo(token string, s *screens.Screen) photoView {
	out := photoView{
		Screen:       token,
		MemberID:     s.Subject,
		State:        s.Capture.State(),
		HasStream:    s.Capture.HasStream(),
		CameraSocket: "/members/photo/" + url.PathEscape(token) + "/camera/ws",
	}
	if blob, ok := s.Capture.Pending(); ok {
		out.Pending = &pendingImage{Filename: blob.Filename, ContentType: blob.ContentType, Size: len(blob.Data)}
	}
	return out
}
