// Package capture produces a single still image for a member photo, either
// from a local file or from a live camera stream, and guarantees the
// stream is released on every path out of the camera state.
package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// State of a capture session.
type State int

const (
	Idle State = iota
	FileArmed
	CameraActive
	Captured
)

func (s State) String() string {
	switch s {
	case FileArmed:
		return "file-armed"
	case CameraActive:
		return "camera-active"
	case Captured:
		return "captured"
	default:
		return "idle"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Facing selects which camera to open.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Track is one media track of a stream.
type Track interface {
	Kind() string
	Stop()
}

// Stream is a live camera stream.
type Stream interface {
	Tracks() []Track
	Frame(ctx context.Context) (image.Image, error)
}

// Device opens camera streams.
type Device interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// File is a locally selected image.
type File struct {
	Name string
	Data []byte
}

// Blob is the image handed to the uploader.
type Blob struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CapturedFilename is the name given to frames grabbed from the camera.
const CapturedFilename = "captured-image.jpg"

const defaultMaxBytes = 8 << 20

// Option configures a Session.
type Option func(*Session)

// WithMaxBytes caps the size of an armed file.
func WithMaxBytes(n int64) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithJPEGQuality sets the quality used to encode captured frames.
func WithJPEGQuality(q int) Option {
	return func(s *Session) {
		if q >= 1 && q <= 100 {
			s.quality = q
		}
	}
}

// WithFacing selects the camera requested by StartCamera.
func WithFacing(f Facing) Option {
	return func(s *Session) {
		if f != "" {
			s.facing = f
		}
	}
}

// WithOpenTimeout bounds how long StartCamera waits for the device.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// Session is one photo dialog's capture state. The live stream handle is
// held only here and only while the state is CameraActive.
type Session struct {
	device      Device
	log         *zap.Logger
	maxBytes    int64
	quality     int
	facing      Facing
	openTimeout time.Duration

	mu         sync.Mutex
	state      State
	stream     Stream
	pending    *Blob
	gen        uint64
	busy       bool
	cancelBusy context.CancelFunc
}

// NewSession returns an Idle session using device for camera access.
func NewSession(device Device, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		device:      device,
		log:         logger,
		maxBytes:    defaultMaxBytes,
		quality:     jpeg.DefaultQuality,
		facing:      FacingUser,
		openTimeout: timeouts.Device(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasStream reports whether a live stream handle is held.
func (s *Session) HasStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Pending returns the image ready for upload, if any.
func (s *Session) Pending() (Blob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Blob{}, false
	}
	return *s.pending, true
}

// ArmWithFile selects a local file. Valid only from Idle. The content must
// sniff as an image.
func (s *Session) ArmWithFile(f File) error {
	const op = "capture.ArmWithFile"

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle || s.busy {
		return apperr.State(op, "a photo source is already active; reset first")
	}
	blob, err := InspectFile(f, s.maxBytes)
	if err != nil {
		return err
	}
	s.pending = &blob
	s.state = FileArmed
	return nil
}

// InspectFile checks that f is a non-empty image of at most maxBytes and
// returns it as an upload blob. The content type comes from sniffing the
// bytes, never from the client.
func InspectFile(f File, maxBytes int64) (Blob, error) {
	const op = "capture.InspectFile"
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if len(f.Data) == 0 {
		return Blob{}, apperr.Invalid(op, "Please choose an image", map[string]string{"image": "required"})
	}
	if int64(len(f.Data)) > maxBytes {
		return Blob{}, apperr.Invalid(op, "The selected image is too large", map[string]string{"image": "too large"})
	}
	mt := mimetype.Detect(f.Data)
	if !isImage(mt) {
		return Blob{}, apperr.Invalid(op, "The selected file is not an image", map[string]string{"image": "not an image"})
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = "image" + mt.Extension()
	}
	return Blob{Filename: name, ContentType: baseType(mt), Data: append([]byte(nil), f.Data...)}, nil
}

// StartCamera opens the front-facing camera. On device failure it returns
// DeviceUnavailable and the session is unchanged, so an armed file stays
// armed. On success the camera supersedes any armed file.
func (s *Session) StartCamera(ctx context.Context) error {
	const op = "capture.StartCamera"

	s.mu.Lock()
	switch {
	case s.busy:
		s.mu.Unlock()
		return apperr.State(op, "the camera is busy")
	case s.state == CameraActive:
		s.mu.Unlock()
		return nil
	case s.state == Captured:
		s.mu.Unlock()
		return apperr.State(op, "a photo has already been captured; reset to retake")
	}
	if s.device == nil {
		s.mu.Unlock()
		return apperr.Device(op, errors.New("no camera device configured"))
	}
	octx, cancel := context.WithTimeout(ctx, s.openTimeout)
	defer cancel()
	gen := s.beginBusyLocked(cancel)
	facing := s.facing
	s.mu.Unlock()

	stream, err := s.device.Open(octx, facing)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// reset while the device was opening
		stopTracks(stream)
		return apperr.State(op, "the camera request was cancelled")
	}
	s.endBusyLocked()
	if err != nil {
		s.log.Warn("camera unavailable", zap.Error(err))
		return apperr.Device(op, err)
	}
	s.pending = nil
	s.stream = stream
	s.state = CameraActive
	return nil
}

// CaptureFrame grabs the current frame, encodes it as JPEG and stops the
// stream. Valid only from CameraActive. If the frame cannot be read the
// session stays CameraActive so the user can try again.
func (s *Session) CaptureFrame(ctx context.Context) error {
	const op = "capture.CaptureFrame"

	s.mu.Lock()
	if s.state != CameraActive || s.stream == nil {
		s.mu.Unlock()
		return apperr.State(op, "no active camera stream")
	}
	if s.busy {
		s.mu.Unlock()
		return apperr.State(op, "the camera is busy")
	}
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := s.beginBusyLocked(cancel)
	stream := s.stream
	s.mu.Unlock()

	img, err := stream.Frame(fctx)
	var buf bytes.Buffer
	if err == nil {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return apperr.State(op, "the capture was cancelled")
	}
	s.endBusyLocked()
	if err != nil {
		s.log.Warn("frame capture failed", zap.Error(err))
		return apperr.Device(op, err)
	}
	s.stopStreamLocked()
	s.pending = &Blob{Filename: CapturedFilename, ContentType: "image/jpeg", Data: buf.Bytes()}
	s.state = Captured
	return nil
}

// Complete is called after a successful upload. It returns the session to
// Idle.
func (s *Session) Complete() {
	s.Reset()
}

// Reset stops any stream, cancels a pending open or capture, drops the
// pending image and returns to Idle. Safe to call any number of times.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancelBusy != nil {
		s.cancelBusy()
	}
	s.busy = false
	s.cancelBusy = nil
	s.stopStreamLocked()
	s.pending = nil
	s.state = Idle
}

func (s *Session) beginBusyLocked(cancel context.CancelFunc) uint64 {
	s.gen++
	s.busy = true
	s.cancelBusy = cancel
	return s.gen
}

func (s *Session) endBusyLocked() {
	s.busy = false
	s.cancelBusy = nil
}

func (s *Session) stopStreamLocked() {
	if s.stream == nil {
		return
	}
	stopTracks(s.stream)
	s.stream = nil
}

func stopTracks(st Stream) {
	if st == nil {
		return
	}
	for _, t := range st.Tracks() {
		t.Stop()
	}
}

func isImage(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

func baseType(mt *mimetype.MIME) string {
	ct := mt.String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
