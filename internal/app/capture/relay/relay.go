// Package relay turns a browser's camera into a capture.Device.
//
// The browser opens a WebSocket for its photo dialog and waits. When the
// server opens the device it sends {"type":"start","facing":"user"}; the
// browser calls getUserMedia and streams still frames (JPEG, PNG or WebP)
// as binary messages, or reports {"type":"error","message":...} when the
// camera cannot be used. Stopping the stream sends {"type":"stop"} and
// closes the socket.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/capture"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const (
	writeWait       = 5 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	defaultMaxFrame = 4 << 20
)

// ErrNotAttached is returned by Open when no browser connected in time.
var ErrNotAttached = errors.New("relay: no browser camera attached")

// message is the JSON control envelope exchanged with the browser.
type message struct {
	Type    string `json:"type"`
	Facing  string `json:"facing,omitempty"`
	Message string `json:"message,omitempty"`
}

// Option configures a Hub.
type Option func(*Hub)

// WithMaxFrameBytes caps the size of one relayed frame.
func WithMaxFrameBytes(n int64) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxFrame = n
		}
	}
}

// WithCheckOrigin overrides the upgrader's origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// Hub pairs photo dialogs with browser camera connections.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	maxFrame int64

	mu       sync.Mutex
	peers    map[string]*peer
	attached chan struct{} // closed and replaced whenever a peer attaches
	closed   bool
}

// NewHub returns an empty hub.
func NewHub(logger *zap.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		log:      logger,
		maxFrame: defaultMaxFrame,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
		},
		peers:    make(map[string]*peer),
		attached: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeWS upgrades the request and relays frames for sessionID until the
// browser disconnects or the stream is stopped. A newer connection for the
// same session replaces the old one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("relay: upgrade: %w", err)
	}
	p := newPeer(ws, h.maxFrame)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		p.close()
		return errors.New("relay: hub closed")
	}
	if old := h.peers[sessionID]; old != nil {
		old.close()
	}
	h.peers[sessionID] = p
	close(h.attached)
	h.attached = make(chan struct{})
	h.mu.Unlock()

	h.log.Debug("camera relay attached", zap.String("session", sessionID))
	go p.pingLoop()
	err = p.readLoop()

	h.mu.Lock()
	if h.peers[sessionID] == p {
		delete(h.peers, sessionID)
	}
	h.mu.Unlock()
	p.close()
	h.log.Debug("camera relay detached", zap.String("session", sessionID), zap.Error(err))
	return nil
}

// Attached reports whether a browser is connected for sessionID.
func (h *Hub) Attached(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peers[sessionID] != nil
}

// Detach closes the browser connection for sessionID, if any.
func (h *Hub) Detach(sessionID string) {
	h.mu.Lock()
	p := h.peers[sessionID]
	delete(h.peers, sessionID)
	h.mu.Unlock()
	if p != nil {
		p.stop()
	}
}

// Close disconnects every browser.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	peers := h.peers
	h.peers = make(map[string]*peer)
	h.mu.Unlock()
	for _, p := range peers {
		p.stop()
	}
}

// Device returns a capture.Device bound to sessionID. Open waits up to
// attachTimeout for the browser to connect and deliver its first frame.
func (h *Hub) Device(sessionID string, attachTimeout time.Duration) capture.Device {
	return &device{hub: h, session: sessionID, timeout: attachTimeout}
}

func (h *Hub) waitPeer(ctx context.Context, sessionID string) (*peer, error) {
	for {
		h.mu.Lock()
		if p := h.peers[sessionID]; p != nil {
			h.mu.Unlock()
			return p, nil
		}
		ch := h.attached
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ErrNotAttached
		case <-ch:
		}
	}
}

type device struct {
	hub     *Hub
	session string
	timeout time.Duration
}

func (d *device) Open(ctx context.Context, facing capture.Facing) (capture.Stream, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	p, err := d.hub.waitPeer(ctx, d.session)
	if err != nil {
		return nil, err
	}
	seq, err := p.rearm()
	if err != nil {
		return nil, err
	}
	if err := p.send(message{Type: "start", Facing: string(facing)}); err != nil {
		return nil, fmt.Errorf("relay: start: %w", err)
	}
	if _, err := p.waitFrame(ctx, seq); err != nil {
		return nil, err
	}
	return &stream{peer: p}, nil
}

type stream struct {
	peer *peer
}

func (s *stream) Tracks() []capture.Track { return []capture.Track{videoTrack{s.peer}} }

// Frame returns the most recent frame the browser sent.
func (s *stream) Frame(ctx context.Context) (image.Image, error) {
	data, err := s.peer.waitFrame(ctx, 0)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("relay: decode frame: %w", err)
	}
	return img, nil
}

type videoTrack struct{ peer *peer }

func (videoTrack) Kind() string { return "video" }

func (t videoTrack) Stop() { t.peer.stop() }

/*──────────────────────────────── peer ────────────────────────────────*/

type peer struct {
	ws       *websocket.Conn
	maxFrame int64
	writeMu  sync.Mutex

	mu      sync.Mutex
	frame   []byte
	seq     uint64
	err     error
	updated chan struct{}
	done    chan struct{}
	gone    bool // connection lost; err is permanent
	closed  bool
}

func newPeer(ws *websocket.Conn, maxFrame int64) *peer {
	return &peer{
		ws:       ws,
		maxFrame: maxFrame,
		updated:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *peer) readLoop() error {
	p.ws.SetReadLimit(p.maxFrame)
	_ = p.ws.SetReadDeadline(time.Now().Add(pongWait))
	p.ws.SetPongHandler(func(string) error {
		return p.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		kind, data, err := p.ws.ReadMessage()
		if err != nil {
			p.disconnect()
			return err
		}
		switch kind {
		case websocket.BinaryMessage:
			if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
				continue
			}
			p.mu.Lock()
			p.frame = data
			p.seq++
			p.notifyLocked()
			p.mu.Unlock()
		case websocket.TextMessage:
			var msg message
			if json.Unmarshal(data, &msg) != nil {
				continue
			}
			if msg.Type == "error" {
				reason := strings.TrimSpace(msg.Message)
				if reason == "" {
					reason = "camera unavailable"
				}
				p.fail(errors.New(reason))
			}
		}
	}
}

func (p *peer) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.writeMu.Lock()
			err := p.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			p.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// waitFrame blocks until a frame newer than after exists, the browser
// reports an error, or ctx is done.
func (p *peer) waitFrame(ctx context.Context, after uint64) ([]byte, error) {
	for {
		p.mu.Lock()
		if p.err != nil {
			err := p.err
			p.mu.Unlock()
			return nil, err
		}
		if p.seq > after && p.frame != nil {
			data := p.frame
			p.mu.Unlock()
			return data, nil
		}
		ch := p.updated
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("relay: waiting for frame: %w", ctx.Err())
		case <-ch:
		}
	}
}

func (p *peer) send(msg message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return p.ws.WriteMessage(websocket.TextMessage, data)
}

func (p *peer) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
	p.notifyLocked()
}

// disconnect marks the connection as lost. Unlike a camera error reported
// by the browser, this cannot be cleared.
func (p *peer) disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gone = true
	p.err = errors.New("camera connection closed")
	p.notifyLocked()
}

// rearm drops a camera error left over from an earlier start so the
// browser can be asked again, and returns the current frame sequence.
func (p *peer) rearm() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gone || p.closed {
		return 0, p.err
	}
	p.err = nil
	return p.seq, nil
}

func (p *peer) notifyLocked() {
	close(p.updated)
	p.updated = make(chan struct{})
}

// stop tells the browser to release its camera and closes the socket.
func (p *peer) stop() {
	p.mu.Lock()
	already := p.closed
	p.mu.Unlock()
	if already {
		return
	}
	_ = p.send(message{Type: "stop"})
	p.writeMu.Lock()
	_ = p.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "camera stopped"),
		time.Now().Add(writeWait))
	p.writeMu.Unlock()
	p.close()
}

func (p *peer) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.err == nil {
		p.err = errors.New("camera stopped")
	}
	p.notifyLocked()
	close(p.done)
	p.mu.Unlock()
	_ = p.ws.Close()
}
