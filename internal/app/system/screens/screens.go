// Package screens keeps the server side of each open browser screen: its
// cascade controller, member roster and photo capture session. The browser
// holds only a signed token naming the screen.
package screens

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/capture"
	"github.com/dalemusser/orgdirectory/internal/app/cascade"
	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/app/system/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// Kind names a screen type.
type Kind string

const (
	KindExplore Kind = "explore"
	KindTeams   Kind = "teams"
	KindProfile Kind = "profile"
	KindPhoto   Kind = "photo"
)

const tokenName = "screen"

// Screen is one open screen. Fields are set by the opener's init func and
// are not reassigned afterwards.
type Screen struct {
	ID    string
	Kind  Kind
	Owner string // signed-in account that opened it, if any

	Cascade *cascade.Controller
	Roster  *cascade.Roster
	Capture *capture.Session

	// Subject is the entity the screen is about (organization or member id).
	Subject string
	// Data is feature-owned state set by the opener.
	Data    any

	mu       sync.Mutex
	lastSeen time.Time
	closers  []func()
	closed   bool
}

// OnClose registers fn to run when the screen is dismissed or swept.
func (s *Screen) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

// LastSeen returns the time of the last lookup.
func (s *Screen) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Screen) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// close releases everything the screen owns. Idempotent.
func (s *Screen) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	if s.Capture != nil {
		s.Capture.Reset()
	}
	if s.Cascade != nil {
		s.Cascade.Close()
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics tracks live screens per kind.
func WithMetrics(m *metrics.Set) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLimit caps the number of live screens. Zero means no cap.
func WithLimit(n int) Option {
	return func(r *Registry) { r.limit = n }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry is safe for concurrent use.
type Registry struct {
	codec   *securecookie.SecureCookie
	log     *zap.Logger
	metrics *metrics.Set
	limit   int
	now     func() time.Time

	mu      sync.Mutex
	screens map[string]*Screen
}

// NewRegistry signs tokens with hashKey (required) and encrypts them with
// blockKey when one is given.
func NewRegistry(hashKey, blockKey []byte, logger *zap.Logger, opts ...Option) (*Registry, error) {
	if len(hashKey) < 32 {
		return nil, errors.New("screens: hash key must be at least 32 bytes")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(0)
	r := &Registry{
		codec:   codec,
		log:     logger,
		now:     time.Now,
		screens: make(map[string]*Screen),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Open creates a screen of kind, lets init populate it, and returns the
// screen with its signed token. If init fails nothing is registered and
// whatever init attached is released.
func (r *Registry) Open(kind Kind, owner string, init func(s *Screen) error) (*Screen, string, error) {
	const op = "screens.Open"

	r.mu.Lock()
	full := r.limit > 0 && len(r.screens) >= r.limit
	r.mu.Unlock()
	if full {
		return nil, "", apperr.State(op, "too many screens are open; close one and try again")
	}

	s := &Screen{ID: uuid.NewString(), Kind: kind, Owner: owner, lastSeen: r.now()}
	if init != nil {
		if err := init(s); err != nil {
			s.close()
			return nil, "", err
		}
	}
	token, err := r.codec.Encode(tokenName, s.ID)
	if err != nil {
		s.close()
		return nil, "", err
	}

	r.mu.Lock()
	if r.limit > 0 && len(r.screens) >= r.limit {
		// another Open filled the registry while init ran
		r.mu.Unlock()
		s.close()
		return nil, "", apperr.State(op, "too many screens are open; close one and try again")
	}
	r.screens[s.ID] = s
	r.mu.Unlock()
	r.metrics.ScreenOpened(string(kind))
	r.log.Debug("screen opened", zap.String("kind", string(kind)), zap.String("screen", s.ID))
	return s, token, nil
}

// Lookup resolves a token to a live screen of the given kind and marks it
// as seen.
func (r *Registry) Lookup(token string, kind Kind) (*Screen, error) {
	const op = "screens.Lookup"
	id, ok := r.decode(token)
	if !ok {
		return nil, apperr.State(op, "this screen is no longer open")
	}
	r.mu.Lock()
	s := r.screens[id]
	r.mu.Unlock()
	if s == nil || (kind != "" && s.Kind != kind) {
		return nil, apperr.State(op, "this screen is no longer open")
	}
	s.touch(r.now())
	return s, nil
}

// Dismiss closes the screen named by token. It reports whether a screen
// was closed.
func (r *Registry) Dismiss(token string) bool {
	id, ok := r.decode(token)
	if !ok {
		return false
	}
	r.mu.Lock()
	s := r.screens[id]
	delete(r.screens, id)
	r.mu.Unlock()
	if s == nil {
		return false
	}
	r.release(s, "dismissed")
	return true
}

// Sweep closes screens not looked up within idle and returns how many were
// closed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	var stale []*Screen

	r.mu.Lock()
	for id, s := range r.screens {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(r.screens, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		r.release(s, "idle")
	}
	return len(stale)
}

// CloseAll closes every screen, for shutdown.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	all := make([]*Screen, 0, len(r.screens))
	for _, s := range r.screens {
		all = append(all, s)
	}
	r.screens = make(map[string]*Screen)
	r.mu.Unlock()

	for _, s := range all {
		r.release(s, "shutdown")
	}
	return len(all)
}

// Len returns the number of live screens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

// Counts returns live screens per kind, sorted by kind.
func (r *Registry) Counts() []KindCount {
	r.mu.Lock()
	byKind := make(map[Kind]int)
	for _, s := range r.screens {
		byKind[s.Kind]++
	}
	r.mu.Unlock()

	out := make([]KindCount, 0, len(byKind))
	for k, n := range byKind {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// KindCount is one row of Counts.
type KindCount struct {
	Kind  Kind `json:"kind"`
	Count int  `json:"count"`
}

func (r *Registry) decode(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	var id string
	if err := r.codec.Decode(tokenName, token, &id); err != nil {
		return "", false
	}
	return id, true
}

func (r *Registry) release(s *Screen, reason string) {
	s.close()
	r.metrics.ScreenClosed(string(s.Kind))
	r.log.Info("screen closed",
		zap.String("kind", string(s.Kind)),
		zap.String("screen", s.ID),
		zap.String("reason", reason))
}
