package screens

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/capture"
	"github.com/dalemusser/orgdirectory/internal/app/cascade"
	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/app/system/metrics"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"go.uber.org/zap"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.now)}, opts...)
	r, err := NewRegistry(testKey, nil, zap.NewNop(), opts...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r, clk
}

func noopFetchers() cascade.Fetchers {
	return cascade.Fetchers{
		Organizations: func(context.Context) ([]models.Organization, error) { return nil, nil },
		Teams:         func(context.Context, string) ([]models.Team, error) { return nil, nil },
	}
}

func TestNewRegistryRejectsShortKey(t *testing.T) {
	if _, err := NewRegistry([]byte("short"), nil, zap.NewNop()); err == nil {
		t.Error("expected error for short hash key")
	}
}

func TestOpenLookupDismiss(t *testing.T) {
	r, _ := newTestRegistry(t)

	var closed bool
	s, token, err := r.Open(KindExplore, "o1", func(s *Screen) error {
		s.Cascade = cascade.New(noopFetchers(), zap.NewNop())
		s.OnClose(func() { closed = true })
		return nil
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.ID == "" || token == "" || strings.Contains(token, s.ID) {
		t.Errorf("token %q should be opaque for screen %q", token, s.ID)
	}

	got, err := r.Lookup(token, KindExplore)
	if err != nil || got != s {
		t.Fatalf("Lookup = %v, %v", got, err)
	}
	if _, err := r.Lookup(token, KindPhoto); !apperr.Is(err, apperr.InvalidState) {
		t.Errorf("wrong-kind lookup err = %v", err)
	}

	if !r.Dismiss(token) {
		t.Fatal("Dismiss returned false")
	}
	if !closed {
		t.Error("close hook not run")
	}
	if v := s.Cascade.CurrentView(); v.Organizations.Status != cascade.Unloaded {
		t.Errorf("controller not closed: %s", v.Organizations.Status)
	}
	if r.Dismiss(token) {
		t.Error("second Dismiss returned true")
	}
	if _, err := r.Lookup(token, ""); !apperr.Is(err, apperr.InvalidState) {
		t.Errorf("lookup after dismiss err = %v", err)
	}
}

func TestLookupRejectsForgedToken(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, token, err := r.Open(KindTeams, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	other, _ := NewRegistry([]byte("fedcba9876543210fedcba9876543210"), nil, zap.NewNop())
	_, forged, _ := other.Open(KindTeams, "", nil)

	for _, tok := range []string{"", "garbage", forged, token + "x"} {
		if _, err := r.Lookup(tok, KindTeams); !apperr.Is(err, apperr.InvalidState) {
			t.Errorf("Lookup(%q) err = %v", tok, err)
		}
	}
}

func TestOpenInitFailureReleases(t *testing.T) {
	r, _ := newTestRegistry(t)
	var closed bool
	boom := errors.New("boom")
	_, _, err := r.Open(KindProfile, "", func(s *Screen) error {
		s.OnClose(func() { closed = true })
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !closed || r.Len() != 0 {
		t.Errorf("closed=%v len=%d", closed, r.Len())
	}
}

func TestSweepClosesIdleScreens(t *testing.T) {
	r, clk := newTestRegistry(t)
	_, idleTok, _ := r.Open(KindExplore, "", nil)
	_, busyTok, _ := r.Open(KindPhoto, "", func(s *Screen) error {
		s.Capture = capture.NewSession(nil, zap.NewNop())
		return nil
	})

	clk.advance(10 * time.Minute)
	if _, err := r.Lookup(busyTok, KindPhoto); err != nil {
		t.Fatal(err)
	}
	clk.advance(6 * time.Minute)

	if n := r.Sweep(15 * time.Minute); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if _, err := r.Lookup(idleTok, ""); err == nil {
		t.Error("idle screen survived sweep")
	}
	if _, err := r.Lookup(busyTok, ""); err != nil {
		t.Errorf("recently used screen swept: %v", err)
	}
}

func TestLimitAndCloseAll(t *testing.T) {
	m := metrics.New()
	r, _ := newTestRegistry(t, WithLimit(2), WithMetrics(m))
	for i := 0; i < 2; i++ {
		if _, _, err := r.Open(KindTeams, "", nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := r.Open(KindTeams, "", nil); !apperr.Is(err, apperr.InvalidState) {
		t.Errorf("over-limit err = %v", err)
	}
	if got := liveScreens(t, m, "teams"); got != 2 {
		t.Errorf("live gauge = %v, want 2", got)
	}

	counts := r.Counts()
	if len(counts) != 1 || counts[0].Kind != KindTeams || counts[0].Count != 2 {
		t.Errorf("counts = %+v", counts)
	}

	if n := r.CloseAll(); n != 2 {
		t.Errorf("CloseAll = %d", n)
	}
	if r.Len() != 0 {
		t.Errorf("len = %d", r.Len())
	}
	if got := liveScreens(t, m, "teams"); got != 0 {
		t.Errorf("live gauge = %v, want 0", got)
	}
}

func TestLimitRecheckedOnInsert(t *testing.T) {
	r, _ := newTestRegistry(t, WithLimit(1))
	released := false
	_, _, err := r.Open(KindTeams, "", func(s *Screen) error {
		s.OnClose(func() { released = true })
		// a second Open takes the last slot while this one initializes
		if _, _, err := r.Open(KindTeams, "", nil); err != nil {
			t.Fatalf("inner Open: %v", err)
		}
		return nil
	})
	if !apperr.Is(err, apperr.InvalidState) {
		t.Errorf("err = %v, want InvalidState", err)
	}
	if !released {
		t.Error("rejected screen was not closed")
	}
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}
}

func liveScreens(t *testing.T, m *metrics.Set, kind string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "orgdirectory_screens_live" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == kind {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}
