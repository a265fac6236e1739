package heartbeat_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/features/heartbeat"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/testutil"
	"go.uber.org/zap"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestRegistry(t *testing.T, c *clock) *screens.Registry {
	t.Helper()
	reg, err := screens.NewRegistry([]byte("0123456789abcdef0123456789abcdef"), nil, zap.NewNop(), screens.WithClock(c.Now))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { reg.CloseAll() })
	return reg
}

func TestServeHeartbeat_KeepsScreensOpen(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	reg := newTestRegistry(t, c)
	_, kept, err := reg.Open(screens.KindExplore, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, idle, err := reg.Open(screens.KindTeams, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	router := heartbeat.Routes(heartbeat.NewHandler(reg, zap.NewNop()))
	c.now = c.now.Add(10 * time.Minute)
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"screens": []string{kept}}))
	rec.AssertStatus(t, http.StatusOK)

	c.now = c.now.Add(10 * time.Minute)
	if n := reg.Sweep(15 * time.Minute); n != 1 {
		t.Fatalf("swept %d screens, want 1", n)
	}
	if _, err := reg.Lookup(kept, ""); err != nil {
		t.Errorf("heartbeat screen was swept: %v", err)
	}
	if _, err := reg.Lookup(idle, ""); err == nil {
		t.Errorf("idle screen survived the sweep")
	}
}

func TestServeHeartbeat_ReportsClosedScreens(t *testing.T) {
	reg := newTestRegistry(t, &clock{now: time.Now()})
	_, open, err := reg.Open(screens.KindExplore, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, gone, err := reg.Open(screens.KindExplore, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	reg.Dismiss(gone)

	router := heartbeat.Routes(heartbeat.NewHandler(reg, zap.NewNop()))
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{
		"screens": []string{open, gone, "forged"},
	}))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Alive  []string `json:"alive"`
		Closed []string `json:"closed"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Alive) != 1 || body.Alive[0] != open {
		t.Errorf("alive = %v", body.Alive)
	}
	if len(body.Closed) != 2 {
		t.Errorf("closed = %v", body.Closed)
	}
}

func TestServeHeartbeat_Empty(t *testing.T) {
	reg := newTestRegistry(t, &clock{now: time.Now()})
	router := heartbeat.Routes(heartbeat.NewHandler(reg, zap.NewNop()))

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodPost, "/"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"alive":[]`)
}

func TestServeHeartbeat_TooMany(t *testing.T) {
	reg := newTestRegistry(t, &clock{now: time.Now()})
	router := heartbeat.Routes(heartbeat.NewHandler(reg, zap.NewNop()))

	tokens := make([]string, 33)
	for i := range tokens {
		tokens[i] = "t"
	}
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"screens": tokens}))
	rec.AssertStatus(t, http.StatusBadRequest)
}
