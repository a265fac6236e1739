package bootstrap

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/orgdirectory/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func buildTestApp(t *testing.T, mutate func(*AppConfig)) (http.Handler, DBDeps) {
	t.Helper()
	fake := testutil.NewFakeDirectory(t)
	testutil.SeedDirectory(fake)

	coreCfg := &config.CoreConfig{Env: "dev"}
	appCfg := validAppConfig()
	appCfg.APIBaseURL = fake.URL()
	if mutate != nil {
		mutate(&appCfg)
	}
	logger := zap.NewNop()

	deps, err := ConnectDB(context.Background(), coreCfg, appCfg, logger)
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if err := Startup(context.Background(), coreCfg, appCfg, deps, logger); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	t.Cleanup(func() { _ = Shutdown(context.Background(), coreCfg, appCfg, deps, logger) })

	h, err := BuildHandler(coreCfg, appCfg, deps, logger)
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	return h, deps
}

func serve(h http.Handler, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBuildHandler_MountsFeatures(t *testing.T) {
	h, _ := buildTestApp(t, nil)

	rec := serve(h, testutil.NewRequest(http.MethodGet, "/health"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"api":"reachable"`)

	serve(h, testutil.NewRequest(http.MethodPost, "/explore")).AssertStatus(t, http.StatusCreated)
	serve(h, testutil.NewRequest(http.MethodPost, "/teams")).AssertStatus(t, http.StatusCreated)
	serve(h, testutil.NewRequest(http.MethodGet, "/members/m1")).AssertStatus(t, http.StatusOK)
	serve(h, testutil.NewRequest(http.MethodPost, "/organizations/o1/profile")).AssertStatus(t, http.StatusCreated)

	rec = serve(h, testutil.NewRequest(http.MethodGet, "/metrics"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "orgdirectory_screens_live")
}

func TestBuildHandler_JSONFallbacks(t *testing.T) {
	h, _ := buildTestApp(t, nil)

	rec := serve(h, testutil.NewRequest(http.MethodGet, "/no/such/page"))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, `"kind":"not_found"`)

	serve(h, testutil.NewRequest(http.MethodGet, "/members/me")).AssertStatus(t, http.StatusUnauthorized)
}

func TestBuildHandler_MetricsDisabled(t *testing.T) {
	h, deps := buildTestApp(t, func(c *AppConfig) { c.MetricsEnabled = false })
	if deps.Metrics != nil {
		t.Fatalf("metrics built while disabled")
	}
	serve(h, testutil.NewRequest(http.MethodGet, "/metrics")).AssertStatus(t, http.StatusNotFound)
}

func TestBuildHandler_CORS(t *testing.T) {
	h, _ := buildTestApp(t, func(c *AppConfig) { c.CORSOrigins = []string{"https://app.example"} })

	req := testutil.NewRequest(http.MethodOptions, "/explore")
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestShutdownClosesScreens(t *testing.T) {
	h, deps := buildTestApp(t, nil)
	serve(h, testutil.NewRequest(http.MethodPost, "/explore")).AssertStatus(t, http.StatusCreated)

	if err := Shutdown(context.Background(), &config.CoreConfig{}, validAppConfig(), deps, zap.NewNop()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	for _, c := range deps.Screens.Counts() {
		if c.Count != 0 {
			t.Errorf("%s screens still open after shutdown: %d", c.Kind, c.Count)
		}
	}
}
