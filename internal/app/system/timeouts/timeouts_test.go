package timeouts

import (
	"testing"
	"time"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Fetch: 3 * time.Second})

	if Fetch() != 3*time.Second {
		t.Errorf("Fetch = %v, want 3s", Fetch())
	}
	if Write() != DefaultWrite {
		t.Errorf("Write = %v, want default %v", Write(), DefaultWrite)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("TIMEOUT_UPLOAD", "90s")
	t.Setenv("TIMEOUT_DEVICE", "nonsense")
	t.Setenv("TIMEOUT_PING", "-1s")

	if n := ConfigureFromEnv(); n != 1 {
		t.Fatalf("configured = %d, want 1", n)
	}
	cur := Current()
	if cur.Upload != 90*time.Second {
		t.Errorf("Upload = %v, want 90s", cur.Upload)
	}
	if cur.Device != DefaultDevice || cur.Ping != DefaultPing {
		t.Errorf("invalid values should be ignored: %+v", cur)
	}
}
