package workers

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
	idle  time.Duration
}

func (c *countingSweeper) Sweep(idle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.idle = idle
	return 1
}

func (c *countingSweeper) snapshot() (int, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.idle
}

func TestScreenSweeperRunsUntilStopped(t *testing.T) {
	cs := &countingSweeper{}
	w := NewScreenSweeper(cs, zap.NewNop(), 5*time.Millisecond, 15*time.Minute)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := cs.snapshot(); n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweeper never ran")
		}
		time.Sleep(time.Millisecond)
	}
	w.Stop()
	w.Stop()

	n, idle := cs.snapshot()
	if idle != 15*time.Minute {
		t.Errorf("idle threshold = %v", idle)
	}
	time.Sleep(20 * time.Millisecond)
	if after, _ := cs.snapshot(); after != n {
		t.Errorf("sweeper ran after Stop: %d -> %d", n, after)
	}
}
