// internal/app/system/workers/screensweeper.go
package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the part of the screen registry the worker needs.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// ScreenSweeper is a background worker that closes screens the browser has
// abandoned, releasing their controllers and camera streams.
type ScreenSweeper struct {
	screens       Sweeper
	log           *zap.Logger
	interval      time.Duration
	idleThreshold time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewScreenSweeper creates a new sweeper.
//
// Parameters:
//   - screens: the screen registry
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
//   - idleThreshold: how long a screen may go unseen before closing (e.g., 15 minutes)
func NewScreenSweeper(screens Sweeper, logger *zap.Logger, interval, idleThreshold time.Duration) *ScreenSweeper {
	return &ScreenSweeper{
		screens:       screens,
		log:           logger,
		interval:      interval,
		idleThreshold: idleThreshold,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *ScreenSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("screen sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("idle_threshold", w.idleThreshold))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *ScreenSweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("screen sweeper stopped")
	})
}

func (w *ScreenSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ScreenSweeper) sweep() {
	if n := w.screens.Sweep(w.idleThreshold); n > 0 {
		w.log.Info("closed idle screens", zap.Int("count", n))
	}
}
