package procexec

import (
	"sync"
	"time"
)

type idleWatchdog struct {
	mu      sync.Mutex
	after   time.Duration
	onIdle  func(time.Duration)
	last    time.Time
	fired   bool
	timer   *time.Timer
	stopped bool
}

func newIdleWatchdog(after time.Duration, onIdle func(time.Duration)) *idleWatchdog {
	w := &idleWatchdog{after: after, onIdle: onIdle, last: time.Now()}
	w.timer = time.AfterFunc(after, w.check)
	return w
}

// touch records output activity. Safe on a nil receiver.
func (w *idleWatchdog) touch() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = time.Now()
	if w.fired && !w.stopped {
		w.fired = false
		w.timer.Reset(w.after)
	}
}

func (w *idleWatchdog) check() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	silence := time.Since(w.last)
	if silence < w.after {
		w.timer.Reset(w.after - silence)
		w.mu.Unlock()
		return
	}
	w.fired = true
	w.mu.Unlock()
	w.onIdle(silence)
}

func (w *idleWatchdog) stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.timer.Stop()
}
