package game

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultRoundTime  = 60 * time.Second
	warningThreshold  = 10 * time.Second
	timerTickInterval = 100 * time.Millisecond
)

// Timer is the round countdown. Pause preserves the remaining time;
// expiry fires the callback exactly once.
type Timer struct {
	clk   clock.Clock
	total time.Duration

	mu        sync.Mutex
	remaining time.Duration
	running   bool
	startedAt time.Time
	consumed  time.Duration
	expired   bool
	stop      chan struct{}

	onExpire func()
}

func NewTimer(total time.Duration, clk clock.Clock, onExpire func()) *Timer {
	if total <= 0 {
		total = DefaultRoundTime
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Timer{
		clk:       clk,
		total:     total,
		remaining: total,
		onExpire:  onExpire,
	}
}

func (t *Timer) Start() {
	t.mu.Lock()
	if t.running || t.expired {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.startedAt = t.clk.Now()
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	ticker := t.clk.Ticker(timerTickInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if t.tick() {
					return
				}
			}
		}
	}()
}

func (t *Timer) tick() (done bool) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return true
	}

	elapsed := t.consumed + t.clk.Now().Sub(t.startedAt)
	remaining := t.total - elapsed
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining

	if remaining > 0 {
		t.mu.Unlock()
		return false
	}

	t.running = false
	t.expired = true
	cb := t.onExpire
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
	return true
}

func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.consumed += t.clk.Now().Sub(t.startedAt)
	t.running = false
	close(t.stop)
	t.stop = nil
}

func (t *Timer) Resume() {
	t.Start()
}

func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.running = false
		close(t.stop)
		t.stop = nil
	}
	// Stopping also disarms expiry for good.
	t.expired = true
}

func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		remaining := t.total - (t.consumed + t.clk.Now().Sub(t.startedAt))
		if remaining < 0 {
			return 0
		}
		return remaining
	}
	return t.remaining
}

func (t *Timer) Warning() bool {
	r := t.Remaining()
	return r > 0 && r <= warningThreshold
}

func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired && t.remaining == 0
}
