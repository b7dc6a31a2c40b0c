package gbn

import (
	"sync"
	"time"
)

// Timer is the sender's single retransmission timer, logically bound to the
// window base. At most one arm-cycle is live at a time: Start rearms (implicitly
// cancelling a pending fire), Stop cancels, and a fire that lost the race with
// either is a no-op. The callback runs outside the timer lock.
type Timer struct {
	mu  sync.Mutex
	gen uint64
	t   *time.Timer
}

// NewTimer creates an unarmed timer.
func NewTimer() *Timer {
	return &Timer{}
}

// Start arms the timer for d, cancelling any pending fire from an earlier arm.
func (tm *Timer) Start(d time.Duration, fire func()) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.gen++
	gen := tm.gen
	if tm.t != nil {
		tm.t.Stop()
	}
	tm.t = time.AfterFunc(d, func() {
		tm.mu.Lock()
		live := tm.gen == gen
		tm.mu.Unlock()
		if live {
			fire()
		}
	})
}

// Stop cancels the timer. A fire already scheduled becomes a no-op.
func (tm *Timer) Stop() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.gen++
	if tm.t != nil {
		tm.t.Stop()
		tm.t = nil
	}
}
