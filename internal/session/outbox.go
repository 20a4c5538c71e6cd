package session

import (
	"sync"
	"time"
)

// Outbox is a trailing debounce with a single pending slot. Every Schedule
// restarts the window; send runs once when it elapses and reads whatever is
// current at that moment, so intermediate states are coalesced.
type Outbox struct {
	mu    sync.Mutex
	delay time.Duration
	send  func()
	timer *time.Timer
	gen   uint64
}

func NewOutbox(delay time.Duration, send func()) *Outbox {
	return &Outbox{delay: delay, send: send}
}

func (o *Outbox) Schedule() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	gen := o.gen
	o.timer = time.AfterFunc(o.delay, func() { o.fire(gen) })
}

// Cancel drops the pending send. A send already running is not awaited.
func (o *Outbox) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

// Flush sends immediately if something is pending.
func (o *Outbox) Flush() bool {
	o.mu.Lock()
	if o.timer == nil {
		o.mu.Unlock()
		return false
	}
	o.stopLocked()
	o.mu.Unlock()
	o.send()
	return true
}

func (o *Outbox) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.timer != nil
}

func (o *Outbox) fire(gen uint64) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	o.gen++
	o.mu.Unlock()
	o.send()
}

// stopLocked invalidates any scheduled fire, including one whose timer has
// already expired and is waiting on the lock.
func (o *Outbox) stopLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.gen++
}
