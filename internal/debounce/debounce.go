// Package debounce coalesces rapid-fire triggers into a single delayed call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs action once wait has elapsed since the last Trigger.
type Debouncer struct {
	action func()
	wait   time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64

	// pending counts scheduled timers not yet cancelled plus running actions.
	pending sync.WaitGroup
}

// New creates a Debouncer. A non-positive wait fires on the next scheduler tick.
func New(action func(), wait time.Duration) *Debouncer {
	return &Debouncer{action: action, wait: wait}
}

// Func returns a plain trigger for action.
func Func(action func(), wait time.Duration) func() {
	return New(action, wait).Trigger
}

// Trigger cancels any pending call and schedules a new one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	d.gen++
	gen := d.gen
	d.pending.Add(1)
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Stop cancels the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	d.timer = nil
	d.gen++
}

// cancelLocked stops the current timer. A timer that already fired is left to
// fire, which releases its own pending slot.
func (d *Debouncer) cancelLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.pending.Done()
	}
}

// Flush runs the pending call immediately. Reports whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.timer == nil || !d.timer.Stop() {
		d.mu.Unlock()
		return false
	}
	d.timer = nil
	d.gen++
	d.mu.Unlock()

	defer d.pending.Done()
	d.action()
	return true
}

// Wait blocks until no call is scheduled or running, including one whose
// timer fired just before a Flush. It must not race with Trigger.
func (d *Debouncer) Wait() {
	d.pending.Wait()
}

// fire runs the action unless a later Trigger or Stop superseded gen.
// Timer.Stop cannot recall a callback that already started, hence the check.
func (d *Debouncer) fire(gen uint64) {
	defer d.pending.Done()
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.action()
}
