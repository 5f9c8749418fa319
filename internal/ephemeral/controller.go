// Package ephemeral implements the burn-after-reading lifecycle: a
// per-message state machine driven by on-screen visibility and wall-clock
// time. Burn state is purely local rendering fact; it is never mutated
// into the message or sent to peers, who each burn on their own clock.
package ephemeral

import (
	"sync"
	"time"
)

type State int

const (
	// Pending: rendered but not yet seen. No timer runs.
	Pending State = iota
	// Counting: the bubble crossed the visibility threshold; the
	// viewing window is open.
	Counting
	// Burned: terminal. Content renders as the redaction marker.
	Burned
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Counting:
		return "counting"
	case Burned:
		return "burned"
	default:
		return "unknown"
	}
}

// Window is how long a message stays readable once seen.
const Window = 60 * time.Second

// VisibilityThreshold is the fraction of the bubble that must be in view
// before the countdown starts. Mere presence in the render tree does not
// count as "seen".
const VisibilityThreshold = 0.6

// Status is one poll result.
type Status struct {
	State     State
	Remaining time.Duration
}

// Controller is the per-message lifecycle instance. The countdown is
// recomputed from an absolute start timestamp on every poll, so a
// suspended or throttled client cannot stretch the window: a single late
// poll past the deadline reports Burned immediately.
type Controller struct {
	mu        sync.Mutex
	state     State
	start     time.Time
	now       func() time.Time
	onBurn    func()
	burnFired bool
}

// NewController creates a controller in Pending. A nil clock means
// time.Now.
func NewController(now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{now: now}
}

// SetBurnFunc installs the burn callback. The controller resolves it at
// fire time, so installing a new one replaces the old even while
// counting.
func (c *Controller) SetBurnFunc(fn func()) {
	c.mu.Lock()
	c.onBurn = fn
	c.mu.Unlock()
}

// ReportVisibility feeds a visibility ratio for the rendered bubble. The
// first report at or above the threshold starts the countdown; repeated
// reports are ignored, so the trigger is at-most-once per instance.
func (c *Controller) ReportVisibility(ratio float64) {
	if ratio < VisibilityThreshold {
		return
	}
	c.mu.Lock()
	if c.state == Pending {
		c.state = Counting
		c.start = c.now()
	}
	c.mu.Unlock()
}

// Poll recomputes the remaining window against the wall clock and
// performs the counting -> burned transition when it reaches zero. The
// burn callback fires exactly once.
func (c *Controller) Poll() Status {
	c.mu.Lock()
	switch c.state {
	case Pending:
		c.mu.Unlock()
		return Status{State: Pending, Remaining: Window}
	case Burned:
		c.mu.Unlock()
		return Status{State: Burned}
	}

	remaining := Window - c.now().Sub(c.start)
	if remaining > 0 {
		c.mu.Unlock()
		return Status{State: Counting, Remaining: remaining}
	}

	c.state = Burned
	var fire func()
	if !c.burnFired {
		c.burnFired = true
		fire = c.onBurn
	}
	c.mu.Unlock()

	if fire != nil {
		fire()
	}
	return Status{State: Burned}
}

// State returns the current state without advancing the countdown.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
