package ephemeral

import (
	"context"
	"sync"
	"time"
)

// VisibilityReporter receives visibility-crossing reports for rendered
// regions, keyed by message id. The UI layer feeds it from whatever
// visibility signal the platform has; tests feed it ratios directly.
type VisibilityReporter interface {
	Report(id string, ratio float64)
}

// Registry owns the controllers for one session's ephemeral messages and
// drives them from a single poll loop. Dropping the registry (or
// cancelling its run context) releases every timer at once, which is what
// keeps an abandoned session from leaking countdowns.
type Registry struct {
	mu          sync.Mutex
	now         func() time.Time
	controllers map[string]*Controller
}

var _ VisibilityReporter = (*Registry)(nil)

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{now: now, controllers: make(map[string]*Controller)}
}

// For returns the controller for a message, creating it in Pending on
// first render.
func (r *Registry) For(id string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[id]
	if !ok {
		c = NewController(r.now)
		r.controllers[id] = c
	}
	return c
}

// Lookup returns the controller if one exists.
func (r *Registry) Lookup(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[id]
	return c, ok
}

// Report implements VisibilityReporter.
func (r *Registry) Report(id string, ratio float64) {
	r.For(id).ReportVisibility(ratio)
}

// PollAll advances every controller once.
func (r *Registry) PollAll() {
	r.mu.Lock()
	all := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		all = append(all, c)
	}
	r.mu.Unlock()

	for _, c := range all {
		c.Poll()
	}
}

// Reset forgets every controller. Used when the session ends; there is
// no UI left to update.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()
}

// Run polls on an interval until the context is cancelled, invoking
// onTick after each pass so the caller can redraw.
func (r *Registry) Run(ctx context.Context, interval time.Duration, onTick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.PollAll()
			if onTick != nil {
				onTick()
			}
		}
	}
}
