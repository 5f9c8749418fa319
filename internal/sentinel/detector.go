// Package sentinel watches local input for capture attempts (screenshot
// chords, copy with a selection, focus loss) and drives the privacy
// curtain. Detection is best-effort by nature: OS-level capture tools and
// cameras are invisible from here, so this is a deterrent, never a
// security boundary.
package sentinel

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
)

// Action is the classification of a detected risk event.
type Action string

const (
	ActionScreenshot Action = "screenshot"
	ActionCopy       Action = "copy"
)

// DefaultCooldown is how long the curtain stays engaged after the last
// qualifying event.
const DefaultCooldown = 3 * time.Second

// Detector classifies input events and manages the curtain. The curtain
// engages synchronously on detection, before any callback or broadcast;
// the alert callback is gated on a joined chat session.
type Detector struct {
	log      zerolog.Logger
	cooldown time.Duration

	mu      sync.Mutex
	engaged bool
	// gen invalidates pending cool-down timers: every new engagement
	// bumps it, so a stale timer can never clear a newer curtain.
	gen       int
	onRisk    func(Action)
	onCurtain func(bool)
	joined    func() bool
}

// NewDetector builds a detector. A zero cooldown selects the default.
func NewDetector(cooldown time.Duration, log zerolog.Logger) *Detector {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Detector{
		log:      log.With().Str("component", "sentinel").Logger(),
		cooldown: cooldown,
	}
}

// SetRiskFunc installs the alert callback. Resolved at fire time.
func (d *Detector) SetRiskFunc(fn func(Action)) {
	d.mu.Lock()
	d.onRisk = fn
	d.mu.Unlock()
}

// SetCurtainFunc installs the curtain state callback for the UI overlay.
func (d *Detector) SetCurtainFunc(fn func(engaged bool)) {
	d.mu.Lock()
	d.onCurtain = fn
	d.mu.Unlock()
}

// SetJoinedFunc installs the gate that decides whether alerts broadcast.
// Without it, or when it reports false, nothing leaves the machine.
func (d *Detector) SetJoinedFunc(fn func() bool) {
	d.mu.Lock()
	d.joined = fn
	d.mu.Unlock()
}

// IsScreenshotChord reports whether a key event matches the curated set
// of screenshot and devtools chords: PrintScreen, F12, and the
// ctrl+shift / meta+shift snipping combinations.
func IsScreenshotChord(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyF12, tcell.KeyPrint:
		return true
	}
	mod := ev.Modifiers()
	if mod&tcell.ModShift != 0 && (mod&tcell.ModCtrl != 0 || mod&tcell.ModMeta != 0) {
		return true
	}
	return false
}

// HandleKey classifies a key event. Returns true if it was consumed as a
// screenshot signal.
func (d *Detector) HandleKey(ev *tcell.EventKey) bool {
	if ev == nil || !IsScreenshotChord(ev) {
		return false
	}
	d.trigger(ActionScreenshot)
	return true
}

// HandleCopy reports a clipboard copy. Only a copy with an actual
// selection qualifies; an empty copy is noise.
func (d *Detector) HandleCopy(selection string) {
	if selection == "" {
		return
	}
	d.trigger(ActionCopy)
}

// HandleFocusLost engages the curtain without broadcasting: switching
// apps is benign, showing content to a screen recorder is not worth the
// risk either way. No cooldown runs; the curtain holds until focus
// returns.
func (d *Detector) HandleFocusLost() {
	d.engage(false)
}

// HandleFocusGained clears the curtain immediately.
func (d *Detector) HandleFocusGained() {
	d.mu.Lock()
	was := d.engaged
	d.engaged = false
	d.gen++
	fn := d.onCurtain
	d.mu.Unlock()
	if was && fn != nil {
		fn(false)
	}
}

// CurtainEngaged reports the overlay state.
func (d *Detector) CurtainEngaged() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engaged
}

// trigger handles a classified risk: curtain first, synchronously, then
// the alert if a session is joined.
func (d *Detector) trigger(action Action) {
	d.engage(true)

	d.mu.Lock()
	joined := d.joined
	fn := d.onRisk
	d.mu.Unlock()

	if joined == nil || !joined() {
		return
	}
	d.log.Info().Str("action", string(action)).Msg("risk event, alerting room")
	if fn != nil {
		fn(action)
	}
}

// engage raises the curtain and, when armed, (re)arms the cool-down. A
// qualifying event while already engaged resets the timer instead of
// being ignored. Bumping gen either way cancels any pending timer, so an
// unarmed engagement holds indefinitely.
func (d *Detector) engage(arm bool) {
	d.mu.Lock()
	was := d.engaged
	d.engaged = true
	d.gen++
	gen := d.gen
	fn := d.onCurtain
	d.mu.Unlock()

	if !was && fn != nil {
		fn(true)
	}
	if arm {
		time.AfterFunc(d.cooldown, func() { d.expire(gen) })
	}
}

func (d *Detector) expire(gen int) {
	d.mu.Lock()
	if d.gen != gen || !d.engaged {
		d.mu.Unlock()
		return
	}
	d.engaged = false
	fn := d.onCurtain
	d.mu.Unlock()
	if fn != nil {
		fn(false)
	}
}
