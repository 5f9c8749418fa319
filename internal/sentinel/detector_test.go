package sentinel

import (
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsScreenshotChord(t *testing.T) {
	cases := []struct {
		name string
		ev   *tcell.EventKey
		want bool
	}{
		{"print screen", tcell.NewEventKey(tcell.KeyPrint, 0, tcell.ModNone), true},
		{"f12", tcell.NewEventKey(tcell.KeyF12, 0, tcell.ModNone), true},
		{"ctrl shift s", tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModCtrl|tcell.ModShift), true},
		{"meta shift 4", tcell.NewEventKey(tcell.KeyRune, '4', tcell.ModMeta|tcell.ModShift), true},
		{"plain rune", tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), false},
		{"ctrl only", tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModCtrl), false},
		{"shift only", tcell.NewEventKey(tcell.KeyRune, 'A', tcell.ModShift), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsScreenshotChord(tc.ev))
		})
	}
}

// recorder collects risk callbacks and the curtain state seen at fire
// time, which is how the curtain-before-broadcast ordering is observed.
type recorder struct {
	mu             sync.Mutex
	actions        []Action
	curtainAtAlert []bool
	curtainChanges []bool
}

func (r *recorder) wire(d *Detector, joined bool) {
	d.SetJoinedFunc(func() bool { return joined })
	d.SetRiskFunc(func(a Action) {
		r.mu.Lock()
		r.actions = append(r.actions, a)
		r.curtainAtAlert = append(r.curtainAtAlert, d.CurtainEngaged())
		r.mu.Unlock()
	})
	d.SetCurtainFunc(func(engaged bool) {
		r.mu.Lock()
		r.curtainChanges = append(r.curtainChanges, engaged)
		r.mu.Unlock()
	})
}

func TestHandleKeyTriggersScreenshotAlert(t *testing.T) {
	d := NewDetector(time.Hour, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	consumed := d.HandleKey(tcell.NewEventKey(tcell.KeyPrint, 0, tcell.ModNone))
	require.True(t, consumed)

	require.Len(t, rec.actions, 1)
	assert.Equal(t, ActionScreenshot, rec.actions[0])
	assert.True(t, rec.curtainAtAlert[0], "curtain engages before the alert goes out")
	assert.True(t, d.CurtainEngaged())
}

func TestHandleKeyIgnoresHarmlessKeys(t *testing.T) {
	d := NewDetector(time.Hour, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	assert.False(t, d.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone)))
	assert.False(t, d.HandleKey(nil))
	assert.Empty(t, rec.actions)
	assert.False(t, d.CurtainEngaged())
}

func TestRiskGatedOnJoinedSession(t *testing.T) {
	d := NewDetector(time.Hour, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, false)

	d.HandleKey(tcell.NewEventKey(tcell.KeyF12, 0, tcell.ModNone))

	assert.Empty(t, rec.actions, "nothing leaves the machine while not joined")
	assert.True(t, d.CurtainEngaged(), "curtain still engages locally")
}

func TestHandleCopy(t *testing.T) {
	d := NewDetector(time.Hour, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	d.HandleCopy("")
	assert.Empty(t, rec.actions)
	assert.False(t, d.CurtainEngaged())

	d.HandleCopy("some selected text")
	require.Len(t, rec.actions, 1)
	assert.Equal(t, ActionCopy, rec.actions[0])
}

func TestCurtainCooldownExpires(t *testing.T) {
	d := NewDetector(30*time.Millisecond, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	d.HandleCopy("x")
	require.True(t, d.CurtainEngaged())

	require.Eventually(t, func() bool { return !d.CurtainEngaged() },
		time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []bool{true, false}, rec.curtainChanges)
}

func TestRepeatedTriggerResetsCooldown(t *testing.T) {
	d := NewDetector(80*time.Millisecond, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	d.HandleCopy("x")
	time.Sleep(50 * time.Millisecond)
	d.HandleCopy("y")
	time.Sleep(50 * time.Millisecond)

	// 100ms after the first trigger but only 50ms after the second: the
	// second one must have rearmed the timer.
	assert.True(t, d.CurtainEngaged())

	require.Eventually(t, func() bool { return !d.CurtainEngaged() },
		time.Second, 5*time.Millisecond)
}

func TestFocusLossEngagesWithoutBroadcast(t *testing.T) {
	d := NewDetector(time.Hour, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	d.HandleFocusLost()

	assert.True(t, d.CurtainEngaged())
	assert.Empty(t, rec.actions)
}

func TestFocusGainClearsImmediately(t *testing.T) {
	d := NewDetector(time.Hour, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	d.HandleFocusLost()
	d.HandleFocusGained()

	assert.False(t, d.CurtainEngaged())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []bool{true, false}, rec.curtainChanges)
}

func TestFocusLossHoldsUntilFocusReturns(t *testing.T) {
	d := NewDetector(20*time.Millisecond, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	d.HandleFocusLost()
	time.Sleep(80 * time.Millisecond)
	assert.True(t, d.CurtainEngaged(), "no cooldown while unfocused")

	d.HandleFocusGained()
	assert.False(t, d.CurtainEngaged())
}

func TestStaleTimerCannotClearNewerCurtain(t *testing.T) {
	d := NewDetector(40*time.Millisecond, zerolog.Nop())
	rec := &recorder{}
	rec.wire(d, true)

	d.HandleCopy("x")
	d.HandleFocusGained()
	// New engagement; the copy trigger's timer fires somewhere in the
	// middle of this one and must be ignored.
	d.HandleFocusLost()
	time.Sleep(60 * time.Millisecond)
	assert.True(t, d.CurtainEngaged())
}
