package ephemeral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	at time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.at }
func (c *fakeClock) advance(d time.Duration) { c.at = c.at.Add(d) }

func TestControllerStartsPending(t *testing.T) {
	c := NewController(newFakeClock().now)

	st := c.Poll()
	assert.Equal(t, Pending, st.State)
	assert.Equal(t, Window, st.Remaining)
	assert.Equal(t, Pending, c.State())
}

func TestVisibilityBelowThresholdIgnored(t *testing.T) {
	clk := newFakeClock()
	c := NewController(clk.now)

	c.ReportVisibility(0.59)
	clk.advance(10 * time.Minute)

	st := c.Poll()
	assert.Equal(t, Pending, st.State)
}

func TestThresholdStartsCountdownOnce(t *testing.T) {
	clk := newFakeClock()
	c := NewController(clk.now)

	c.ReportVisibility(0.6)
	clk.advance(20 * time.Second)
	// A later report must not restart the window.
	c.ReportVisibility(1.0)

	st := c.Poll()
	assert.Equal(t, Counting, st.State)
	assert.Equal(t, 40*time.Second, st.Remaining)
}

func TestWallClockJumpBurnsImmediately(t *testing.T) {
	clk := newFakeClock()
	c := NewController(clk.now)
	c.ReportVisibility(1.0)

	// A suspended client polls once, late. No intermediate ticks ever
	// happened; the deadline alone decides.
	clk.advance(Window + time.Second)
	st := c.Poll()
	assert.Equal(t, Burned, st.State)
	assert.Zero(t, st.Remaining)
}

func TestBurnCallbackFiresExactlyOnce(t *testing.T) {
	clk := newFakeClock()
	c := NewController(clk.now)
	fired := 0
	c.SetBurnFunc(func() { fired++ })

	c.ReportVisibility(1.0)
	clk.advance(Window)
	c.Poll()
	c.Poll()
	c.Poll()

	assert.Equal(t, 1, fired)
	assert.Equal(t, Burned, c.State())
}

func TestSetBurnFuncReplacesCallback(t *testing.T) {
	clk := newFakeClock()
	c := NewController(clk.now)

	var got string
	c.SetBurnFunc(func() { got = "old" })
	c.SetBurnFunc(func() { got = "new" })

	c.ReportVisibility(1.0)
	clk.advance(Window)
	c.Poll()
	assert.Equal(t, "new", got)
}

func TestVisibilityAfterBurnStaysBurned(t *testing.T) {
	clk := newFakeClock()
	c := NewController(clk.now)
	c.ReportVisibility(1.0)
	clk.advance(Window)
	c.Poll()

	c.ReportVisibility(1.0)
	assert.Equal(t, Burned, c.Poll().State)
}

func TestRegistryForReturnsSameController(t *testing.T) {
	r := NewRegistry(nil)
	a := r.For("m1")
	b := r.For("m1")
	require.Same(t, a, b)

	_, ok := r.Lookup("m2")
	assert.False(t, ok)
}

func TestRegistryReportAndPollAll(t *testing.T) {
	clk := newFakeClock()
	r := NewRegistry(clk.now)

	r.Report("seen", 1.0)
	r.Report("unseen", 0.1)

	clk.advance(Window + time.Second)
	r.PollAll()

	seen, ok := r.Lookup("seen")
	require.True(t, ok)
	assert.Equal(t, Burned, seen.State())

	unseen, ok := r.Lookup("unseen")
	require.True(t, ok)
	assert.Equal(t, Pending, unseen.State(), "a never-seen message never burns")
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry(nil)
	r.For("m1")
	r.Reset()
	_, ok := r.Lookup("m1")
	assert.False(t, ok)
}
