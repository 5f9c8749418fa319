package ui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embers/internal/ephemeral"
	"embers/internal/models"
	"embers/internal/sentinel"
)

func stubConfig() *UIConfig {
	return &UIConfig{
		JoinHandler:  func(string, string) error { return nil },
		LeaveHandler: func() {},
		SendHandler:  func(string, *models.Message, bool) error { return nil },
		ShareHandler: func(*models.JournalEntry, bool) error { return nil },
		ListEntries:  func() []models.JournalEntry { return nil },
		Messages: func() []models.Message {
			return []models.Message{{
				ID:         "m1",
				SenderID:   "peer",
				SenderName: "alice",
				Timestamp:  time.Now(),
				Body:       models.TextBody{Content: "hello"},
			}}
		},
		OnlineCount: func() int { return 0 },
		SelfID:      func() string { return "self" },
		RoomID:      func() string { return "public_lounge" },
		Burns:       ephemeral.NewRegistry(nil),
		Detector:    sentinel.NewDetector(time.Hour, zerolog.Nop()),
	}
}

// runOnSimScreen starts the application event loop on a simulation
// screen and blocks until the loop is processing updates.
func runOnSimScreen(t *testing.T, ui *UI) tcell.SimulationScreen {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	ui.App.SetScreen(sim)

	done := make(chan error, 1)
	go func() { done <- ui.App.Run() }()
	t.Cleanup(func() {
		ui.App.Stop()
		<-done
	})

	requireLoopAlive(t, ui.App)
	return sim
}

// requireLoopAlive proves the event loop is still draining its queue.
// QueueUpdate returns only after the loop has executed the function, so
// a stalled loop fails the timeout.
func requireLoopAlive(t *testing.T, app *tview.Application) {
	t.Helper()
	ran := make(chan struct{})
	go func() {
		app.QueueUpdate(func() {})
		close(ran)
	}()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("event loop stalled")
	}
}

func frontPage(app *tview.Application, pages *tview.Pages) string {
	var name string
	app.QueueUpdate(func() { name, _ = pages.GetFrontPage() })
	return name
}

func TestScreenshotChordKeepsLoopResponsive(t *testing.T) {
	ui := NewUI(stubConfig())
	sim := runOnSimScreen(t, ui)

	// The chord is classified inside the input capture, on the event
	// goroutine itself; raising the curtain must not block the loop.
	sim.InjectKey(tcell.KeyF12, 0, tcell.ModNone)

	requireLoopAlive(t, ui.App)
	require.Eventually(t, func() bool {
		return frontPage(ui.App, ui.Pages) == "curtain"
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, ui.Cfg.Detector.CurtainEngaged())
}

func TestRedrawFromEventLoopDoesNotBlock(t *testing.T) {
	ui := NewUI(stubConfig())
	runOnSimScreen(t, ui)

	// The session update hook fires synchronously from Join inside the
	// Connect-button handler, i.e. on the event goroutine.
	ui.App.QueueUpdate(func() { ui.Redraw() })

	requireLoopAlive(t, ui.App)
	require.Eventually(t, func() bool {
		var n int
		ui.App.QueueUpdate(func() { n = ui.ChatScreen.MsgList.GetItemCount() })
		return n == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRedrawCoalescesBursts(t *testing.T) {
	ui := NewUI(stubConfig())
	runOnSimScreen(t, ui)

	for i := 0; i < 50; i++ {
		ui.Redraw()
	}
	requireLoopAlive(t, ui.App)
	require.Eventually(t, func() bool {
		return !ui.redrawPending.Load()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEditorSaveCarriesMetadata(t *testing.T) {
	cfg := stubConfig()
	var (
		gotContent, gotMood string
		gotTags             []string
		gotPinned           bool
	)
	cfg.SaveEntry = func(content, mood string, tags []string, pinned bool) error {
		gotContent, gotMood, gotTags, gotPinned = content, mood, tags, pinned
		return nil
	}
	ui := NewUI(cfg)

	ed := ui.EditorScreen
	ed.Text.SetText("today was heavy", false)
	ed.Meta.GetFormItem(0).(*tview.DropDown).SetCurrentOption(3)
	ed.Meta.GetFormItem(1).(*tview.InputField).SetText(" work , late night ")
	ed.pinned = true
	ed.save()

	assert.Equal(t, "today was heavy", gotContent)
	assert.Equal(t, "☕", gotMood)
	assert.Equal(t, []string{"work", "late night"}, gotTags)
	assert.True(t, gotPinned)
}

func TestEditorDefaultMoodSavesEmpty(t *testing.T) {
	cfg := stubConfig()
	var gotMood string
	saved := false
	cfg.SaveEntry = func(_, mood string, _ []string, _ bool) error {
		gotMood = mood
		saved = true
		return nil
	}
	ui := NewUI(cfg)

	ui.EditorScreen.Text.SetText("plain entry", false)
	ui.EditorScreen.save()

	require.True(t, saved)
	assert.Empty(t, gotMood, "the neutral face means no mood recorded")
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitTags("a, b c,, "))
	assert.Nil(t, splitTags(""))
	assert.Nil(t, splitTags(" , ,"))
}
