// Package ui renders the chat client with tview. It owns no protocol
// logic: every screen consumes the session, ephemeral, and sentinel state
// machines through the callbacks in UIConfig.
package ui

import (
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"embers/internal/ephemeral"
	"embers/internal/models"
	"embers/internal/sentinel"
)

// UIConfig wires the screens to the application logic.
type UIConfig struct {
	JoinHandler  func(passcode, nickname string) error
	LeaveHandler func()
	SendHandler  func(text string, replyTo *models.Message, ephemeral bool) error
	ShareHandler func(entry *models.JournalEntry, ephemeral bool) error
	ListEntries  func() []models.JournalEntry
	SaveEntry    func(content, mood string, tags []string, pinned bool) error
	Predict      func(content string) string

	Messages    func() []models.Message
	OnlineCount func() int
	SelfID      func() string
	RoomID      func() string

	Burns    *ephemeral.Registry
	Detector *sentinel.Detector
}

type UI struct {
	App   *tview.Application
	Pages *tview.Pages
	Cfg   *UIConfig

	JoinScreen   *JoinScreen
	ChatScreen   *ChatScreen
	EditorScreen *EditorScreen

	curtain       *tview.Modal
	redrawPending atomic.Bool
}

func NewUI(cfg *UIConfig) *UI {
	ui := &UI{
		App:   tview.NewApplication(),
		Pages: tview.NewPages(),
		Cfg:   cfg,
	}

	ui.JoinScreen = newJoinScreen(ui)
	ui.ChatScreen = newChatScreen(ui)
	ui.EditorScreen = newEditorScreen(ui)

	ui.curtain = tview.NewModal().
		SetText("🙈 privacy curtain engaged").
		SetBackgroundColor(tcell.ColorBlack)

	ui.Pages.AddPage("join", ui.JoinScreen.Layout, true, true)
	ui.Pages.AddPage("chat", ui.ChatScreen.Layout, true, false)
	ui.Pages.AddPage("editor", ui.EditorScreen.Layout, true, false)
	ui.Pages.AddPage("curtain", ui.curtain, true, false)

	// Screenshot chords are classified globally, before any widget sees
	// the key. Ctrl-C is claimed here too: tview would otherwise stop
	// the application before the copy handler runs.
	ui.App.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if cfg.Detector != nil && cfg.Detector.HandleKey(ev) {
			return nil
		}
		if ev.Key() == tcell.KeyCtrlC {
			if name, _ := ui.Pages.GetFrontPage(); name == "chat" {
				ui.ChatScreen.copySelection()
				return nil
			}
		}
		return ev
	})

	if cfg.Detector != nil {
		// The curtain callback can fire on the event goroutine itself
		// (a chord arriving through the input capture above), where a
		// blocking QueueUpdateDraw would deadlock the loop. Dispatch
		// asynchronously and read the live state inside the update so
		// reordered dispatches still converge.
		cfg.Detector.SetCurtainFunc(func(bool) {
			go ui.App.QueueUpdateDraw(ui.syncCurtain)
		})
	}

	ui.App.SetRoot(ui.Pages, true)
	return ui
}

// ShowError pops a blocking modal with a single dismiss button.
func (ui *UI) ShowError(title, message, button string, done func()) {
	modal := tview.NewModal().
		SetText(title + "\n\n" + message).
		AddButtons([]string{button}).
		SetDoneFunc(func(int, string) {
			ui.Pages.RemovePage("error")
			if done != nil {
				done()
			}
		})
	ui.Pages.AddPage("error", modal, true, true)
}

func (ui *UI) syncCurtain() {
	if ui.Cfg.Detector.CurtainEngaged() {
		ui.Pages.ShowPage("curtain")
	} else {
		ui.Pages.HidePage("curtain")
	}
}

// Redraw refreshes the chat screen from current state. Safe to call from
// any goroutine, including the event loop itself: the update is queued
// from a separate goroutine and bursts coalesce into one render.
func (ui *UI) Redraw() {
	if !ui.redrawPending.CompareAndSwap(false, true) {
		return
	}
	go ui.App.QueueUpdateDraw(func() {
		ui.redrawPending.Store(false)
		ui.ChatScreen.Render()
	})
}

func (ui *UI) SwitchToChat() {
	ui.ChatScreen.Render()
	ui.Pages.SwitchToPage("chat")
	ui.App.SetFocus(ui.ChatScreen.Input)
}

func (ui *UI) SwitchToJoin() {
	ui.Pages.SwitchToPage("join")
	ui.App.SetFocus(ui.JoinScreen.Form)
}
