package ui

import (
	"github.com/rivo/tview"
)

// JoinScreen is the entry form: a nickname, an optional passcode, and a
// reminder that nothing is stored.
type JoinScreen struct {
	ui     *UI
	Layout *tview.Flex
	Form   *tview.Form
}

func newJoinScreen(ui *UI) *JoinScreen {
	s := &JoinScreen{ui: ui}

	var nickname, passcode string
	s.Form = tview.NewForm().
		AddInputField("Nickname", "", 24, nil, func(v string) { nickname = v }).
		AddPasswordField("Passcode (empty = public lounge)", "", 24, '*', func(v string) { passcode = v }).
		AddButton("Connect", func() {
			if nickname == "" {
				ui.ShowError("Error", "Pick a nickname first", "OK", nil)
				return
			}
			if err := ui.Cfg.JoinHandler(passcode, nickname); err != nil {
				ui.ShowError("Cannot connect", err.Error(), "OK", nil)
				return
			}
			ui.SwitchToChat()
		}).
		AddButton("Quit", func() { ui.App.Stop() })
	s.Form.SetBorder(true).SetTitle("[ embers · anonymous ephemeral chat ]")

	hint := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText("RAM only · no history · burn on exit\nLeaving or losing signal erases your messages from everyone's view.")

	s.Layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewBox(), 0, 1, false).
		AddItem(s.Form, 11, 0, true).
		AddItem(hint, 3, 0, false).
		AddItem(tview.NewBox(), 0, 1, false)
	return s
}
