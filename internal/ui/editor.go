package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// moods mirrors the set the journal has always offered; the last one is
// the "no mood" default.
var moods = []string{"☁️", "🌞", "🌧️", "☕", "🍷", "🌲", "🌙", "🌊", "😶"}

// EditorScreen is the journal composer. Ctrl-Space asks the predictive
// text service for a continuation; the result lands in the buffer like
// any other typed text. Mood, tags, and the pinned flag live in the meta
// form below the text.
type EditorScreen struct {
	ui     *UI
	Layout *tview.Flex
	Text   *tview.TextArea
	Meta   *tview.Form

	mood   string
	tags   string
	pinned bool
}

func newEditorScreen(ui *UI) *EditorScreen {
	s := &EditorScreen{ui: ui, mood: moods[len(moods)-1]}

	s.Text = tview.NewTextArea().
		SetPlaceholder("Write freely. Ctrl-Space: continue, Ctrl-S: save, Tab: mood and tags, Esc: discard")
	s.Text.SetBorder(true).SetTitle("[ new journal entry ]")

	s.Meta = tview.NewForm().
		SetHorizontal(true).
		AddDropDown("Mood", moods, len(moods)-1, func(option string, _ int) { s.mood = option }).
		AddInputField("Tags (comma separated)", "", 30, nil, func(v string) { s.tags = v }).
		AddCheckbox("Pinned", false, func(v bool) { s.pinned = v })
	s.Meta.SetBorder(true)

	capture := func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyCtrlS:
			s.save()
			return nil
		case tcell.KeyESC:
			s.close()
			return nil
		}
		return ev
	}

	s.Text.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyCtrlSpace:
			if ui.Cfg.Predict != nil {
				if next := ui.Cfg.Predict(s.Text.GetText()); next != "" {
					s.Text.SetText(s.Text.GetText()+" "+next, true)
				}
			}
			return nil
		case tcell.KeyTAB:
			ui.App.SetFocus(s.Meta)
			return nil
		}
		return capture(ev)
	})
	s.Meta.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyTAB {
			if item, _ := s.Meta.GetFocusedItemIndex(); item == s.Meta.GetFormItemCount()-1 {
				ui.App.SetFocus(s.Text)
				return nil
			}
		}
		return capture(ev)
	})

	s.Layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.Text, 0, 1, true).
		AddItem(s.Meta, 5, 0, false)
	return s
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *EditorScreen) save() {
	content := s.Text.GetText()
	if content == "" {
		s.close()
		return
	}
	mood := s.mood
	if mood == moods[len(moods)-1] {
		mood = ""
	}
	if s.ui.Cfg.SaveEntry != nil {
		if err := s.ui.Cfg.SaveEntry(content, mood, splitTags(s.tags), s.pinned); err != nil {
			s.ui.ShowError("Save failed", err.Error(), "OK", nil)
			return
		}
	}
	s.close()
}

func (s *EditorScreen) close() {
	s.Text.SetText("", false)
	s.ui.Pages.HidePage("editor")
	s.ui.App.SetFocus(s.ui.ChatScreen.Input)
}

// OpenEditor shows the composer over the chat screen.
func (ui *UI) OpenEditor() {
	ui.Pages.ShowPage("editor")
	ui.App.SetFocus(ui.EditorScreen.Text)
}
