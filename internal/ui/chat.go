package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"embers/internal/ephemeral"
	"embers/internal/models"
	"embers/internal/utils"
)

// visibleTail approximates the viewport: the message list stays pinned
// to the newest entries, so the last rows are what the user is actually
// looking at. Only those feed the visibility reporter.
const visibleTail = 15

type ChatScreen struct {
	ui      *UI
	Layout  *tview.Flex
	MsgList *tview.List
	Input   *tview.TextArea
	status  *tview.TextView

	rendered  []models.Message
	replyTo   *models.Message
	burnInput bool
}

func newChatScreen(ui *UI) *ChatScreen {
	s := &ChatScreen{ui: ui}

	s.MsgList = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	s.MsgList.SetBorder(true)

	s.Input = tview.NewTextArea().
		SetPlaceholder("Type a message... (Ctrl-B: burn-after-reading, Ctrl-J: share journal, Ctrl-N: new entry)")
	s.Input.SetBorder(true)

	s.status = tview.NewTextView().SetDynamicColors(true)

	s.MsgList.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch {
		case ev.Key() == tcell.KeyTAB:
			ui.App.SetFocus(s.Input)
			return nil
		case ev.Rune() == 'r':
			if m := s.selectedMessage(); m != nil && m.Body.Kind() != models.KindSystem {
				s.replyTo = m
				s.updateStatus()
			}
			return nil
		case ev.Rune() == 'o':
			s.openSelectedShare()
			return nil
		}
		return ev
	})

	s.Input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyEnter:
			s.send()
			return nil
		case tcell.KeyCtrlB:
			s.burnInput = !s.burnInput
			s.updateStatus()
			return nil
		case tcell.KeyCtrlJ:
			s.showSharePicker()
			return nil
		case tcell.KeyCtrlN:
			s.ui.OpenEditor()
			return nil
		case tcell.KeyTAB:
			ui.App.SetFocus(s.MsgList)
			return nil
		case tcell.KeyESC:
			if s.replyTo != nil {
				s.replyTo = nil
				s.updateStatus()
				return nil
			}
			s.confirmLeave()
			return nil
		}
		return ev
	})

	s.Layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.MsgList, 0, 1, false).
		AddItem(s.status, 1, 0, false).
		AddItem(s.Input, 4, 0, true)
	return s
}

func (s *ChatScreen) send() {
	text := s.Input.GetText()
	if text == "" {
		return
	}
	if err := s.ui.Cfg.SendHandler(text, s.replyTo, s.burnInput); err != nil {
		if utils.IsSendMessageError(err) || utils.IsValidationError(err) {
			s.ui.ShowError("Send failed", err.Error(), "OK", nil)
		}
		return
	}
	s.Input.SetText("", false)
	s.replyTo = nil
	s.updateStatus()
}

// copySelection reports the highlighted bubble to the detector. Copying
// is a risk event before it is a convenience.
func (s *ChatScreen) copySelection() {
	if m := s.selectedMessage(); m != nil && s.ui.Cfg.Detector != nil {
		s.ui.Cfg.Detector.HandleCopy(s.displayContent(m))
	}
}

func (s *ChatScreen) selectedMessage() *models.Message {
	idx := s.MsgList.GetCurrentItem()
	if idx < 0 || idx >= len(s.rendered) {
		return nil
	}
	return &s.rendered[idx]
}

func (s *ChatScreen) confirmLeave() {
	modal := tview.NewModal().
		SetText("Disconnect?\nThe session log is destroyed immediately and cannot be recovered.").
		AddButtons([]string{"Destroy and leave", "Stay"}).
		SetDoneFunc(func(_ int, label string) {
			s.ui.Pages.RemovePage("leave")
			if label == "Destroy and leave" {
				s.ui.Cfg.LeaveHandler()
				s.ui.SwitchToJoin()
			}
		})
	s.ui.Pages.AddPage("leave", modal, true, true)
}

// Render rebuilds the message list from the session log and reports
// viewport visibility for the tail entries.
func (s *ChatScreen) Render() {
	cfg := s.ui.Cfg
	msgs := cfg.Messages()
	s.rendered = msgs

	atTail := s.MsgList.GetCurrentItem() >= s.MsgList.GetItemCount()-1
	s.MsgList.Clear()
	for _, m := range msgs {
		s.MsgList.AddItem(s.formatMessage(&m), "", 0, nil)
	}
	if atTail && len(msgs) > 0 {
		s.MsgList.SetCurrentItem(len(msgs) - 1)
	}

	start := len(msgs) - visibleTail
	if start < 0 {
		start = 0
	}
	for _, m := range msgs[start:] {
		if m.Ephemeral() {
			cfg.Burns.Report(m.ID, 1.0)
		}
	}

	room := cfg.RoomID()
	label := "Private Room"
	if room == "public_lounge" {
		label = "Public Lounge"
	}
	s.MsgList.SetTitle(fmt.Sprintf("[ %s · %d online ]", label, cfg.OnlineCount()))
	s.updateStatus()
}

func (s *ChatScreen) updateStatus() {
	line := ""
	if s.burnInput {
		line += "[orange]🔥 burn-after-reading on[-]  "
	}
	if s.replyTo != nil {
		line += fmt.Sprintf("[gray]replying to %s: %s[-]", s.replyTo.SenderName, s.replyTo.PreviewText())
	}
	s.status.SetText(line)
}

func (s *ChatScreen) formatMessage(m *models.Message) string {
	ts := utils.FormatPrettyTime(m.Timestamp)
	me := m.SenderID == s.ui.Cfg.SelfID()

	name := m.SenderName
	if name == "" {
		name = "Anonymous"
	}
	nameColor := "teal"
	if me {
		nameColor = "green"
	}

	switch b := m.Body.(type) {
	case models.SystemBody:
		return fmt.Sprintf("[gray]── %s ──[-]", b.Content)
	case models.ScreenshotAlertBody:
		return fmt.Sprintf("[red]%s[-]", b.Content)
	case models.TextBody:
		prefix := ""
		if b.ReplyTo != nil {
			prefix = fmt.Sprintf("[gray]> %s: %s[-]\n", b.ReplyTo.SenderName, b.ReplyTo.ContentPreview)
		}
		content := b.Content
		if b.Ephemeral {
			content = s.ephemeralContent(m.ID, content)
		}
		return fmt.Sprintf("%s[yellow][%s] [%s]%s:[-] %s", prefix, ts, nameColor, name, content)
	case models.JournalShareBody:
		snippet := b.Snippet
		if b.Ephemeral {
			snippet = s.ephemeralContent(m.ID, snippet)
		}
		return fmt.Sprintf("[yellow][%s] [%s]%s:[-] 📄 %s · \"%s\" [gray](o to read)[-]", ts, nameColor, name, b.Title, snippet)
	default:
		return fmt.Sprintf("[yellow][%s] [%s]%s[-]", ts, nameColor, name)
	}
}

// ephemeralContent renders a burn-after-reading body according to its
// lifecycle state.
func (s *ChatScreen) ephemeralContent(id, content string) string {
	st := s.ui.Cfg.Burns.For(id).Poll()
	switch st.State {
	case ephemeral.Burned:
		return "[gray]" + models.RedactionMarker + "[-]"
	case ephemeral.Counting:
		return fmt.Sprintf("%s [orange]🔥%ds[-]", content, int(st.Remaining.Seconds()))
	default:
		return content + " [orange]🔥[-]"
	}
}

func (s *ChatScreen) openSelectedShare() {
	m := s.selectedMessage()
	if m == nil {
		return
	}
	share, ok := m.Body.(models.JournalShareBody)
	if !ok {
		return
	}
	if m.Ephemeral() && s.ui.Cfg.Burns.For(m.ID).State() == ephemeral.Burned {
		return
	}

	view := tview.NewTextView().SetText(share.FullContent).SetScrollable(true)
	view.SetBorder(true).SetTitle(fmt.Sprintf("[ %s ]", share.Title))
	view.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyESC {
			s.closeViewer()
			return nil
		}
		return ev
	})
	s.ui.Pages.AddPage("viewer", view, true, true)

	if m.Ephemeral() {
		// The viewer shows the same content as the bubble; when the
		// bubble burns, the viewer has to go with it. The burn can fire
		// from a Poll inside Render, so the close must not block the
		// event goroutine.
		s.ui.Cfg.Burns.For(m.ID).SetBurnFunc(func() {
			go s.ui.App.QueueUpdateDraw(s.closeViewer)
		})
	}
}

func (s *ChatScreen) closeViewer() {
	s.ui.Pages.RemovePage("viewer")
	s.ui.App.SetFocus(s.MsgList)
}

func (s *ChatScreen) displayContent(m *models.Message) string {
	switch b := m.Body.(type) {
	case models.TextBody:
		if m.Ephemeral() && s.ui.Cfg.Burns.For(m.ID).State() == ephemeral.Burned {
			return ""
		}
		return b.Content
	case models.JournalShareBody:
		return b.Snippet
	case models.SystemBody:
		return b.Content
	case models.ScreenshotAlertBody:
		return b.Content
	}
	return ""
}

func (s *ChatScreen) showSharePicker() {
	entries := s.ui.Cfg.ListEntries()
	if len(entries) == 0 {
		s.ui.ShowError("Nothing to share", "The journal has no entries.", "OK", nil)
		return
	}

	picker := tview.NewList().ShowSecondaryText(true)
	picker.SetBorder(true).SetTitle("[ share a journal entry ]")
	for i := range entries {
		entry := entries[i]
		picker.AddItem(entry.Title(), entry.Content, 0, func() {
			s.ui.Pages.RemovePage("picker")
			if err := s.ui.Cfg.ShareHandler(&entry, s.burnInput); err != nil {
				s.ui.ShowError("Share failed", err.Error(), "OK", nil)
			}
			s.ui.App.SetFocus(s.Input)
		})
	}
	picker.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyESC {
			s.ui.Pages.RemovePage("picker")
			s.ui.App.SetFocus(s.Input)
			return nil
		}
		return ev
	})
	s.ui.Pages.AddPage("picker", picker, true, true)
}
