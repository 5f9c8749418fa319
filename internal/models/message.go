// Package models defines the data model shared by the chat session, the
// transport backends, and the rendering layer.
package models

import (
	"time"
)

// MessageKind indicates which kind of payload lives inside the Envelope.
type MessageKind string

const (
	KindText            MessageKind = "text"
	KindSystem          MessageKind = "system"
	KindJournalShare    MessageKind = "journal-share"
	KindPurgeUser       MessageKind = "purge-user"
	KindScreenshotAlert MessageKind = "screenshot-alert"
)

// SenderSystem is the sender id of synthetic local notices.
const SenderSystem = "system"

// SenderAlert is the display name stamped on screenshot alerts.
const SenderAlert = "SYSTEM_ALERT"

// RedactionMarker replaces the content of a burned or quoted ephemeral
// message. Burned content must never travel in any later message.
const RedactionMarker = "🔥 [burned after reading]"

type Body interface {
	Kind() MessageKind
}

// ReplyRef is a back-reference to a quoted message. It is a copy, not an
// ownership pointer; the preview of an ephemeral original is always the
// redaction marker.
type ReplyRef struct {
	ID             string `json:"id"`
	SenderName     string `json:"sender_name"`
	ContentPreview string `json:"content_preview"`
}

type TextBody struct {
	Content   string    `json:"content"`
	Ephemeral bool      `json:"ephemeral,omitempty"`
	ReplyTo   *ReplyRef `json:"reply_to,omitempty"`
}

func (TextBody) Kind() MessageKind { return KindText }

// SystemBody is a local-only notice; it is never broadcast.
type SystemBody struct {
	Content string `json:"content"`
}

func (SystemBody) Kind() MessageKind { return KindSystem }

type JournalShareBody struct {
	Snippet     string `json:"snippet"`
	Title       string `json:"title"`
	JournalID   string `json:"journal_id"`
	FullContent string `json:"full_content"`
	Ephemeral   bool   `json:"ephemeral,omitempty"`
}

func (JournalShareBody) Kind() MessageKind { return KindJournalShare }

// PurgeUserBody announces a graceful departure; the envelope sender fields
// identify whose messages must be purged.
type PurgeUserBody struct{}

func (PurgeUserBody) Kind() MessageKind { return KindPurgeUser }

type ScreenshotAlertBody struct {
	Action  string `json:"action"` // "screenshot" or "copy"
	Content string `json:"content"`
}

func (ScreenshotAlertBody) Kind() MessageKind { return KindScreenshotAlert }

// Message is a decoded chat message as held in the local log. Immutable
// once appended; burn state lives in the ephemeral controller, not here.
type Message struct {
	ID         string
	SenderID   string
	SenderName string
	Timestamp  time.Time
	Body       Body
}

// Ephemeral reports whether the message carries burn-after-reading
// semantics.
func (m *Message) Ephemeral() bool {
	switch b := m.Body.(type) {
	case TextBody:
		return b.Ephemeral
	case JournalShareBody:
		return b.Ephemeral
	}
	return false
}

// PreviewText returns the text a reply quote would embed, honoring the
// redaction rule for ephemeral originals.
func (m *Message) PreviewText() string {
	if m.Ephemeral() {
		return RedactionMarker
	}
	switch b := m.Body.(type) {
	case TextBody:
		return truncateRunes(b.Content, 30)
	case JournalShareBody:
		return truncateRunes(b.Snippet, 30)
	case SystemBody:
		return truncateRunes(b.Content, 30)
	case ScreenshotAlertBody:
		return truncateRunes(b.Content, 30)
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
