// Package session owns the chat message log and the join/leave lifecycle
// on top of a transport.Channel. One Session instance per tab; nothing in
// here survives the process.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"embers/internal/journal"
	"embers/internal/models"
	"embers/internal/transport"
	"embers/internal/utils"

	"github.com/rs/zerolog"
)

// Action classifies an intrusion alert broadcast.
type Action string

const (
	ActionScreenshot Action = "screenshot"
	ActionCopy       Action = "copy"
)

const joinNotice = "Encrypted channel joined. Messages are never stored; everything burns on exit."

const (
	reasonDestroyed  = "destroyed their traces and left"
	reasonSignalLost = "signal lost, traces auto-cleared"
)

// Session is the per-participant chat state machine. The message log is
// owned exclusively by this instance; transport callbacks are the only
// writers besides the local operations.
type Session struct {
	channel transport.Channel
	log     zerolog.Logger
	now     func() time.Time

	mu          sync.Mutex
	ctx         context.Context
	handle      transport.Handle
	selfID      string
	nickname    string
	roomID      string
	joined      bool
	onlineCount int
	messages    []models.Message
	// epoch guards against transport callbacks landing in a session
	// that has already been reset.
	epoch int

	updateMu sync.Mutex
	onUpdate func()
}

// New creates a session bound to a channel. The peer identity is
// generated here, once, and dies with the session.
func New(channel transport.Channel, log zerolog.Logger) *Session {
	return &Session{
		channel: channel,
		log:     log.With().Str("component", "session").Logger(),
		now:     time.Now,
		selfID:  utils.GeneratePeerID(),
	}
}

// SetUpdateFunc installs the redraw hook. The session resolves it on
// every notification, so it may be swapped at any time.
func (s *Session) SetUpdateFunc(fn func()) {
	s.updateMu.Lock()
	s.onUpdate = fn
	s.updateMu.Unlock()
}

func (s *Session) notify() {
	s.updateMu.Lock()
	fn := s.onUpdate
	s.updateMu.Unlock()
	if fn != nil {
		fn()
	}
}

// Join subscribes to the room and registers the delivery and presence
// callbacks. With no backend configured it makes no transport call at all
// and returns a config error for the UI to surface.
func (s *Session) Join(ctx context.Context, roomID, nickname string) error {
	if nickname == "" {
		return utils.ValidationError("nickname cannot be empty")
	}
	if !s.channel.Configured() {
		return utils.ConfigError("cannot connect: no chat backend configured")
	}

	s.mu.Lock()
	if s.joined {
		s.mu.Unlock()
		return utils.JoinRoomError("already in a room")
	}
	s.epoch++
	epoch := s.epoch
	self := transport.Peer{ID: s.selfID, DisplayName: nickname}
	s.mu.Unlock()

	handle, err := s.channel.Join(ctx, roomID, self, transport.JoinOptions{
		OnMessage:       func(env *models.Envelope) { s.deliver(epoch, env) },
		OnPresenceCount: func(count int) { s.presenceChanged(epoch, count) },
		OnPeerLeft:      func(peerID string) { s.peerLeft(epoch, peerID) },
	})
	if err != nil {
		return utils.JoinRoomError("failed to join room").WithDetails(err.Error())
	}

	s.mu.Lock()
	s.ctx = ctx
	s.handle = handle
	s.roomID = roomID
	s.nickname = nickname
	s.joined = true
	s.onlineCount = handle.PresenceCount()
	s.messages = append(s.messages, models.Message{
		ID:         "sys-start",
		SenderID:   models.SenderSystem,
		SenderName: models.SenderSystem,
		Timestamp:  s.now(),
		Body:       models.SystemBody{Content: joinNotice},
	})
	s.mu.Unlock()

	s.log.Info().Str("room", roomID).Str("peer", s.selfID).Msg("joined room")
	s.notify()
	return nil
}

// deliver is the broadcast callback. Own messages arrive here too; the
// self-echo is the only append path for sent messages.
func (s *Session) deliver(epoch int, env *models.Envelope) {
	msg, err := env.Decode()
	if err != nil {
		s.log.Debug().Err(err).Msg("dropping undecodable message")
		return
	}

	s.mu.Lock()
	if s.epoch != epoch || !s.joined {
		s.mu.Unlock()
		return
	}
	if msg.Body.Kind() == models.KindPurgeUser {
		s.purgeLocked(msg.SenderID, msg.SenderName, reasonDestroyed)
	} else {
		s.messages = append(s.messages, *msg)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) presenceChanged(epoch, count int) {
	s.mu.Lock()
	if s.epoch != epoch || !s.joined {
		s.mu.Unlock()
		return
	}
	s.onlineCount = count
	s.mu.Unlock()
	s.notify()
}

// peerLeft is the abrupt-disconnect path (closed tab, network drop). The
// purge is identical to the graceful one except for the reason; if a
// purge-user notice already emptied that peer's messages, the zero-message
// check suppresses a duplicate notice.
func (s *Session) peerLeft(epoch int, peerID string) {
	if peerID == "" {
		return
	}
	s.mu.Lock()
	if s.epoch != epoch || !s.joined || peerID == s.selfID {
		s.mu.Unlock()
		return
	}
	name := s.lastKnownNameLocked(peerID)
	s.purgeLocked(peerID, name, reasonSignalLost)
	s.mu.Unlock()
	s.notify()
}

// purgeLocked removes every message from the departed peer and appends
// one synthetic notice. Idempotent: a peer with no messages in the log
// produces no notice, so the graceful and abrupt paths never stack.
func (s *Session) purgeLocked(targetID, targetName, reason string) {
	kept := s.messages[:0]
	removed := 0
	for _, m := range s.messages {
		if m.SenderID == targetID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	if removed == 0 {
		return
	}
	if targetName == "" {
		targetName = "Someone"
	}
	s.messages = append(s.messages, models.Message{
		ID:         fmt.Sprintf("sys-%d", s.now().UnixNano()),
		SenderID:   models.SenderSystem,
		SenderName: models.SenderSystem,
		Timestamp:  s.now(),
		Body:       models.SystemBody{Content: fmt.Sprintf("%s %s", targetName, reason)},
	})
}

func (s *Session) lastKnownNameLocked(peerID string) string {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].SenderID == peerID && s.messages[i].SenderName != models.SenderAlert {
			return s.messages[i].SenderName
		}
	}
	return ""
}

// Leave broadcasts the purge notice, then unsubscribes, then resets all
// local state. The reset happens regardless of broadcast success; leaving
// is a local guarantee.
func (s *Session) Leave() {
	s.mu.Lock()
	handle := s.handle
	ctx := s.ctx
	wasJoined := s.joined
	var env *models.Envelope
	if wasJoined {
		var err error
		env, err = models.NewEnvelope(models.PurgeUserBody{}, s.selfID, s.nickname, s.now())
		if err != nil {
			env = nil
		}
	}
	s.mu.Unlock()

	if wasJoined && handle != nil {
		// Purge notice goes out before the subscription closes, or
		// peers only get the abrupt-disconnect fallback.
		if env != nil {
			if err := handle.Broadcast(ctx, env); err != nil {
				s.log.Debug().Err(err).Msg("purge broadcast failed, peers will see signal loss")
			}
		}
		if err := handle.Leave(); err != nil {
			s.log.Debug().Err(err).Msg("channel leave failed")
		}
	}

	s.mu.Lock()
	s.epoch++
	s.handle = nil
	s.ctx = nil
	s.messages = nil
	s.joined = false
	s.nickname = ""
	s.roomID = ""
	s.onlineCount = 0
	s.mu.Unlock()

	s.log.Info().Msg("left room, session state reset")
	s.notify()
}

// SendMessage broadcasts a text message. There is no optimistic local
// append; the self-echo keeps one code path for own and peer messages.
// Replying to an ephemeral message embeds the redaction marker, never the
// original content.
func (s *Session) SendMessage(text string, replyTo *models.Message, ephemeral bool) error {
	if text == "" {
		return utils.ValidationError("message cannot be empty")
	}

	s.mu.Lock()
	if !s.joined {
		s.mu.Unlock()
		return utils.SendMessageError("not in a room")
	}
	body := models.TextBody{Content: text, Ephemeral: ephemeral}
	if replyTo != nil {
		name := replyTo.SenderName
		if name == "" {
			name = "Unknown"
		}
		body.ReplyTo = &models.ReplyRef{
			ID:             replyTo.ID,
			SenderName:     name,
			ContentPreview: replyTo.PreviewText(),
		}
	}
	env, err := models.NewEnvelope(body, s.selfID, s.nickname, s.now())
	handle := s.handle
	ctx := s.ctx
	s.mu.Unlock()

	if err != nil {
		return err
	}
	// Fire-and-forget: a dropped ephemeral message is preferable to a
	// stale retry landing in a changed conversation.
	if err := handle.Broadcast(ctx, env); err != nil {
		s.log.Debug().Err(err).Msg("broadcast failed, message dropped")
	}
	return nil
}

// SendScreenshotAlert tells the room someone is capturing content. It is
// a social deterrent only; no-op when not joined.
func (s *Session) SendScreenshotAlert(action Action) {
	s.mu.Lock()
	if !s.joined {
		s.mu.Unlock()
		return
	}
	var text string
	switch action {
	case ActionCopy:
		text = fmt.Sprintf("⚠️ %s is copying messages", s.nickname)
	default:
		text = fmt.Sprintf("⚠️ %s is taking a screenshot", s.nickname)
	}
	env, err := models.NewEnvelope(
		models.ScreenshotAlertBody{Action: string(action), Content: text},
		s.selfID, models.SenderAlert, s.now(),
	)
	handle := s.handle
	ctx := s.ctx
	s.mu.Unlock()

	if err != nil {
		return
	}
	if err := handle.Broadcast(ctx, env); err != nil {
		s.log.Debug().Err(err).Msg("alert broadcast failed")
	}
}

// ShareJournal broadcasts a journal entry: a short plaintext snippet as
// the visible bubble, the full rich content in the share body.
func (s *Session) ShareJournal(entry *models.JournalEntry, ephemeral bool) error {
	if entry == nil {
		return utils.ValidationError("no entry selected")
	}

	s.mu.Lock()
	if !s.joined {
		s.mu.Unlock()
		return utils.SendMessageError("not in a room")
	}
	body := models.JournalShareBody{
		Snippet:     journal.Snippet(entry.Content),
		Title:       entry.Title(),
		JournalID:   entry.ID,
		FullContent: entry.Content,
		Ephemeral:   ephemeral,
	}
	env, err := models.NewEnvelope(body, s.selfID, s.nickname, s.now())
	handle := s.handle
	ctx := s.ctx
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if err := handle.Broadcast(ctx, env); err != nil {
		s.log.Debug().Err(err).Msg("journal share broadcast failed")
	}
	return nil
}

// Messages returns a snapshot of the log in arrival order.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) IsJoined() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined
}

func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

func (s *Session) OnlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onlineCount
}

// SelfID is the ephemeral peer identity for this session.
func (s *Session) SelfID() string { return s.selfID }
