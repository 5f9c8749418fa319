package transport

import (
	"context"
	"sync"

	"embers/internal/models"
)

// Loopback is an in-memory hub that wires several handles together. It
// exists for tests and for substituting the backend per the injection
// design: any number of peers join rooms on one hub and broadcasts are
// delivered synchronously in arrival order, self included.
type Loopback struct {
	mu    sync.Mutex
	rooms map[string][]*loopbackHandle
}

func NewLoopback() *Loopback {
	return &Loopback{rooms: make(map[string][]*loopbackHandle)}
}

func (l *Loopback) Configured() bool { return true }

func (l *Loopback) Join(ctx context.Context, roomID string, self Peer, opts JoinOptions) (Handle, error) {
	h := &loopbackHandle{
		hub:    l,
		roomID: roomID,
		self:   self,
		opts:   opts,
		roster: newRoster(opts),
	}

	l.mu.Lock()
	peers := append([]*loopbackHandle(nil), l.rooms[roomID]...)
	l.rooms[roomID] = append(l.rooms[roomID], h)
	l.mu.Unlock()

	// Everyone, the newcomer included, converges on the same roster.
	h.roster.add(self.ID, self.DisplayName)
	for _, p := range peers {
		h.roster.add(p.self.ID, p.self.DisplayName)
		p.roster.add(self.ID, self.DisplayName)
	}
	return h, nil
}

// Drop simulates an abrupt disconnect (closed tab, network loss): the
// handle vanishes without any application-level notice and the remaining
// peers see only the presence leave.
func (l *Loopback) Drop(roomID, peerID string) {
	l.mu.Lock()
	handles := l.rooms[roomID]
	kept := handles[:0]
	var dropped *loopbackHandle
	for _, h := range handles {
		if h.self.ID == peerID && dropped == nil {
			dropped = h
			continue
		}
		kept = append(kept, h)
	}
	l.rooms[roomID] = kept
	remaining := append([]*loopbackHandle(nil), kept...)
	l.mu.Unlock()

	if dropped == nil {
		return
	}
	for _, p := range remaining {
		p.roster.remove(peerID)
	}
}

type loopbackHandle struct {
	hub    *Loopback
	roomID string
	self   Peer
	opts   JoinOptions
	roster *roster

	mu   sync.Mutex
	left bool
}

func (h *loopbackHandle) Broadcast(ctx context.Context, env *models.Envelope) error {
	h.mu.Lock()
	if h.left {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	h.hub.mu.Lock()
	peers := append([]*loopbackHandle(nil), h.hub.rooms[h.roomID]...)
	h.hub.mu.Unlock()

	for _, p := range peers {
		if p.opts.OnMessage != nil {
			p.opts.OnMessage(env)
		}
	}
	return nil
}

func (h *loopbackHandle) Leave() error {
	h.mu.Lock()
	if h.left {
		h.mu.Unlock()
		return nil
	}
	h.left = true
	h.mu.Unlock()

	h.hub.Drop(h.roomID, h.self.ID)
	return nil
}

func (h *loopbackHandle) PresenceCount() int { return h.roster.count() }
