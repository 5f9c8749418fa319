// Package transport wraps a broadcast-plus-presence publish/subscribe
// primitive behind a small Channel interface. Backends: libp2p gossipsub,
// MQTT, and an in-memory loopback hub. The session layer never talks to a
// backend directly.
package transport

import (
	"context"
	"fmt"

	"embers/internal/models"
)

// Peer identifies one participant for the lifetime of a single session.
type Peer struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// JoinOptions carries the callbacks a joined channel feeds. OnPeerLeft
// fires for graceful and abrupt departures alike; the caller reconciles
// the two. Callbacks are invoked from transport goroutines.
type JoinOptions struct {
	OnMessage       func(*models.Envelope)
	OnPresenceCount func(int)
	OnPeerLeft      func(peerID string)
}

// Channel is a factory for room subscriptions. Implementations must be
// safe for use from multiple goroutines.
type Channel interface {
	// Configured reports whether a backend is reachable at all. When
	// false, callers must not attempt Join and should surface a
	// configuration notice instead.
	Configured() bool

	// Join subscribes to the room topic and begins presence tracking
	// keyed by self.ID.
	Join(ctx context.Context, roomID string, self Peer, opts JoinOptions) (Handle, error)
}

// Handle is one joined room subscription.
type Handle interface {
	// Broadcast publishes the envelope to every room member, including
	// the sender. Fire-and-forget: best-effort delivery, no ack.
	Broadcast(ctx context.Context, env *models.Envelope) error

	// Leave unsubscribes and releases presence tracking. Callers that
	// want peers to see a graceful exit must broadcast their purge
	// notice before calling Leave.
	Leave() error

	// PresenceCount returns the current member count, self included.
	PresenceCount() int
}

// Topic namespace root.
const topicRoot = "embers/rooms"

// ChatTopic is the broadcast stream for a room.
func ChatTopic(roomID string) string {
	return fmt.Sprintf("%s/%s/chat", topicRoot, roomID)
}

// PresenceTopic carries membership announcements for a room.
func PresenceTopic(roomID string) string {
	return fmt.Sprintf("%s/%s/presence", topicRoot, roomID)
}

// presenceRecord is the wire form of a membership announcement.
type presenceRecord struct {
	Event  string `json:"event"` // "hello" or "leave"
	PeerID string `json:"peer_id"`
	Name   string `json:"name,omitempty"`
}

const (
	presenceHello = "hello"
	presenceLeave = "leave"
)
