package transport

import "sync"

// roster tracks who is present in a room, keyed by the app-level peer id.
// It owns the presence map; the session only observes it through the
// JoinOptions callbacks.
type roster struct {
	mu      sync.Mutex
	members map[string]string // peer id -> display name
	onCount func(int)
	onLeft  func(string)
}

func newRoster(opts JoinOptions) *roster {
	return &roster{
		members: make(map[string]string),
		onCount: opts.OnPresenceCount,
		onLeft:  opts.OnPeerLeft,
	}
}

// add records a member and reports the new count. Returns true if the
// member was not already known.
func (r *roster) add(peerID, name string) bool {
	if peerID == "" {
		return false
	}
	r.mu.Lock()
	_, known := r.members[peerID]
	r.members[peerID] = name
	count := len(r.members)
	r.mu.Unlock()

	if !known && r.onCount != nil {
		r.onCount(count)
	}
	return !known
}

// remove drops a member and fires the leave callback. Events with an
// empty or unknown peer id are ignored rather than treated as errors.
func (r *roster) remove(peerID string) {
	if peerID == "" {
		return
	}
	r.mu.Lock()
	_, known := r.members[peerID]
	delete(r.members, peerID)
	count := len(r.members)
	r.mu.Unlock()

	if !known {
		return
	}
	if r.onCount != nil {
		r.onCount(count)
	}
	if r.onLeft != nil {
		r.onLeft(peerID)
	}
}

func (r *roster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
