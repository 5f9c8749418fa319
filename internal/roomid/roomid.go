// Package roomid maps a human-entered passcode to a stable room
// identifier. The mapping is one-way; the server side never sees the
// passcode and holds no notion of room identity beyond the topic string.
package roomid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PublicLounge is the room everyone lands in when no passcode is given.
const PublicLounge = "public_lounge"

// salt is fixed so the same passcode resolves to the same room across
// clients and restarts.
const salt = "hidden_thoughts_salt_v1"

// Resolve derives the room identifier for a passcode. Empty (after
// trimming) resolves to the public lounge. Never fails and never touches
// the network.
func Resolve(passcode string) string {
	clean := strings.TrimSpace(passcode)
	if clean == "" {
		return PublicLounge
	}
	sum := sha256.Sum256([]byte(clean + salt))
	return hex.EncodeToString(sum[:])
}
