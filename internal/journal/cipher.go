package journal

import (
	"encoding/hex"
	"strings"
)

// The content codec is a deliberate XOR obfuscation inherited from the
// original application, kept byte-for-byte compatible. It is a privacy
// curtain for casual inspection, not cryptography; do not "fix" it here.

func xorKey(pass string) (byte, bool) {
	clean := strings.TrimSpace(pass)
	if clean == "" {
		return 0, false
	}
	var k byte
	for i := 0; i < len(clean); i++ {
		k ^= clean[i]
	}
	return k, true
}

// Obfuscate encodes text with the passcode-derived XOR key, hex encoded.
// An empty passcode yields an empty string.
func Obfuscate(text, pass string) string {
	k, ok := xorKey(pass)
	if !ok {
		return ""
	}
	out := make([]byte, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = text[i] ^ k
	}
	return hex.EncodeToString(out)
}

// Reveal reverses Obfuscate. Garbage input decodes to garbage, never to
// an error the caller has to handle; that matches the original behavior.
func Reveal(encoded, pass string) string {
	k, ok := xorKey(pass)
	if !ok {
		return ""
	}
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return ""
	}
	for i := range raw {
		raw[i] ^= k
	}
	return string(raw)
}
