// Package journal handles diary entries: share snippets, the legacy
// content obfuscation codec, and the local encrypted store. The chat core
// treats all of this as an external collaborator; nothing here touches
// the transport.
package journal

import "regexp"

var tagPattern = regexp.MustCompile(`<[^>]*>`)

const snippetRunes = 60

// Snippet turns rich entry content into the short plaintext preview used
// by journal shares: markup stripped, first 60 runes, trailing ellipsis.
func Snippet(content string) string {
	plain := tagPattern.ReplaceAllString(content, "")
	r := []rune(plain)
	if len(r) > snippetRunes {
		r = r[:snippetRunes]
	}
	return string(r) + "..."
}
