package models

import "time"

// JournalEntry is one diary entry. Entries live in the local encrypted
// store only; nothing here ever reaches the chat transport except an
// explicit share.
type JournalEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"` // rich text (markup allowed)
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Mood      string    `json:"mood,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Pinned    bool      `json:"pinned,omitempty"`
}

// Title is the human-readable label used when sharing the entry.
func (e *JournalEntry) Title() string {
	return e.CreatedAt.Format("Jan 2, 2006")
}
