package journal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embers/internal/models"
	"embers/internal/utils"
)

func TestSnippet(t *testing.T) {
	assert.Equal(t, "hello...", Snippet("hello"))
	assert.Equal(t, "bold and plain...", Snippet("<b>bold</b> and <i>plain</i>"))

	long := strings.Repeat("x", 100)
	got := Snippet(long)
	assert.Equal(t, strings.Repeat("x", 60)+"...", got)

	// Rune-aware truncation, not byte-aware.
	cjk := strings.Repeat("思", 70)
	assert.Equal(t, strings.Repeat("思", 60)+"...", Snippet(cjk))

	assert.Equal(t, "...", Snippet("<p></p>"))
}

func TestObfuscateRoundTrip(t *testing.T) {
	for _, text := range []string{"", "secret thoughts", "日记内容", `{"id":"x"}`} {
		enc := Obfuscate(text, "passcode")
		assert.Equal(t, text, Reveal(enc, "passcode"), "text %q", text)
	}
}

func TestObfuscateCompat(t *testing.T) {
	// Key for "ab" is 'a'^'b' = 0x03; 'A'^0x03 = 'B'.
	assert.Equal(t, "42", Obfuscate("A", "ab"))
	assert.Equal(t, "A", Reveal("42", "ab"))
	assert.Equal(t, "42", Obfuscate("A", "  ab  "), "passcode is trimmed")
}

func TestObfuscateEmptyPass(t *testing.T) {
	assert.Empty(t, Obfuscate("text", ""))
	assert.Empty(t, Obfuscate("text", "   "))
	assert.Empty(t, Reveal("deadbeef", ""))
}

func TestRevealGarbage(t *testing.T) {
	assert.Empty(t, Reveal("not-hex", "pass"))
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreLockedByDefault(t *testing.T) {
	s := openStore(t)

	_, err := s.List()
	assert.True(t, utils.IsSecurityError(err))
	err = s.Save(NewEntry("e1", "content", time.Now()))
	assert.True(t, utils.IsSecurityError(err))
}

func TestStoreUnlockRegistersAndVerifies(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Unlock("first-use"))
	require.NoError(t, s.Unlock("first-use"), "same passcode verifies on later unlocks")

	err := s.Unlock("")
	assert.True(t, utils.IsValidationError(err))
}

func TestStoreSaveGetDelete(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Unlock("pass"))

	now := time.Now()
	entry := NewEntry("e1", "a quiet day", now)
	entry.Mood = "calm"
	require.NoError(t, s.Save(entry))

	got, err := s.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, "a quiet day", got.Content)
	assert.Equal(t, "calm", got.Mood)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, models.ErrEntryNotFound)

	require.NoError(t, s.Delete("e1"))
	assert.ErrorIs(t, s.Delete("e1"), models.ErrEntryNotFound)
}

func TestStoreListOrdering(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Unlock("pass"))

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	old := NewEntry("old", "old entry", base)
	newer := NewEntry("new", "newer entry", base.Add(time.Hour))
	pinned := NewEntry("pin", "pinned entry", base.Add(-time.Hour))
	pinned.Pinned = true
	for _, e := range []*models.JournalEntry{old, newer, pinned} {
		require.NoError(t, s.Save(e))
	}

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "pin", entries[0].ID, "pinned first")
	assert.Equal(t, "new", entries[1].ID)
	assert.Equal(t, "old", entries[2].ID)
}

func TestStoreIsolatesUsersByPasscode(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Unlock("alice-pass"))
	require.NoError(t, s.Save(NewEntry("e1", "alice only", time.Now())))

	require.NoError(t, s.Unlock("bob-pass"))
	entries, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreBlobsAreObfuscatedAtRest(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Unlock("pass"))
	require.NoError(t, s.Save(NewEntry("e1", "plainly visible", time.Now())))

	var blob string
	err := s.db.QueryRow(`SELECT blob FROM entries WHERE id = ?`, "e1").Scan(&blob)
	require.NoError(t, err)
	assert.NotContains(t, blob, "plainly visible")
}
