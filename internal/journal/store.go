package journal

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"time"

	"embers/internal/models"
	"embers/internal/roomid"
	"embers/internal/utils"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/argon2"
)

// Store persists journal entries as obfuscated blobs in sqlite, keyed by
// the passcode-derived user key. Chat state never goes through here.
type Store struct {
	db      *sql.DB
	userKey string
	pass    string
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	user_key   TEXT NOT NULL,
	id         TEXT NOT NULL,
	blob       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	pinned     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_key, id)
);
CREATE TABLE IF NOT EXISTS locks (
	user_key TEXT PRIMARY KEY,
	verifier TEXT NOT NULL,
	salt     TEXT NOT NULL
);`

func (s *Store) Close() error { return s.db.Close() }

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

func deriveVerifier(pass string, salt []byte) string {
	return hex.EncodeToString(argon2.IDKey([]byte(pass), salt, argonTime, argonMemory, argonThreads, argonKeyLen))
}

// Unlock verifies the journal passcode, or registers it on first use.
// The verifier is an argon2id hash; the content codec stays the legacy
// XOR scheme regardless.
func (s *Store) Unlock(passcode string) error {
	if passcode == "" {
		return utils.ValidationError("journal passcode cannot be empty")
	}
	key := roomid.Resolve(passcode)

	var verifier, saltHex string
	err := s.db.QueryRow(`SELECT verifier, salt FROM locks WHERE user_key = ?`, key).Scan(&verifier, &saltHex)
	switch {
	case err == sql.ErrNoRows:
		salt := make([]byte, 16)
		rand.Read(salt)
		_, err = s.db.Exec(`INSERT INTO locks (user_key, verifier, salt) VALUES (?, ?, ?)`,
			key, deriveVerifier(passcode, salt), hex.EncodeToString(salt))
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		salt, err := hex.DecodeString(saltHex)
		if err != nil {
			return utils.SecurityError("corrupt lock record")
		}
		if subtle.ConstantTimeCompare([]byte(deriveVerifier(passcode, salt)), []byte(verifier)) != 1 {
			return utils.SecurityError("wrong journal passcode")
		}
	}

	s.userKey = key
	s.pass = passcode
	return nil
}

func (s *Store) unlocked() bool { return s.userKey != "" }

// Save inserts or replaces an entry.
func (s *Store) Save(entry *models.JournalEntry) error {
	if !s.unlocked() {
		return utils.SecurityError("journal is locked")
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO entries (user_key, id, blob, created_at, updated_at, pinned) VALUES (?, ?, ?, ?, ?, ?)`,
		s.userKey, entry.ID, Obfuscate(string(raw), s.pass),
		entry.CreatedAt.UnixMicro(), entry.UpdatedAt.UnixMicro(), boolToInt(entry.Pinned),
	)
	return err
}

func (s *Store) Get(id string) (*models.JournalEntry, error) {
	if !s.unlocked() {
		return nil, utils.SecurityError("journal is locked")
	}
	var blob string
	err := s.db.QueryRow(`SELECT blob FROM entries WHERE user_key = ? AND id = ?`, s.userKey, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, models.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(blob, s.pass)
}

// List returns entries newest-first, pinned entries on top.
func (s *Store) List() ([]models.JournalEntry, error) {
	if !s.unlocked() {
		return nil, utils.SecurityError("journal is locked")
	}
	rows, err := s.db.Query(
		`SELECT blob FROM entries WHERE user_key = ? ORDER BY pinned DESC, created_at DESC`, s.userKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JournalEntry
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		entry, err := decodeEntry(blob, s.pass)
		if err != nil {
			// Skip undecodable rows instead of locking the user out
			// of the rest of the journal.
			continue
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func (s *Store) Delete(id string) error {
	if !s.unlocked() {
		return utils.SecurityError("journal is locked")
	}
	res, err := s.db.Exec(`DELETE FROM entries WHERE user_key = ? AND id = ?`, s.userKey, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrEntryNotFound
	}
	return nil
}

func decodeEntry(blob, pass string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	if err := json.Unmarshal([]byte(Reveal(blob, pass)), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NewEntry creates a fresh entry with timestamps set.
func NewEntry(id, content string, now time.Time) *models.JournalEntry {
	return &models.JournalEntry{
		ID:        id,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
