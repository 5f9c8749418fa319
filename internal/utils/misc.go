package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GeneratePeerID returns a short random identifier for one chat session.
// It is never persisted and never reused across sessions.
func GeneratePeerID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FormatPrettyTime renders a timestamp relative to today for the chat view.
func FormatPrettyTime(t time.Time) string {
	now := time.Now()
	year, month, day := t.Date()
	nowYear, nowMonth, nowDay := now.Date()

	timePart := t.Format("15:04")

	if year == nowYear && month == nowMonth && day == nowDay {
		return fmt.Sprintf("Today %s", timePart)
	}

	yesterday := now.AddDate(0, 0, -1)
	if year == yesterday.Year() && month == yesterday.Month() && day == yesterday.Day() {
		return fmt.Sprintf("Yesterday %s", timePart)
	}

	if year == nowYear {
		return fmt.Sprintf("%s %d %s", t.Format("Jan"), day, timePart)
	}

	return fmt.Sprintf("%d %s %02d %s", year, t.Format("Jan"), day, timePart)
}
