package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the client logger. The terminal belongs to the UI, so
// logs go to the given file; an empty path discards everything.
func NewLogger(path string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = io.Discard
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err == nil {
			w = f
		}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}
