package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a zerolog.Logger that forwards log lines to t.Log
// at debug level.
func NewTestLogger(t testing.TB) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
