package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger captures log output for assertions in tests.
type TestLogger struct {
	*zerolog.Logger
	Buffer *bytes.Buffer
}

// NewTestLogger creates a logger that writes into an in-memory buffer.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	buf := &bytes.Buffer{}
	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	logger := zerolog.New(buf).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Logger()

	t.Cleanup(func() {
		zerolog.SetGlobalLevel(oldLevel)
	})

	return &TestLogger{Logger: &logger, Buffer: buf}
}

// Output returns the captured log output as a string.
func (tl *TestLogger) Output() string {
	return tl.Buffer.String()
}

// Contains checks if the log output contains the given string.
func (tl *TestLogger) Contains(substr string) bool {
	return strings.Contains(tl.Output(), substr)
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}
