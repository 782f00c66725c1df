package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"charm.land/log/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"DEBUG", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"info", log.InfoLevel},
		{"", log.InfoLevel},
		{"loud", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestDisabledIsNoop(t *testing.T) {
	l, err := New(Options{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, Noop(), l)
	assert.NoError(t, l.With("k", "v").Close())
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "linkpeek.log")
	l, err := New(Options{Enabled: true, Level: "debug", Path: path})
	require.NoError(t, err)

	l.With("window", "abc").Debug("preview opened", "url", "https://example.com")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "preview opened")
	assert.Contains(t, out, "window=abc")
	assert.Contains(t, out, "url=https://example.com")
}

func TestWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
