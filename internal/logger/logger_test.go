package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesLevelPrefixes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Info("frame %d written", 3)
	l.Warning("detection failed on frame %d", 4)
	l.Error("sink closed")

	out := buf.String()
	assert.Contains(t, out, "INFO    ")
	assert.Contains(t, out, "frame 3 written")
	assert.Contains(t, out, "WARNING ")
	assert.Contains(t, out, "detection failed on frame 4")
	assert.Contains(t, out, "ERROR   ")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestNewLogger_CreatesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogger(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	l.Warning("coasting expired at frame %d", 42)

	data, err := os.ReadFile(filepath.Join(dir, "warning.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "coasting expired at frame 42")
	assert.Equal(t, dir, l.LogDir())
}

func TestCleanLogs_TruncatesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	l.Error("first")
	l.CleanLogs("error.log")

	data, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCleanLogs_UnknownFileIsNoop(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() { l.CleanLogs("missing.log") })
}
