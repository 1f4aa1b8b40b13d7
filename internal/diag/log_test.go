package diag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugGatedByDefault(t *testing.T) {
	l := New()
	require.False(t, l.Debugging())

	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, l.SetSinkPath(path))

	l.Debug("should not appear")
	l.Flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestDebugEnabledWrites(t *testing.T) {
	l := New()
	l.SetDebug(true)
	require.True(t, l.Debugging())

	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, l.SetSinkPath(path))

	l.Debug("hello %s", "world")
	l.Flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello world")
	require.Contains(t, string(data), "DEBUG")
}

func TestWarnAndErrorFlushImmediately(t *testing.T) {
	l := New()
	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, l.SetSinkPath(path))

	l.Warn("careful")
	l.Error("broken")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "WARN")
	require.Contains(t, string(data), "ERROR")
}

func TestSetSinkPathFlushesPreviousSink(t *testing.T) {
	l := New()
	first := filepath.Join(t.TempDir(), "first.log")
	second := filepath.Join(t.TempDir(), "second.log")

	require.NoError(t, l.SetSinkPath(first))
	l.Info("buffered info")
	require.NoError(t, l.SetSinkPath(second))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	require.Contains(t, string(data), "buffered info")
}
