package opview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyUpPreservesContentAndCreatesParents(t *testing.T) {
	local := t.TempDir()
	external := t.TempDir()
	mustWrite(t, filepath.Join(external, "nested", "deep", "file.txt"), []byte("payload"))

	fs := testFS(t, local, external)
	err := fs.copyUp(
		filepath.Join(local, "nested", "deep", "file.txt"),
		filepath.Join(external, "nested", "deep", "file.txt"),
	)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(local, "nested", "deep", "file.txt"))
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestEnsureLocalDirIsIdempotent(t *testing.T) {
	local := t.TempDir()
	fs := testFS(t, local, "")

	require.NoError(t, fs.ensureLocalDir(filepath.Join(local, "a", "b")))
	require.NoError(t, fs.ensureLocalDir(filepath.Join(local, "a", "b")))

	info, err := os.Stat(filepath.Join(local, "a", "b"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
