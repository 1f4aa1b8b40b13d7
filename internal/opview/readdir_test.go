package opview

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/winfsp/cgofuse/fuse"
)

func collectNames(dst *[]string) func(name string, stat *fuse.Stat_t, ofst int64) bool {
	return func(name string, stat *fuse.Stat_t, ofst int64) bool {
		*dst = append(*dst, name)
		return true
	}
}

func TestReaddirUnionsAndDedupes(t *testing.T) {
	local := t.TempDir()
	external := t.TempDir()
	mustWrite(t, filepath.Join(local, "both.txt"), []byte("local"))
	mustWrite(t, filepath.Join(external, "both.txt"), []byte("external"))
	mustWrite(t, filepath.Join(local, "local-only.txt"), []byte("x"))
	mustWrite(t, filepath.Join(external, "external-only.txt"), []byte("x"))
	mustWrite(t, filepath.Join(local, ".DS_Store"), []byte("x"))

	fs := testFS(t, local, external)

	errc, fh := fs.Opendir("/")
	require.Equal(t, 0, errc)
	defer fs.Releasedir("/", fh)

	var names []string
	errc = fs.Readdir("/", collectNames(&names), 0, fh)
	require.Equal(t, 0, errc)

	require.Contains(t, names, "both.txt")
	require.Contains(t, names, "local-only.txt")
	require.Contains(t, names, "external-only.txt")
	require.NotContains(t, names, ".DS_Store")

	count := 0
	for _, n := range names {
		if n == "both.txt" {
			count++
		}
	}
	require.Equal(t, 1, count, "both.txt should appear exactly once")
}

func TestReaddirSkipsPendingDelete(t *testing.T) {
	local := t.TempDir()
	mustWrite(t, filepath.Join(local, "gone.txt"), []byte("x"))
	fs := testFS(t, local, "")
	fs.Pending.Add("/gone.txt")

	var listed []string
	errc := fs.Readdir("/", collectNames(&listed), 0, invalidHandle)
	require.Equal(t, 0, errc)
	require.NotContains(t, listed, "gone.txt")
}

func TestJoinVirtual(t *testing.T) {
	require.Equal(t, "/a", joinVirtual("/", "a"))
	require.Equal(t, "/dir/a", joinVirtual("/dir", "a"))
}
