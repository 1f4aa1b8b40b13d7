package opview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetxattrAppleNameAlwaysSucceeds(t *testing.T) {
	local := t.TempDir()
	mustWrite(t, filepath.Join(local, "a.txt"), []byte("x"))
	fs := testFS(t, local, "")
	fs.SetReadOnly(true)

	errc := fs.Setxattr("/a.txt", "com.apple.quarantine", []byte("value"), 0)
	require.Equal(t, 0, errc, "com.apple.-prefixed attributes report success unconditionally")
}

func TestSetAndGetXattrRoundTrips(t *testing.T) {
	local := t.TempDir()
	mustWrite(t, filepath.Join(local, "b.txt"), []byte("x"))
	fs := testFS(t, local, "")

	errc := fs.Setxattr("/b.txt", "user.note", []byte("hello"), 0)
	require.Equal(t, 0, errc)

	errc, value := fs.Getxattr("/b.txt", "user.note")
	require.Equal(t, 0, errc)
	require.Equal(t, "hello", string(value))
}

func TestUnwrapXattrErr(t *testing.T) {
	require.Nil(t, unwrapXattrErr(nil))
}

func TestSetxattrOnExternalOnlyFileCopiesUpFirst(t *testing.T) {
	local := t.TempDir()
	external := t.TempDir()
	mustWrite(t, filepath.Join(external, "extonly.txt"), []byte("ext-content"))
	fs := testFS(t, local, external)

	errc := fs.Setxattr("/extonly.txt", "user.note", []byte("hello"), 0)
	require.Equal(t, 0, errc)

	localPath := filepath.Join(local, "extonly.txt")
	data, err := os.ReadFile(localPath)
	require.NoError(t, err)
	require.Equal(t, "ext-content", string(data), "setxattr must copy the external node up before mutating")

	errc, value := fs.Getxattr("/extonly.txt", "user.note")
	require.Equal(t, 0, errc)
	require.Equal(t, "hello", string(value))

	externalData, err := os.ReadFile(filepath.Join(external, "extonly.txt"))
	require.NoError(t, err)
	require.Equal(t, "ext-content", string(externalData), "external copy must be left untouched")
}
