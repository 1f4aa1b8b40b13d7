package opview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unionmountd/unionmountd/internal/masks"
	"github.com/unionmountd/unionmountd/internal/notify"
	"github.com/unionmountd/unionmountd/internal/resolver"
)

// testFS builds an FS with no readiness/open-slot/heartbeat dependency,
// mirroring a mount where those are installed separately (§4.D guards
// treat a nil ReadinessGate/OpenSlotLimiter as always-open).
func testFS(t *testing.T, localRoot, externalRoot string) *FS {
	t.Helper()
	evicting := masks.NewRejectingMask(256)
	pending := masks.NewFIFOMask(256)
	syncing := masks.NewFIFOMask(256)
	r := resolver.New(localRoot, externalRoot, evicting, 40)
	bus := notify.New(64)
	return New(r, evicting, pending, syncing, bus, nil, nil, nil, nil, nil, 501, 20)
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestGuardReadOnlyRefusesMutation(t *testing.T) {
	fs := testFS(t, t.TempDir(), "")
	fs.SetReadOnly(true)

	errc := fs.Mkdir("/d", 0755)
	require.NotEqual(t, 0, errc, "Mkdir on a read-only mount should fail")
}

func TestGuardWriteRefusesSyncingPath(t *testing.T) {
	local := t.TempDir()
	fs := testFS(t, local, "")
	mustWrite(t, filepath.Join(local, "a.txt"), []byte("hello"))
	fs.Syncing.Add("/a.txt")

	errc := fs.Unlink("/a.txt")
	require.NotEqual(t, 0, errc, "Unlink on a syncing path should fail")
}

func TestGuardReadOnlyDoesNotCheckSyncing(t *testing.T) {
	local := t.TempDir()
	fs := testFS(t, local, "")
	mustWrite(t, filepath.Join(local, "a.txt"), []byte("hello"))
	fs.Syncing.Add("/a.txt")

	errc := fs.Chmod("/a.txt", 0600)
	require.Equal(t, 0, errc, "Chmod must not consult the syncing mask")
}
