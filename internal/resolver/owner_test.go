package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestDeriveOwnerFromMountParent(t *testing.T) {
	parent := t.TempDir()
	mountPath := filepath.Join(parent, "mnt")
	if err := os.Mkdir(mountPath, 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	var st unix.Stat_t
	if err := unix.Stat(parent, &st); err != nil {
		t.Fatalf("Stat() error = %v", err)
	}

	uid, gid := DeriveOwner(mountPath, t.TempDir())
	if uid != st.Uid || gid != st.Gid {
		t.Errorf("DeriveOwner() = (%d,%d), want (%d,%d)", uid, gid, st.Uid, st.Gid)
	}
}

func TestDeriveOwnerFallsBackToLocalRoot(t *testing.T) {
	localRoot := t.TempDir()

	var st unix.Stat_t
	if err := unix.Stat(localRoot, &st); err != nil {
		t.Fatalf("Stat() error = %v", err)
	}

	// A mount path whose parent does not exist forces the fallback to
	// localRoot.
	uid, gid := DeriveOwner("/nonexistent-parent-dir-xyz/mnt", localRoot)
	if uid != st.Uid || gid != st.Gid {
		t.Errorf("DeriveOwner() = (%d,%d), want (%d,%d)", uid, gid, st.Uid, st.Gid)
	}
}

func TestDeriveOwnerFallsBackToZero(t *testing.T) {
	uid, gid := DeriveOwner("/nonexistent-parent-dir-xyz/mnt", "/also-nonexistent-xyz")
	if uid != 0 || gid != 0 {
		t.Errorf("DeriveOwner() = (%d,%d), want (0,0)", uid, gid)
	}
}
