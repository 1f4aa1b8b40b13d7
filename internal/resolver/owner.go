package resolver

import (
	"golang.org/x/sys/unix"
)

// DeriveOwner implements the mount owner derivation rule: the owner of
// the mount point's parent directory; failing that, the owner of the
// local root; failing that, zero.
func DeriveOwner(mountPath, localRoot string) (uid, gid uint32) {
	parent := mountParentDir(mountPath)
	if u, g, err := statOwner(parent); err == nil {
		return u, g
	}
	if u, g, err := statOwner(localRoot); err == nil {
		return u, g
	}
	return 0, 0
}

func mountParentDir(mountPath string) string {
	for len(mountPath) > 1 && mountPath[len(mountPath)-1] == '/' {
		mountPath = mountPath[:len(mountPath)-1]
	}
	idx := lastSlash(mountPath)
	if idx <= 0 {
		return "/"
	}
	return mountPath[:idx]
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func statOwner(path string) (uid, gid uint32, err error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, 0, err
	}
	return st.Uid, st.Gid, nil
}
