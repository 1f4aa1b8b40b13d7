package mount

import (
	"fmt"
	"path/filepath"

	"github.com/unionmountd/unionmountd/internal/config"
)

// buildMountOptions renders the FUSE mount option list called for by
// the mount lifecycle (§4.I step 3): volume name from the mount path's
// basename, allow_other/default_permissions/auto_xattr/local, and the
// positive cache timeouts that cut kernel round trips under burst.
// Grounded on the repeated "-o", "key=value" pair convention used
// across the pack's cgofuse callers (scttfrdmn-objectfs's
// cgofuse_filesystem.go, rclone's vendored cgofuse opt_test.go).
func buildMountOptions(mountPath string, mcfg config.MountConfig) []string {
	volname := filepath.Base(mountPath)

	opts := []string{
		"-o", "fsname=" + mcfg.FSName,
		"-o", "volname=" + volname,
		"-o", "default_permissions",
		"-o", "auto_xattr",
		"-o", "local",
		"-o", fmt.Sprintf("entry_timeout=%d", int(mcfg.EntryTimeout.Seconds())),
		"-o", fmt.Sprintf("attr_timeout=%d", int(mcfg.AttrTimeout.Seconds())),
		"-o", fmt.Sprintf("negative_timeout=%d", int(mcfg.NegativeTimeout.Seconds())),
		"-o", "daemon_timeout=0",
	}

	if mcfg.AllowOther {
		opts = append(opts, "-o", "allow_other")
	}

	return opts
}
