// Mutating directory-entry handlers: mkdir, unlink, rmdir, rename
// (§4.D). The delete ordering in removeNode is a hard invariant
// (§4.D, §5): pending-delete membership must be visible to readdir
// before either backing copy is touched.
package opview

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/unionmountd/unionmountd/internal/notify"
	mounterrors "github.com/unionmountd/unionmountd/pkg/errors"
)

// Mkdir always targets the local tier.
func (fs *FS) Mkdir(path string, mode uint32) (errc int) {
	fs.recordOp()
	defer fs.finishOp("mkdir", time.Now(), &errc)

	if merr := fs.guardReadOnly(path); merr != nil {
		return errno(merr)
	}

	local, err := fs.Resolver.LocalOf(path)
	if err != nil {
		return -int(unix.EIO)
	}
	if mkErr := fs.ensureLocalDir(filepath.Dir(local)); mkErr != nil {
		return mounterrors.ToErrno(mkErr)
	}
	if mkErr := os.Mkdir(local, os.FileMode(mode&0777)); mkErr != nil {
		return mounterrors.ToErrno(mkErr)
	}
	_ = unix.Chown(local, int(fs.OwnerUID), int(fs.OwnerGID))

	if fs.Bus != nil {
		fs.Bus.Publish(notify.NewCreated(path, local, true))
	}
	return 0
}

// Unlink follows the fixed five-step delete order.
func (fs *FS) Unlink(path string) (errc int) {
	fs.recordOp()
	defer fs.finishOp("unlink", time.Now(), &errc)

	if merr := fs.guardWrite(path); merr != nil {
		return errno(merr)
	}
	return fs.removeNode(path, false)
}

// Rmdir is unlink's directory counterpart, same five-step order.
func (fs *FS) Rmdir(path string) (errc int) {
	fs.recordOp()
	defer fs.finishOp("rmdir", time.Now(), &errc)

	if merr := fs.guardWrite(path); merr != nil {
		return errno(merr)
	}
	return fs.removeNode(path, true)
}

// removeNode implements §4.D's fixed delete order: (1) add to
// pending-delete so a concurrent readdir hides the path immediately;
// (2) enqueue the deleted event; (3) remove the local copy, ignoring
// not-found; (4) best-effort remove the external copy; (5) drop the
// pending-delete entry only once the external side is settled (removed,
// or no external path applies) — otherwise readdir keeps hiding the
// ghost.
func (fs *FS) removeNode(path string, isDir bool) int {
	fs.Pending.Add(path)
	fs.reportPendingMembers()
	if fs.Bus != nil {
		fs.Bus.Publish(notify.NewDeleted(path, isDir))
	}

	var localErr error
	if local, err := fs.Resolver.LocalOf(path); err == nil {
		if rmErr := os.Remove(local); rmErr != nil && !os.IsNotExist(rmErr) {
			localErr = rmErr
		}
	} else {
		localErr = err
	}

	externalSettled := true
	if external, ok := fs.Resolver.ExternalOf(path); ok {
		if _, statErr := os.Lstat(external); statErr == nil {
			if rmErr := os.Remove(external); rmErr != nil {
				externalSettled = false
			}
		}
	}

	if externalSettled {
		fs.Pending.Remove(path)
		fs.reportPendingMembers()
	}

	if localErr != nil {
		return mounterrors.ToErrno(localErr)
	}
	return 0
}

// reportPendingMembers pushes the pending-delete mask's current member
// count to the metrics collector, if one is wired.
func (fs *FS) reportPendingMembers() {
	if fs.Metrics != nil {
		fs.Metrics.SetMaskMembers("pending", fs.Pending.Len())
	}
}

// Rename copies up the source first when it is external-only, performs
// the local rename, then best-effort mirrors the rename onto the
// external tier when it is live.
func (fs *FS) Rename(oldpath, newpath string) (errc int) {
	fs.recordOp()
	defer fs.finishOp("rename", time.Now(), &errc)

	if merr := fs.guardReadOnly(oldpath); merr != nil {
		return errno(merr)
	}

	localFrom, err := fs.Resolver.LocalOf(oldpath)
	if err != nil {
		return -int(unix.EIO)
	}
	localTo, err := fs.Resolver.LocalOf(newpath)
	if err != nil {
		return -int(unix.EIO)
	}

	if _, statErr := os.Lstat(localFrom); statErr != nil {
		if external, ok := fs.Resolver.ExternalOf(oldpath); ok {
			if _, extErr := os.Lstat(external); extErr == nil {
				if cpErr := fs.copyUp(localFrom, external); cpErr != nil {
					return mounterrors.ToErrno(cpErr)
				}
			}
		}
	}

	if mkErr := fs.ensureLocalDir(filepath.Dir(localTo)); mkErr != nil {
		return mounterrors.ToErrno(mkErr)
	}

	isDir := false
	if st, statErr := os.Lstat(localFrom); statErr == nil {
		isDir = st.IsDir()
	}

	if err := os.Rename(localFrom, localTo); err != nil {
		return mounterrors.ToErrno(err)
	}

	if external, ok := fs.Resolver.ExternalOf(oldpath); ok {
		if externalTo, ok2 := fs.Resolver.ExternalOf(newpath); ok2 {
			if _, statErr := os.Lstat(external); statErr == nil {
				_ = ensureExternalDir(filepath.Dir(externalTo))
				_ = os.Rename(external, externalTo)
			}
		}
	}

	if fs.Bus != nil {
		fs.Bus.Publish(notify.NewRenamed(oldpath, newpath, isDir))
	}
	return 0
}
