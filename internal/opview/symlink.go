package opview

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/unionmountd/unionmountd/internal/notify"
	mounterrors "github.com/unionmountd/unionmountd/pkg/errors"
)

// Readlink passes through to the resolved backing path (§4.D).
func (fs *FS) Readlink(path string) (errc int, target string) {
	fs.recordOp()
	defer fs.finishOp("readlink", time.Now(), &errc)

	if merr := fs.guardRead(path); merr != nil {
		return errno(merr), ""
	}
	backing, _, ok := fs.Resolver.Resolve(path)
	if !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("readlink").WithDetail("path", path)), ""
	}
	target, err := os.Readlink(backing)
	if err != nil {
		return mounterrors.ToErrno(err), ""
	}
	return 0, target
}

// Symlink always lands in the local tier (§4.D).
func (fs *FS) Symlink(target, newpath string) (errc int) {
	fs.recordOp()
	defer fs.finishOp("symlink", time.Now(), &errc)

	if merr := fs.guardReadOnly(newpath); merr != nil {
		return errno(merr)
	}

	local, err := fs.Resolver.LocalOf(newpath)
	if err != nil {
		return -int(unix.EIO)
	}
	if mkErr := fs.ensureLocalDir(filepath.Dir(local)); mkErr != nil {
		return mounterrors.ToErrno(mkErr)
	}
	if err := os.Symlink(target, local); err != nil {
		return mounterrors.ToErrno(err)
	}
	_ = unix.Lchown(local, int(fs.OwnerUID), int(fs.OwnerGID))

	if fs.Bus != nil {
		fs.Bus.Publish(notify.NewCreated(newpath, local, false))
	}
	return 0
}
