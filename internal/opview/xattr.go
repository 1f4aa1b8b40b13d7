// Extended-attribute handlers (§4.D), backed by github.com/pkg/xattr.
// Grounded on rclone's local backend xattr usage
// (_examples/rclone-rclone/backend/local/xattr.go) for the
// *xattr.Error{Err}-unwrapping pattern.
package opview

import (
	"strings"
	"time"

	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	mounterrors "github.com/unionmountd/unionmountd/pkg/errors"
)

// applePrefix marks attribute names the kernel and security framework
// manage themselves; setxattr on these always reports success (§4.D,
// §7 taxonomy #6).
const applePrefix = "com.apple."

// Getxattr passes through to the resolved backing path; permission
// errors are reported as "no such attribute" rather than a hard
// failure (§4.D).
func (fs *FS) Getxattr(path, name string) (errc int, value []byte) {
	fs.recordOp()
	defer fs.finishOp("getxattr", time.Now(), &errc)

	if merr := fs.guardRead(path); merr != nil {
		return errno(merr), nil
	}
	backing, _, ok := fs.Resolver.Resolve(path)
	if !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("getxattr").WithDetail("path", path)), nil
	}
	value, err := xattr.LGet(backing, name)
	if err != nil {
		if isPermissionXattrErr(err) {
			return -int(unix.ENODATA), nil
		}
		return mounterrors.ToErrno(unwrapXattrErr(err)), nil
	}
	return 0, value
}

// Listxattr passes through to the resolved backing path; permission
// errors yield an empty listing rather than a hard failure (§4.D).
func (fs *FS) Listxattr(path string, fill func(name string) bool) (errc int) {
	fs.recordOp()
	defer fs.finishOp("listxattr", time.Now(), &errc)

	if merr := fs.guardRead(path); merr != nil {
		return errno(merr)
	}
	backing, _, ok := fs.Resolver.Resolve(path)
	if !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("listxattr").WithDetail("path", path))
	}
	names, err := xattr.LList(backing)
	if err != nil {
		if isPermissionXattrErr(err) {
			return 0
		}
		return mounterrors.ToErrno(unwrapXattrErr(err))
	}
	for _, name := range names {
		if !fill(name) {
			break
		}
	}
	return 0
}

// Removexattr passes through to the resolved backing path.
func (fs *FS) Removexattr(path, name string) (errc int) {
	fs.recordOp()
	defer fs.finishOp("removexattr", time.Now(), &errc)

	if merr := fs.guardReadOnly(path); merr != nil {
		return errno(merr)
	}
	backing, _, ok := fs.Resolver.Resolve(path)
	if !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("removexattr").WithDetail("path", path))
	}
	if err := xattr.LRemove(backing, name); err != nil {
		return swallowPermission(unwrapXattrErr(err))
	}
	return 0
}

// Setxattr reports success unconditionally for com.apple.-prefixed
// names; otherwise copies the node up to the local tier if it
// currently resolves only on the external tier, then writes to the
// local path, swallowing permission-class errors (§4.D, §7 taxonomy
// #6).
func (fs *FS) Setxattr(path, name string, value []byte, flags int) (errc int) {
	fs.recordOp()
	defer fs.finishOp("setxattr", time.Now(), &errc)

	if strings.HasPrefix(name, applePrefix) {
		return 0
	}
	if merr := fs.guardReadOnly(path); merr != nil {
		return errno(merr)
	}
	local, needsCopyUp, err := fs.Resolver.ResolveForWrite(path)
	if err != nil {
		return -int(unix.EIO)
	}
	if needsCopyUp {
		external, ok := fs.Resolver.ExternalOf(path)
		if ok {
			if cpErr := fs.copyUp(local, external); cpErr != nil {
				return mounterrors.ToErrno(cpErr)
			}
		}
	}
	if err := xattr.LSetWithFlags(local, name, value, flags); err != nil {
		return swallowPermission(unwrapXattrErr(err))
	}
	return 0
}

// unwrapXattrErr pulls the underlying syscall error out of
// *xattr.Error, which wraps it as Err (mirroring the Op/Path/Err shape
// of *os.PathError).
func unwrapXattrErr(err error) error {
	if xerr, ok := err.(*xattr.Error); ok {
		return xerr.Err
	}
	return err
}

func isPermissionXattrErr(err error) bool {
	cause := unwrapXattrErr(err)
	errnoVal, ok := cause.(unix.Errno)
	if !ok {
		return false
	}
	return errnoVal == unix.EPERM || errnoVal == unix.EACCES
}
