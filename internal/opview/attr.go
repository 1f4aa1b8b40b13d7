package opview

import (
	"time"

	"github.com/winfsp/cgofuse/fuse"
	"golang.org/x/sys/unix"

	"github.com/unionmountd/unionmountd/internal/resolver"
	mounterrors "github.com/unionmountd/unionmountd/pkg/errors"
)

const (
	rootMode = fuse.S_IFDIR | 0755
	dirMode  = uint32(0755)
	fileBase = uint32(0644)
	execBit  = uint32(0100)
)

// Getattr fills stat for path. Root always succeeds with the synthetic
// directory presentation (bypassing the readiness gate so the mount
// looks present even before the upper layer's index is ready); every
// other path goes through the readiness guard, resolves, and has its
// owner/mode normalized to the presented model (§3, §4.D).
func (fs *FS) Getattr(path string, stat *fuse.Stat_t, fh uint64) (errc int) {
	fs.recordOp()
	defer fs.finishOp("getattr", time.Now(), &errc)

	if path == "/" {
		fs.fillRoot(stat)
		return 0
	}

	if merr := fs.guardRead(path); merr != nil {
		return errno(merr)
	}

	// A path mid-delete reports not-found regardless of whether the
	// external removal has settled yet (§8 scenario 3).
	if fs.Pending.Has(path) {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("getattr").WithDetail("path", path))
	}

	backing, _, ok := fs.Resolver.Resolve(path)
	if !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("getattr").WithDetail("path", path))
	}

	var st unix.Stat_t
	if err := unix.Lstat(backing, &st); err != nil {
		return -int(err.(unix.Errno))
	}
	fillPresentedStat(stat, &st, fs.OwnerUID, fs.OwnerGID)
	return 0
}

func (fs *FS) fillRoot(stat *fuse.Stat_t) {
	*stat = fuse.Stat_t{}
	stat.Mode = rootMode
	stat.Nlink = 2
	stat.Uid = fs.OwnerUID
	stat.Gid = fs.OwnerGID
	now := time.Now()
	ts := fuse.Timespec{Sec: now.Unix(), Nsec: int64(now.Nanosecond())}
	stat.Atim, stat.Mtim, stat.Ctim = ts, ts, ts
}

// fillPresentedStat normalizes backing attributes into the presented
// model (§3 Presented attributes): owner is always the mount owner;
// mode is synthetic (0755 for directories, 0644 | backing execute bit
// for regular files); size/times/nlink pass through unchanged.
func fillPresentedStat(stat *fuse.Stat_t, st *unix.Stat_t, ownerUID, ownerGID uint32) {
	*stat = fuse.Stat_t{}
	stat.Uid = ownerUID
	stat.Gid = ownerGID
	stat.Size = st.Size
	stat.Nlink = uint32(st.Nlink)
	stat.Atim = fuse.Timespec{Sec: int64(st.Atim.Sec), Nsec: int64(st.Atim.Nsec)}
	stat.Mtim = fuse.Timespec{Sec: int64(st.Mtim.Sec), Nsec: int64(st.Mtim.Nsec)}
	stat.Ctim = fuse.Timespec{Sec: int64(st.Ctim.Sec), Nsec: int64(st.Ctim.Nsec)}

	if st.Mode&unix.S_IFMT == unix.S_IFDIR {
		stat.Mode = fuse.S_IFDIR | dirMode
		return
	}
	if st.Mode&unix.S_IFMT == unix.S_IFLNK {
		stat.Mode = fuse.S_IFLNK | dirMode
		return
	}
	execs := uint32(st.Mode) & execBit
	stat.Mode = fuse.S_IFREG | fileBase | execs
}

// Statfs always reports the local tier's filesystem statistics (§4.D).
func (fs *FS) Statfs(path string, stat *fuse.Statfs_t) (errc int) {
	fs.recordOp()
	defer fs.finishOp("statfs", time.Now(), &errc)

	st, err := fs.Resolver.Statfs()
	if err != nil {
		return -int(err.(unix.Errno))
	}

	*stat = fuse.Statfs_t{}
	stat.Bsize = uint64(st.Bsize)
	stat.Frsize = uint64(st.Frsize)
	stat.Blocks = st.Blocks
	stat.Bfree = st.Bfree
	stat.Bavail = st.Bavail
	stat.Files = st.Files
	stat.Ffree = st.Ffree
	stat.Favail = st.Ffree
	stat.Namemax = uint64(st.Namelen)
	return 0
}

// Access reports existence only: the presented permission model is
// uniform, so any resolvable path is always accessible (§4.D).
func (fs *FS) Access(path string, mask uint32) (errc int) {
	fs.recordOp()
	defer fs.finishOp("access", time.Now(), &errc)

	if path == "/" {
		return 0
	}
	if merr := fs.guardRead(path); merr != nil {
		return errno(merr)
	}
	if _, _, ok := fs.Resolver.Resolve(path); !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("access").WithDetail("path", path))
	}
	return 0
}

// Chmod applies to the resolved backing path. Permission-class errors
// are swallowed to success (§7 taxonomy #6): the presented mode is
// synthetic, so a failure to alter the real backing file must not
// break upper-layer tools that unconditionally call chmod.
func (fs *FS) Chmod(path string, mode uint32) (errc int) {
	fs.recordOp()
	defer fs.finishOp("chmod", time.Now(), &errc)

	if merr := fs.guardReadOnly(path); merr != nil {
		return errno(merr)
	}

	backing, _, ok := fs.Resolver.Resolve(path)
	if !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("chmod").WithDetail("path", path))
	}

	if err := unix.Chmod(backing, mode&0777); err != nil {
		return swallowPermission(err)
	}
	return 0
}

// Chown applies to the resolved backing path, same swallow-on-permission
// rule as Chmod.
func (fs *FS) Chown(path string, uid, gid uint32) (errc int) {
	fs.recordOp()
	defer fs.finishOp("chown", time.Now(), &errc)

	if merr := fs.guardReadOnly(path); merr != nil {
		return errno(merr)
	}

	backing, _, ok := fs.Resolver.Resolve(path)
	if !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("chown").WithDetail("path", path))
	}

	if err := unix.Lchown(backing, int(uid), int(gid)); err != nil {
		return swallowPermission(err)
	}
	return 0
}

// Utimens applies access/modification times to the resolved backing
// path, same swallow-on-permission rule.
func (fs *FS) Utimens(path string, tmsp []fuse.Timespec) (errc int) {
	fs.recordOp()
	defer fs.finishOp("utimens", time.Now(), &errc)

	if merr := fs.guardRead(path); merr != nil {
		return errno(merr)
	}

	backing, _, ok := fs.Resolver.Resolve(path)
	if !ok {
		return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("utimens").WithDetail("path", path))
	}

	var atime, mtime time.Time
	if len(tmsp) >= 2 {
		atime = time.Unix(tmsp[0].Sec, tmsp[0].Nsec)
		mtime = time.Unix(tmsp[1].Sec, tmsp[1].Nsec)
	}
	if err := resolver.SetTimes(backing, atime, mtime); err != nil {
		return swallowPermission(err)
	}
	return 0
}

// swallowPermission implements §7 taxonomy #6: permission-class errors
// from chmod/chown/utimens/setxattr are reported as success.
func swallowPermission(err error) int {
	if errnoVal, ok := err.(unix.Errno); ok {
		if errnoVal == unix.EPERM || errnoVal == unix.EACCES {
			return 0
		}
		return -int(errnoVal)
	}
	return -int(unix.EIO)
}
