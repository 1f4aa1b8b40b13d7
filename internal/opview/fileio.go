// File open/read/write/release and truncate handlers (§4.D). Grounded
// on the hubfs union filesystem's Open/Create/Read/Write/Release, with
// the two-tier resolve-then-copy-up step substituted for hubfs's
// branch-search across an arbitrary N-deep filesystem list.
package opview

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/unionmountd/unionmountd/internal/notify"
	mounterrors "github.com/unionmountd/unionmountd/pkg/errors"
)

// Open resolves path, copying up from the external tier first if the
// path is external-only and the requested flags imply a write (§4.D).
func (fs *FS) Open(path string, flags int) (errc int, fh uint64) {
	fs.recordOp()
	defer fs.finishOp("open", time.Now(), &errc)

	if merr := fs.guardRead(path); merr != nil {
		return errno(merr), invalidHandle
	}
	return fs.openBacking(path, flags, 0644)
}

// Create always targets the local tier (§4.D "create the file under
// local with the requested mode").
func (fs *FS) Create(path string, flags int, mode uint32) (errc int, fh uint64) {
	fs.recordOp()
	defer fs.finishOp("create", time.Now(), &errc)

	if merr := fs.guardReadOnly(path); merr != nil {
		return errno(merr), invalidHandle
	}

	errc, fh = fs.openBacking(path, flags|unix.O_CREAT, mode)
	if errc == 0 {
		if local, err := fs.Resolver.LocalOf(path); err == nil {
			fs.Bus.Publish(notify.NewCreated(path, local, false))
		}
	}
	return errc, fh
}

// openBacking is the shared resolve/copy-up/open path for Open and
// Create.
func (fs *FS) openBacking(path string, flags int, mode uint32) (int, uint64) {
	if fs.OpenSlots != nil && !fs.OpenSlots.Reserve() {
		return errno(mounterrors.New(mounterrors.ErrCodeResourceExhausted, "too many open files").WithOperation("open").WithDetail("path", path)), invalidHandle
	}
	releaseSlot := func() {
		if fs.OpenSlots != nil {
			fs.OpenSlots.Release()
		}
	}

	wantsWrite := flags&(unix.O_WRONLY|unix.O_RDWR) != 0
	wantsCreate := flags&unix.O_CREAT != 0

	backing, onExternal, ok := fs.Resolver.Resolve(path)
	if !ok {
		if !wantsCreate {
			releaseSlot()
			return errno(mounterrors.New(mounterrors.ErrCodeNotFound, "no such file or directory").WithOperation("open").WithDetail("path", path)), invalidHandle
		}
		local, err := fs.Resolver.LocalOf(path)
		if err != nil {
			releaseSlot()
			return errno(mounterrors.New(mounterrors.ErrCodeInternal, "path resolution failed").WithOperation("open").WithDetail("path", path)), invalidHandle
		}
		if mkErr := fs.ensureLocalDir(filepath.Dir(local)); mkErr != nil {
			releaseSlot()
			return mounterrors.ToErrno(mkErr), invalidHandle
		}
		backing = local
	} else if onExternal && wantsWrite {
		local, err := fs.Resolver.LocalOf(path)
		if err != nil {
			releaseSlot()
			return errno(mounterrors.New(mounterrors.ErrCodeInternal, "path resolution failed").WithOperation("open").WithDetail("path", path)), invalidHandle
		}
		if cpErr := fs.copyUp(local, backing); cpErr != nil {
			releaseSlot()
			return mounterrors.ToErrno(cpErr), invalidHandle
		}
		backing = local
	}

	fd, err := unix.Open(backing, flags, mode)
	if err != nil {
		releaseSlot()
		return mounterrors.ToErrno(err), invalidHandle
	}

	f := &openFile{file: os.NewFile(uintptr(fd), backing), virtual: path, writable: wantsWrite || wantsCreate}
	return 0, fs.handles.store(f)
}

// Read performs a pread at offset. No readiness check: already enforced
// at open (§4.D).
func (fs *FS) Read(path string, buff []byte, ofst int64, fh uint64) (errc int) {
	fs.recordOp()
	defer fs.finishOp("read", time.Now(), &errc)

	f, ok := fs.handles.get(fh)
	if !ok {
		return -int(unix.EBADF)
	}
	n, err := f.file.ReadAt(buff, ofst)
	if err != nil && err != io.EOF {
		return mounterrors.ToErrno(err)
	}
	if fs.Bus != nil {
		fs.Bus.Publish(notify.NewRead(path))
	}
	return n
}

// Write refuses on read-only/syncing, then pwrites on the stored
// descriptor, falling back to opening the local path directly when no
// descriptor is on hand (§4.D).
func (fs *FS) Write(path string, buff []byte, ofst int64, fh uint64) (errc int) {
	fs.recordOp()
	defer fs.finishOp("write", time.Now(), &errc)

	if merr := fs.guardWrite(path); merr != nil {
		return errno(merr)
	}

	if f, ok := fs.handles.get(fh); ok {
		n, err := f.file.WriteAt(buff, ofst)
		if err != nil {
			return mounterrors.ToErrno(err)
		}
		return n
	}

	local, err := fs.Resolver.LocalOf(path)
	if err != nil {
		return -int(unix.EIO)
	}
	if mkErr := fs.ensureLocalDir(filepath.Dir(local)); mkErr != nil {
		return mounterrors.ToErrno(mkErr)
	}
	file, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return mounterrors.ToErrno(err)
	}
	defer file.Close()
	n, err := file.WriteAt(buff, ofst)
	if err != nil {
		return mounterrors.ToErrno(err)
	}
	return n
}

// Release closes the descriptor, frees one open slot, and enqueues a
// written event when the handle was opened for writing (§4.D).
func (fs *FS) Release(path string, fh uint64) (errc int) {
	fs.recordOp()
	defer fs.finishOp("release", time.Now(), &errc)

	f, ok := fs.handles.remove(fh)
	if !ok {
		return 0
	}
	err := f.file.Close()
	if fs.OpenSlots != nil {
		fs.OpenSlots.Release()
	}
	if f.writable && fs.Bus != nil {
		fs.Bus.Publish(notify.NewWritten(f.virtual))
	}
	if err != nil {
		return mounterrors.ToErrno(err)
	}
	return 0
}

// Truncate refuses on read-only/syncing, copying up first when the path
// currently resolves only on the external tier (§4.D).
func (fs *FS) Truncate(path string, size int64, fh uint64) (errc int) {
	fs.recordOp()
	defer fs.finishOp("truncate", time.Now(), &errc)

	if merr := fs.guardWrite(path); merr != nil {
		return errno(merr)
	}

	if fh != invalidHandle {
		if f, ok := fs.handles.get(fh); ok {
			if err := f.file.Truncate(size); err != nil {
				return mounterrors.ToErrno(err)
			}
			return 0
		}
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
	if err := os.Truncate(local, size); err != nil {
		return mounterrors.ToErrno(err)
	}
	return 0
}
