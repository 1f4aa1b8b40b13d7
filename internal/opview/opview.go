// Package opview implements the FUSE operation-handler table (§4.D):
// one method per filesystem syscall, dispatched by cgofuse, composing
// the path resolver, mask tables, open-slot limiter, readiness gate,
// and change-notification bus into the union filesystem's behavior.
// Grounded on the FileSystemInterface dispatch style of
// winfsp/cgofuse and the hubfs unionfs getnode/setnode/mknode wrapper
// pattern (other_examples/…winfsp-hubfs…unionfs.go).
package opview

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/unionmountd/unionmountd/internal/diag"
	"github.com/unionmountd/unionmountd/internal/masks"
	"github.com/unionmountd/unionmountd/internal/metrics"
	"github.com/unionmountd/unionmountd/internal/notify"
	"github.com/unionmountd/unionmountd/internal/resolver"
	mounterrors "github.com/unionmountd/unionmountd/pkg/errors"
)

// OpenSlotLimiter is the subset of internal/mount.Limiter that opview
// needs. Declared here (rather than imported) so internal/mount can
// depend on opview to build the FUSE host without a import cycle.
type OpenSlotLimiter interface {
	Reserve() bool
	Release()
}

// ReadinessGate is the subset of internal/mount.Readiness opview needs.
type ReadinessGate interface {
	Ready() bool
}

// Heartbeat is the subset of internal/mount.Tracker opview needs: every
// handler invocation records one operation (§4.D "every handler
// increments an atomic operation counter and records a last-op
// timestamp").
type Heartbeat interface {
	RecordOp()
}

// FS implements fuse.FileSystemInterface over the two-tier union.
type FS struct {
	fuse.FileSystemBase

	Resolver *resolver.Resolver
	Evicting *masks.Mask
	Pending  *masks.Mask
	Syncing  *masks.Mask
	Bus      *notify.Bus
	Log      *diag.Logger
	Metrics  *metrics.Collector

	Readiness ReadinessGate
	OpenSlots OpenSlotLimiter
	Heartbeat Heartbeat

	OwnerUID uint32
	OwnerGID uint32

	readOnly atomic.Bool

	handles handleTable
	dirs    dirHandleTable
}

// New builds an FS. Callers (internal/mount) wire every dependency
// before passing the FS to fuse.NewFileSystemHost.
func New(r *resolver.Resolver, evicting, pending, syncing *masks.Mask, bus *notify.Bus, log *diag.Logger, mcs *metrics.Collector, readiness ReadinessGate, openSlots OpenSlotLimiter, heartbeat Heartbeat, ownerUID, ownerGID uint32) *FS {
	return &FS{
		Resolver:  r,
		Evicting:  evicting,
		Pending:   pending,
		Syncing:   syncing,
		Bus:       bus,
		Log:       log,
		Metrics:   mcs,
		Readiness: readiness,
		OpenSlots: openSlots,
		Heartbeat: heartbeat,
		OwnerUID:  ownerUID,
		OwnerGID:  ownerGID,
		handles:   handleTable{files: make(map[uint64]*openFile)},
		dirs:      dirHandleTable{dirs: make(map[uint64]string)},
	}
}

// invalidHandle is the fh value cgofuse treats as "no handle" — mirrored
// from the hubfs union filesystem's ^uint64(0) sentinel.
const invalidHandle = ^uint64(0)

// SetReadOnly toggles the read-only flag consulted by every mutating
// handler.
func (fs *FS) SetReadOnly(ro bool) {
	fs.readOnly.Store(ro)
}

// ReadOnly reports the current read-only flag.
func (fs *FS) ReadOnly() bool {
	return fs.readOnly.Load()
}

// handleTable is the open-handle map keyed by the fh value returned to
// the kernel (§3 "Open handle"). One mutex, never held across I/O.
type handleTable struct {
	mu    sync.Mutex
	next  uint64
	files map[uint64]*openFile
}

func (t *handleTable) store(f *openFile) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	fh := t.next
	t.files[fh] = f
	return fh
}

func (t *handleTable) get(fh uint64) (*openFile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.files[fh]
	return f, ok
}

func (t *handleTable) remove(fh uint64) (*openFile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.files[fh]
	delete(t.files, fh)
	return f, ok
}

// recordOp is the one-liner every handler calls first.
func (fs *FS) recordOp() {
	if fs.Heartbeat != nil {
		fs.Heartbeat.RecordOp()
	}
}

// finishOp records a completed handler invocation's duration and
// outcome with the metrics collector, if one is wired. Every handler
// pairs this with recordOp via:
//
//	func (fs *FS) Getattr(path string, stat *fuse.Stat_t, fh uint64) (errc int) {
//	    fs.recordOp()
//	    defer fs.finishOp("getattr", time.Now(), &errc)
//	    ...
//	}
func (fs *FS) finishOp(operation string, start time.Time, errc *int) {
	if fs.Metrics != nil {
		fs.Metrics.RecordOperation(operation, time.Since(start), *errc >= 0)
	}
}

// guardRead runs the path-depth and readiness guards shared by every
// non-root read-type handler (§4.D path-depth guard, readiness guard).
func (fs *FS) guardRead(path string) *mounterrors.MountError {
	if fs.Resolver.TooDeep(path) {
		return mounterrors.New(mounterrors.ErrCodePathTooDeep, "path exceeds maximum depth").WithOperation("guard").WithDetail("path", path)
	}
	if fs.Readiness != nil && !fs.Readiness.Ready() {
		return mounterrors.New(mounterrors.ErrCodeRetryableBusy, "readiness gate closed").WithOperation("guard").WithDetail("path", path)
	}
	return nil
}

// guardReadOnly additionally refuses read-only mounts. Used by the
// handlers the spec lists as "refuse if read-only" without a syncing
// check: create, mkdir, rename, chmod, chown.
func (fs *FS) guardReadOnly(path string) *mounterrors.MountError {
	if merr := fs.guardRead(path); merr != nil {
		return merr
	}
	if fs.readOnly.Load() {
		return mounterrors.New(mounterrors.ErrCodeReadOnly, "mount is read-only").WithOperation("guard").WithDetail("path", path)
	}
	return nil
}

// guardWrite additionally refuses read-only mounts and paths mid-sync.
// Used by the handlers the spec lists as "refuse if read-only or path
// in syncing": write, truncate, unlink, rmdir.
func (fs *FS) guardWrite(path string) *mounterrors.MountError {
	if merr := fs.guardReadOnly(path); merr != nil {
		return merr
	}
	if fs.Syncing.Has(path) {
		return mounterrors.New(mounterrors.ErrCodeRetryableBusy, "path is syncing").WithOperation("guard").WithDetail("path", path)
	}
	return nil
}

func errno(merr *mounterrors.MountError) int {
	if merr == nil {
		return 0
	}
	return mounterrors.ToErrno(merr)
}
