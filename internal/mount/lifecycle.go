// Package mount owns the process-wide mount state machine (§4.I, §9
// "module-level state"): the two-tier resolver, the three mask tables,
// the notification bus, the readiness gate, the open-slot limiter, the
// operation heartbeat, and the cgofuse host binding them to the
// kernel. Grounded on scttfrdmn-objectfs's MountManager/CgoFuseFS
// (internal/fuse/mount.go, internal/fuse/cgofuse_filesystem.go) for the
// validate → build-options → mount-in-background → Wait lifecycle
// shape, generalized from its single go-fuse/cgofuse backend split
// into the spec's eight-step sequence.
package mount

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/unionmountd/unionmountd/internal/config"
	"github.com/unionmountd/unionmountd/internal/diag"
	"github.com/unionmountd/unionmountd/internal/masks"
	"github.com/unionmountd/unionmountd/internal/metrics"
	"github.com/unionmountd/unionmountd/internal/notify"
	"github.com/unionmountd/unionmountd/internal/opview"
	"github.com/unionmountd/unionmountd/internal/resolver"
	mounterrors "github.com/unionmountd/unionmountd/pkg/errors"
)

// settleDelay is how long Mount waits after launching the background
// event loop before reporting success, giving the host library a
// moment to attach the kernel channel (mirrors
// scttfrdmn-objectfs/internal/fuse/cgofuse_filesystem.go's post-mount
// sleep).
const settleDelay = 100 * time.Millisecond

// Session owns everything the spec calls "module-level state": one
// mount's resolver, masks, bus, readiness gate, limiter, heartbeat, and
// cgofuse host. A process hosts exactly one Session (the host FUSE
// library enforces one session per process, per §9).
type Session struct {
	mu sync.Mutex

	mounted     bool
	loopRunning bool
	mountPath   string
	localRoot   string
	externalDir string
	startPID    int

	cfg *config.Configuration

	resolver  *resolver.Resolver
	evicting  *masks.Mask
	pending   *masks.Mask
	syncing   *masks.Mask
	bus       *notify.Bus
	log       *diag.Logger
	metrics   *metrics.Collector
	readiness *Readiness
	limiter   *Limiter
	tracker   *Tracker

	fs   *opview.FS
	host *fuse.FileSystemHost

	loopResult int
	loopDone   chan struct{}
}

// NewSession creates an unmounted Session bound to log and mcs, which
// live for the process's entire lifetime regardless of how many
// mount/unmount cycles occur.
func NewSession(log *diag.Logger, mcs *metrics.Collector) *Session {
	return &Session{log: log, metrics: mcs}
}

// Mount executes the eight-step lifecycle (§4.I). If the host's mount
// fails within the settle delay, the notification bus and signal
// tracker are stopped, the mask tables are cleared, the Session is left
// unmounted, and a mount-failed error is returned.
func (s *Session) Mount(cfg *config.Configuration) error {
	if cfg.Mount.MountPath == "" || cfg.Mount.LocalDir == "" {
		return mounterrors.New(mounterrors.ErrCodeInvalidArg, "mount path and local dir are required").WithComponent("mount").WithOperation("Mount")
	}
	if err := validateMountPath(cfg.Mount.MountPath); err != nil {
		return mounterrors.New(mounterrors.ErrCodeInvalidArg, err.Error()).WithComponent("mount").WithOperation("Mount")
	}

	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return mounterrors.New(mounterrors.ErrCodeAlreadyMounted, "mount already active").WithComponent("mount").WithOperation("Mount")
	}

	ownerUID, ownerGID := resolver.DeriveOwner(cfg.Mount.MountPath, cfg.Mount.LocalDir)

	evicting := masks.NewRejectingMask(cfg.Limits.EvictingCapacity)
	pending := masks.NewFIFOMask(cfg.Limits.PendingCapacity)
	syncing := masks.NewFIFOMask(cfg.Limits.SyncingCapacity)
	res := resolver.New(cfg.Mount.LocalDir, cfg.Mount.ExternalDir, evicting, cfg.Limits.MaxPathDepth)
	bus := notify.New(cfg.Limits.NotifyRingSize)
	readiness := NewReadiness(s.log)
	limiter := NewLimiter(cfg.Limits.MaxOpenHandles)
	tracker := NewTracker()

	if s.metrics != nil {
		bus.SetMetrics(s.metrics)
		limiter.SetMetrics(s.metrics)
	}

	vfs := opview.New(res, evicting, pending, syncing, bus, s.log, s.metrics, readiness, limiter, tracker, ownerUID, ownerGID)
	vfs.SetReadOnly(cfg.Mount.ReadOnly)

	host := fuse.NewFileSystemHost(vfs)
	opts := buildMountOptions(cfg.Mount.MountPath, cfg.Mount)

	s.cfg = cfg
	s.resolver = res
	s.evicting = evicting
	s.pending = pending
	s.syncing = syncing
	s.bus = bus
	s.readiness = readiness
	s.limiter = limiter
	s.tracker = tracker
	s.fs = vfs
	s.host = host
	s.mountPath = cfg.Mount.MountPath
	s.localRoot = cfg.Mount.LocalDir
	s.externalDir = cfg.Mount.ExternalDir
	s.startPID = os.Getpid()
	s.loopDone = make(chan struct{})
	done := s.loopDone
	s.mu.Unlock()

	bus.Start()
	tracker.Start()

	go func() {
		ok := host.Mount(cfg.Mount.MountPath, opts)

		s.mu.Lock()
		s.loopResult = boolToResult(ok)
		s.loopRunning = false
		s.mu.Unlock()
		close(s.loopDone)
	}()

	time.Sleep(settleDelay)

	select {
	case <-done:
		s.mu.Lock()
		failed := s.loopResult != 0
		s.mu.Unlock()
		if failed {
			s.teardown()
			return mounterrors.New(mounterrors.ErrCodeMountFailed, "FUSE host failed to mount").WithComponent("mount").WithOperation("Mount")
		}
	default:
	}

	s.mu.Lock()
	s.mounted = true
	s.loopRunning = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("mounted %s (local=%s external=%s)", cfg.Mount.MountPath, cfg.Mount.LocalDir, cfg.Mount.ExternalDir)
	}
	return nil
}

func boolToResult(ok bool) int {
	if ok {
		return 0
	}
	return -1
}

// Unmount asks the cgofuse host to unmount the saved mount path, falling
// back to the OS umount command when no host is bound (§5
// "Cancellation"): the event loop itself returns from within the kernel
// once the channel tears down. On return, the mask tables
// are cleared and owned state is reset (§4.I step 8).
func (s *Session) Unmount() error {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return mounterrors.New(mounterrors.ErrCodeNotMounted, "no active mount").WithComponent("mount").WithOperation("Unmount")
	}
	mountPath := s.mountPath
	host := s.host
	done := s.loopDone
	s.mu.Unlock()

	if host != nil {
		host.Unmount()
	} else {
		_ = exec.Command("umount", mountPath).Run()
	}

	<-done

	s.teardown()
	return nil
}

func (s *Session) teardown() {
	s.mu.Lock()
	bus := s.bus
	tracker := s.tracker
	evicting, pending, syncing := s.evicting, s.pending, s.syncing
	s.mu.Unlock()

	if bus != nil {
		bus.Stop()
	}
	if tracker != nil {
		tracker.Stop()
	}
	if evicting != nil {
		evicting.Clear()
	}
	if pending != nil {
		pending.Clear()
	}
	if syncing != nil {
		syncing.Clear()
	}

	s.mu.Lock()
	s.mounted = false
	s.loopRunning = false
	s.mu.Unlock()
}

// IsMounted reports whether a mount is currently active.
func (s *Session) IsMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// IsLoopRunning reports whether the background event-loop goroutine is
// still executing host.Mount.
func (s *Session) IsLoopRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopRunning
}

// MountPath returns the active mount point, or "" if unmounted.
func (s *Session) MountPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mountPath
}

// Diagnostics assembles the exit-diagnostics-shaped snapshot (§4.K,
// §6 "get diagnostics") for live queries as well as post-exit forensic
// logging.
func (s *Session) Diagnostics() diag.ExitDiagnostics {
	s.mu.Lock()
	mountPath := s.mountPath
	loopResult := s.loopResult
	bus := s.bus
	tracker := s.tracker
	channelValid := s.loopRunning
	s.mu.Unlock()

	var (
		lastSignal string
		totalOps   uint64
		lastOp     time.Time
		counters   notify.Counters
	)
	if tracker != nil {
		lastSignal = tracker.LastSignal()
		totalOps = tracker.OpCount()
		lastOp = tracker.LastOpTime()
	}
	if bus != nil {
		counters = bus.Counters()
	}

	errno := 0
	if loopResult != 0 {
		errno = loopResult
	}
	return diag.Collect(mountPath, loopResult, errno, lastSignal, totalOps, lastOp, counters, channelValid)
}

// LogExitDiagnostics renders and logs the exit-diagnostics block
// unconditionally (§4.K, §7 "the exit-diagnostics block is emitted
// unconditionally"). Call once after the event loop returns.
func (s *Session) LogExitDiagnostics() {
	s.mu.Lock()
	mountPath := s.mountPath
	s.mu.Unlock()

	d := s.Diagnostics()
	if s.log != nil {
		s.log.Info("%s", d.Render(mountPath))
	}
}

// WaitForLoop blocks until the background event loop returns, for
// callers (e.g. cmd/unionmountd's main goroutine) that want to sit on
// the mount until the kernel tears it down.
func (s *Session) WaitForLoop() {
	s.mu.Lock()
	done := s.loopDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// AssertNoForkAfterMount panics if the calling process's PID has
// changed since Mount recorded it — a test-facing version of the
// fork-after-threads hazard check (§5 "Fork safety"): raw fork(2) in a
// multi-threaded process only clones the calling thread, so a forked
// child of a mounted unionmountd would carry a half-initialized
// runtime and a dangling kernel channel. Session never forks itself;
// this exists so tests can assert the invariant holds after any code
// path that might plausibly have forked.
func (s *Session) AssertNoForkAfterMount() {
	s.mu.Lock()
	mounted, startPID := s.mounted, s.startPID
	s.mu.Unlock()
	if !mounted {
		return
	}
	if pid := os.Getpid(); pid != startPID {
		panic(fmt.Sprintf("unionmountd: fork-after-mount hazard: pid changed from %d to %d while mounted", startPID, pid))
	}
}

func validateMountPath(mountPath string) error {
	if mountPath == "" {
		return fmt.Errorf("mount path cannot be empty")
	}
	if !filepath.IsAbs(mountPath) {
		return fmt.Errorf("mount path must be absolute: %s", mountPath)
	}
	return nil
}
