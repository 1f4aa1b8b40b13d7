// Runtime control operations (§6 "external interfaces"): the small API
// surface an owning process uses to flip mount-wide flags, mutate the
// mask tables, and manage diagnostics, without tearing the mount down.
// Grounded on scttfrdmn-objectfs's MountManager accessor methods
// (GetStats, IsMounted, GetMountPoint) for the query-method shape,
// generalized to the full control table.
package mount

import (
	"github.com/unionmountd/unionmountd/internal/masks"
	"github.com/unionmountd/unionmountd/internal/notify"
)

// SetReadOnly flips whether subsequent mutations are refused with a
// read-only error (§6 "set readonly").
func (s *Session) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	fs := s.fs
	s.mu.Unlock()
	if fs != nil {
		fs.SetReadOnly(readOnly)
	}
}

// ReadOnly reports the current read-only flag.
func (s *Session) ReadOnly() bool {
	s.mu.Lock()
	fs := s.fs
	s.mu.Unlock()
	if fs == nil {
		return false
	}
	return fs.ReadOnly()
}

// SetExternalOffline toggles whether the resolver consults the
// external tier at all (§6 "set external offline").
func (s *Session) SetExternalOffline(offline bool) {
	s.mu.Lock()
	res := s.resolver
	s.mu.Unlock()
	if res != nil {
		res.SetOffline(offline)
	}
}

// UpdateExternalDir replaces the external root. An empty path disables
// the external tier, equivalent to marking it offline (§6 "update
// external dir").
func (s *Session) UpdateExternalDir(path string) {
	s.mu.Lock()
	res := s.resolver
	s.externalDir = path
	s.mu.Unlock()
	if res == nil {
		return
	}
	res.SetExternalRoot(path)
}

// SetIndexReady opens or closes the readiness gate (§6 "set index
// ready").
func (s *Session) SetIndexReady(ready bool) {
	s.mu.Lock()
	readiness := s.readiness
	s.mu.Unlock()
	if readiness != nil {
		readiness.Set(ready)
	}
}

// IsIndexReady reports whether the readiness gate is currently open.
func (s *Session) IsIndexReady() bool {
	s.mu.Lock()
	readiness := s.readiness
	s.mu.Unlock()
	if readiness == nil {
		return false
	}
	return readiness.Ready()
}

// MarkEvicting adds virtualPath to the evicting mask, hiding the local
// tier for that exact path (§6 "mark evicting").
func (s *Session) MarkEvicting(virtualPath string) bool {
	s.mu.Lock()
	evicting := s.evicting
	s.mu.Unlock()
	if evicting == nil {
		return false
	}
	ok := evicting.Add(virtualPath)
	s.reportMaskMembers("evicting", evicting)
	return ok
}

// UnmarkEvicting removes virtualPath from the evicting mask (§6
// "unmark evicting").
func (s *Session) UnmarkEvicting(virtualPath string) {
	s.mu.Lock()
	evicting := s.evicting
	s.mu.Unlock()
	if evicting != nil {
		evicting.Remove(virtualPath)
		s.reportMaskMembers("evicting", evicting)
	}
}

// ClearEvicting empties the evicting mask entirely (§6 "clear
// evicting").
func (s *Session) ClearEvicting() {
	s.mu.Lock()
	evicting := s.evicting
	s.mu.Unlock()
	if evicting != nil {
		evicting.Clear()
		s.reportMaskMembers("evicting", evicting)
	}
}

// SyncLock adds virtualPath to the syncing mask, blocking mutations on
// that path while an external mirror is in progress (§6 "sync lock").
func (s *Session) SyncLock(virtualPath string) bool {
	s.mu.Lock()
	syncing := s.syncing
	s.mu.Unlock()
	if syncing == nil {
		return false
	}
	ok := syncing.Add(virtualPath)
	s.reportMaskMembers("syncing", syncing)
	return ok
}

// SyncUnlock removes virtualPath from the syncing mask (§6 "sync
// unlock").
func (s *Session) SyncUnlock(virtualPath string) {
	s.mu.Lock()
	syncing := s.syncing
	s.mu.Unlock()
	if syncing != nil {
		syncing.Remove(virtualPath)
		s.reportMaskMembers("syncing", syncing)
	}
}

// SyncUnlockAll empties the syncing mask entirely (§6 "sync
// unlock-all"), for recovery after an external-mirror worker crashes
// mid-batch.
func (s *Session) SyncUnlockAll() {
	s.mu.Lock()
	syncing := s.syncing
	s.mu.Unlock()
	if syncing != nil {
		syncing.Clear()
		s.reportMaskMembers("syncing", syncing)
	}
}

// reportMaskMembers pushes a mask's current member count to the
// metrics collector, if one is wired (§6 "get diagnostics", AMBIENT
// STACK §Metrics mask_members gauge).
func (s *Session) reportMaskMembers(name string, m *masks.Mask) {
	s.mu.Lock()
	mcs := s.metrics
	s.mu.Unlock()
	if mcs != nil {
		mcs.SetMaskMembers(name, m.Len())
	}
}

// SetDebug toggles verbose diagnostic logging (§6 "set debug").
func (s *Session) SetDebug(enabled bool) {
	if s.log != nil {
		s.log.SetDebug(enabled)
	}
}

// SetLogPath redirects the diagnostic log sink. An empty path restores
// the default sink (§6 "set log path").
func (s *Session) SetLogPath(path string) error {
	if s.log == nil {
		return nil
	}
	return s.log.SetSinkPath(path)
}

// FlushLogs forces the buffered INFO-level log queue to the sink
// immediately (§6 "flush logs").
func (s *Session) FlushLogs() {
	if s.log != nil {
		s.log.Flush()
	}
}

// SetCallbacks installs the upper layer's change-notification
// consumers. Nil function fields silently drop their variant (§6 "set
// callbacks"), which is exactly notify.Bus.SetCallbacks's contract.
func (s *Session) SetCallbacks(cb notify.Callbacks) {
	s.mu.Lock()
	bus := s.bus
	s.mu.Unlock()
	if bus != nil {
		bus.SetCallbacks(cb)
	}
}
