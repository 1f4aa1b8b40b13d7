package mount

import (
	"sync"
	"sync/atomic"

	"github.com/unionmountd/unionmountd/internal/diag"
)

// Readiness is the global flag the upper layer flips once its catalog
// index has caught up (§4.F). While closed, every non-root handler
// must return a retryable busy error; root getattr/readdir stay
// navigable so host UIs see an empty-but-present mount rather than a
// broken one.
type Readiness struct {
	ready atomic.Bool
	mu    sync.Mutex // serializes the logged-once-per-edge transition
	log   *diag.Logger
}

// NewReadiness creates a closed gate.
func NewReadiness(log *diag.Logger) *Readiness {
	return &Readiness{log: log}
}

// Ready reports whether the gate is currently open.
func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

// Set opens or closes the gate, logging exactly once per actual edge
// (a redundant Set(true) on an already-open gate logs nothing).
func (r *Readiness) Set(ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready.Load() == ready {
		return
	}
	r.ready.Store(ready)
	if r.log != nil {
		if ready {
			r.log.Info("readiness gate opened")
		} else {
			r.log.Info("readiness gate closed")
		}
	}
}
