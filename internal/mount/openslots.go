package mount

import "sync"

// openHandleGauge is the subset of internal/metrics.Collector the
// limiter reports its occupancy to. Declared here (rather than
// imported) to keep this file's dependency surface minimal.
type openHandleGauge interface {
	SetOpenHandles(count int)
}

// Limiter caps the number of concurrently open file handles (§4.G). The
// host FUSE library can buffer an unbounded number of in-flight kernel
// requests and each handle holds a real host descriptor, so this is a
// safety bound on the process's descriptor table, not a tuning knob.
type Limiter struct {
	mu      sync.Mutex
	count   int
	ceiling int
	metrics openHandleGauge
}

// NewLimiter creates a Limiter with the given ceiling.
func NewLimiter(ceiling int) *Limiter {
	return &Limiter{ceiling: ceiling}
}

// SetMetrics installs the collector the limiter reports its occupancy
// to. A nil sink disables reporting.
func (l *Limiter) SetMetrics(m openHandleGauge) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = m
}

// Reserve attempts to take one open slot, returning false at the
// ceiling (the caller should surface EMFILE).
func (l *Limiter) Reserve() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count >= l.ceiling {
		return false
	}
	l.count++
	if l.metrics != nil {
		l.metrics.SetOpenHandles(l.count)
	}
	return true
}

// Release returns one open slot, saturating at zero so a stray double
// release can never go negative.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count > 0 {
		l.count--
	}
	if l.metrics != nil {
		l.metrics.SetOpenHandles(l.count)
	}
}

// Count returns the current occupancy, for diagnostics and metrics.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Ceiling returns the configured maximum.
func (l *Limiter) Ceiling() int {
	return l.ceiling
}
