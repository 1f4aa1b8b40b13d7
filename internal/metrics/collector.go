package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates Prometheus metrics for the mount: per-operation
// counters and latency, the notification bus's queued/processed/dropped
// counters, and the open-handle gauge that mirrors the open-slot
// limiter's occupancy.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec

	openHandles      prometheus.Gauge
	notifyQueued     prometheus.Counter
	notifyProcessed  prometheus.Counter
	notifyDropped    prometheus.Counter
	maskMembers      *prometheus.GaugeVec

	operations map[string]*OperationMetrics
	lastReset  time.Time

	server *http.Server
}

// Config configures metrics collection and its HTTP exposition.
type Config struct {
	Enabled   bool              `yaml:"enabled"`
	Address   string            `yaml:"address"`
	Path      string            `yaml:"path"`
	Namespace string            `yaml:"namespace"`
	Labels    map[string]string `yaml:"labels"`
}

// OperationMetrics tracks a running per-operation summary, independent
// of the Prometheus histogram, for the /debug/operations text dump.
type OperationMetrics struct {
	Count         int64         `json:"count"`
	TotalDuration time.Duration `json:"total_duration"`
	Errors        int64         `json:"errors"`
	LastOperation time.Time     `json:"last_operation"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// DefaultConfig returns metrics configuration suitable for local
// deployment: enabled, bound to an ephemeral-looking default address.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Address:   ":9090",
		Path:      "/metrics",
		Namespace: "unionmountd",
		Labels:    make(map[string]string),
	}
}

// NewCollector builds a Collector. Passing a nil config is equivalent to
// DefaultConfig(). When config.Enabled is false, every recording method
// becomes a no-op and Start does nothing.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	registry := prometheus.NewRegistry()
	c := &Collector{
		config:     config,
		registry:   registry,
		operations: make(map[string]*OperationMetrics),
		lastReset:  time.Now(),
	}

	c.initMetrics()
	if err := c.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return c, nil
}

// Start serves /metrics (and a lightweight /health) on config.Address in
// the background.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", c.healthHandler)
	mux.HandleFunc("/debug/operations", c.debugOperationsHandler)

	c.server = &http.Server{
		Addr:              c.config.Address,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = c.server.Shutdown(context.Background())
	}()

	return nil
}

// Stop shuts the metrics server down.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

// RecordOperation records one completed FUSE handler invocation.
func (c *Collector) RecordOperation(operation string, duration time.Duration, success bool) {
	if !c.config.Enabled {
		return
	}

	c.mu.Lock()
	if m, exists := c.operations[operation]; exists {
		m.Count++
		m.TotalDuration += duration
		if !success {
			m.Errors++
		}
		m.LastOperation = time.Now()
		m.AvgDuration = time.Duration(int64(m.TotalDuration) / m.Count)
	} else {
		errs := int64(0)
		if !success {
			errs = 1
		}
		c.operations[operation] = &OperationMetrics{
			Count:         1,
			TotalDuration: duration,
			Errors:        errs,
			LastOperation: time.Now(),
			AvgDuration:   duration,
		}
	}
	c.mu.Unlock()

	status := "success"
	if !success {
		status = "error"
	}
	c.operationCounter.With(prometheus.Labels{"operation": operation, "status": status}).Inc()
	c.operationDuration.With(prometheus.Labels{"operation": operation}).Observe(duration.Seconds())
	if !success {
		c.errorCounter.With(prometheus.Labels{"operation": operation}).Inc()
	}
}

// SetOpenHandles reports the open-slot limiter's current occupancy.
func (c *Collector) SetOpenHandles(count int) {
	if !c.config.Enabled {
		return
	}
	c.openHandles.Set(float64(count))
}

// RecordNotifyQueued, RecordNotifyProcessed, and RecordNotifyDropped track
// the bounded change-notification ring's lifecycle counters.
func (c *Collector) RecordNotifyQueued() {
	if c.config.Enabled {
		c.notifyQueued.Inc()
	}
}

func (c *Collector) RecordNotifyProcessed() {
	if c.config.Enabled {
		c.notifyProcessed.Inc()
	}
}

func (c *Collector) RecordNotifyDropped() {
	if c.config.Enabled {
		c.notifyDropped.Inc()
	}
}

// SetMaskMembers reports the current member count of a named bounded
// mask (evicting, pending, syncing).
func (c *Collector) SetMaskMembers(mask string, count int) {
	if !c.config.Enabled {
		return
	}
	c.maskMembers.With(prometheus.Labels{"mask": mask}).Set(float64(count))
}

// ResetMetrics clears the internal per-operation summary. The
// Prometheus counters are cumulative and are not reset.
func (c *Collector) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operations = make(map[string]*OperationMetrics)
	c.lastReset = time.Now()
}

func (c *Collector) initMetrics() {
	c.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "operations_total",
			Help:      "Total number of FUSE operations handled, by operation and status",
		},
		[]string{"operation", "status"},
	)

	c.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.config.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Handler latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 18),
		},
		[]string{"operation"},
	)

	c.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "operation_errors_total",
			Help:      "Total number of FUSE operations that returned a non-zero errno",
		},
		[]string{"operation"},
	)

	c.openHandles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Name:      "open_handles",
		Help:      "Current number of handles held by the open-slot limiter",
	})

	c.notifyQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Name:      "notify_queued_total",
		Help:      "Total change-notification events accepted into the ring",
	})

	c.notifyProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Name:      "notify_processed_total",
		Help:      "Total change-notification events delivered to the consumer",
	})

	c.notifyDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Name:      "notify_dropped_total",
		Help:      "Total change-notification events dropped because the ring was full",
	})

	c.maskMembers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Name:      "mask_members",
			Help:      "Current member count of a bounded path mask",
		},
		[]string{"mask"},
	)
}

func (c *Collector) registerMetrics() error {
	collectors := []prometheus.Collector{
		c.operationCounter,
		c.operationDuration,
		c.errorCounter,
		c.openHandles,
		c.notifyQueued,
		c.notifyProcessed,
		c.notifyDropped,
		c.maskMembers,
	}
	for _, collector := range collectors {
		if err := c.registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy","service":"unionmountd-metrics"}`))
}

func (c *Collector) debugOperationsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	w.Header().Set("Content-Type", "text/plain")
	writef := func(format string, args ...interface{}) { _, _ = fmt.Fprintf(w, format, args...) }

	writef("unionmountd operations summary\n")
	writef("===============================\n\n")
	writef("uptime: %v\n\n", time.Since(c.lastReset))

	if len(c.operations) == 0 {
		writef("no operations recorded.\n")
		return
	}

	writef("%-16s %10s %10s %14s %10s\n", "operation", "count", "errors", "avg duration", "last op")
	writef("%-16s %10s %10s %14s %10s\n", "---------", "-----", "------", "------------", "-------")
	for name, op := range c.operations {
		writef("%-16s %10d %10d %14v %10s\n",
			name, op.Count, op.Errors, op.AvgDuration, op.LastOperation.Format("15:04:05"))
	}
}
