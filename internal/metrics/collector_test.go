package metrics

import (
	"testing"
	"time"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	t.Run("with valid config", func(t *testing.T) {
		config := &Config{
			Enabled:   true,
			Address:   ":9090",
			Path:      "/metrics",
			Namespace: "unionmountd_test",
		}
		collector, err := NewCollector(config)
		if err != nil {
			t.Fatalf("NewCollector() error = %v, want nil", err)
		}
		if collector == nil {
			t.Fatal("NewCollector() returned nil collector")
		}
		if collector.registry == nil {
			t.Error("collector.registry is nil")
		}
		if collector.operations == nil {
			t.Error("collector.operations map is nil")
		}
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		collector, err := NewCollector(nil)
		if err != nil {
			t.Fatalf("NewCollector(nil) error = %v, want nil", err)
		}
		if collector.config.Address != ":9090" {
			t.Errorf("default address = %q, want %q", collector.config.Address, ":9090")
		}
		if collector.config.Namespace != "unionmountd" {
			t.Errorf("default namespace = %q, want %q", collector.config.Namespace, "unionmountd")
		}
	})

	t.Run("disabled config skips registry", func(t *testing.T) {
		collector, err := NewCollector(&Config{Enabled: false})
		if err != nil {
			t.Fatalf("NewCollector() error = %v, want nil", err)
		}
		if collector.registry != nil {
			t.Error("disabled collector should not allocate a registry")
		}
	})
}

func TestRecordOperation(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(&Config{Enabled: true, Namespace: "unionmountd_test_record"})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	collector.RecordOperation("getattr", 5*time.Millisecond, true)
	collector.RecordOperation("getattr", 15*time.Millisecond, false)

	collector.mu.RLock()
	m := collector.operations["getattr"]
	collector.mu.RUnlock()

	if m == nil {
		t.Fatal("expected operation metrics for getattr")
	}
	if m.Count != 2 {
		t.Errorf("Count = %d, want 2", m.Count)
	}
	if m.Errors != 1 {
		t.Errorf("Errors = %d, want 1", m.Errors)
	}
	if m.AvgDuration != 10*time.Millisecond {
		t.Errorf("AvgDuration = %v, want 10ms", m.AvgDuration)
	}
}

func TestRecordOperationDisabledIsNoop(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(&Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	collector.RecordOperation("write", time.Millisecond, true)
	collector.SetOpenHandles(5)
	collector.RecordNotifyDropped()
	collector.SetMaskMembers("syncing", 3)

	if len(collector.operations) != 0 {
		t.Error("disabled collector should not record operations")
	}
}

func TestNotifyCounters(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(&Config{Enabled: true, Namespace: "unionmountd_test_notify"})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	// Exercises the counters purely for panics; value assertions belong
	// to an integration test that scrapes /metrics.
	collector.RecordNotifyQueued()
	collector.RecordNotifyQueued()
	collector.RecordNotifyProcessed()
	collector.RecordNotifyDropped()
	collector.SetOpenHandles(12)
	collector.SetMaskMembers("pending", 7)
}

func TestResetMetrics(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(&Config{Enabled: true, Namespace: "unionmountd_test_reset"})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	collector.RecordOperation("read", time.Millisecond, true)
	if len(collector.operations) != 1 {
		t.Fatal("expected one operation recorded")
	}

	collector.ResetMetrics()
	if len(collector.operations) != 0 {
		t.Error("ResetMetrics should clear the operations map")
	}
}
