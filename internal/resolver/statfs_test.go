package resolver

import (
	"testing"
	"time"

	"github.com/unionmountd/unionmountd/internal/masks"
	"golang.org/x/sys/unix"
)

func TestStatfsReportsLocalTier(t *testing.T) {
	localRoot := t.TempDir()
	r := New(localRoot, "", masks.NewRejectingMask(256), 40)

	st, err := r.Statfs()
	if err != nil {
		t.Fatalf("Statfs() error = %v", err)
	}
	if st.Blocks == 0 {
		t.Error("expected a nonzero block count from a real filesystem")
	}
}

func TestSetTimesZeroMeansOmit(t *testing.T) {
	ts := timespecFor(time.Time{})
	if ts.Nsec != int64(unix.UTIME_OMIT) {
		t.Errorf("zero time should map to UTIME_OMIT, got Nsec=%d", ts.Nsec)
	}
}
