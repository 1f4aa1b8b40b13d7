package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/unionmountd/unionmountd/internal/notify"
)

// ExitDiagnostics is the forensic artifact emitted once, unconditionally,
// when the FUSE event loop returns (§4.K). It is the primary evidence
// available when the kernel tears a mount down unexpectedly.
type ExitDiagnostics struct {
	LoopResult      int
	Errno           int
	LastSignal      string
	TotalOps        uint64
	SecsSinceLastOp float64
	Notify          notify.Counters
	MacfuseNodes    int
	MountPointStat  string
	MountPointErr   string
	StatfsOK        bool
	StatfsErr       string
	ChannelValid    bool
}

// errnoHints maps common exit errnos to the interpretation an operator
// reading the log actually wants (§4.K).
var errnoHints = map[int]string{
	int(unix.ENODEV):  "kernel extension unloaded",
	int(unix.ENOTCONN): "channel lost",
	int(unix.EINTR):   "interrupted by signal",
	int(unix.EIO):     "I/O error",
	int(unix.ENOENT):  "mount point vanished",
}

// CountMacfuseNodes counts /dev/macfuseN device nodes as a heuristic
// for kernel-extension health. On platforms without /dev/macfuse* this
// returns 0 without error.
func CountMacfuseNodes() int {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "macfuse") {
			count++
		}
	}
	return count
}

// Collect assembles the exit-diagnostics block. loopResult/errno are the
// FUSE host's Mount() return value and the errno observed on exit (0 if
// none); lastSignal and heartbeat come from the signal tracker;
// channelValid reflects whether the FUSE channel handle was still
// considered live when the loop returned.
func Collect(mountPoint string, loopResult, errno int, lastSignal string, totalOps uint64, lastOpTime time.Time, counters notify.Counters, channelValid bool) ExitDiagnostics {
	d := ExitDiagnostics{
		LoopResult:   loopResult,
		Errno:        errno,
		LastSignal:   lastSignal,
		TotalOps:     totalOps,
		Notify:       counters,
		MacfuseNodes: CountMacfuseNodes(),
		ChannelValid: channelValid,
	}
	if !lastOpTime.IsZero() {
		d.SecsSinceLastOp = time.Since(lastOpTime).Seconds()
	}

	if info, err := os.Stat(mountPoint); err != nil {
		d.MountPointErr = err.Error()
	} else {
		d.MountPointStat = fmt.Sprintf("mode=%s size=%d modtime=%s", info.Mode(), info.Size(), info.ModTime().Format(time.RFC3339))
	}

	var st unix.Statfs_t
	if err := unix.Statfs(mountPoint, &st); err != nil {
		d.StatfsErr = err.Error()
	} else {
		d.StatfsOK = true
	}

	return d
}

// Render formats the block for the diagnostic log: one single entry a
// human can read top to bottom after a mount dies unexpectedly.
func (d ExitDiagnostics) Render(mountPoint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== unionmountd exit diagnostics (%s) ===\n", filepath.Clean(mountPoint))
	fmt.Fprintf(&b, "loop_result=%d errno=%d", d.LoopResult, d.Errno)
	if hint, ok := errnoHints[d.Errno]; ok {
		fmt.Fprintf(&b, " (%s)", hint)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "last_signal=%s\n", orNone(d.LastSignal))
	fmt.Fprintf(&b, "total_ops=%d secs_since_last_op=%.3f\n", d.TotalOps, d.SecsSinceLastOp)
	fmt.Fprintf(&b, "notify: queued=%d processed=%d dropped=%d pending=%d\n",
		d.Notify.Queued, d.Notify.Processed, d.Notify.Dropped, d.Notify.Pending)
	fmt.Fprintf(&b, "macfuse_dev_count=%d channel_valid=%t\n", d.MacfuseNodes, d.ChannelValid)
	if d.MountPointErr != "" {
		fmt.Fprintf(&b, "mount_point_stat_error=%s\n", d.MountPointErr)
	} else {
		fmt.Fprintf(&b, "mount_point_stat: %s\n", d.MountPointStat)
	}
	if d.StatfsErr != "" {
		fmt.Fprintf(&b, "statfs_error=%s\n", d.StatfsErr)
	} else {
		b.WriteString("statfs: ok\n")
	}
	b.WriteString("===\n")
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
