package resolver

import (
	"time"

	"golang.org/x/sys/unix"
)

// Statfs reports filesystem statistics for the local tier, as the
// mount's statfs handler always reports the local tier regardless of
// which path was queried.
func (r *Resolver) Statfs() (*unix.Statfs_t, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(r.localRoot, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetTimes applies access and modification times to backing, tolerating
// the zero time as "leave unchanged" the way utimensat does with
// UTIME_OMIT.
func SetTimes(backing string, atime, mtime time.Time) error {
	ts := [2]unix.Timespec{
		timespecFor(atime),
		timespecFor(mtime),
	}
	return unix.UtimesNanoAt(unix.AT_FDCWD, backing, ts[:], unix.AT_SYMLINK_NOFOLLOW)
}

func timespecFor(t time.Time) unix.Timespec {
	if t.IsZero() {
		return unix.Timespec{Nsec: int64(unix.UTIME_OMIT)}
	}
	return unix.NsecToTimespec(t.UnixNano())
}
