// Directory listing handlers (§4.D): union the two tiers, hiding
// excluded names and ghosts mid-delete. Grounded on the hubfs union
// filesystem's lsdir, simplified because this filesystem has exactly
// two tiers (not an arbitrary N) and recomputes the listing fresh on
// every Readdir rather than caching it behind the dir handle.
package opview

import (
	"os"
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/unionmountd/unionmountd/internal/resolver"
)

// Opendir hands out an fh identifying the virtual directory; the actual
// listing work happens in Readdir.
func (fs *FS) Opendir(path string) (errc int, fh uint64) {
	fs.recordOp()
	defer fs.finishOp("opendir", time.Now(), &errc)

	if path != "/" {
		if merr := fs.guardRead(path); merr != nil {
			return errno(merr), invalidHandle
		}
	}
	return 0, fs.dirs.store(path)
}

// Releasedir forgets the handle.
func (fs *FS) Releasedir(path string, fh uint64) (errc int) {
	fs.recordOp()
	defer fs.finishOp("releasedir", time.Now(), &errc)
	fs.dirs.remove(fh)
	return 0
}

// Readdir lists local then external, skipping `.`/`..`, exclusion-listed
// names, and names pending deletion, deduping by name across tiers
// (§4.B, §4.D). While the readiness gate is closed, root emits only dot
// entries so the mount looks present but empty.
func (fs *FS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) (errc int) {
	fs.recordOp()
	defer fs.finishOp("readdir", time.Now(), &errc)

	fill(".", nil, 0)
	fill("..", nil, 0)

	if path == "/" {
		if fs.Readiness != nil && !fs.Readiness.Ready() {
			return 0
		}
	} else if merr := fs.guardRead(path); merr != nil {
		return errno(merr)
	}

	seen := make(map[string]bool)
	stop := false

	list := func(dir string) {
		if stop || dir == "" {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, ent := range entries {
			name := ent.Name()
			if resolver.IsExcluded(name) || seen[name] {
				continue
			}
			virtual := joinVirtual(path, name)
			if fs.Pending.Has(virtual) {
				continue
			}
			seen[name] = true
			if !fill(name, nil, 0) {
				stop = true
				return
			}
		}
	}

	if local, err := fs.Resolver.LocalOf(path); err == nil {
		list(local)
	}
	if external, ok := fs.Resolver.ExternalOf(path); ok {
		list(external)
	}
	return 0
}

func joinVirtual(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
