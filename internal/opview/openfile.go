package opview

import (
	"os"
	"sync"
)

// openFile is the per-handle state stored in the FS's handle table: the
// backing descriptor, the virtual path it was opened against (for the
// eventual "written" notification), and whether it was opened for
// writing.
type openFile struct {
	file     *os.File
	virtual  string
	writable bool
}

// dirHandleTable hands out fh values for Opendir/Releasedir. The listing
// itself is recomputed fresh on every Readdir call (§4.D), so the table
// only needs to remember which virtual directory a handle belongs to.
type dirHandleTable struct {
	mu   sync.Mutex
	next uint64
	dirs map[uint64]string
}

func (t *dirHandleTable) store(path string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	fh := t.next
	t.dirs[fh] = path
	return fh
}

func (t *dirHandleTable) remove(fh uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.dirs, fh)
}
