// Package masks implements the three bounded path-membership tables the
// mount design relies on: the evicting mask (reject-when-full), and the
// pending-delete and syncing masks (FIFO-evict-oldest-when-full).
package masks

import (
	"container/list"
	"sync"
)

// Mask is a thread-safe, capacity-bounded set of virtual paths. Full
// behavior is selected at construction: a rejecting mask refuses new
// members once at capacity, a FIFO mask evicts its oldest member to
// make room.
type Mask struct {
	mu       sync.Mutex
	capacity int
	evictOld bool
	members  map[string]*list.Element
	order    *list.List // front = oldest, back = newest
}

// NewRejectingMask returns a Mask that refuses Add once it holds
// capacity members. This grounds the evicting mask (cap 256).
func NewRejectingMask(capacity int) *Mask {
	return &Mask{
		capacity: capacity,
		evictOld: false,
		members:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// NewFIFOMask returns a Mask that evicts its oldest member to admit a
// new one once at capacity. This grounds the pending-delete mask (cap
// 1024) and the syncing mask (cap 1024).
func NewFIFOMask(capacity int) *Mask {
	return &Mask{
		capacity: capacity,
		evictOld: true,
		members:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Add inserts path into the mask. For a rejecting mask, Add returns
// false without modifying state once the mask is at capacity. For a
// FIFO mask, Add always succeeds, evicting the oldest member first if
// necessary. Re-adding an existing member moves it to the back (most
// recently added) without growing the set.
func (m *Mask) Add(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, exists := m.members[path]; exists {
		m.order.MoveToBack(elem)
		return true
	}

	if len(m.members) >= m.capacity {
		if !m.evictOld {
			return false
		}
		m.evictOldestLocked()
	}

	elem := m.order.PushBack(path)
	m.members[path] = elem
	return true
}

// Remove deletes path from the mask, if present.
func (m *Mask) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(path)
}

// Has reports whether path is currently a member.
func (m *Mask) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.members[path]
	return exists
}

// Len returns the current member count.
func (m *Mask) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members)
}

// Paths returns a snapshot of all current members, oldest first.
func (m *Mask) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.members))
	for e := m.order.Front(); e != nil; e = e.Next() {
		paths = append(paths, e.Value.(string))
	}
	return paths
}

// Clear removes every member from the mask.
func (m *Mask) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = make(map[string]*list.Element)
	m.order.Init()
}

func (m *Mask) removeLocked(path string) {
	elem, exists := m.members[path]
	if !exists {
		return
	}
	m.order.Remove(elem)
	delete(m.members, path)
}

func (m *Mask) evictOldestLocked() {
	front := m.order.Front()
	if front == nil {
		return
	}
	m.removeLocked(front.Value.(string))
}
