// Package resolver maps virtual mount-point paths onto concrete backing
// paths under the local or external tier, honoring the eviction mask,
// and filters host-OS metadata entries out of directory listings.
package resolver

import (
	"os"
	"strings"
	"sync"

	"github.com/unionmountd/unionmountd/internal/masks"
)

// excludedNames lists directory entries hidden from every listing
// regardless of tier.
var excludedNames = map[string]bool{
	".DS_Store":       true,
	".Spotlight-V100": true,
	".Trashes":        true,
	".fseventsd":      true,
	".TemporaryItems": true,
	".FUSE":           true,
}

// IsExcluded reports whether name should be hidden from directory
// listings: a fixed set of host-OS metadata names, plus any name
// beginning with "._" (macOS AppleDouble sidecar files).
func IsExcluded(name string) bool {
	if excludedNames[name] {
		return true
	}
	return strings.HasPrefix(name, "._")
}

// Resolver maps virtual paths to backing paths across the local and
// (optional) external tier.
type Resolver struct {
	mu          sync.RWMutex
	localRoot   string
	externalRoot string
	external    bool // external root is configured
	offline     bool // external root temporarily unreachable
	evicting    *masks.Mask
	maxDepth    int
}

// New creates a Resolver rooted at localRoot, with an optional
// externalRoot ("" disables the external tier), backed by evicting for
// the per-path eviction mask.
func New(localRoot, externalRoot string, evicting *masks.Mask, maxDepth int) *Resolver {
	return &Resolver{
		localRoot:    localRoot,
		externalRoot: externalRoot,
		external:     externalRoot != "",
		evicting:     evicting,
		maxDepth:     maxDepth,
	}
}

// SetExternalRoot replaces the external root (§6 "update external
// dir"). An empty path disables the external tier outright, equivalent
// to permanently marking it offline.
func (r *Resolver) SetExternalRoot(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.externalRoot = path
	r.external = path != ""
	r.offline = false
}

// SetOffline toggles whether the external tier is currently reachable.
// While offline, resolution behaves as if no external root were
// configured.
func (r *Resolver) SetOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = offline
}

// Offline reports whether the external tier is currently marked
// unreachable.
func (r *Resolver) Offline() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.offline
}

// HasExternal reports whether an external tier is configured at all
// (independent of its current offline state).
func (r *Resolver) HasExternal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.external
}

// TooDeep reports whether virtualPath exceeds the configured maximum
// path depth, guarding against a symlink that loops back into the
// mount.
func (r *Resolver) TooDeep(virtualPath string) bool {
	return pathDepth(virtualPath) > r.maxDepth
}

// LocalOf joins virtualPath onto the local root unconditionally.
func (r *Resolver) LocalOf(virtualPath string) (string, error) {
	return secureJoin(r.localRoot, virtualPath)
}

// ExternalOf joins virtualPath onto the external root. It returns ("",
// false) when no external root is configured or it is marked offline.
func (r *Resolver) ExternalOf(virtualPath string) (string, bool) {
	r.mu.RLock()
	external, offline, root := r.external, r.offline, r.externalRoot
	r.mu.RUnlock()

	if !external || offline {
		return "", false
	}
	backing, err := secureJoin(root, virtualPath)
	if err != nil {
		return "", false
	}
	return backing, true
}

// Resolve returns the backing path unionmountd should operate on for
// virtualPath: the local path if it exists and is not a member of the
// evicting mask, else the external path if the tier is live and the
// path exists there, else ok is false.
func (r *Resolver) Resolve(virtualPath string) (backing string, onExternal bool, ok bool) {
	local, err := r.LocalOf(virtualPath)
	if err == nil && !r.evicting.Has(virtualPath) {
		if _, statErr := os.Lstat(local); statErr == nil {
			return local, false, true
		}
	}

	if external, live := r.ExternalOf(virtualPath); live {
		if _, statErr := os.Lstat(external); statErr == nil {
			return external, true, true
		}
	}

	return "", false, false
}

// ResolveForRead is Resolve restricted to the read path: it never
// considers copy-up, it simply reports where the bytes currently live.
func (r *Resolver) ResolveForRead(virtualPath string) (backing string, onExternal bool, ok bool) {
	return r.Resolve(virtualPath)
}

// ResolveForWrite reports the backing path a write should target and
// whether the caller must copy-up first (the path currently resolves
// only on the external tier).
func (r *Resolver) ResolveForWrite(virtualPath string) (local string, needsCopyUp bool, err error) {
	local, err = r.LocalOf(virtualPath)
	if err != nil {
		return "", false, err
	}

	if _, statErr := os.Lstat(local); statErr == nil && !r.evicting.Has(virtualPath) {
		return local, false, nil
	}

	if external, live := r.ExternalOf(virtualPath); live {
		if _, statErr := os.Lstat(external); statErr == nil {
			return local, true, nil
		}
	}

	return local, false, nil
}
