/*
Package resolver implements the path resolver (§4.A) and exclusion
filter (§4.B) of the mount design: mapping a virtual path onto a
concrete backing path under the local or external tier, honoring the
evicting mask, and deciding which directory entries host-OS metadata
conventions hide from listings.

	r := resolver.New(cfg.LocalDir, cfg.ExternalDir, evictingMask, cfg.MaxPathDepth)

	if r.TooDeep(virtualPath) {
		return errors.New(errors.ErrCodePathTooDeep, "path too deep")
	}

	backing, onExternal, ok := r.Resolve(virtualPath)

	local, needsCopyUp, err := r.ResolveForWrite(virtualPath)
*/
package resolver
