package resolver

import (
	"fmt"
	"path/filepath"
	"strings"
)

// secureJoin safely joins a virtual path onto a tier root, ensuring the
// result cannot escape the root through directory traversal. Unlike a
// bare filepath.Join, the result is validated against the cleaned root
// before being returned.
func secureJoin(root, virtualPath string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("tier root cannot be empty")
	}

	cleanRoot := filepath.Clean(root)
	joined := filepath.Join(cleanRoot, virtualPath)

	if !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) && joined != cleanRoot {
		return "", fmt.Errorf("path %q escapes tier root %q", virtualPath, root)
	}

	return joined, nil
}

// pathDepth counts the number of non-empty components in a virtual
// path, used by the path-depth guard.
func pathDepth(virtualPath string) int {
	clean := filepath.Clean(virtualPath)
	if clean == "." || clean == "/" {
		return 0
	}
	clean = strings.Trim(clean, string(filepath.Separator))
	if clean == "" {
		return 0
	}
	return len(strings.Split(clean, string(filepath.Separator)))
}
