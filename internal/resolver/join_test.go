package resolver

import (
	"path/filepath"
	"testing"
)

func TestSecureJoin(t *testing.T) {
	root := "/var/lib/unionmountd/local"

	got, err := secureJoin(root, "/a/b.txt")
	if err != nil {
		t.Fatalf("secureJoin() error = %v", err)
	}
	want := filepath.Join(root, "a", "b.txt")
	if got != want {
		t.Errorf("secureJoin() = %q, want %q", got, want)
	}
}

func TestSecureJoinRoot(t *testing.T) {
	root := "/var/lib/unionmountd/local"

	got, err := secureJoin(root, "/")
	if err != nil {
		t.Fatalf("secureJoin() error = %v", err)
	}
	if got != root {
		t.Errorf("secureJoin(root, \"/\") = %q, want %q", got, root)
	}
}

func TestSecureJoinEmptyRoot(t *testing.T) {
	if _, err := secureJoin("", "/a"); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestPathDepth(t *testing.T) {
	cases := map[string]int{
		"/":        0,
		".":        0,
		"/a":       1,
		"/a/b":     2,
		"/a/b/c/":  3,
		"a/b/c/d":  4,
	}
	for path, want := range cases {
		if got := pathDepth(path); got != want {
			t.Errorf("pathDepth(%q) = %d, want %d", path, got, want)
		}
	}
}
