package mount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unionmountd/unionmountd/internal/config"
)

func TestBuildMountOptionsIncludesCoreSettings(t *testing.T) {
	mcfg := config.MountConfig{
		FSName:          "unionmount",
		EntryTimeout:    2 * time.Second,
		AttrTimeout:     3 * time.Second,
		NegativeTimeout: 1 * time.Second,
	}

	opts := buildMountOptions("/mnt/union", mcfg)

	require.Contains(t, opts, "fsname=unionmount")
	require.Contains(t, opts, "volname=union")
	require.Contains(t, opts, "default_permissions")
	require.Contains(t, opts, "auto_xattr")
	require.Contains(t, opts, "local")
	require.Contains(t, opts, "entry_timeout=2")
	require.Contains(t, opts, "attr_timeout=3")
	require.Contains(t, opts, "negative_timeout=1")
	require.Contains(t, opts, "daemon_timeout=0")
	require.NotContains(t, opts, "allow_other")
}

func TestBuildMountOptionsAllowOther(t *testing.T) {
	mcfg := config.MountConfig{FSName: "unionmount", AllowOther: true}
	opts := buildMountOptions("/mnt/union", mcfg)
	require.Contains(t, opts, "allow_other")
}
