package opview

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const copyUpChunkSize = 8 * 1024

// ensureLocalDir recursively creates dir under the local tier, fixing
// ownership of every directory it creates to the mount owner (§4.D
// "ensure local parent exists (recursive mkdir with mount owner)").
// Grounded on the hubfs union filesystem's mkpdir.
func (fs *FS) ensureLocalDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return unix.ENOTDIR
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}

	parent := filepath.Dir(dir)
	if parent != dir {
		if err := fs.ensureLocalDir(parent); err != nil {
			return err
		}
	}

	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	_ = unix.Chown(dir, int(fs.OwnerUID), int(fs.OwnerGID))
	return nil
}

// ensureExternalDir is the external-tier counterpart used by rename's
// best-effort external mirror. Ownership on the external tier is left
// alone: it belongs to whatever manages that store.
func ensureExternalDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// copyUp streams externalPath's bytes into localPath in 8 KiB chunks,
// truncating on open, preserving the backing mode when known, and
// fixing ownership to the mount owner (§4.E). Best-effort: on failure
// the local path is left absent and the caller decides whether to fall
// back to the external copy.
func (fs *FS) copyUp(localPath, externalPath string) error {
	if err := fs.ensureLocalDir(filepath.Dir(localPath)); err != nil {
		return err
	}

	src, err := os.Open(externalPath)
	if err != nil {
		return err
	}
	defer src.Close()

	mode := os.FileMode(0644)
	var st unix.Stat_t
	if statErr := unix.Fstat(int(src.Fd()), &st); statErr == nil {
		mode = os.FileMode(st.Mode & 0777)
	}

	dst, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dst.Close()

	buf := make([]byte, copyUpChunkSize)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		_ = os.Remove(localPath)
		return err
	}

	_ = unix.Chown(localPath, int(fs.OwnerUID), int(fs.OwnerGID))
	return nil
}
