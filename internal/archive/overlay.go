package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/npcforge/forge-installer/internal/config"
)

// Overlay moves the contents of src into dst like an overwriting unpack:
// directories are merged, files and links replace what is there, and entries
// of dst that src does not mention are left alone. src is empty afterwards.
func Overlay(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	if err = os.MkdirAll(dst, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())

		if e.IsDir() {
			if info, statErr := os.Lstat(to); statErr == nil && info.IsDir() {
				if err = Overlay(from, to); err != nil {
					return err
				}

				if err = os.Remove(from); err != nil {
					return fmt.Errorf("remove %s: %w", from, err)
				}

				continue
			}
		}

		if err = os.RemoveAll(to); err != nil {
			return fmt.Errorf("replace %s: %w", to, err)
		}

		if err = os.Rename(from, to); err != nil {
			return fmt.Errorf("move %s: %w", from, err)
		}
	}

	return nil
}
