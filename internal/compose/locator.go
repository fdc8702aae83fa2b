package compose

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/npcforge/forge-installer/internal/config"
)

//nolint:gochecknoglobals // Fixed lookup tables.
var (
	// descriptorNames are the recognized descriptor filenames, in lookup order.
	descriptorNames = []string{
		"docker-compose.yml",
		"docker-compose.yaml",
		"compose.yml",
		"compose.yaml",
	}

	// skippedDirs are never descended into.
	skippedDirs = map[string]struct{}{
		".git":         {},
		".github":      {},
		"node_modules": {},
		"dist":         {},
		"build":        {},
	}
)

// DescriptorNames returns the recognized descriptor filenames.
func DescriptorNames() []string {
	return append([]string(nil), descriptorNames...)
}

// Descriptor returns the path of the descriptor file directly inside dir.
func Descriptor(dir string) (string, bool) {
	for _, name := range descriptorNames {
		candidate := filepath.Join(dir, name)

		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}

	return "", false
}

// HasDescriptor reports whether dir directly contains a descriptor file.
func HasDescriptor(dir string) bool {
	_, ok := Descriptor(dir)

	return ok
}

// FindDir searches root breadth-first for the first directory holding a
// descriptor. Directories deeper than maxDepth below root are not inspected.
// A non-positive maxDepth uses the default depth.
func FindDir(root string, maxDepth int) (string, bool) {
	if maxDepth <= 0 {
		maxDepth = config.DefaultMaxDepth
	}

	type entry struct {
		path  string
		depth int
	}

	queue := []entry{{path: filepath.Clean(root)}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if HasDescriptor(current.path) {
			return current.path, true
		}

		if current.depth >= maxDepth {
			continue
		}

		for _, child := range subdirectories(current.path) {
			queue = append(queue, entry{path: child, depth: current.depth + 1})
		}
	}

	return "", false
}

// subdirectories lists the searchable children of dir in name order.
// Unreadable directories yield nothing.
func subdirectories(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	children := make([]string, 0, len(entries))

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		if _, skip := skippedDirs[e.Name()]; skip {
			continue
		}

		children = append(children, filepath.Join(dir, e.Name()))
	}

	sort.Strings(children)

	return children
}

// isDir reports whether path is an existing directory.
func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return info.IsDir(), nil
}
