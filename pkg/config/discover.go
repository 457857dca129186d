package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StructureDir is the directory holding the help content tree below a help root.
const StructureDir = "structure"

// DiscoverHelpRoots scans root for directories that contain a structure/
// subdirectory and returns them.
func DiscoverHelpRoots(root string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return scanForStructure(root, maxDepth)
}

// ResolveHelpRoot picks the help root below root. A single candidate wins.
// With several candidates, helpPath (relative to root) selects one.
func ResolveHelpRoot(root, helpPath string, maxDepth int) (string, error) {
	found := DiscoverHelpRoots(root, maxDepth)

	switch {
	case len(found) == 1:
		return found[0], nil
	case len(found) > 1:
		rel := strings.Trim(helpPath, "/")
		if rel == "" {
			return "", fmt.Errorf("%d help roots below %s: a help path is required", len(found), root)
		}
		candidate := filepath.Join(root, filepath.FromSlash(rel))
		if isDir(filepath.Join(candidate, StructureDir)) {
			return candidate, nil
		}
		return "", fmt.Errorf("help path %q has no %s directory", helpPath, StructureDir)
	default:
		return "", fmt.Errorf("no %s directory below %s", StructureDir, root)
	}
}

// scanForStructure walks a directory tree up to maxDepth levels deep,
// looking for directories that contain a structure/ subdirectory.
func scanForStructure(root string, maxDepth int) []string {
	root = expandHome(root)
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
		if currentDepth > maxDepth {
			return filepath.SkipDir
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if isDir(filepath.Join(path, StructureDir)) {
			results = append(results, path)
			return filepath.SkipDir // Help content never nests another help root
		}

		return nil
	})

	return results
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
