package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/codesift/internal/config"
	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// CollectFiles walks the project root and loads every indexable file:
// within the include paths, not excluded, not binary, and under the size
// limit. Returned paths are slash-separated and relative to root.
func CollectFiles(rootDir string, paths config.PathsConfig, maxFileSize int64) ([]FileContent, error) {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	include := paths.Include
	if len(include) == 0 {
		include = []string{"."}
	}

	var files []FileContent
	seen := make(map[string]bool)

	for _, inc := range include {
		base := filepath.Join(rootDir, filepath.FromSlash(inc))
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped
			}

			rel, relErr := filepath.Rel(rootDir, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if rel != "." && Excluded(rel+"/", paths.Exclude) {
					return filepath.SkipDir
				}
				return nil
			}
			if seen[rel] || Excluded(rel, paths.Exclude) {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil || info.Size() > maxFileSize {
				return nil
			}

			data, readErr := os.ReadFile(path)
			if readErr != nil || isBinary(data) {
				return nil
			}

			seen[rel] = true
			files = append(files, FileContent{Path: rel, Content: string(data)})
			return nil
		})
		if err != nil {
			return nil, sifterrors.StorageError("scan project files", err)
		}
	}

	return files, nil
}

// Excluded reports whether a slash-relative path matches an exclude
// pattern. Patterns ending in "/" exclude whole subtrees; others match
// the base name or the full relative path.
func Excluded(relPath string, excludes []string) bool {
	for _, pattern := range excludes {
		if strings.HasSuffix(pattern, "/") {
			prefix := strings.TrimSuffix(pattern, "/")
			if relPath == prefix || strings.HasPrefix(relPath, prefix+"/") ||
				strings.Contains(relPath, "/"+prefix+"/") {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(relPath)); matched {
			return true
		}
		if relPath == pattern {
			return true
		}
	}
	return false
}
