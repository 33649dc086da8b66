package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesift/internal/config"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func collectPaths(files []FileContent) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

func TestCollectFiles_WalksIncludesAndSkipsExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", []byte("package main\n"))
	writeFile(t, root, "internal/auth/login.go", []byte("package auth\n"))
	writeFile(t, root, "node_modules/dep/index.js", []byte("module.exports = {}\n"))
	writeFile(t, root, "vendor/lib/lib.go", []byte("package lib\n"))

	files, err := CollectFiles(root, config.PathsConfig{
		Include: []string{"."},
		Exclude: []string{"node_modules/", "vendor/"},
	}, 0)
	require.NoError(t, err)

	paths := collectPaths(files)
	assert.Contains(t, paths, "main.go")
	assert.Contains(t, paths, "internal/auth/login.go")
	assert.NotContains(t, paths, "node_modules/dep/index.js")
	assert.NotContains(t, paths, "vendor/lib/lib.go")
}

func TestCollectFiles_SkipsBinaryAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "code.go", []byte("package main\n"))
	writeFile(t, root, "blob.bin", []byte{0x00, 0x01, 0x02})
	writeFile(t, root, "big.txt", make([]byte, 100))

	files, err := CollectFiles(root, config.PathsConfig{}, 50)
	require.NoError(t, err)

	paths := collectPaths(files)
	assert.Equal(t, []string{"code.go"}, paths)
}

func TestCollectFiles_GlobExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.md", []byte("# notes\n"))
	writeFile(t, root, "trace.log", []byte("started\n"))

	files, err := CollectFiles(root, config.PathsConfig{
		Exclude: []string{"*.log"},
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"notes.md"}, collectPaths(files))
}

func TestExcluded(t *testing.T) {
	excludes := []string{"node_modules/", ".git/", "*.min.js"}

	assert.True(t, Excluded("node_modules/left-pad/index.js", excludes))
	assert.True(t, Excluded("pkg/node_modules/x.js", excludes))
	assert.True(t, Excluded("dist/app.min.js", excludes))
	assert.True(t, Excluded(".git/config", excludes))
	assert.False(t, Excluded("src/main.go", excludes))
	assert.False(t, Excluded("node_modules_backup/x.js", excludes))
}
