package crawler

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"codegenome/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func scanPaths(t *testing.T, c *Crawler, root string) []string {
	t.Helper()
	var paths []string
	require.NoError(t, c.Scan(root, func(fd FileDesc) {
		paths = append(paths, fd.Path)
	}))
	sort.Strings(paths)
	return paths
}

func TestScanAppliesExclusions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app.js":           "console.log(1)",
		"src/util.ts":          "export const x = 1",
		"node_modules/pkg.js":  "ignored",
		"dist/bundle.js":       "ignored",
		"README.md":            "# readme",
		"assets/logo.svg":      "<svg/>",
		"src/nested/deep.tsx":  "export default null",
		"__pycache__/cache.py": "ignored",
	})

	cfg := config.Default()
	c := New(&cfg.Scan)
	paths := scanPaths(t, c, root)

	assert.Equal(t, []string{
		"README.md",
		"src/app.js",
		"src/nested/deep.tsx",
		"src/util.ts",
	}, paths)
}

func TestScanRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":     "generated/\nsecret.js\n",
		"src/app.js":     "ok",
		"secret.js":      "ignored",
		"generated/g.js": "ignored",
	})

	cfg := config.Default()
	c := New(&cfg.Scan)
	paths := scanPaths(t, c, root)

	assert.Equal(t, []string{"src/app.js"}, paths)
}

func TestScanSkipsOversizedFilesWithWarning(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"big.js":   "x",
		"small.js": "y",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.js"), make([]byte, 128), 0o644))

	cfg := config.Default()
	cfg.Scan.MaxFileSize = 64
	c := New(&cfg.Scan)
	paths := scanPaths(t, c, root)

	assert.Equal(t, []string{"small.js"}, paths)
	require.Len(t, c.Warnings(), 1)
	assert.Contains(t, c.Warnings()[0], "big.js")
}

func TestScanIsRestartable(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.js": "x"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "huge.js"), make([]byte, 200), 0o644))

	cfg := config.Default()
	cfg.Scan.MaxFileSize = 100
	c := New(&cfg.Scan)

	scanPaths(t, c, root)
	require.Len(t, c.Warnings(), 1)

	require.NoError(t, os.Remove(filepath.Join(root, "huge.js")))
	scanPaths(t, c, root)
	assert.Empty(t, c.Warnings(), "warnings must reset between scans")
}

func TestScanFailsOnMissingRoot(t *testing.T) {
	cfg := config.Default()
	c := New(&cfg.Scan)
	err := c.Scan(filepath.Join(t.TempDir(), "nope"), func(FileDesc) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreadable")
}
