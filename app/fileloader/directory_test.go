package fileloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.csv":        "x,y\n1,2\n",
		"b.json":       "[]",
		"c.bin":        "\x00\x01",
		"sub/d.xml":    "<r/>",
		"sub/e.csv":    "x\n1\n",
		"sub/skip.tmp": "x",
	})

	t.Run("directory keeps supported files", func(t *testing.T) {
		result, err := DiscoverFiles([]string{dir}, DiscoveryOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.csv"),
			filepath.Join(dir, "b.json"),
			filepath.Join(dir, "sub", "d.xml"),
			filepath.Join(dir, "sub", "e.csv"),
		}, result.Files)
		assert.Equal(t, int64(len("x,y\n1,2\n")+len("[]")+len("<r/>")+len("x\n1\n")), result.TotalSize)
	})

	t.Run("directory pattern", func(t *testing.T) {
		result, err := DiscoverFiles([]string{dir}, DiscoveryOptions{Pattern: "**/*.csv"})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "sub", "e.csv")}, result.Files)
	})

	t.Run("glob argument", func(t *testing.T) {
		result, err := DiscoverFiles([]string{filepath.Join(dir, "sub", "*")}, DiscoveryOptions{})
		require.NoError(t, err)
		// Globs are taken literally, unsupported matches included.
		assert.Len(t, result.Files, 3)
	})

	t.Run("plain file passes through", func(t *testing.T) {
		bin := filepath.Join(dir, "c.bin")
		result, err := DiscoverFiles([]string{bin, bin}, DiscoveryOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{bin}, result.Files)
	})

	t.Run("exclude and limit", func(t *testing.T) {
		result, err := DiscoverFiles([]string{dir}, DiscoveryOptions{ExcludePatterns: []string{"*.json"}, MaxFiles: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "sub", "d.xml")}, result.Files)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := DiscoverFiles([]string{filepath.Join(dir, "nope.csv")}, DiscoveryOptions{})
		assert.Error(t, err)
	})
}
