package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoad_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
enable_cache: false
cache_size_limit_mb: 32
max_file_size_mb: 0
default_chart_kind: Scatter
log_level: DEBUG
parallel_loads: 8
unknown_key: ignored
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		EnableCache:      false,
		CacheSizeLimitMB: 32,
		MaxFileSizeMB:    0,
		DefaultChartKind: "scatter",
		LogLevel:         "debug",
		ParallelLoads:    8,
	}, s)
	assert.Equal(t, int64(32*1024*1024), s.CacheSizeBytes())
	assert.Equal(t, int64(0), s.MaxFileBytes())
}

func TestLoad_BadValuesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
enable_cache: "yes"
cache_size_limit_mb: 0
max_file_size_mb: -1
default_chart_kind: pie
log_level: verbose
parallel_loads: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("enable_cache: [\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Equal(t, Defaults(), GetEffectiveSettings(path))
}

type fakeCacheManager struct {
	cleared, resized int
}

func (f *fakeCacheManager) ClearCache()      { f.cleared++ }
func (f *fakeCacheManager) UpdateCacheSize() { f.resized++ }

func TestService_SaveOnlyNonDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", FileName)
	svc := NewService(path)
	cm := &fakeCacheManager{}
	svc.SetCacheManager(cm)

	in := Defaults()
	in.CacheSizeLimitMB = 10
	in.LogLevel = "warn"
	require.NoError(t, svc.SaveSettings(in))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, yaml.Unmarshal(b, &saved))
	assert.Equal(t, map[string]any{"cache_size_limit_mb": 10, "log_level": "warn"}, saved)
	assert.Equal(t, 1, cm.resized)
	assert.Equal(t, 0, cm.cleared)

	got, err := svc.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// Back to defaults removes the file.
	require.NoError(t, svc.SaveSettings(Defaults()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 2, cm.resized)
}

func TestService_ToggleCacheClears(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), FileName))
	cm := &fakeCacheManager{}
	svc.SetCacheManager(cm)

	in := Defaults()
	in.EnableCache = false
	require.NoError(t, svc.SaveSettings(in))
	assert.Equal(t, 1, cm.cleared)
	assert.Equal(t, 0, cm.resized)
}
