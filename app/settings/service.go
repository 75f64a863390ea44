package settings

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Service manages reading and writing settings from disk.
type Service struct {
	path         string
	mutex        sync.Mutex
	cacheManager CacheManager
}

// NewService returns a service for the settings file at path.
func NewService(path string) *Service {
	return &Service{path: path}
}

// Path returns the settings file path.
func (s *Service) Path() string {
	return s.path
}

// SetCacheManager allows the application to inject the cache manager
func (s *Service) SetCacheManager(cm CacheManager) {
	s.cacheManager = cm
}

// GetSettings returns the effective settings (defaults overlaid with file overrides if any).
func (s *Service) GetSettings() (Settings, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return Load(s.path)
}

// SaveSettings saves only the values that differ from defaults. When nothing
// differs the file is removed.
func (s *Service) SaveSettings(in Settings) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Get current settings to detect changes
	old, err := Load(s.path)
	if err != nil {
		old = defaultSettings
	}
	cacheToggled := old.EnableCache != in.EnableCache
	cacheSizeChanged := old.CacheSizeLimitMB != in.CacheSizeLimitMB

	// Build a minimal map containing only non-default values to avoid zero-value serialization pitfalls
	data := make(map[string]any)
	if in.EnableCache != defaultSettings.EnableCache {
		data["enable_cache"] = in.EnableCache
	}
	if in.CacheSizeLimitMB != defaultSettings.CacheSizeLimitMB && in.CacheSizeLimitMB >= 1 {
		data["cache_size_limit_mb"] = in.CacheSizeLimitMB
	}
	if in.MaxFileSizeMB != defaultSettings.MaxFileSizeMB && in.MaxFileSizeMB >= 0 {
		data["max_file_size_mb"] = in.MaxFileSizeMB
	}
	if kind := strings.ToLower(strings.TrimSpace(in.DefaultChartKind)); kind != "" && kind != defaultSettings.DefaultChartKind {
		data["default_chart_kind"] = kind
	}
	if lvl := strings.ToLower(strings.TrimSpace(in.LogLevel)); lvl != "" && lvl != defaultSettings.LogLevel {
		data["log_level"] = lvl
	}
	if in.ParallelLoads != defaultSettings.ParallelLoads && in.ParallelLoads >= 1 {
		data["parallel_loads"] = in.ParallelLoads
	}

	if len(data) == 0 {
		// If there is an existing file, remove it to reflect defaults-only state
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Wrap(err, "failed to remove settings file")
		}
	} else {
		b, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		// Ensure parent directory exists
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(s.path, b, 0o644); err != nil {
			return errors.Wrap(err, "failed to write settings file")
		}
	}

	if s.cacheManager != nil {
		if cacheToggled {
			s.cacheManager.ClearCache()
		}
		if cacheSizeChanged {
			s.cacheManager.UpdateCacheSize()
		}
	}
	return nil
}
