package settings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"plotloader/app/chart"
)

// FileName is the settings file looked up next to the executable.
const FileName = "plotloader.yml"

// GetEffectiveSettings returns the effective settings (defaults overlaid with file overrides if any).
// If anything goes wrong, it returns defaults.
func GetEffectiveSettings(path string) Settings {
	settings, err := Load(path)
	if err != nil {
		return defaultSettings
	}
	return settings
}

// Load reads the YAML file at path and overlays it on the defaults. A missing
// file is not an error. Keys with a wrong type or an out of range value are
// ignored and keep their default.
func Load(path string) (Settings, error) {
	settings := defaultSettings
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, errors.Wrap(err, "failed to read settings")
	}
	// Unmarshal into a generic map to detect key presence
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return settings, errors.Wrapf(err, "failed to parse settings file %s", path)
	}
	return overlay(settings, m), nil
}

func overlay(settings Settings, m map[string]any) Settings {
	if v, ok := m["enable_cache"]; ok {
		if vb, okb := v.(bool); okb {
			settings.EnableCache = vb
		}
	}
	if v, ok := m["cache_size_limit_mb"]; ok {
		if vi, oki := v.(int); oki && vi >= 1 {
			settings.CacheSizeLimitMB = vi
		}
	}
	if v, ok := m["max_file_size_mb"]; ok {
		if vi, oki := v.(int); oki && vi >= 0 {
			settings.MaxFileSizeMB = vi
		}
	}
	if v, ok := m["default_chart_kind"]; ok {
		if vs, oks := v.(string); oks {
			if kind, err := chart.ParseKind(vs); err == nil {
				settings.DefaultChartKind = string(kind)
			}
		}
	}
	if v, ok := m["log_level"]; ok {
		if vs, oks := v.(string); oks && validLogLevels[strings.ToLower(strings.TrimSpace(vs))] {
			settings.LogLevel = strings.ToLower(strings.TrimSpace(vs))
		}
	}
	if v, ok := m["parallel_loads"]; ok {
		if vi, oki := v.(int); oki && vi >= 1 && vi <= 64 {
			settings.ParallelLoads = vi
		}
	}
	return settings
}

// DefaultPath returns the settings file path in the binary directory.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), FileName), nil
}

// CacheSizeBytes returns the cache limit in bytes.
func (s Settings) CacheSizeBytes() int64 {
	return int64(s.CacheSizeLimitMB) * 1024 * 1024
}

// MaxFileBytes returns the file size limit in bytes, 0 when unlimited.
func (s Settings) MaxFileBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}
