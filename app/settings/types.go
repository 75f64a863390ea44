package settings

// Settings holds application settings that can be overridden by the user.
type Settings struct {
	// EnableCache keeps parsed tables in memory so reloading unchanged content skips parsing
	EnableCache bool `yaml:"enable_cache" json:"enable_cache"`
	// Cache size limit in MB for the parsed-table cache
	CacheSizeLimitMB int `yaml:"cache_size_limit_mb" json:"cache_size_limit_mb"`
	// Files larger than this (after decompression) are rejected. 0 disables the limit.
	MaxFileSizeMB int `yaml:"max_file_size_mb" json:"max_file_size_mb"`
	// Chart kind used when none is given: line, bar or scatter
	DefaultChartKind string `yaml:"default_chart_kind" json:"default_chart_kind"`
	// Minimum level that is logged: debug, info, warn or error
	LogLevel string `yaml:"log_level" json:"log_level"`
	// Number of files inspected concurrently by the command line tool
	ParallelLoads int `yaml:"parallel_loads" json:"parallel_loads"`
}

// CacheManager interface defines methods that Service needs for cache management
// This breaks the circular dependency between app and settings packages
type CacheManager interface {
	ClearCache()
	UpdateCacheSize()
}

// defaultSettings defines the built-in defaults.
var defaultSettings = Settings{
	EnableCache:      true,
	CacheSizeLimitMB: 100, // Default 100MB cache size
	MaxFileSizeMB:    512,
	DefaultChartKind: "line",
	LogLevel:         "info",
	ParallelLoads:    4,
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return defaultSettings
}

// validLogLevels are the accepted log_level values.
var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
