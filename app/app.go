package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"plotloader/app/cache"
	"plotloader/app/chart"
	"plotloader/app/export"
	"plotloader/app/fields"
	"plotloader/app/fileloader"
	"plotloader/app/session"
	"plotloader/app/settings"
)

// ErrTabNotFound is returned for operations on a tab ID that is not open.
var ErrTabNotFound = errors.New("tab not found")

// App owns the open tabs and the services they share: settings, the
// parsed-table cache and the ingestion metrics.
type App struct {
	logger log.Logger

	settingsService *settings.Service

	// Multi-tab support
	tabsMu      sync.RWMutex
	tabs        map[string]*FileTab // keyed by tab ID
	activeTabID string
	nextTabID   int64

	// parsed-table cache shared by all tabs
	tableCache *cache.Cache
	metrics    *session.Metrics
}

// NewApp creates a new App using the settings file at settingsPath. Metrics
// are registered with reg, which may be nil.
func NewApp(settingsPath string, logger log.Logger, reg prometheus.Registerer) *App {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	currentSettings := settings.GetEffectiveSettings(settingsPath)

	a := &App{
		logger:          logger,
		settingsService: settings.NewService(settingsPath),
		tabs:            make(map[string]*FileTab),
		tableCache:      cache.New(currentSettings.CacheSizeBytes(), log.With(logger, "component", "cache")),
		metrics:         session.NewMetrics(reg),
	}
	// Inject cache manager (app) so settings service can clear caches when needed
	a.settingsService.SetCacheManager(a)
	return a
}

// GetEffectiveSettings returns the current settings, defaults for anything
// missing or invalid in the settings file.
func (a *App) GetEffectiveSettings() settings.Settings {
	s, err := a.settingsService.GetSettings()
	if err != nil {
		level.Warn(a.logger).Log("msg", "using default settings", "path", a.settingsService.Path(), "err", err)
		return settings.Defaults()
	}
	return s
}

// SaveSettings persists s. Cache changes take effect immediately.
func (a *App) SaveSettings(s settings.Settings) error {
	return a.settingsService.SaveSettings(s)
}

// ClearCache drops every cached table.
func (a *App) ClearCache() {
	a.tableCache.Clear()
	level.Debug(a.logger).Log("msg", "table cache cleared")
}

// UpdateCacheSize updates the cache size limit based on current settings
func (a *App) UpdateCacheSize() {
	current := a.GetEffectiveSettings()
	a.tableCache.UpdateMaxSize(current.CacheSizeBytes())
	level.Debug(a.logger).Log("msg", "updated cache size limit", "limit", humanize.Bytes(uint64(current.CacheSizeBytes())))
}

// CacheStatsResponse contains cache statistics
type CacheStatsResponse struct {
	TotalSize    int64   `json:"totalSize"`
	MaxSize      int64   `json:"maxSize"`
	UsagePercent float64 `json:"usagePercent"`
	EntryCount   int     `json:"entryCount"`
	HitRate      float64 `json:"hitRate"`
}

// GetCacheStats returns the current cache statistics
func (a *App) GetCacheStats() CacheStatsResponse {
	stats := a.tableCache.Stats()
	return CacheStatsResponse{
		TotalSize:    stats.Size,
		MaxSize:      stats.MaxSize,
		UsagePercent: stats.UsagePercent,
		EntryCount:   stats.Entries,
		HitRate:      stats.HitRate,
	}
}

// newSession builds a session configured from the current settings.
func (a *App) newSession(arrayPath string) *session.Session {
	current := a.GetEffectiveSettings()
	opts := session.Options{
		Load: fileloader.LoadOptions{
			MaxBytes:  current.MaxFileBytes(),
			ArrayPath: arrayPath,
		},
		Metrics: a.metrics,
		Logger:  a.logger,
	}
	if current.EnableCache {
		opts.Cache = a.tableCache
	}
	return session.New(opts)
}

// OpenFileTab loads the file at filePath into a new tab and makes it the
// active tab. arrayPath optionally names the JSON record array. No tab is
// created when the load fails.
func (a *App) OpenFileTab(ctx context.Context, filePath, arrayPath string) (*TabInfo, error) {
	if filePath == "" {
		return nil, errors.New("file path is empty")
	}

	tabID := fmt.Sprintf("tab-%d", atomic.AddInt64(&a.nextTabID, 1))
	tab := NewFileTab(tabID, filePath, a.newSession(arrayPath))
	if _, err := tab.Session.LoadFile(ctx, filePath); err != nil {
		return nil, errors.WithMessagef(err, "failed to open %s", filePath)
	}

	a.tabsMu.Lock()
	a.tabs[tabID] = tab
	a.activeTabID = tabID
	a.tabsMu.Unlock()

	return tab.info(), nil
}

// ReloadTab loads filePath into an existing tab. A successful load replaces
// the tab's table and clears its selection; a failed one leaves both as
// they were.
func (a *App) ReloadTab(ctx context.Context, tabID, filePath string) (*TabInfo, error) {
	tab, err := a.tab(tabID)
	if err != nil {
		return nil, err
	}
	if _, err := tab.Session.LoadFile(ctx, filePath); err != nil {
		return nil, err
	}

	a.tabsMu.Lock()
	defer a.tabsMu.Unlock()
	tab.FilePath = filePath
	tab.FileName = filepath.Base(filePath)
	return tab.info(), nil
}

func (a *App) tab(tabID string) (*FileTab, error) {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()
	tab, ok := a.tabs[tabID]
	if !ok {
		return nil, errors.Wrapf(ErrTabNotFound, "%s", tabID)
	}
	return tab, nil
}

// GetTab returns a specific tab by ID
func (a *App) GetTab(tabID string) *FileTab {
	tab, _ := a.tab(tabID)
	return tab
}

// GetActiveTabID returns the currently active tab ID
func (a *App) GetActiveTabID() string {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()
	return a.activeTabID
}

// GetTabs returns all open tabs ordered by ID.
func (a *App) GetTabs() []TabInfo {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()

	tabs := make([]*FileTab, 0, len(a.tabs))
	for _, tab := range a.tabs {
		tabs = append(tabs, tab)
	}
	sort.Slice(tabs, func(i, j int) bool { return tabIndex(tabs[i].ID) < tabIndex(tabs[j].ID) })
	out := make([]TabInfo, 0, len(tabs))
	for _, tab := range tabs {
		out = append(out, *tab.info())
	}
	return out
}

func tabIndex(id string) int64 {
	var n int64
	fmt.Sscanf(id, "tab-%d", &n)
	return n
}

// SetActiveTab sets the active tab by ID
func (a *App) SetActiveTab(tabID string) error {
	a.tabsMu.Lock()
	defer a.tabsMu.Unlock()

	if _, exists := a.tabs[tabID]; !exists {
		return errors.Wrapf(ErrTabNotFound, "%s", tabID)
	}
	a.activeTabID = tabID
	return nil
}

// CloseTab closes a tab by ID
func (a *App) CloseTab(tabID string) error {
	a.tabsMu.Lock()
	defer a.tabsMu.Unlock()

	if _, exists := a.tabs[tabID]; !exists {
		return errors.Wrapf(ErrTabNotFound, "%s", tabID)
	}
	delete(a.tabs, tabID)

	// If closing the active tab, switch to the most recently opened remaining tab
	if a.activeTabID == tabID {
		a.activeTabID = ""
		var newest int64
		for id := range a.tabs {
			if n := tabIndex(id); n > newest {
				newest, a.activeTabID = n, id
			}
		}
	}
	return nil
}

// GetColumns describes the selectable columns of a tab's table.
func (a *App) GetColumns(tabID string) ([]fields.ColumnInfo, error) {
	tab, err := a.tab(tabID)
	if err != nil {
		return nil, err
	}
	return fields.ClassifyColumns(tab.Session.Table()), nil
}

// SetSelection applies sel to a tab. An empty Group removes grouping. The
// selection is validated as a whole before any part of it is applied.
func (a *App) SetSelection(tabID string, sel chart.Selection) error {
	tab, err := a.tab(tabID)
	if err != nil {
		return err
	}
	return tab.Session.SetSelection(sel)
}

// GetTraces assembles chart traces for a tab. An empty kind uses the
// configured default chart kind.
func (a *App) GetTraces(tabID string, kind string) ([]chart.Trace, error) {
	tab, err := a.tab(tabID)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = a.GetEffectiveSettings().DefaultChartKind
	}
	k, err := chart.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return tab.Session.Traces(k)
}

// ExportTab writes a tab's table to path. The format follows the extension.
func (a *App) ExportTab(ctx context.Context, tabID, path string) error {
	tab, err := a.tab(tabID)
	if err != nil {
		return err
	}
	table := tab.Session.Table()
	if table == nil {
		return session.ErrNoTable
	}
	if err := export.ToFile(ctx, path, table); err != nil {
		return errors.WithMessagef(err, "failed to export %s", tab.FileName)
	}
	level.Info(a.logger).Log("msg", "table exported", "tab", tabID, "file", path, "rows", table.Len())
	return nil
}
