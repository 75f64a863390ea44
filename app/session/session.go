package session

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"plotloader/app/cache"
	"plotloader/app/chart"
	"plotloader/app/fileloader"
	"plotloader/app/interfaces"
)

var (
	// ErrNoTable is returned by selection and assembly calls before any load succeeded.
	ErrNoTable = errors.New("no table loaded")
	// ErrUnknownColumn is returned when a selection names a key outside the table's columns.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrIncompleteSelection is returned when traces are requested without x and y keys.
	ErrIncompleteSelection = errors.New("x and y must both be selected")
)

// State is an immutable snapshot of a session. Every successful load and
// every selection change produces a new State.
type State struct {
	LoadID    string
	Table     *interfaces.Table
	Selection chart.Selection
	LoadedAt  time.Time
	FromCache bool
}

// ResetListener is told about every newly published table.
type ResetListener func(State)

// Options configures a Session.
type Options struct {
	// Load is passed to the extractors. Its Logger is replaced by the session logger.
	Load fileloader.LoadOptions
	// Cache, if set, is consulted before parsing and filled after.
	Cache *cache.Cache
	// Metrics, if set, records loads. It may be shared between sessions.
	Metrics *Metrics
	Logger  log.Logger
}

// Session holds the table currently shown and the user's axis selection.
// Loads are serialized; a load builds its table aside and publishes it in a
// single step, so readers see either the old state or the new one.
type Session struct {
	opts   Options
	logger log.Logger

	loadMu sync.Mutex // one ingestion pass at a time

	mu        sync.RWMutex
	state     State
	listeners map[int]ResetListener
	nextID    int
}

// New creates an empty session.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	opts.Load.Logger = logger
	return &Session{
		opts:      opts,
		logger:    logger,
		listeners: make(map[int]ResetListener),
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Table returns the current table, nil before the first successful load.
func (s *Session) Table() *interfaces.Table {
	return s.State().Table
}

// Columns returns the selectable keys of the current table.
func (s *Session) Columns() []string {
	return s.State().Table.Columns()
}

// OnReset registers fn to be called after each successful load. The returned
// function unregisters it.
func (s *Session) OnReset(fn ResetListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// LoadFile reads the file at path and loads it. Unsupported extensions are
// rejected before the file is read.
func (s *Session) LoadFile(ctx context.Context, path string) (State, error) {
	fileType, err := fileloader.DetectFileType(path)
	if err != nil {
		s.recordFailure(fileType, path, err)
		return State{}, err
	}

	if max := s.opts.Load.MaxBytes; max > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > max {
			err = errors.Wrapf(fileloader.ErrFileTooLarge, "%s is %s, limit is %s",
				path, humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(max)))
			s.recordFailure(fileType, path, err)
			return State{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrap(err, "failed to read file")
		s.recordFailure(fileType, path, err)
		return State{}, err
	}
	return s.Load(ctx, path, data)
}

// Load converts data into a table and, on success, publishes it with a fresh
// load ID and an empty selection, then notifies reset listeners. On failure
// the current state is left untouched.
func (s *Session) Load(ctx context.Context, name string, data []byte) (State, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	fileType, _ := fileloader.DetectFileType(name)
	start := time.Now()

	table, fromCache, err := s.build(ctx, name, data)
	if err != nil {
		s.recordFailure(fileType, name, err)
		return State{}, err
	}
	if m := s.opts.Metrics; m != nil {
		m.loadDuration.Observe(time.Since(start).Seconds())
		m.loads.WithLabelValues(fileType.String(), outcomeSuccess).Inc()
		m.rowsLoaded.Add(float64(table.Len()))
		if !fromCache {
			m.warnings.Add(float64(len(table.Warnings)))
		}
	}

	level.Info(s.logger).Log("msg", "file loaded", "file", name, "type", fileType, "rows", table.Len(),
		"columns", len(table.Columns()), "warnings", len(table.Warnings), "cached", fromCache,
		"duration", time.Since(start))

	return s.publish(table, fromCache), nil
}

// build parses data, going through the cache when one is configured.
func (s *Session) build(ctx context.Context, name string, data []byte) (*interfaces.Table, bool, error) {
	c := s.opts.Cache
	if c == nil {
		table, err := fileloader.LoadBytes(ctx, name, data, s.opts.Load)
		return table, false, err
	}

	// Unsupported names must fail before any hashing or parsing.
	if _, err := fileloader.DetectFileType(name); err != nil {
		return nil, false, err
	}

	key, err := cache.Key(name, data, s.opts.Load.ArrayPath)
	if err != nil {
		return nil, false, err
	}
	if cached, ok := c.Get(key); ok {
		if m := s.opts.Metrics; m != nil {
			m.cacheHits.Inc()
		}
		// Same content under another name: share the rows, report the new name.
		t := *cached
		t.Source = name
		return &t, true, nil
	}
	if m := s.opts.Metrics; m != nil {
		m.cacheMisses.Inc()
	}

	table, err := fileloader.LoadBytes(ctx, name, data, s.opts.Load)
	if err != nil {
		return nil, false, err
	}
	c.Put(key, table)
	return table, false, nil
}

func (s *Session) recordFailure(fileType interfaces.FileType, name string, err error) {
	if m := s.opts.Metrics; m != nil {
		m.loads.WithLabelValues(fileType.String(), outcomeFailure).Inc()
	}
	level.Warn(s.logger).Log("msg", "file load failed", "file", name, "err", err)
}

// publish installs table as the current table and resets the selection.
func (s *Session) publish(table *interfaces.Table, fromCache bool) State {
	next := State{
		LoadID:    uuid.New().String(),
		Table:     table,
		LoadedAt:  time.Now(),
		FromCache: fromCache,
	}

	s.mu.Lock()
	s.state = next
	listeners := make([]ResetListener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// SetX selects the x axis column.
func (s *Session) SetX(key string) error {
	return s.updateSelection(key, func(sel *chart.Selection) { sel.X = key })
}

// SetY selects the y axis column.
func (s *Session) SetY(key string) error {
	return s.updateSelection(key, func(sel *chart.Selection) { sel.Y = key })
}

// SetGroup selects the grouping column. An empty key removes grouping.
func (s *Session) SetGroup(key string) error {
	if key == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state.Table == nil {
			return ErrNoTable
		}
		s.state.Selection.Group = ""
		return nil
	}
	return s.updateSelection(key, func(sel *chart.Selection) { sel.Group = key })
}

func (s *Session) updateSelection(key string, apply func(*chart.Selection)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Table == nil {
		return ErrNoTable
	}
	if !s.state.Table.HasColumn(key) {
		return errors.Wrapf(ErrUnknownColumn, "%q", key)
	}
	apply(&s.state.Selection)
	return nil
}

// SetSelection validates and applies a whole selection at once. Empty X or
// Y keep the current axis; an empty Group removes grouping. Nothing is
// applied when any key is unknown.
func (s *Session) SetSelection(sel chart.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Table == nil {
		return ErrNoTable
	}
	for _, key := range []string{sel.X, sel.Y, sel.Group} {
		if key != "" && !s.state.Table.HasColumn(key) {
			return errors.Wrapf(ErrUnknownColumn, "%q", key)
		}
	}
	if sel.X != "" {
		s.state.Selection.X = sel.X
	}
	if sel.Y != "" {
		s.state.Selection.Y = sel.Y
	}
	s.state.Selection.Group = sel.Group
	return nil
}

// Traces assembles the chart series for the current table and selection.
func (s *Session) Traces(kind chart.Kind) ([]chart.Trace, error) {
	st := s.State()
	if st.Table == nil {
		return nil, ErrNoTable
	}
	if st.Selection.X == "" || st.Selection.Y == "" {
		return nil, ErrIncompleteSelection
	}
	return chart.BuildTraces(st.Table.Rows, st.Selection, kind), nil
}
