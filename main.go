package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/ohler55/ojg/oj"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"plotloader/app"
	"plotloader/app/chart"
	"plotloader/app/fileloader"
	"plotloader/app/settings"
)

type config struct {
	configPath string
	x, y       string
	group      string
	kind       string
	exportPath string
	jsonPath   string
	pattern    string
	exclude    string
	logLevel   string
	parallel   int
	maxFiles   int
}

func (c *config) registerFlags(fs *flag.FlagSet) {
	defaultConfig, _ := settings.DefaultPath()
	fs.StringVar(&c.configPath, "config", defaultConfig, "Settings file.")
	fs.StringVar(&c.x, "x", "", "Column plotted on the x axis.")
	fs.StringVar(&c.y, "y", "", "Column plotted on the y axis.")
	fs.StringVar(&c.group, "group", "", "Column whose values split the data into one trace each.")
	fs.StringVar(&c.kind, "kind", "", "Chart kind: line, bar or scatter. Defaults to the configured kind.")
	fs.StringVar(&c.exportPath, "export", "", "Write the loaded table to this .csv, .xlsx or .db file. Requires a single input file.")
	fs.StringVar(&c.jsonPath, "json.path", "", "JSONPath of the record array in JSON files, e.g. $.data.items. Discovered when empty.")
	fs.StringVar(&c.pattern, "pattern", "**/*", "Pattern matched below directory arguments.")
	fs.StringVar(&c.exclude, "exclude", "", "Comma separated base-name patterns to skip.")
	fs.StringVar(&c.logLevel, "log.level", "", "Only log messages with the given severity or above: debug, info, warn, error.")
	fs.IntVar(&c.parallel, "parallel", 0, "Files loaded concurrently. Defaults to the configured value.")
	fs.IntVar(&c.maxFiles, "max-files", 0, "Load at most this many discovered files. 0 means no limit.")
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var option level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		option = level.AllowDebug()
	case "warn":
		option = level.AllowWarn()
	case "error":
		option = level.AllowError()
	default:
		option = level.AllowInfo()
	}
	return level.NewFilter(logger, option)
}

func main() {
	var cfg config
	cfg.registerFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <file|dir|glob>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run loads every input file into its own tab, then prints a summary per
// tab and, when axes are selected, the chart traces.
func run(ctx context.Context, cfg config, args []string, out io.Writer) error {
	effective := settings.GetEffectiveSettings(cfg.configPath)
	if cfg.logLevel == "" {
		cfg.logLevel = effective.LogLevel
	}
	if cfg.parallel <= 0 {
		cfg.parallel = effective.ParallelLoads
	}
	logger := newLogger(cfg.logLevel)

	var exclude []string
	if cfg.exclude != "" {
		exclude = strings.Split(cfg.exclude, ",")
	}
	discovered, err := fileloader.DiscoverFiles(args, fileloader.DiscoveryOptions{
		Pattern:         cfg.pattern,
		ExcludePatterns: exclude,
		MaxFiles:        cfg.maxFiles,
	})
	if err != nil {
		return err
	}
	if len(discovered.Files) == 0 {
		return errors.New("no supported files found")
	}
	if cfg.exportPath != "" && len(discovered.Files) != 1 {
		return errors.Errorf("-export needs exactly one input file, got %d", len(discovered.Files))
	}
	level.Info(logger).Log("msg", "loading files", "files", len(discovered.Files),
		"size", humanize.Bytes(uint64(discovered.TotalSize)), "parallel", cfg.parallel)

	a := app.NewApp(cfg.configPath, logger, prometheus.NewRegistry())

	infos := make([]*app.TabInfo, len(discovered.Files))
	loadErrs := make([]error, len(discovered.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallel)
	for i, path := range discovered.Files {
		g.Go(func() error {
			// A bad file is reported and skipped; only cancellation stops the run.
			infos[i], loadErrs[i] = a.OpenFileTab(gctx, path, cfg.jsonPath)
			if errors.Is(loadErrs[i], context.Canceled) {
				return loadErrs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, info := range infos {
		if loadErrs[i] != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n\n", discovered.Files[i], loadErrs[i])
			continue
		}
		if err := report(ctx, a, cfg, info, out); err != nil {
			return err
		}
	}

	stats := a.GetCacheStats()
	level.Debug(logger).Log("msg", "done", "loaded", len(infos)-failed, "failed", failed,
		"cache_entries", stats.EntryCount, "cache_size", humanize.Bytes(uint64(stats.TotalSize)))
	if failed > 0 {
		return errors.Errorf("%d of %d files failed to load", failed, len(infos))
	}
	return nil
}

func report(ctx context.Context, a *app.App, cfg config, info *app.TabInfo, out io.Writer) error {
	fmt.Fprintf(out, "%s\n", info.FilePath)
	fmt.Fprintf(out, "  type:    %s", info.FileType)
	if info.Delimiter != "" {
		fmt.Fprintf(out, " (delimiter %q)", info.Delimiter)
	}
	if info.ArrayPath != "" {
		fmt.Fprintf(out, " (rows from %s)", info.ArrayPath)
	}
	fmt.Fprintln(out)
	if st, err := os.Stat(info.FilePath); err == nil {
		fmt.Fprintf(out, "  size:    %s\n", humanize.Bytes(uint64(st.Size())))
	}
	fmt.Fprintf(out, "  rows:    %s\n", humanize.Comma(int64(info.Rows)))
	if len(info.Warnings) > 0 {
		fmt.Fprintf(out, "  warnings: %d (first on line %d: %s)\n", len(info.Warnings), info.Warnings[0].Line, info.Warnings[0].Message)
	}

	columns, err := a.GetColumns(info.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "  columns:")
	for _, c := range columns {
		kind := "text"
		if c.Numeric {
			kind = "numeric"
		}
		fmt.Fprintf(out, "    %-30s %-8s %d present\n", c.Key, kind, c.Present)
	}

	if cfg.x != "" && cfg.y != "" {
		sel := chart.Selection{X: cfg.x, Y: cfg.y, Group: cfg.group}
		if err := a.SetSelection(info.ID, sel); err != nil {
			return errors.WithMessagef(err, "%s", info.FilePath)
		}
		traces, err := a.GetTraces(info.ID, cfg.kind)
		if err != nil {
			return errors.WithMessagef(err, "%s", info.FilePath)
		}
		b, err := oj.Marshal(chart.Maps(traces))
		if err != nil {
			return errors.Wrap(err, "failed to encode traces")
		}
		fmt.Fprintf(out, "  traces:  %s\n", b)
	}

	if cfg.exportPath != "" {
		if err := a.ExportTab(ctx, info.ID, cfg.exportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "  exported: %s\n", cfg.exportPath)
	}
	fmt.Fprintln(out)
	return nil
}
