package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/invertedv/sods"
	"github.com/invertedv/sods/config"
	"github.com/invertedv/sods/export"
	"github.com/invertedv/sods/hierarchy"
	"github.com/invertedv/sods/metrics"
	"github.com/invertedv/sods/score"
	"github.com/invertedv/sods/source"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score every ratio pair at every level and write the workbook",
		Long: `Load the establishment data, merge significance, score each ratio pair at each level of
the hierarchy and write one sheet per level (plus the analyst notes, if configured).

Examples:
  # run with a config file
  sods run --config manufacturing.yaml

  # same, writing CSV files instead of a workbook
  sods run --config manufacturing.yaml --format csv --output out/

  # database password from the environment
  SODS_SOURCE_PASSWORD=... sods run --config manufacturing.yaml`,
		RunE: runPipeline,
	}

	cmd.Flags().String("config", "", "config file (YAML)")
	cmd.Flags().String("output", "", "output path (default final_excel_data.xlsx)")
	cmd.Flags().String("format", "", "output format (xlsx, csv)")
	cmd.Flags().Int("workers", 1, "levels scored at once")
	cmd.Flags().String("metrics-file", "", "write prometheus metrics to this file")
	cmd.Flags().Bool("no-progress", false, "do not show a progress bar")

	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	v := config.New()
	if e := bindFlags(v, cmd.Flags()); e != nil {
		return e
	}

	path, _ := cmd.Flags().GetString("config")

	var (
		c *config.Config
		e error
	)
	if c, e = config.Read(v, path); e != nil {
		return e
	}

	if ex := setupLogging(c.Logging.Level, c.Logging.Format); ex != nil {
		return ex
	}

	runID := uuid.New().String()
	logger := slog.Default().With(slog.String("run_id", runID))
	start := time.Now()

	var base, notes *sods.Table
	if base, notes, e = load(ctx, c, logger); e != nil {
		return e
	}

	plan := c.Plan()
	m := metrics.New(runID)
	opts := []hierarchy.Opt{hierarchy.WithLogger(logger), hierarchy.WithWorkers(c.Workers), hierarchy.WithObserver(m)}
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
		opts = append(opts, hierarchy.WithObserver(newProgress(len(plan.Levels)*len(plan.Pairs))))
	}

	var res *hierarchy.Results
	if res, e = hierarchy.Run(ctx, base, plan, opts...); e != nil {
		return e
	}

	sheets := res.Sheets()
	if notes != nil {
		sheets = append(sheets, sods.Sheet{Name: "Notes", Table: notes})
	}

	var sink export.Sink
	if sink, e = export.New(c.Output.Format); e != nil {
		return e
	}

	if ex := sink.Write(sheets, c.Output.Path); ex != nil {
		return ex
	}

	m.ObserveDuration(time.Since(start))
	if c.MetricsFile != "" {
		if ex := m.WriteFile(c.MetricsFile); ex != nil {
			return fmt.Errorf("write metrics: %w", ex)
		}
	}

	logger.Info("run complete", slog.Int("rows", base.RowCount()), slog.Int("flagged", res.Flagged()),
		slog.String("output", c.Output.Path), slog.Duration("duration", time.Since(start)))

	return nil
}

// runFlags maps config keys to the run flags that override them
var runFlags = map[string]string{
	"output.path":    "output",
	"output.format":  "format",
	"workers":        "workers",
	"metrics_file":   "metrics-file",
	"logging.level":  "log-level",
	"logging.format": "log-format",
}

// bindFlags binds the flags set on the command line to v, so unset flags don't mask the config file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range runFlags {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}

		if e := v.BindPFlag(key, f); e != nil {
			return fmt.Errorf("bind flag %s: %w", name, e)
		}
	}

	return nil
}

// load reads the base table and, from a database with notes configured, the notes. The base table
// gets its derived keys, configured sums and significance.
func load(ctx context.Context, c *config.Config, logger *slog.Logger) (base, notes *sods.Table, err error) {
	var e error
	switch c.Source.Kind {
	case config.KindXLSX:
		base, e = source.ReadExcel(c.Source.Path, "", source.KeyColumns...)
	case config.KindCSV:
		base, e = source.NewCSV(c.Source.Path).Fetch(ctx, source.Query{Strings: source.KeyColumns, MaxRows: c.Source.MaxRows})
	default:
		base, notes, e = fetchDB(ctx, c, logger)
	}

	if e != nil {
		return nil, nil, e
	}

	logger.Info("loaded data", slog.String("source", c.Source.Kind), slog.Int("rows", base.RowCount()),
		slog.Int("columns", base.ColumnCount()))

	if base, e = source.DeriveKeys(base); e != nil {
		return nil, nil, e
	}

	for _, s := range c.Sums {
		if base, e = base.WithSum(s.Name, s.Columns...); e != nil {
			return nil, nil, sods.NewConfigError("sums", "%s: %v", s.Name, e)
		}
	}

	if c.Significance.Path != "" {
		var sig *sods.Table
		if sig, e = source.LoadTable(c.Significance.Path, c.IDColumn); e != nil {
			return nil, nil, e
		}

		if base, e = source.MergeSignificance(base, sig, c.IDColumn, c.Significance.Column, c.Significance.Default); e != nil {
			return nil, nil, e
		}
	}

	return base, notes, nil
}

func fetchDB(ctx context.Context, c *config.Config, logger *slog.Logger) (base, notes *sods.Table, err error) {
	var (
		d *source.Dialect
		e error
	)
	if d, e = source.Open(ctx, c.Source.Conn); e != nil {
		return nil, nil, e
	}
	defer func() { _ = d.Close() }()

	db := source.NewDB(d, logger)

	q := source.Query{SQL: c.Source.Query, Strings: source.KeyColumns, MaxRows: c.Source.MaxRows}
	if q.SQL == "" {
		if q, e = c.Source.Trade.Query(d); e != nil {
			return nil, nil, e
		}
	}

	if base, e = db.Fetch(ctx, q); e != nil {
		return nil, nil, e
	}

	if c.Source.Notes.RefPer == "" {
		return base, nil, nil
	}

	var nq source.Query
	if nq, e = c.Source.Notes.Query(); e != nil {
		return nil, nil, e
	}

	if notes, e = db.Fetch(ctx, nq); e != nil {
		return nil, nil, e
	}

	return base, notes, nil
}

// progress advances a bar once per level × pair pass.
type progress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgress(passes int) *progress {
	return &progress{bar: progressbar.NewOptions(passes,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Scoring...[reset]"),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(os.Stderr)
		}),
	)}
}

func (p *progress) Observe(level string, pass *score.Pass) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bar.Describe(fmt.Sprintf("[cyan][bold]%s %s[reset]", level, pass.Pair))
	if e := p.bar.Add(1); e != nil {
		slog.Warn("failed to update progress bar", "error", e)
	}
}
