// Package hierarchy scores every ratio pair at every level of a grouping hierarchy.
package hierarchy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/invertedv/sods"
	"github.com/invertedv/sods/agg"
	"github.com/invertedv/sods/score"
	"golang.org/x/sync/errgroup"
)

// Observer is told of each level × pair pass as it completes. With more than one worker,
// Observe is called concurrently.
type Observer interface {
	Observe(level string, pass *score.Pass)
}

type Options struct {
	logger    *slog.Logger
	observers []Observer
	workers   int
}

type Opt func(o *Options)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithObserver(obs Observer) Opt {
	return func(o *Options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithWorkers sets the number of levels scored at once. Output does not depend on n.
func WithWorkers(n int) Opt {
	return func(o *Options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// LevelResult is the scored table of one level and the passes that produced its indicators.
type LevelResult struct {
	Level  Level
	Table  *sods.Table
	Passes []*score.Pass
}

// Results are in the order of Plan.Levels.
type Results struct {
	Levels []*LevelResult
}

// Sheets returns one sheet per level, named for the level.
func (r *Results) Sheets() []sods.Sheet {
	var sheets []sods.Sheet
	for _, lr := range r.Levels {
		sheets = append(sheets, sods.Sheet{Name: lr.Level.Name, Table: lr.Table})
	}

	return sheets
}

func (r *Results) Table(level string) (*sods.Table, error) {
	for _, lr := range r.Levels {
		if lr.Level.Name == level {
			return lr.Table, nil
		}
	}

	return nil, fmt.Errorf("no level %s in results", level)
}

// Flagged is the total of indicator values over all levels and pairs.
func (r *Results) Flagged() int {
	n := 0
	for _, lr := range r.Levels {
		for _, pass := range lr.Passes {
			n += pass.Flagged
		}
	}

	return n
}

// Run validates plan against base, then scores each level. base is not modified.
func Run(ctx context.Context, base *sods.Table, plan *Plan, opts ...Opt) (*Results, error) {
	o := &Options{logger: slog.Default(), workers: 1}
	for _, opt := range opts {
		opt(o)
	}

	if plan == nil {
		return nil, sods.NewConfigError("plan", "nil")
	}

	if e := plan.Validate(base); e != nil {
		return nil, e
	}

	res := &Results{Levels: make([]*LevelResult, len(plan.Levels))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for ind, lvl := range plan.Levels {
		ind, lvl := ind, lvl
		g.Go(func() error {
			lr, e := runLevel(gctx, base, lvl, plan, o)
			if e != nil {
				return fmt.Errorf("level %s: %w", lvl.Name, e)
			}

			res.Levels[ind] = lr
			return nil
		})
	}

	if e := g.Wait(); e != nil {
		return nil, e
	}

	return res, nil
}

func runLevel(ctx context.Context, base *sods.Table, lvl Level, plan *Plan, o *Options) (*LevelResult, error) {
	if e := ctx.Err(); e != nil {
		return nil, e
	}

	var (
		tbl *sods.Table
		e   error
	)
	if tbl, e = levelTable(base, lvl, plan); e != nil {
		return nil, e
	}

	o.logger.Info("scoring level", slog.String("level", lvl.Name), slog.Int("rows", tbl.RowCount()),
		slog.Int("pairs", len(plan.Pairs)))

	lr := &LevelResult{Level: lvl, Table: tbl.Copy()}
	for _, pair := range plan.Pairs {
		if ex := ctx.Err(); ex != nil {
			return nil, ex
		}

		var pass *score.Pass
		if pass, e = score.Indicators(tbl, lvl.PartitionBy, pair, plan.Params); e != nil {
			return nil, e
		}

		if ex := lr.Table.AppendColumn(pass.Indicator); ex != nil {
			return nil, ex
		}

		lr.Passes = append(lr.Passes, pass)

		o.logger.Debug("scored pair", slog.String("level", lvl.Name), slog.String("pair", pair.String()),
			slog.Int("partitions", pass.Partitions), slog.Int("degenerate", pass.Degenerate),
			slog.Int("missing_key", pass.MissingKey), slog.Int("flagged", pass.Flagged))

		for _, obs := range o.observers {
			obs.Observe(lvl.Name, pass)
		}
	}

	return lr, nil
}

// levelTable is the table a level scores: base itself or its aggregate.
func levelTable(base *sods.Table, lvl Level, plan *Plan) (*sods.Table, error) {
	if !lvl.Aggregated() {
		return base, nil
	}

	var (
		tbl *sods.Table
		e   error
	)
	if tbl, e = agg.Aggregate(base, lvl.GroupBy, plan.Aggregations, agg.WithIDColumn(plan.idColumn())); e != nil {
		return nil, e
	}

	if lvl.MinPartition > 0 {
		if tbl, e = agg.FilterGroups(tbl, lvl.PartitionBy, lvl.MinPartition); e != nil {
			return nil, e
		}
	}

	return tbl, nil
}
