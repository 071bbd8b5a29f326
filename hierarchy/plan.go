package hierarchy

import (
	"fmt"
	"slices"

	"github.com/invertedv/sods"
	"github.com/invertedv/sods/agg"
	"github.com/invertedv/sods/score"
)

// grouping columns of the establishment data
const (
	NAICS  = "FOUR_DIG_NAICS"
	State  = "STATE"
	County = "COUNTY_CODE"
)

// Level is one granularity of the hierarchy.
//   - GroupBy non-empty: the base rows are aggregated by GroupBy, then scored.
//   - GroupBy empty: the base rows are scored directly.
//
// Rows are scored within PartitionBy. If MinPartition > 0, aggregated rows in partitions with
// fewer than MinPartition rows are dropped before scoring.
type Level struct {
	Name         string   `mapstructure:"name"`
	GroupBy      []string `mapstructure:"group_by"`
	PartitionBy  []string `mapstructure:"partition_by"`
	MinPartition int      `mapstructure:"min_partition"`
}

func (l Level) Aggregated() bool {
	return len(l.GroupBy) > 0
}

// DefaultLevels are the state, county and two establishment levels of the manufacturing review.
func DefaultLevels() []Level {
	return []Level{
		{Name: "State", GroupBy: []string{NAICS, State}, PartitionBy: []string{NAICS}},
		{Name: "County", GroupBy: []string{NAICS, State, County}, PartitionBy: []string{NAICS, State}, MinPartition: agg.MinGroupSize},
		{Name: "Estab_by_county", PartitionBy: []string{NAICS, County}},
		{Name: "Estab_by_state", PartitionBy: []string{NAICS, State}},
	}
}

// Plan is everything Run needs besides the data.
type Plan struct {
	Levels []Level
	Pairs  []sods.RatioPair

	// Aggregations maps columns to aggregate functions for the aggregated levels. It must include IDColumn.
	Aggregations agg.Spec
	Params       score.Params

	// IDColumn defaults to agg.IDColumn.
	IDColumn string
}

func (p *Plan) idColumn() string {
	if p.IDColumn == "" {
		return agg.IDColumn
	}

	return p.IDColumn
}

// Validate checks p against the columns of base. Nothing is scored if this fails.
func (p *Plan) Validate(base *sods.Table) error {
	if base == nil {
		return sods.NewConfigError("base table", "nil")
	}

	if len(p.Levels) == 0 {
		return sods.NewConfigError("levels", "no levels")
	}

	if len(p.Pairs) == 0 {
		return sods.NewConfigError("ratio pairs", "no ratio pairs")
	}

	if e := p.Params.Validate(); e != nil {
		return e
	}

	var names []string
	for _, pair := range p.Pairs {
		if pair.Numerator == "" || pair.Denominator == "" {
			return sods.NewConfigError("ratio pairs", "empty column name in %v", pair)
		}

		if slices.Contains(names, pair.IndicatorName()) {
			return sods.NewConfigError("ratio pairs", "duplicate pair %v", pair)
		}

		names = append(names, pair.IndicatorName())

		if missing := base.Missing(pair.Numerator, pair.Denominator); missing != nil {
			return sods.NewConfigError("ratio pair "+pair.String(), "columns %v not in base table", missing)
		}
	}

	var levels []string
	for _, lvl := range p.Levels {
		elem := "level " + lvl.Name
		if lvl.Name == "" {
			return sods.NewConfigError("levels", "level with no name")
		}

		if slices.Contains(levels, lvl.Name) {
			return sods.NewConfigError(elem, "duplicate level name")
		}

		levels = append(levels, lvl.Name)

		if lvl.MinPartition < 0 {
			return sods.NewConfigError(elem, "negative min_partition %d", lvl.MinPartition)
		}

		if missing := base.Missing(append(slices.Clone(lvl.GroupBy), lvl.PartitionBy...)...); missing != nil {
			return sods.NewConfigError(elem, "keys %v not in base table", missing)
		}

		if !lvl.Aggregated() {
			if lvl.MinPartition > 0 {
				return sods.NewConfigError(elem, "min_partition needs group_by")
			}

			if e := p.checkPairs(elem, base.Schema()); e != nil {
				return e
			}

			continue
		}

		// the aggregate has the GroupBy keys and the aggregated columns only
		for _, key := range lvl.PartitionBy {
			if !slices.Contains(lvl.GroupBy, key) {
				return sods.NewConfigError(elem, "partition key %s is not a group_by key", key)
			}
		}

		if _, ok := p.Aggregations[p.idColumn()]; !ok {
			return sods.NewConfigError("aggregations", "no aggregation for id column %s", p.idColumn())
		}

		for _, pair := range p.Pairs {
			for _, cn := range []string{pair.Numerator, pair.Denominator} {
				if _, ok := p.Aggregations[cn]; !ok {
					return sods.NewConfigError(elem, "ratio column %s has no aggregation", cn)
				}
			}
		}

		// the aggregate's columns, without aggregating
		fields, e := agg.Schema(base, lvl.GroupBy, p.Aggregations, agg.WithIDColumn(p.idColumn()))
		if e != nil {
			return fmt.Errorf("%s: %w", elem, e)
		}

		if e := p.checkPairs(elem, fields); e != nil {
			return e
		}
	}

	return nil
}

// checkPairs checks the pairs against the columns a level scores: both columns numeric and no
// indicator column already there.
func (p *Plan) checkPairs(elem string, fields []sods.Field) error {
	for _, pair := range p.Pairs {
		for _, cn := range []string{pair.Numerator, pair.Denominator} {
			ind := slices.IndexFunc(fields, func(f sods.Field) bool { return f.Name == cn })
			if ind < 0 {
				return sods.NewConfigError(elem, "ratio column %s not in level table", cn)
			}

			if !fields[ind].DT.IsNumeric() {
				return sods.NewConfigError(elem, "ratio column %s is %s, not numeric", cn, fields[ind].DT)
			}
		}

		if slices.ContainsFunc(fields, func(f sods.Field) bool { return f.Name == pair.IndicatorName() }) {
			return sods.NewConfigError(elem, "indicator %s already a column", pair.IndicatorName())
		}
	}

	return nil
}
