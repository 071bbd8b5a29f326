package score

import (
	"slices"

	"github.com/invertedv/sods"
)

// Pass summarizes the scoring of one ratio pair over the partitions of a table.
type Pass struct {
	Pair      sods.RatioPair
	Indicator *sods.Col

	Partitions int
	Degenerate int
	// MissingKey counts partitions not scored because a key value is missing.
	MissingKey int
	Rows       int
	Flagged    int
}

// Score scores t as a single group and returns a new table: t's columns plus the indicator
// column for pair. t is not modified.
func Score(t *sods.Table, pair sods.RatioPair, p Params) (*sods.Table, error) {
	return ScoreBy(t, nil, pair, p)
}

// ScoreBy scores each partition of t defined by keys independently and returns t's columns plus
// the merged indicator column. Row order is that of t.
func ScoreBy(t *sods.Table, keys []string, pair sods.RatioPair, p Params) (*sods.Table, error) {
	var (
		pass *Pass
		e    error
	)
	if pass, e = Indicators(t, keys, pair, p); e != nil {
		return nil, e
	}

	out := t.Copy()
	if ex := out.AppendColumn(pass.Indicator); ex != nil {
		return nil, ex
	}

	return out, nil
}

// Indicators computes the indicator column for pair over the partitions of t without attaching it.
// Rows whose key has a missing value are not anyone's peers: their partition is not scored and
// they get 0, as Aggregate drops such groups.
func Indicators(t *sods.Table, keys []string, pair sods.RatioPair, p Params) (*Pass, error) {
	if e := p.Validate(); e != nil {
		return nil, e
	}

	if e := Check(t, keys, pair); e != nil {
		return nil, e
	}

	var (
		parts []*sods.Partition
		e     error
	)
	if parts, e = t.Partition(keys...); e != nil {
		return nil, sods.NewConfigError("partition", "%v", e)
	}

	numCol, _ := t.Column(pair.Numerator)
	denCol, _ := t.Column(pair.Denominator)
	num, den := numCol.AsFloat(), denCol.AsFloat()

	pass := &Pass{Pair: pair, Partitions: len(parts), Rows: t.RowCount()}
	ind := make([]int, t.RowCount())
	for _, part := range parts {
		if slices.Contains(part.Key, "") {
			pass.MissingKey++
			continue
		}

		res := Compute(gather(num, part.Rows), gather(den, part.Rows), p)
		if res.Degenerate {
			pass.Degenerate++
			continue
		}

		for j, row := range part.Rows {
			ind[row] = res.Indicator[j]
		}

		pass.Flagged += res.Flagged()
	}

	var col *sods.Col
	if col, e = sods.NewCol(ind, sods.ColName(pair.IndicatorName())); e != nil {
		return nil, e
	}

	pass.Indicator = col

	return pass, nil
}

// Check verifies that t can be scored for pair within keys.
func Check(t *sods.Table, keys []string, pair sods.RatioPair) error {
	if pair.Numerator == "" || pair.Denominator == "" {
		return sods.NewConfigError("ratio pair", "empty column name in %v", pair)
	}

	for _, cn := range []string{pair.Numerator, pair.Denominator} {
		col, e := t.Column(cn)
		if e != nil {
			return sods.NewConfigError("ratio pair "+pair.String(), "column %s not in table", cn)
		}

		if !col.DataType().IsNumeric() {
			return sods.NewConfigError("ratio pair "+pair.String(), "column %s is %s, not numeric", cn, col.DataType())
		}
	}

	if missing := t.Missing(keys...); missing != nil {
		return sods.NewConfigError("partition keys", "columns %v not in table", missing)
	}

	if t.Missing(pair.IndicatorName()) == nil {
		return sods.NewConfigError("ratio pair "+pair.String(), "indicator %s already present", pair.IndicatorName())
	}

	return nil
}

func gather(x []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for ind, row := range rows {
		out[ind] = x[row]
	}

	return out
}
