package agg

import (
	"math"
	"slices"
	"sort"

	"github.com/invertedv/sods"
	"gonum.org/v1/gonum/stat"
)

// Func is an aggregation over the rows of one group.
type Func struct {
	Name string

	// out is the output type for an input of type dt; false if the aggregation doesn't apply to dt.
	out   func(dt sods.DataTypes) (sods.DataTypes, bool)
	apply func(c *column, rows []int) any
}

// column is an aggregated column. x holds its values as floats, converted once, and is nil for
// strings.
type column struct {
	*sods.Vector

	x []float64
}

func newColumn(v *sods.Vector) *column {
	c := &column{Vector: v}
	if v.VectorType().IsNumeric() {
		c.x = v.AsFloat()
	}

	return c
}

var funcs = map[string]*Func{}

func init() {
	for _, fn := range []*Func{
		{Name: "count", out: always(sods.DTint), apply: count},
		{Name: "size", out: always(sods.DTint), apply: size},
		{Name: "nunique", out: always(sods.DTint), apply: nunique},
		{Name: "first", out: same, apply: first},
		{Name: "sum", out: numeric, apply: floats(sum)},
		{Name: "mean", out: numeric, apply: floats(mean)},
		{Name: "median", out: numeric, apply: floats(sods.Median)},
		{Name: "var", out: numeric, apply: floats(variance)},
		{Name: "sdev", out: numeric, apply: floats(sdev)},
		{Name: "min", out: ordered, apply: extreme(-1)},
		{Name: "max", out: ordered, apply: extreme(1)},
	} {
		funcs[fn.Name] = fn
	}
}

// Funcs returns the names of the available aggregations, sorted.
func Funcs() []string {
	var names []string
	for nm := range funcs {
		names = append(names, nm)
	}

	sort.Strings(names)

	return names
}

func lookup(name string) (*Func, bool) {
	fn, ok := funcs[name]
	return fn, ok
}

func always(dt sods.DataTypes) func(sods.DataTypes) (sods.DataTypes, bool) {
	return func(sods.DataTypes) (sods.DataTypes, bool) { return dt, true }
}

func same(dt sods.DataTypes) (sods.DataTypes, bool) {
	return dt, true
}

func numeric(dt sods.DataTypes) (sods.DataTypes, bool) {
	return sods.DTfloat, dt.IsNumeric()
}

func ordered(dt sods.DataTypes) (sods.DataTypes, bool) {
	if dt == sods.DTstring {
		return dt, true
	}

	return sods.DTfloat, dt.IsNumeric()
}

func count(v *column, rows []int) any {
	n := 0
	for _, row := range rows {
		if !v.IsMissing(row) {
			n++
		}
	}

	return n
}

func size(_ *column, rows []int) any {
	return len(rows)
}

func nunique(v *column, rows []int) any {
	seen := make(map[string]bool)
	for _, row := range rows {
		if !v.IsMissing(row) {
			seen[v.ElementString(row)] = true
		}
	}

	return len(seen)
}

func first(v *column, rows []int) any {
	return v.Element(rows[0])
}

// floats applies fn to the non-missing values of the group.
func floats(fn func(x []float64) float64) func(c *column, rows []int) any {
	return func(c *column, rows []int) any {
		var x []float64
		for _, row := range rows {
			if !math.IsNaN(c.x[row]) {
				x = append(x, c.x[row])
			}
		}

		return fn(x)
	}
}

// sum of no values is missing, not 0
func sum(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	s := 0.0
	for _, xv := range x {
		s += xv
	}

	return s
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	return stat.Mean(x, nil)
}

func variance(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}

	return stat.Variance(x, nil)
}

func sdev(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}

	return stat.StdDev(x, nil)
}

// extreme is min (dir < 0) or max (dir > 0) of the non-missing values.
func extreme(dir int) func(v *column, rows []int) any {
	return func(v *column, rows []int) any {
		if v.VectorType() == sods.DTstring {
			s := v.AsString()
			var keep []string
			for _, row := range rows {
				if s[row] != "" {
					keep = append(keep, s[row])
				}
			}

			switch {
			case keep == nil:
				return ""
			case dir < 0:
				return slices.Min(keep)
			default:
				return slices.Max(keep)
			}
		}

		return floats(func(x []float64) float64 {
			switch {
			case x == nil:
				return math.NaN()
			case dir < 0:
				return slices.Min(x)
			default:
				return slices.Max(x)
			}
		})(v, rows)
	}
}
