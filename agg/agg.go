// Package agg collapses a table to one row per group.
package agg

import (
	"fmt"
	"math"
	"slices"

	"github.com/invertedv/sods"
)

// MinGroupSize is the smallest group kept by Aggregate.
const MinGroupSize = 10

// defaults for Options
const (
	IDColumn   = "ID"
	SizeColumn = "ID_GROUP_CNT"
)

// Spec maps a column name to the name of its aggregation, e.g. {"ID": "count", "PAYANN": "sum"}.
type Spec map[string]string

type Options struct {
	idCol   string
	sizeCol string
	minSize int
}

type Opt func(o *Options) error

// WithIDColumn sets the row identifier column. Its aggregate is the group size.
func WithIDColumn(name string) Opt {
	return func(o *Options) error {
		if name == "" {
			return fmt.Errorf("empty id column name")
		}

		o.idCol = name
		return nil
	}
}

// WithSizeColumn sets the name the id aggregate is given in the output.
func WithSizeColumn(name string) Opt {
	return func(o *Options) error {
		if name == "" {
			return fmt.Errorf("empty size column name")
		}

		o.sizeCol = name
		return nil
	}
}

// WithMinSize overrides MinGroupSize.
func WithMinSize(n int) Opt {
	return func(o *Options) error {
		if n < 0 {
			return fmt.Errorf("negative minimum group size %d", n)
		}

		o.minSize = n
		return nil
	}
}

// Aggregate groups t by keys and applies to each column named in spec its aggregation. The output
// has the key columns first, then the aggregates in t's column order, with the id aggregate renamed
// to the size column. Groups are in order of first appearance. Groups with a missing key value and
// groups smaller than the minimum size are dropped.
func Aggregate(t *sods.Table, keys []string, spec Spec, opts ...Opt) (*sods.Table, error) {
	var (
		o    *Options
		plan []planned
		e    error
	)
	if o, e = options(opts); e != nil {
		return nil, e
	}

	if plan, e = check(t, keys, spec, o); e != nil {
		return nil, e
	}

	var parts []*sods.Partition
	if parts, e = t.Partition(keys...); e != nil {
		return nil, sods.NewConfigError("aggregate keys", "%v", e)
	}

	keyCols := make([]*sods.Col, len(keys))
	for ind, key := range keys {
		keyCols[ind], _ = t.Column(key)
	}

	cols := make([]*column, len(plan))
	for ind, p := range plan {
		cols[ind] = newColumn(p.col.Vector)
	}

	idInd := slices.IndexFunc(plan, func(p planned) bool { return p.col.Name() == o.idCol })

	var keep []*sods.Partition
	for _, part := range parts {
		if slices.ContainsFunc(keyCols, func(c *sods.Col) bool { return c.IsMissing(part.Rows[0]) }) {
			continue
		}

		if groupSize(plan[idInd].fn.apply(cols[idInd], part.Rows)) < float64(o.minSize) {
			continue
		}

		keep = append(keep, part)
	}

	first := make([]int, len(keep))
	for g, part := range keep {
		first[g] = part.Rows[0]
	}

	var out []*sods.Col
	for _, kc := range keyCols {
		var col *sods.Col
		if col, e = sods.NewCol(kc.Subset(first), sods.ColName(kc.Name())); e != nil {
			return nil, e
		}

		out = append(out, col)
	}

	for ind, p := range plan {
		vals := make([]any, len(keep))
		for g, part := range keep {
			vals[g] = p.fn.apply(cols[ind], part.Rows)
		}

		var col *sods.Col
		if col, e = makeCol(p.name(o), p.dt, vals); e != nil {
			return nil, e
		}

		out = append(out, col)
	}

	return sods.NewTable(out...)
}

// Schema is the schema Aggregate returns for t, keys and spec. It reports the configuration errors
// Aggregate would without aggregating.
func Schema(t *sods.Table, keys []string, spec Spec, opts ...Opt) ([]sods.Field, error) {
	var (
		o    *Options
		plan []planned
		e    error
	)
	if o, e = options(opts); e != nil {
		return nil, e
	}

	if plan, e = check(t, keys, spec, o); e != nil {
		return nil, e
	}

	var fields []sods.Field
	for _, key := range keys {
		col, _ := t.Column(key)
		fields = append(fields, sods.Field{Name: key, DT: col.DataType()})
	}

	for _, p := range plan {
		fields = append(fields, sods.Field{Name: p.name(o), DT: p.dt})
	}

	return fields, nil
}

func options(opts []Opt) (*Options, error) {
	o := &Options{idCol: IDColumn, sizeCol: SizeColumn, minSize: MinGroupSize}
	for _, opt := range opts {
		if e := opt(o); e != nil {
			return nil, sods.NewConfigError("aggregate", "%v", e)
		}
	}

	return o, nil
}

// FilterGroups returns the rows of t whose partition over keys has at least minRows rows.
// Row order is that of t.
func FilterGroups(t *sods.Table, keys []string, minRows int) (*sods.Table, error) {
	if missing := t.Missing(keys...); missing != nil {
		return nil, sods.NewConfigError("filter keys", "columns %v not in table", missing)
	}

	var (
		parts []*sods.Partition
		e     error
	)
	if parts, e = t.Partition(keys...); e != nil {
		return nil, e
	}

	var rows []int
	for _, part := range parts {
		if part.Size() >= minRows {
			rows = append(rows, part.Rows...)
		}
	}

	slices.Sort(rows)

	return t.Subset(rows)
}

type planned struct {
	col *sods.Col
	fn  *Func
	dt  sods.DataTypes
}

// name of the output column
func (p planned) name(o *Options) string {
	if p.col.Name() == o.idCol {
		return o.sizeCol
	}

	return p.col.Name()
}

func check(t *sods.Table, keys []string, spec Spec, o *Options) ([]planned, error) {
	if len(keys) == 0 {
		return nil, sods.NewConfigError("aggregate keys", "no group keys")
	}

	if missing := t.Missing(keys...); missing != nil {
		return nil, sods.NewConfigError("aggregate keys", "columns %v not in table", missing)
	}

	if _, ok := spec[o.idCol]; !ok {
		return nil, sods.NewConfigError("aggregations", "no aggregation for id column %s", o.idCol)
	}

	for cn := range spec {
		if slices.Contains(keys, cn) {
			return nil, sods.NewConfigError("aggregations", "column %s is a group key", cn)
		}
	}

	if missing := t.Missing(specColumns(spec)...); missing != nil {
		return nil, sods.NewConfigError("aggregations", "columns %v not in table", missing)
	}

	if o.sizeCol != o.idCol && (slices.Contains(keys, o.sizeCol) || spec[o.sizeCol] != "") {
		return nil, sods.NewConfigError("aggregations", "size column %s collides with an output column", o.sizeCol)
	}

	var plan []planned
	// iterate by name: t is read concurrently and Next mutates it
	for _, cn := range t.ColumnNames() {
		fnName, ok := spec[cn]
		if !ok {
			continue
		}

		col, _ := t.Column(cn)

		fn, ok := lookup(fnName)
		if !ok {
			return nil, sods.NewConfigError("aggregations", "unknown aggregation %s for column %s", fnName, col.Name())
		}

		dt, ok := fn.out(col.DataType())
		if !ok {
			return nil, sods.NewConfigError("aggregations", "%s does not apply to %s column %s", fnName, col.DataType(), col.Name())
		}

		if col.Name() == o.idCol && !dt.IsNumeric() {
			return nil, sods.NewConfigError("aggregations", "%s of id column %s is not a count", fnName, col.Name())
		}

		plan = append(plan, planned{col: col, fn: fn, dt: dt})
	}

	return plan, nil
}

func specColumns(spec Spec) []string {
	var names []string
	for cn := range spec {
		names = append(names, cn)
	}

	slices.Sort(names)

	return names
}

func groupSize(x any) float64 {
	switch v := x.(type) {
	case int:
		return float64(v)
	case float64:
		if math.IsNaN(v) {
			return 0
		}

		return v
	}

	return 0
}

func makeCol(name string, dt sods.DataTypes, x []any) (*sods.Col, error) {
	var data any
	switch dt {
	case sods.DTfloat:
		f := make([]float64, len(x))
		for ind, xv := range x {
			switch v := xv.(type) {
			case float64:
				f[ind] = v
			case int:
				f[ind] = float64(v)
			}
		}

		data = f
	case sods.DTint:
		n := make([]int, len(x))
		for ind, xv := range x {
			n[ind] = xv.(int)
		}

		data = n
	default:
		s := make([]string, len(x))
		for ind, xv := range x {
			s[ind] = xv.(string)
		}

		data = s
	}

	return sods.NewCol(data, sods.ColName(name))
}
