package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/invertedv/sods"
	"github.com/invertedv/sods/agg"
	"github.com/invertedv/sods/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	payPair  = sods.NewRatioPair("PAYANN", "RCPTOT")
	costPair = sods.NewRatioPair("CSTMTOT", "RCPTOT")
)

// twelve states of ten establishments per county. State 01 has 11 counties, the rest 2.
// One establishment in county 01005 has a payroll ratio of 20, everyone else 2.
func base(t *testing.T) *sods.Table {
	var (
		id, naics, state, county []string
		pay, rcpt, cost          []float64
	)

	for s := 0; s < 12; s++ {
		counties := 2
		if s == 0 {
			counties = 11
		}

		for c := 0; c < counties; c++ {
			for e := 0; e < 10; e++ {
				st := fmt.Sprintf("%02d", s+1)
				id = append(id, fmt.Sprintf("%s%03d%02d", st, c, e))
				naics = append(naics, "3111")
				state = append(state, st)
				county = append(county, fmt.Sprintf("%s%03d", st, c))

				r := float64(100 + e + c)
				ratio := 2.0
				if s == 0 && c == 5 && e == 0 {
					ratio = 20.0
				}

				rcpt = append(rcpt, r)
				pay = append(pay, ratio*r)
				cost = append(cost, r)
			}
		}
	}

	var cols []*sods.Col
	for _, c := range []struct {
		name string
		data any
	}{
		{"ID", id}, {"FOUR_DIG_NAICS", naics}, {"STATE", state}, {"COUNTY_CODE", county},
		{"PAYANN", pay}, {"RCPTOT", rcpt}, {"CSTMTOT", cost},
	} {
		col, e := sods.NewCol(c.data, sods.ColName(c.name))
		require.Nil(t, e)
		cols = append(cols, col)
	}

	tbl, e := sods.NewTable(cols...)
	require.Nil(t, e)

	return tbl
}

func plan() *Plan {
	return &Plan{
		Levels:       DefaultLevels(),
		Pairs:        []sods.RatioPair{payPair, costPair},
		Aggregations: agg.Spec{"ID": "count", "PAYANN": "sum", "RCPTOT": "sum", "CSTMTOT": "sum"},
		Params:       score.DefaultParams(),
	}
}

type recorder struct {
	mu     sync.Mutex
	passes map[string]int
}

func (r *recorder) Observe(level string, pass *score.Pass) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.passes[level+" "+pass.Pair.String()] = pass.Flagged
}

func flags(t *testing.T, tbl *sods.Table, pair sods.RatioPair) []int {
	col, e := tbl.Column(pair.IndicatorName())
	require.Nil(t, e)

	ind, e := col.AsInt()
	require.Nil(t, e)

	return ind
}

func total(x []int) int {
	n := 0
	for _, xv := range x {
		n += xv
	}

	return n
}

func TestRun(t *testing.T) {
	b := base(t)
	rec := &recorder{passes: map[string]int{}}

	res, e := Run(context.Background(), b, plan(), WithObserver(rec))
	require.Nil(t, e)

	sheets := res.Sheets()
	require.Len(t, sheets, 4)
	assert.Equal(t, []string{"State", "County", "Estab_by_county", "Estab_by_state"},
		[]string{sheets[0].Name, sheets[1].Name, sheets[2].Name, sheets[3].Name})

	// every pair on every level
	for _, sh := range sheets {
		assert.Empty(t, sh.Table.Missing(payPair.IndicatorName(), costPair.IndicatorName()), sh.Name)
		assert.Equal(t, 0, total(flags(t, sh.Table, costPair)), sh.Name)
	}

	state, _ := res.Table("State")
	assert.Equal(t, 12, state.RowCount())
	assert.Equal(t, []string{"FOUR_DIG_NAICS", "STATE", "ID_GROUP_CNT", "PAYANN", "RCPTOT", "CSTMTOT",
		payPair.IndicatorName(), costPair.IndicatorName()}, state.ColumnNames())
	assert.Equal(t, 1, flags(t, state, payPair)[0])
	assert.Equal(t, 1, total(flags(t, state, payPair)))

	// only state 01 has ten counties
	county, _ := res.Table("County")
	assert.Equal(t, 11, county.RowCount())
	assert.Equal(t, 1, flags(t, county, payPair)[5])
	assert.Equal(t, 1, total(flags(t, county, payPair)))

	// ten establishments per county is too few to score
	byCounty, _ := res.Table("Estab_by_county")
	assert.Equal(t, b.RowCount(), byCounty.RowCount())
	assert.Equal(t, 0, total(flags(t, byCounty, payPair)))

	byState, _ := res.Table("Estab_by_state")
	assert.Equal(t, 1, flags(t, byState, payPair)[50])
	assert.Equal(t, 1, total(flags(t, byState, payPair)))

	assert.Equal(t, 3, res.Flagged())
	assert.Len(t, rec.passes, 8)
	assert.Equal(t, 1, rec.passes["County PAYANN/RCPTOT"])

	// base untouched
	assert.Equal(t, []string{"ID", "FOUR_DIG_NAICS", "STATE", "COUNTY_CODE", "PAYANN", "RCPTOT", "CSTMTOT"}, b.ColumnNames())

	_, e = res.Table("Nation")
	assert.NotNil(t, e)
}

func TestRun_Workers(t *testing.T) {
	b := base(t)

	seq, e := Run(context.Background(), b, plan())
	require.Nil(t, e)

	par, e := Run(context.Background(), b, plan(), WithWorkers(4))
	require.Nil(t, e)

	for ind, lr := range seq.Levels {
		assert.Equal(t, lr.Level.Name, par.Levels[ind].Level.Name)
		assert.Equal(t, lr.Table.ColumnNames(), par.Levels[ind].Table.ColumnNames())
		for _, pair := range []sods.RatioPair{payPair, costPair} {
			assert.Equal(t, flags(t, lr.Table, pair), flags(t, par.Levels[ind].Table, pair))
		}
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, e := Run(ctx, base(t), plan())
	assert.True(t, errors.Is(e, context.Canceled))
}

func TestPlan_Validate(t *testing.T) {
	b := base(t)

	cases := map[string]func(p *Plan){
		"no levels":      func(p *Plan) { p.Levels = nil },
		"no pairs":       func(p *Plan) { p.Pairs = nil },
		"bad params":     func(p *Plan) { p.Params.C = 0 },
		"duplicate pair": func(p *Plan) { p.Pairs = append(p.Pairs, payPair) },
		"empty pair":     func(p *Plan) { p.Pairs = append(p.Pairs, sods.RatioPair{Numerator: "PAYANN"}) },
		"missing pair":   func(p *Plan) { p.Pairs = append(p.Pairs, sods.NewRatioPair("EMP", "RCPTOT")) },
		"duplicate name": func(p *Plan) { p.Levels[1].Name = "State" },
		"unnamed level":  func(p *Plan) { p.Levels[0].Name = "" },
		"missing key":    func(p *Plan) { p.Levels[2].PartitionBy = []string{"NAICS", County} },
		"partition key":  func(p *Plan) { p.Levels[0].PartitionBy = []string{County} },
		"min partition":  func(p *Plan) { p.Levels[3].MinPartition = 10 },
		"no id":          func(p *Plan) { delete(p.Aggregations, "ID") },
		"unaggregated":   func(p *Plan) { delete(p.Aggregations, "CSTMTOT") },
		"unknown func":   func(p *Plan) { p.Aggregations["PAYANN"] = "bogus" },
		"string pair": func(p *Plan) {
			p.Levels = p.Levels[2:]
			p.Pairs = append(p.Pairs, sods.NewRatioPair(State, "RCPTOT"))
		},
		"string aggregate": func(p *Plan) {
			p.Levels = p.Levels[:1]
			p.Pairs = append(p.Pairs, sods.NewRatioPair(County, "RCPTOT"))
			p.Aggregations[County] = "max"
		},
	}

	for name, modify := range cases {
		p := plan()
		modify(p)

		e := p.Validate(b)
		require.NotNil(t, e, name)
		assert.True(t, errors.Is(e, sods.ErrConfig), name)

		_, e = Run(context.Background(), b, p)
		assert.True(t, errors.Is(e, sods.ErrConfig), name)
	}

	assert.Nil(t, plan().Validate(b))

	// an indicator already in the base table
	clash, e := sods.NewCol(make([]int, b.RowCount()), sods.ColName(payPair.IndicatorName()))
	require.Nil(t, e)
	scored := b.Copy()
	require.Nil(t, scored.AppendColumn(clash))
	p := plan()
	p.Levels = p.Levels[2:]
	assert.True(t, errors.Is(p.Validate(scored), sods.ErrConfig))

	// establishment levels need no aggregations
	p = plan()
	p.Levels = p.Levels[2:]
	p.Aggregations = nil
	assert.Nil(t, p.Validate(b))
}

func TestRun_NothingScoredOnBadPlan(t *testing.T) {
	rec := &recorder{passes: map[string]int{}}

	p := plan()
	p.Levels = []Level{DefaultLevels()[3], DefaultLevels()[0]}
	p.Aggregations["PAYANN"] = "bogus"

	_, e := Run(context.Background(), base(t), p, WithObserver(rec))
	assert.True(t, errors.Is(e, sods.ErrConfig))
	assert.Empty(t, rec.passes)
}
