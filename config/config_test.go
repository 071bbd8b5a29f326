package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/invertedv/sods"
	"github.com/invertedv/sods/agg"
	"github.com/invertedv/sods/hierarchy"
	"github.com/invertedv/sods/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const full = `
source:
  kind: sqlite
  path: /data/census.db
  max_rows: 400000
  trade:
    vars: [PAYANN, CSTMTOT, RCPTOT, "(PAYANN + CSTMTOT) AS PAYANN_AND_CSTMTOT"]
    table: kitten_table
    refper: 2017U1
  notes:
    refper: "2017"
significance:
  path: ratio_output.xlsx
ratio_pairs:
  - PAYANN/RCPTOT
  - numerator: CSTMTOT
    denominator: RCPTOT
aggregations:
  - {column: ID, func: count}
  - {column: PAYANN, func: sum}
  - {column: CSTMTOT, func: sum}
  - {column: RCPTOT, func: sum}
levels:
  - name: State
    group_by: [FOUR_DIG_NAICS, STATE]
    partition_by: [FOUR_DIG_NAICS]
  - name: Estab_by_state
    partition_by: [FOUR_DIG_NAICS, STATE]
params:
  u: 0.5
output:
  path: out.xlsx
workers: 2
`

func write(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "sods.yaml")
	require.Nil(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestLoad(t *testing.T) {
	c, e := Load(write(t, full))
	require.Nil(t, e)

	assert.Equal(t, "sqlite", c.Source.Kind)
	assert.Equal(t, "/data/census.db", c.Source.Path)
	assert.Equal(t, "kitten_table", c.Source.Trade.Table)
	assert.Equal(t, "2017U1", c.Source.Trade.RefPer)
	assert.Len(t, c.Source.Trade.Vars, 4)
	assert.Equal(t, 400000, c.Source.Trade.MaxRows)
	assert.Equal(t, 400000, c.Source.Notes.MaxRows)
	assert.Equal(t, "2017", c.Source.Notes.RefPer)

	assert.Equal(t, []sods.RatioPair{sods.NewRatioPair("PAYANN", "RCPTOT"), sods.NewRatioPair("CSTMTOT", "RCPTOT")}, c.RatioPairs)
	assert.Equal(t, score.Params{U: 0.5, A: score.DefaultA, C: score.DefaultC}, c.Params)
	assert.Equal(t, "Significance", c.Significance.Column)
	assert.Equal(t, 1.0, c.Significance.Default)
	assert.Equal(t, "out.xlsx", c.Output.Path)
	assert.Equal(t, "xlsx", c.Output.Format)
	assert.Equal(t, 2, c.Workers)

	p := c.Plan()
	require.Len(t, p.Levels, 2)
	assert.Equal(t, hierarchy.Level{Name: "State", GroupBy: []string{"FOUR_DIG_NAICS", "STATE"},
		PartitionBy: []string{"FOUR_DIG_NAICS"}}, p.Levels[0])
	assert.Equal(t, "sum", p.Aggregations["PAYANN"])
	assert.Equal(t, "count", p.Aggregations["ID"])
	assert.Equal(t, "ID", p.IDColumn)
}

func TestLoad_Defaults(t *testing.T) {
	c, e := Load(write(t, "source:\n  path: trade.csv\nratio_pairs: [PAYANN/RCPTOT]\n"))
	require.Nil(t, e)

	assert.Equal(t, KindCSV, c.Source.Kind)
	assert.Equal(t, score.DefaultParams(), c.Params)
	assert.Equal(t, hierarchy.DefaultLevels(), c.Levels)
	assert.Equal(t, []Aggregation{{"ID", "count"}, {"PAYANN", "sum"}, {"RCPTOT", "sum"}}, c.Aggregations)
	assert.Equal(t, agg.Spec{"ID": "count", "PAYANN": "sum", "RCPTOT": "sum"}, c.Plan().Aggregations)
	assert.Equal(t, DefaultOutput, c.Output.Path)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, "info", c.Logging.Level)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SODS_PARAMS_C", "5")
	t.Setenv("SODS_SOURCE_PASSWORD", "secret")
	t.Setenv("SODS_OUTPUT_FORMAT", "csv")

	c, e := Load(write(t, full))
	require.Nil(t, e)

	assert.Equal(t, 5.0, c.Params.C)
	assert.Equal(t, "secret", c.Source.Password)
	assert.Equal(t, "csv", c.Output.Format)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"kind":       "source:\n  kind: oracle\n  path: x\nratio_pairs: [A/B]\n",
		"no file":    "ratio_pairs: [A/B]\n",
		"no query":   "source:\n  kind: postgres\nratio_pairs: [A/B]\n",
		"no pairs":   "source:\n  path: x.csv\n",
		"bad pair":   "source:\n  path: x.csv\nratio_pairs: [A-B]\n",
		"params":     "source:\n  path: x.csv\nratio_pairs: [A/B]\nparams:\n  u: 2\n",
		"format":     "source:\n  path: x.csv\nratio_pairs: [A/B]\noutput:\n  format: pdf\n",
		"workers":    "source:\n  path: x.csv\nratio_pairs: [A/B]\nworkers: 0\n",
		"log level":  "source:\n  path: x.csv\nratio_pairs: [A/B]\nlogging:\n  level: loud\n",
		"empty sum":  "source:\n  path: x.csv\nratio_pairs: [A/B]\nsums:\n  - name: AB\n",
		"bad yaml":   "source: [\n",
		"max rows":   "source:\n  path: x.csv\n  max_rows: -1\nratio_pairs: [A/B]\n",
		"twice":      "source:\n  path: x.csv\nratio_pairs: [A/B]\naggregations:\n  - {column: A, func: sum}\n  - {column: A, func: mean}\n",
	}

	for name, body := range cases {
		_, e := Load(write(t, body))
		require.NotNil(t, e, name)
		assert.True(t, errors.Is(e, sods.ErrConfig), name)
	}

	_, e := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.True(t, errors.Is(e, sods.ErrConfig))
}
