package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invertedv/sods"
	"github.com/invertedv/sods/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twelve states, two counties each, ten establishments per county; one payroll spike in state 01
func tradeCSV(t *testing.T, dir string) string {
	var b strings.Builder
	b.WriteString("ID,NAICNEW,STFIPS,STATE,ACTYFIPS,PAYANN,CSTMTOT,RCPTOT\n")
	for s := 1; s <= 12; s++ {
		for c := 1; c <= 2; c++ {
			for e := 0; e < 10; e++ {
				rcpt := 100 + e + c
				pay := 2 * rcpt
				if s == 1 && c == 1 && e == 0 {
					pay = 20 * rcpt
				}

				fmt.Fprintf(&b, "%02d%03d%02d,311111,%02d,S%02d,%03d,%d,%d,%d\n", s, c, e, s, s, c, pay, rcpt/2, rcpt)
			}
		}
	}

	path := filepath.Join(dir, "trade.csv")
	require.Nil(t, os.WriteFile(path, []byte(b.String()), 0o644))

	return path
}

func TestRun_CSV(t *testing.T) {
	dir := t.TempDir()
	data := tradeCSV(t, dir)
	out := filepath.Join(dir, "out")
	prom := filepath.Join(dir, "sods.prom")

	cfg := fmt.Sprintf(`
source:
  kind: csv
  path: %s
ratio_pairs: [PAYANN/RCPTOT, PAYANN_AND_CSTMTOT/RCPTOT]
sums:
  - name: PAYANN_AND_CSTMTOT
    columns: [PAYANN, CSTMTOT]
output:
  path: %s
  format: csv
metrics_file: %s
`, data, out, prom)

	cfgPath := filepath.Join(dir, "sods.yaml")
	require.Nil(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	rootCmd.SetArgs([]string{"run", "--config", cfgPath, "--no-progress", "--workers", "2", "--log-level", "warn"})
	require.Nil(t, rootCmd.ExecuteContext(context.Background()))

	for _, sheet := range []string{"State", "County", "Estab_by_county", "Estab_by_state"} {
		_, e := os.Stat(filepath.Join(out, sheet+".csv"))
		assert.Nil(t, e, sheet)
	}

	f, e := sods.NewFiles(sods.FileStrings("ID", "STFIPS"))
	require.Nil(t, e)

	tbl, e := f.LoadFile(filepath.Join(out, "Estab_by_state.csv"))
	require.Nil(t, e)
	assert.Equal(t, 240, tbl.RowCount())

	ind, e := tbl.Column("outlier_ind_PAYANN_RCPTOT")
	require.Nil(t, e)
	assert.Equal(t, 1.0, ind.AsFloat()[0])

	b, e := os.ReadFile(prom)
	require.Nil(t, e)
	assert.Contains(t, string(b), `sods_rows_scored_total{level="Estab_by_state",pair="PAYANN/RCPTOT"} 240`)
}

func TestScoreCmd(t *testing.T) {
	dir := t.TempDir()
	data := tradeCSV(t, dir)
	out := filepath.Join(dir, "scored.csv")

	rootCmd.SetArgs([]string{"score", "--input", data, "--pair", "PAYANN/RCPTOT", "--by", "FOUR_DIG_NAICS,STFIPS",
		"--output", out, "--log-level", "warn"})
	require.Nil(t, rootCmd.ExecuteContext(context.Background()))

	f, e := sods.NewFiles()
	require.Nil(t, e)

	tbl, e := f.LoadFile(out)
	require.Nil(t, e)

	ind, e := tbl.Column("outlier_ind_PAYANN_RCPTOT")
	require.Nil(t, e)

	flagged := 0
	for _, x := range ind.AsFloat() {
		flagged += int(x)
	}

	assert.Equal(t, 1, flagged)
	assert.Equal(t, 1.0, ind.AsFloat()[0])
}

func TestSetupLogging(t *testing.T) {
	assert.Nil(t, setupLogging("debug", "json"))
	assert.NotNil(t, setupLogging("loud", "json"))
	assert.NotNil(t, setupLogging("info", "xml"))
	assert.Nil(t, setupLogging("info", "console"))
}

func TestBindFlags(t *testing.T) {
	cmd := runCmd()
	require.Nil(t, cmd.Flags().Parse([]string{"--format", "csv", "--workers", "3"}))

	v := config.New()
	require.Nil(t, bindFlags(v, cmd.Flags()))

	assert.Equal(t, "csv", v.GetString("output.format"))
	assert.Equal(t, 3, v.GetInt("workers"))
	// unset flags leave the defaults
	assert.Equal(t, config.DefaultOutput, v.GetString("output.path"))
}
