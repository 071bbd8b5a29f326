package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/invertedv/sods"
	"github.com/invertedv/sods/score"
	"github.com/invertedv/sods/source"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score ratio pairs of a CSV file without aggregating",
		Long: `Score one or more ratio pairs of a CSV file within partitions and write the file back
with an outlier indicator column per pair.

Examples:
  sods score --input trade.csv --pair PAYANN/RCPTOT --by FOUR_DIG_NAICS,STATE
  sods score --input trade.csv --pair PAYANN/RCPTOT --pair CSTMTOT/RCPTOT -c 5 --output scored.csv`,
		RunE: runScore,
	}

	cmd.Flags().String("input", "", "input CSV file")
	cmd.Flags().StringSlice("pair", nil, "ratio pair numerator/denominator (repeatable)")
	cmd.Flags().StringSlice("by", nil, "partition columns")
	cmd.Flags().String("output", "-", "output CSV file, - for stdout")
	cmd.Flags().Float64P("u", "u", score.DefaultU, "magnitude weight in [0,1]")
	cmd.Flags().Float64P("a", "a", score.DefaultA, "spread floor multiplier")
	cmd.Flags().Float64P("c", "c", score.DefaultC, "outlier threshold")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("pair")

	return cmd
}

func runScore(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	pairs, _ := cmd.Flags().GetStringSlice("pair")
	by, _ := cmd.Flags().GetStringSlice("by")

	var p score.Params
	p.U, _ = cmd.Flags().GetFloat64("u")
	p.A, _ = cmd.Flags().GetFloat64("a")
	p.C, _ = cmd.Flags().GetFloat64("c")

	var (
		t *sods.Table
		e error
	)
	if t, e = source.NewCSV(input).Fetch(cmd.Context(), source.Query{Strings: source.KeyColumns}); e != nil {
		return e
	}

	if t, e = source.DeriveKeys(t); e != nil {
		return e
	}

	for _, ps := range pairs {
		var pair sods.RatioPair
		if pair, e = sods.ParseRatioPair(ps); e != nil {
			return e
		}

		var pass *score.Pass
		if pass, e = score.Indicators(t, by, pair, p); e != nil {
			return e
		}

		if ex := t.AppendColumn(pass.Indicator); ex != nil {
			return ex
		}

		slog.Info("scored", slog.String("pair", pair.String()), slog.Int("partitions", pass.Partitions),
			slog.Int("degenerate", pass.Degenerate), slog.Int("missing_key", pass.MissingKey),
			slog.Int("flagged", pass.Flagged))
	}

	var f *sods.Files
	if f, e = sods.NewFiles(); e != nil {
		return e
	}

	if output == "-" {
		return f.Save(os.Stdout, t)
	}

	return f.SaveFile(output, t)
}
