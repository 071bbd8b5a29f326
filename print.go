package sods

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Describe summarizes a column: order statistics and mean for numeric columns, distinct-value
// counts for strings. Missing values are counted separately and excluded from the statistics.
func Describe(c *Col) string {
	if !c.DataType().IsNumeric() {
		counts := make(map[string]int)
		var levels []string
		for _, s := range c.AsString() {
			if _, ok := counts[s]; !ok {
				levels = append(levels, s)
			}
			counts[s]++
		}

		slices.Sort(levels)
		n := make([]int, len(levels))
		for ind, l := range levels {
			n[ind] = counts[l]
		}

		return prettyPrint([]string{c.Name(), "count"}, levels, n)
	}

	var x []float64
	for _, xv := range c.AsFloat() {
		if !math.IsNaN(xv) {
			x = append(x, xv)
		}
	}

	missing := float64(c.Len() - len(x))
	cats := []string{"min", "lq", "median", "mean", "uq", "max", "n", "missing"}
	if len(x) == 0 {
		nan := math.NaN()
		return prettyPrint([]string{"metric", "value"}, cats, []float64{nan, nan, nan, nan, nan, nan, 0, missing})
	}

	slices.Sort(x)
	vals := []float64{
		x[0],
		stat.Quantile(0.25, stat.Empirical, x, nil),
		stat.Quantile(0.5, stat.Empirical, x, nil),
		stat.Mean(x, nil),
		stat.Quantile(0.75, stat.Empirical, x, nil),
		x[len(x)-1],
		float64(len(x)),
		missing,
	}

	return prettyPrint([]string{"metric", "value"}, cats, vals)
}

func prettyPrint(header []string, cols ...any) string {
	var colsS [][]string

	for ind := 0; ind < len(cols); ind++ {
		colsS = append(colsS, stringSlice(header[ind], cols[ind]))
	}

	if len(colsS) == 0 {
		return ""
	}

	out := ""
	for row := 0; row < len(colsS[0]); row++ {
		for c := 0; c < len(colsS); c++ {
			out += colsS[c][row]
		}
		out += "\n"
	}

	return out
}

func stringSlice(header string, inVal any) []string {
	const pad = 3
	c := []string{header}

	var (
		els     []string
		numeric bool
	)
	switch x := inVal.(type) {
	case []float64:
		format := selectFormat(x)
		for _, xv := range x {
			els = append(els, fmt.Sprintf(format, xv))
		}
		numeric = true
	case []int:
		for _, xv := range x {
			els = append(els, strconv.Itoa(xv))
		}
		numeric = true
	case []string:
		els = x
	default:
		panic(fmt.Errorf("unsupported data type"))
	}

	c = append(c, els...)

	maxLen := 0
	for _, el := range c {
		maxLen = max(maxLen, len(el))
	}

	for ind, cx := range c {
		padded := cx + strings.Repeat(" ", maxLen-len(cx)+pad)
		if numeric {
			padded = strings.Repeat(" ", maxLen-len(cx)+pad) + cx
		}
		c[ind] = padded
	}

	return c
}

func selectFormat(x []float64) string {
	var minX, maxX float64
	first := true
	for _, xv := range x {
		if math.IsNaN(xv) || math.IsInf(xv, 0) {
			continue
		}

		xva := math.Abs(xv)
		if first {
			minX, maxX, first = xva, xva, false
		}

		minX = min(minX, xva)
		maxX = max(maxX, xva)
	}

	l := math.Log10(maxX - minX)
	var dp int
	switch {
	case math.IsInf(l, -1) || math.IsNaN(l):
		dp = 2
	case l < -1:
		dp = int(math.Abs(l)+0.5) + 1
	case l > 1:
		dp = 0
	default:
		dp = 1
	}

	return "%." + strconv.Itoa(dp) + "f"
}
