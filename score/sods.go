// Package score flags outlying ratios within a group.
//
// The score follows "Outlier Detection for the Manufacturing, Mining, and Construction Sectors in
// the 2012 Economic Census" (Czaplicki and Thompson, JSM 2013). For a ratio r = num/den with
// group median m, the standardized ratio is
//
//	SR = r/m - 1 if r >= m, 1 - m/r otherwise
//
// and the effect-size standardized ratio weights SR by the size of the estimate
//
//	ESR = SR * max(num, den*m)^U
//
// Each is scaled by its one-sided quartile spread (floored at |A*median|). A row is an outlier
// when both scaled deviations exceed C.
package score

import (
	"math"

	"github.com/invertedv/sods"
)

// Result holds the per-row statistics of one group. Slices are indexed by row.
// Rows whose ratio is undefined have NaN statistics and indicator 0.
type Result struct {
	Ratio []float64
	SR    []float64
	ESR   []float64
	QSR   []float64
	QESR  []float64

	Indicator []int

	// Degenerate is true if the group had MinRows or fewer rows and was not scored.
	Degenerate bool
	// Valid is the number of rows with a defined ratio.
	Valid int

	Median float64

	SRq1, SRmed, SRq3    float64
	ESRq1, ESRmed, ESRq3 float64

	D1SR, D3SR   float64
	D1ESR, D3ESR float64
}

// Flagged is the number of rows with indicator 1.
func (r *Result) Flagged() int {
	n := 0
	for _, x := range r.Indicator {
		n += x
	}

	return n
}

// Compute scores one group. num and den must have the same length.
func Compute(num, den []float64, p Params) *Result {
	n := len(num)
	res := &Result{Indicator: make([]int, n)}

	if n <= MinRows {
		res.Degenerate = true
		return res
	}

	res.Ratio = nans(n)
	res.SR, res.ESR = nans(n), nans(n)
	res.QSR, res.QESR = nans(n), nans(n)

	for ind := 0; ind < n; ind++ {
		r := num[ind] / den[ind]
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}

		res.Ratio[ind] = r
		res.Valid++
	}

	if res.Valid == 0 {
		res.Median = math.NaN()
		return res
	}

	m := sods.Median(res.Ratio)
	res.Median = m

	for ind, r := range res.Ratio {
		if math.IsNaN(r) {
			continue
		}

		sr := 1 - m/r
		if r >= m {
			sr = r/m - 1
		}

		s := math.Pow(math.Max(num[ind], den[ind]*m), p.U)

		res.SR[ind] = sr
		res.ESR[ind] = sr * s
	}

	res.SRq1, res.SRmed, res.SRq3 = quartiles(res.SR)
	res.ESRq1, res.ESRmed, res.ESRq3 = quartiles(res.ESR)

	// the lower ESR spread is floored by the SR median, the upper by the ESR median
	res.D1SR = math.Max(res.SRmed-res.SRq1, math.Abs(p.A*res.SRmed))
	res.D3SR = math.Max(res.SRq3-res.SRmed, math.Abs(p.A*res.SRmed))
	res.D1ESR = math.Max(res.ESRmed-res.ESRq1, math.Abs(p.A*res.SRmed))
	res.D3ESR = math.Max(res.ESRq3-res.ESRmed, math.Abs(p.A*res.ESRmed))

	for ind := 0; ind < n; ind++ {
		if math.IsNaN(res.Ratio[ind]) {
			continue
		}

		res.QSR[ind] = deviation(res.SR[ind], res.SRmed, res.D1SR, res.D3SR)
		res.QESR[ind] = deviation(res.ESR[ind], res.ESRmed, res.D1ESR, res.D3ESR)

		// NaN compares false, so undefined deviations are never flagged
		if math.Abs(res.QESR[ind]) > p.C && math.Abs(res.QSR[ind]) > p.C {
			res.Indicator[ind] = 1
		}
	}

	return res
}

// deviation is the one-sided standardized distance of x from med.
func deviation(x, med, d1, d3 float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return math.NaN()
	}

	if x > med {
		return (x - med) / d3
	}

	return (med - x) / d1
}

func nans(n int) []float64 {
	x := make([]float64, n)
	for ind := range x {
		x[ind] = math.NaN()
	}

	return x
}

func quartiles(x []float64) (q1, median, q3 float64) {
	sorted := sods.FiniteSorted(x)
	return sods.Percentile(sorted, 0.25), sods.Percentile(sorted, 0.5), sods.Percentile(sorted, 0.75)
}
