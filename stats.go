package sods

import (
	"math"
	"slices"
)

// FiniteSorted returns the finite elements of x, sorted. x is not modified.
func FiniteSorted(x []float64) []float64 {
	var out []float64
	for _, xv := range x {
		if !math.IsNaN(xv) && !math.IsInf(xv, 0) {
			out = append(out, xv)
		}
	}

	slices.Sort(out)

	return out
}

// Percentile is the p-th quantile of sorted, interpolating linearly between the order statistics
// either side of (n-1)p. NaN if sorted is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}

	h := float64(n-1) * p
	lo := math.Floor(h)
	ind := int(lo)
	if ind >= n-1 {
		return sorted[n-1]
	}

	return sorted[ind] + (h-lo)*(sorted[ind+1]-sorted[ind])
}

// Median of the finite elements of x.
func Median(x []float64) float64 {
	return Percentile(FiniteSorted(x), 0.5)
}
