package score

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/invertedv/sods"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// group of n rows with ratio 2.0 except row out which has ratio outRatio
func spike(n, out int, outRatio float64) (num, den []float64) {
	num, den = make([]float64, n), make([]float64, n)
	for ind := 0; ind < n; ind++ {
		den[ind] = float64(100 + 10*ind)
		num[ind] = 2.0 * den[ind]
	}

	num[out] = outRatio * den[out]

	return num, den
}

func mixed(n int) (num, den []float64) {
	num, den = make([]float64, n), make([]float64, n)
	for ind := 0; ind < n; ind++ {
		den[ind] = float64(50 + (ind*37)%91)
		num[ind] = den[ind] * (1.0 + float64((ind*13)%17)/10.0)
	}

	return num, den
}

func TestCompute_Spike(t *testing.T) {
	num, den := spike(12, 4, 20.0)
	res := Compute(num, den, DefaultParams())

	assert.False(t, res.Degenerate)
	assert.Equal(t, 12, res.Valid)
	assert.Equal(t, 2.0, res.Median)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}, res.Indicator)
	assert.Equal(t, 1, res.Flagged())
	assert.InDelta(t, 9.0, res.SR[4], 1e-12)
}

func TestCompute_SmallGroup(t *testing.T) {
	for _, n := range []int{0, 1, 5, MinRows} {
		num, den := spike(max(n, 1), 0, 1000.0)
		num, den = num[:n], den[:n]

		for _, p := range []Params{DefaultParams(), {U: 1, A: 0, C: 0.001}, {U: 0, A: 10, C: 100}} {
			res := Compute(num, den, p)
			assert.True(t, res.Degenerate)
			assert.Equal(t, make([]int, n), res.Indicator)
			assert.Nil(t, res.SR, "no arithmetic on a degenerate group")
		}
	}
}

func TestCompute_ZeroDenominator(t *testing.T) {
	num, den := spike(12, 4, 20.0)
	num[7], den[7] = 500, 0
	num[8], den[8] = 0, 0

	res := Compute(num, den, DefaultParams())

	assert.Equal(t, 10, res.Valid)
	assert.True(t, math.IsNaN(res.Ratio[7]))
	assert.True(t, math.IsNaN(res.Ratio[8]))
	assert.Equal(t, 0, res.Indicator[7])
	assert.Equal(t, 0, res.Indicator[8])
	assert.Equal(t, 1, res.Indicator[4])
	assert.Equal(t, 2.0, res.Median)
}

func TestCompute_MissingValues(t *testing.T) {
	num, den := mixed(15)
	num[2] = math.NaN()
	den[9] = math.NaN()

	res := Compute(num, den, DefaultParams())
	assert.Equal(t, 13, res.Valid)
	assert.Equal(t, 0, res.Indicator[2])
	assert.Equal(t, 0, res.Indicator[9])
	assert.True(t, math.IsNaN(res.QSR[2]))
}

func TestCompute_AllUndefined(t *testing.T) {
	num := make([]float64, 12)
	den := make([]float64, 12)

	res := Compute(num, den, DefaultParams())
	assert.False(t, res.Degenerate)
	assert.Equal(t, 0, res.Valid)
	assert.True(t, math.IsNaN(res.Median))
	assert.Equal(t, make([]int, 12), res.Indicator)
}

func TestCompute_MedianCentering(t *testing.T) {
	// odd count: the median is an observed ratio
	num, den := mixed(13)
	res := Compute(num, den, DefaultParams())

	found := false
	for ind, r := range res.Ratio {
		if r == res.Median {
			found = true
			assert.Equal(t, 0.0, res.SR[ind])
		}
	}

	assert.True(t, found)
}

func TestCompute_NonPositiveMedian(t *testing.T) {
	num, den := mixed(12)
	for ind := range num {
		num[ind] = -num[ind]
	}

	assert.NotPanics(t, func() {
		res := Compute(num, den, DefaultParams())
		assert.Less(t, res.Median, 0.0)
		for _, x := range res.Indicator {
			assert.Contains(t, []int{0, 1}, x)
		}
	})

	// half the ratios zero: median 0, SR undefined or infinite
	num, den = mixed(12)
	for ind := 0; ind < 7; ind++ {
		num[ind] = 0
	}

	assert.NotPanics(t, func() {
		res := Compute(num, den, DefaultParams())
		assert.Equal(t, 0.0, res.Median)
	})
}

func TestCompute_FloorBinds(t *testing.T) {
	// ratios 2.0 and 2.2, six each: a small IQR against a visibly non-zero SR median
	num, den := make([]float64, 12), make([]float64, 12)
	for ind := range num {
		den[ind] = 10
		num[ind] = 20
		if ind%2 == 1 {
			num[ind] = 22
		}
	}

	p := Params{U: 0.35, A: 100, C: 7}
	res := Compute(num, den, p)

	assert.InDelta(t, 2.1, res.Median, 1e-12)
	assert.Less(t, res.SRmed, 0.0)
	assert.Equal(t, math.Abs(p.A*res.SRmed), res.D1SR)
	assert.Equal(t, math.Abs(p.A*res.SRmed), res.D3SR)

	// lower ESR spread floors on the SR median, upper on the ESR median
	assert.Equal(t, math.Max(res.ESRmed-res.ESRq1, math.Abs(p.A*res.SRmed)), res.D1ESR)
	assert.Equal(t, math.Max(res.ESRq3-res.ESRmed, math.Abs(p.A*res.ESRmed)), res.D3ESR)
	assert.Equal(t, 0, res.Flagged())
}

func TestCompute_Conjunction(t *testing.T) {
	num, den := mixed(40)
	num[3] *= 25
	num[17] *= 0.01
	num[30] *= 4

	for _, p := range []Params{DefaultParams(), {U: 0, A: 0.05, C: 2}, {U: 1, A: 0, C: 1}} {
		res := Compute(num, den, p)
		for ind := range num {
			both := math.Abs(res.QSR[ind]) > p.C && math.Abs(res.QESR[ind]) > p.C
			assert.Equal(t, both, res.Indicator[ind] == 1, fmt.Sprintf("row %d params %v", ind, p))
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	num, den := mixed(50)
	num[11] *= 30

	first := Compute(num, den, DefaultParams())
	for i := 0; i < 5; i++ {
		again := Compute(num, den, DefaultParams())
		assert.Equal(t, first.Indicator, again.Indicator)
		for ind := range first.QESR {
			assert.Equal(t, math.Float64bits(first.QESR[ind]), math.Float64bits(again.QESR[ind]))
		}
	}
}

func TestCompute_Quantiles(t *testing.T) {
	// SR of 1..11 over ratio median 6
	num := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	den := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	res := Compute(num, den, Params{U: 0, A: 0, C: 7})

	assert.Equal(t, 6.0, res.Median)
	assert.InDelta(t, -0.75, res.SRq1, 1e-12)
	assert.InDelta(t, 0.0, res.SRmed, 1e-12)
	assert.InDelta(t, 5.0/12, res.SRq3, 1e-12)
	// U = 0 makes ESR == SR
	assert.Equal(t, res.SR, res.ESR)
}

func TestParams_Validate(t *testing.T) {
	assert.Nil(t, DefaultParams().Validate())

	bad := []Params{{U: -0.1, A: 0, C: 1}, {U: 1.1, A: 0, C: 1}, {U: 0.3, A: -1, C: 1}, {U: 0.3, A: 0, C: 0}, {U: math.NaN(), A: 0, C: 1}}
	for _, p := range bad {
		e := p.Validate()
		require.NotNil(t, e)
		assert.True(t, errors.Is(e, sods.ErrConfig))
	}
}

func ExampleCompute() {
	num := []float64{200, 220, 240, 260, 280, 3000, 320, 340, 360, 380, 400, 420}
	den := []float64{100, 110, 120, 130, 140, 150, 160, 170, 180, 190, 200, 210}

	res := Compute(num, den, DefaultParams())
	fmt.Println(res.Median, res.Indicator)
	// Output:
	// 2 [0 0 0 0 0 1 0 0 0 0 0 0]
}
