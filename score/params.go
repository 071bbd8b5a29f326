package score

import (
	"math"

	"github.com/invertedv/sods"
)

// MinRows is the largest group that is not scored: groups with MinRows or fewer rows get an
// all-zero indicator.
const MinRows = 10

// defaults for Params
const (
	DefaultU = 0.35
	DefaultA = 0.05
	DefaultC = 7.0
)

// Params are the tuning parameters of the score.
//   - U in [0,1] is the weight given to the magnitude of the estimate. Closer to 1, large
//     estimates are flagged more readily.
//   - A >= 0 floors the spread terms at |A * median| so a near-zero IQR doesn't make every
//     deviation look extreme.
//   - C > 0 is the threshold both standardized deviations must exceed.
type Params struct {
	U float64 `mapstructure:"u"`
	A float64 `mapstructure:"a"`
	C float64 `mapstructure:"c"`
}

func DefaultParams() Params {
	return Params{U: DefaultU, A: DefaultA, C: DefaultC}
}

func (p Params) Validate() error {
	switch {
	case math.IsNaN(p.U) || p.U < 0 || p.U > 1:
		return sods.NewConfigError("params.u", "must be in [0,1], got %v", p.U)
	case math.IsNaN(p.A) || math.IsInf(p.A, 0) || p.A < 0:
		return sods.NewConfigError("params.a", "must be >= 0, got %v", p.A)
	case math.IsNaN(p.C) || math.IsInf(p.C, 0) || p.C <= 0:
		return sods.NewConfigError("params.c", "must be > 0, got %v", p.C)
	}

	return nil
}
