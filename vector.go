package sods

import (
	"fmt"
	"math"
	"strconv"
)

// Vector holds the data of a column. Missing floats are NaN, missing strings are "".
// Ints have no missing value.
type Vector struct {
	dt DataTypes

	data any
}

func NewVector(data any, dt DataTypes) (*Vector, error) {
	if dt == DTunknown {
		dt = WhatAmI(data)
	}

	if WhatAmI(data) != dt {
		return nil, fmt.Errorf("cannot make vector of type %s from %T", dt, data)
	}

	return &Vector{dt: dt, data: data}, nil
}

func MakeVector(dt DataTypes, n int) *Vector {
	switch dt {
	case DTfloat:
		return &Vector{dt: dt, data: make([]float64, n)}
	case DTint:
		return &Vector{dt: dt, data: make([]int, n)}
	case DTstring:
		return &Vector{dt: dt, data: make([]string, n)}
	default:
		panic(fmt.Errorf("cannot make Vector with data type %s", dt))
	}
}

func (v *Vector) VectorType() DataTypes {
	return v.dt
}

func (v *Vector) Len() int {
	switch v.dt {
	case DTfloat:
		return len(v.data.([]float64))
	case DTint:
		return len(v.data.([]int))
	case DTstring:
		return len(v.data.([]string))
	default:
		panic(fmt.Errorf("unexpected error in Vector.Len"))
	}
}

func (v *Vector) AsAny() any {
	return v.data
}

// AsFloat returns the data as []float64. For DTfloat this is the underlying slice and must not be
// modified. Strings that don't parse become NaN.
func (v *Vector) AsFloat() []float64 {
	switch v.dt {
	case DTfloat:
		return v.data.([]float64)
	case DTint:
		xOut := make([]float64, v.Len())
		for ind, xx := range v.data.([]int) {
			xOut[ind] = float64(xx)
		}

		return xOut
	case DTstring:
		xOut := make([]float64, v.Len())
		for ind, xx := range v.data.([]string) {
			var (
				f float64
				e error
			)
			if f, e = strconv.ParseFloat(xx, 64); e != nil {
				f = math.NaN()
			}

			xOut[ind] = f
		}

		return xOut
	default:
		panic(fmt.Errorf("cannot convert to Vector.AsFloat"))
	}
}

func (v *Vector) AsInt() ([]int, error) {
	switch v.dt {
	case DTint:
		return v.data.([]int), nil
	case DTfloat:
		xOut := make([]int, v.Len())
		for ind, xx := range v.data.([]float64) {
			if math.IsNaN(xx) || math.IsInf(xx, 0) {
				return nil, fmt.Errorf("cannot convert %v to int at row %d", xx, ind)
			}

			xOut[ind] = int(xx)
		}

		return xOut, nil
	default:
		return nil, fmt.Errorf("cannot convert %s to int", v.dt)
	}
}

// AsString returns the data as []string. Missing floats become "".
func (v *Vector) AsString() []string {
	if v.dt == DTstring {
		return v.data.([]string)
	}

	xOut := make([]string, v.Len())
	for ind := range xOut {
		xOut[ind] = v.ElementString(ind)
	}

	return xOut
}

func (v *Vector) Element(indx int) any {
	if indx < 0 || indx >= v.Len() {
		panic(fmt.Errorf("index out of range"))
	}

	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[indx]
	case DTint:
		return v.data.([]int)[indx]
	case DTstring:
		return v.data.([]string)[indx]
	default:
		panic(fmt.Errorf("error in Element"))
	}
}

func (v *Vector) ElementString(indx int) string {
	switch x := v.Element(indx).(type) {
	case float64:
		if math.IsNaN(x) {
			return ""
		}

		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	}

	return ""
}

// IsMissing reports whether the element at indx is unknown.
func (v *Vector) IsMissing(indx int) bool {
	switch x := v.Element(indx).(type) {
	case float64:
		return math.IsNaN(x)
	case string:
		return x == ""
	}

	return false
}

func (v *Vector) Copy() *Vector {
	vCopy := &Vector{dt: v.dt}
	switch v.dt {
	case DTfloat:
		x := make([]float64, v.Len())
		copy(x, v.data.([]float64))
		vCopy.data = x
	case DTint:
		x := make([]int, v.Len())
		copy(x, v.data.([]int))
		vCopy.data = x
	case DTstring:
		x := make([]string, v.Len())
		copy(x, v.data.([]string))
		vCopy.data = x
	default:
		panic(fmt.Errorf("unexpected error in Vector.Copy"))
	}

	return vCopy
}

// Subset returns a new Vector with the elements at rows, in that order.
func (v *Vector) Subset(rows []int) *Vector {
	switch v.dt {
	case DTfloat:
		return &Vector{dt: v.dt, data: subset(v.data.([]float64), rows)}
	case DTint:
		return &Vector{dt: v.dt, data: subset(v.data.([]int), rows)}
	case DTstring:
		return &Vector{dt: v.dt, data: subset(v.data.([]string), rows)}
	default:
		panic(fmt.Errorf("unexpected error in Vector.Subset"))
	}
}

func subset[T float64 | int | string](x []T, rows []int) []T {
	out := make([]T, len(rows))
	for ind, row := range rows {
		out[ind] = x[row]
	}

	return out
}
