package sods

import "fmt"

// DataTypes are the types of data that a Table column can hold.
type DataTypes uint8

// values of DataTypes
const (
	DTunknown DataTypes = 0 + iota
	DTfloat
	DTint
	DTstring
)

// MaxDT is the max value of DataTypes
const MaxDT = DTstring

func (dt DataTypes) String() string {
	switch dt {
	case DTfloat:
		return "DTfloat"
	case DTint:
		return "DTint"
	case DTstring:
		return "DTstring"
	default:
		return "DTunknown"
	}
}

func (dt DataTypes) IsNumeric() bool {
	return dt == DTfloat || dt == DTint
}

// DTFromString returns the DataTypes whose String() is nm, DTunknown if there is none.
func DTFromString(nm string) DataTypes {
	for ind := DataTypes(0); ind <= MaxDT; ind++ {
		if fmt.Sprintf("%v", ind) == nm {
			return ind
		}
	}

	return DTunknown
}

// WhatAmI returns the DataTypes of a slice, DTunknown if the slice type is not supported.
func WhatAmI(data any) DataTypes {
	switch data.(type) {
	case []float64:
		return DTfloat
	case []int:
		return DTint
	case []string:
		return DTstring
	default:
		return DTunknown
	}
}
