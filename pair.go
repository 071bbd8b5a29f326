package sods

import (
	"fmt"
	"strings"
)

const indicatorPrefix = "outlier_ind_"

// RatioPair names the numerator and denominator columns of a target ratio.
type RatioPair struct {
	Numerator   string `mapstructure:"numerator"`
	Denominator string `mapstructure:"denominator"`
}

func NewRatioPair(numerator, denominator string) RatioPair {
	return RatioPair{Numerator: numerator, Denominator: denominator}
}

// ParseRatioPair parses "numerator/denominator".
func ParseRatioPair(s string) (RatioPair, error) {
	num, den, ok := strings.Cut(s, "/")
	num, den = strings.TrimSpace(num), strings.TrimSpace(den)
	if !ok || num == "" || den == "" || strings.Contains(den, "/") {
		return RatioPair{}, NewConfigError("ratio pair", "%q is not numerator/denominator", s)
	}

	return NewRatioPair(num, den), nil
}

// IndicatorName is the name of the outlier indicator column for the pair.
func (r RatioPair) IndicatorName() string {
	return indicatorPrefix + r.Numerator + "_" + r.Denominator
}

func (r RatioPair) String() string {
	return fmt.Sprintf("%s/%s", r.Numerator, r.Denominator)
}

// Sheet is a named table, the unit handed to an export sink.
type Sheet struct {
	Name  string
	Table *Table
}
