package sods

import (
	"fmt"
	"strings"
)

// Col is a named Vector. Once a Col is in a Table its data is not modified; derived tables share it.
type Col struct {
	*Vector

	name string
}

type ColOpt func(c *Col) error

// NewCol creates a column. data is either a *Vector or a []float64, []int, []string.
func NewCol(data any, opts ...ColOpt) (*Col, error) {
	var v *Vector
	if vx, ok := data.(*Vector); ok {
		v = vx
	}

	if v == nil {
		var e error
		if v, e = NewVector(data, DTunknown); e != nil {
			return nil, e
		}
	}

	col := &Col{Vector: v}
	for _, opt := range opts {
		if e := opt(col); e != nil {
			return nil, e
		}
	}

	return col, nil
}

func ColName(name string) ColOpt {
	return func(c *Col) error {
		if c == nil {
			return fmt.Errorf("nil column to ColName")
		}

		if e := validName(name); e != nil {
			return e
		}

		c.name = name

		return nil
	}
}

func (c *Col) Name() string {
	return c.name
}

func (c *Col) DataType() DataTypes {
	return c.VectorType()
}

// Renamed returns a column with the new name that shares c's data.
func (c *Col) Renamed(newName string) (*Col, error) {
	if e := validName(newName); e != nil {
		return nil, e
	}

	return &Col{Vector: c.Vector, name: newName}, nil
}

func (c *Col) Copy() *Col {
	return &Col{Vector: c.Vector.Copy(), name: c.name}
}

func (c *Col) String() string {
	return fmt.Sprintf("column: %s\ntype: %s\n", c.Name(), c.DataType()) + Describe(c)
}

func validName(name string) error {
	if name == "" || strings.TrimSpace(name) != name {
		return fmt.Errorf("invalid column name: '%s'", name)
	}

	if strings.ContainsAny(name, ",\n") {
		return fmt.Errorf("column name %s contains a separator", name)
	}

	return nil
}
