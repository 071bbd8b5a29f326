package sods

import (
	"fmt"
	"math"
	"slices"
)

// Table is an ordered list of named, typed columns of equal length.
// Columns are never modified in place; AppendColumn is the only way to extend a Table.
type Table struct {
	head    *columnList
	current *columnList
}

type columnList struct {
	col *Col

	prior *columnList
	next  *columnList
}

// Field describes one column of a Table.
type Field struct {
	Name string
	DT   DataTypes
}

func NewTable(cols ...*Col) (*Table, error) {
	if cols == nil {
		return nil, fmt.Errorf("no columns in NewTable")
	}

	t := &Table{}
	for _, col := range cols {
		if e := t.AppendColumn(col); e != nil {
			return nil, e
		}
	}

	return t, nil
}

// ***************** Table - Methods *****************

// Next iterates over the columns. Next(true) returns the first column. Not safe for concurrent use.
func (t *Table) Next(reset bool) *Col {
	if reset || t.current == nil {
		t.current = t.head
		if t.current == nil {
			return nil
		}

		return t.current.col
	}

	if t.current.next == nil {
		t.current = nil
		return nil
	}

	t.current = t.current.next
	return t.current.col
}

func (t *Table) RowCount() int {
	if t.head == nil {
		return 0
	}

	return t.head.col.Len()
}

func (t *Table) ColumnCount() int {
	cols := 0
	for c := t.head; c != nil; c = c.next {
		cols++
	}

	return cols
}

func (t *Table) ColumnNames() []string {
	var names []string

	for h := t.head; h != nil; h = h.next {
		names = append(names, h.col.Name())
	}

	return names
}

func (t *Table) Schema() []Field {
	var fields []Field
	for h := t.head; h != nil; h = h.next {
		fields = append(fields, Field{Name: h.col.Name(), DT: h.col.DataType()})
	}

	return fields
}

func (t *Table) Column(colName string) (*Col, error) {
	for h := t.head; h != nil; h = h.next {
		if h.col.Name() == colName {
			return h.col, nil
		}
	}

	return nil, fmt.Errorf("column %s not found", colName)
}

// Missing returns the names in colNames that are not columns of t.
func (t *Table) Missing(colNames ...string) []string {
	have := t.ColumnNames()
	var missing []string
	for _, cn := range colNames {
		if !slices.Contains(have, cn) {
			missing = append(missing, cn)
		}
	}

	return missing
}

func (t *Table) AppendColumn(col *Col) error {
	if col == nil {
		return fmt.Errorf("nil column in AppendColumn")
	}

	if e := validName(col.Name()); e != nil {
		return e
	}

	if slices.Contains(t.ColumnNames(), col.Name()) {
		return fmt.Errorf("duplicate column name: %s", col.Name())
	}

	node := &columnList{col: col}
	if t.head == nil {
		t.head = node
		return nil
	}

	if col.Len() != t.RowCount() {
		return fmt.Errorf("length mismatch: table - %d, append col %s - %d", t.RowCount(), col.Name(), col.Len())
	}

	var tail *columnList
	for tail = t.head; tail.next != nil; tail = tail.next {
	}

	node.prior = tail
	tail.next = node

	return nil
}

func (t *Table) DropColumns(colNames ...string) error {
	for _, cName := range colNames {
		var node *columnList
		for h := t.head; h != nil; h = h.next {
			if h.col.Name() == cName {
				node = h
				break
			}
		}

		if node == nil {
			return fmt.Errorf("column %s not found", cName)
		}

		if node == t.head {
			if t.head.next == nil {
				return fmt.Errorf("no columns left")
			}

			t.head = t.head.next
			t.head.prior = nil
			continue
		}

		node.prior.next = node.next
		if node.next != nil {
			node.next.prior = node.prior
		}
	}

	t.current = nil

	return nil
}

// Copy returns a new Table holding the same columns. Appending to the copy leaves t unchanged.
func (t *Table) Copy() *Table {
	out := &Table{}
	for h := t.head; h != nil; h = h.next {
		// can't fail: names are already unique and lengths equal
		_ = out.AppendColumn(h.col)
	}

	return out
}

func (t *Table) KeepColumns(colNames ...string) (*Table, error) {
	var cols []*Col
	for _, cn := range colNames {
		var (
			col *Col
			e   error
		)
		if col, e = t.Column(cn); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewTable(cols...)
}

// Subset returns a new Table with the rows listed in rows, in that order.
func (t *Table) Subset(rows []int) (*Table, error) {
	n := t.RowCount()
	for _, row := range rows {
		if row < 0 || row >= n {
			return nil, fmt.Errorf("row %d out of range in Subset", row)
		}
	}

	out := &Table{}
	for h := t.head; h != nil; h = h.next {
		col := &Col{Vector: h.col.Subset(rows), name: h.col.Name()}
		if e := out.AppendColumn(col); e != nil {
			return nil, e
		}
	}

	return out, nil
}

// WithSum returns a copy of t with a new float column that is the row sum of cols.
// A missing value in any input makes the sum missing.
func (t *Table) WithSum(name string, cols ...string) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns to sum for %s", name)
	}

	sum := make([]float64, t.RowCount())
	for _, cn := range cols {
		var (
			col *Col
			e   error
		)
		if col, e = t.Column(cn); e != nil {
			return nil, e
		}

		if !col.DataType().IsNumeric() {
			return nil, fmt.Errorf("column %s is not numeric", cn)
		}

		for ind, x := range col.AsFloat() {
			sum[ind] += x
		}
	}

	var (
		col *Col
		e   error
	)
	if col, e = NewCol(sum, ColName(name)); e != nil {
		return nil, e
	}

	out := t.Copy()
	if e := out.AppendColumn(col); e != nil {
		return nil, e
	}

	return out, nil
}

// Row returns the values of row ind in column order. Missing floats are returned as nil.
func (t *Table) Row(ind int) []any {
	var row []any
	for h := t.head; h != nil; h = h.next {
		x := h.col.Element(ind)
		if f, ok := x.(float64); ok && math.IsNaN(f) {
			x = nil
		}

		row = append(row, x)
	}

	return row
}

func (t *Table) String() string {
	const maxRows = 10

	n := min(t.RowCount(), maxRows)
	var (
		header []string
		cols   []any
	)

	for h := t.head; h != nil; h = h.next {
		header = append(header, h.col.Name())
		cols = append(cols, h.col.Subset(seq(n)).AsAny())
	}

	out := prettyPrint(header, cols...)
	if t.RowCount() > maxRows {
		out += fmt.Sprintf("... %d more rows\n", t.RowCount()-maxRows)
	}

	return out
}

func seq(n int) []int {
	s := make([]int, n)
	for ind := range s {
		s[ind] = ind
	}

	return s
}
