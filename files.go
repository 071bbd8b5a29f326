package sods

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
)

// All code interacting with files is here

const (
	Sep         = ','
	FloatFormat = "%v"
	Header      = true
)

// naTokens are the field values read as missing.
var naTokens = []string{"", "NA", "NaN", "nan", "NULL", "null", "."}

// Files reads and writes delimited text files.
type Files struct {
	FieldNames  []string
	FieldTypes  []DataTypes
	Sep         rune
	FloatFormat string
	Header      bool

	// columns always read as DTstring, e.g. identifiers and FIPS codes with leading zeros
	stringCols []string
}

type FileOpt func(f *Files) error

func NewFiles(opts ...FileOpt) (*Files, error) {
	f := &Files{
		Sep:         Sep,
		FloatFormat: FloatFormat,
		Header:      Header,
	}

	for _, opt := range opts {
		if e := opt(f); e != nil {
			return nil, e
		}
	}

	return f, nil
}

func FileSep(sep rune) FileOpt {
	return func(f *Files) error {
		if sep == '"' || sep == '\n' || sep == '\r' {
			return fmt.Errorf("invalid separator %q", sep)
		}

		f.Sep = sep
		return nil
	}
}

func FileFieldNames(names []string) FileOpt {
	return func(f *Files) error {
		for _, n := range names {
			if e := validName(n); e != nil {
				return e
			}
		}

		f.FieldNames = names
		return nil
	}
}

func FileFieldTypes(types []DataTypes) FileOpt {
	return func(f *Files) error {
		for _, dt := range types {
			if dt == DTunknown {
				return fmt.Errorf("unknown data type in FileFieldTypes")
			}
		}

		f.FieldTypes = types
		return nil
	}
}

func FileFloatFormat(format string) FileOpt {
	return func(f *Files) error {
		f.FloatFormat = format
		return nil
	}
}

func FileHeader(header bool) FileOpt {
	return func(f *Files) error {
		f.Header = header
		return nil
	}
}

// FileStrings forces the named columns to be read as strings.
func FileStrings(names ...string) FileOpt {
	return func(f *Files) error {
		f.stringCols = append(f.stringCols, names...)
		return nil
	}
}

// ***************** Load *****************

func (f *Files) LoadFile(fileName string) (*Table, error) {
	var (
		fh *os.File
		e  error
	)
	if fh, e = os.Open(fileName); e != nil {
		return nil, e
	}
	defer func() { _ = fh.Close() }()

	return f.Load(fh)
}

// Load reads a delimited file. Without FieldTypes, a column is DTfloat if every non-missing value parses
// as a number and DTstring otherwise.
func (f *Files) Load(r io.Reader) (*Table, error) {
	rdr := csv.NewReader(r)
	rdr.Comma = f.Sep
	rdr.TrimLeadingSpace = true

	var (
		records [][]string
		e       error
	)
	if records, e = rdr.ReadAll(); e != nil {
		return nil, e
	}

	return f.FromRecords(records)
}

// FromRecords builds a Table from rows of fields, e.g. the cells of a worksheet. The header, names
// and types are handled as in Load.
func (f *Files) FromRecords(records [][]string) (*Table, error) {
	names := f.FieldNames
	if f.Header {
		if len(records) == 0 {
			return nil, fmt.Errorf("no header in file")
		}

		if names == nil {
			for _, n := range records[0] {
				names = append(names, strings.TrimSpace(n))
			}
		}

		records = records[1:]
	}

	if names == nil {
		return nil, fmt.Errorf("field names not set in *Files and no header")
	}

	if f.FieldTypes != nil && len(f.FieldTypes) != len(names) {
		return nil, fmt.Errorf("have %d field types for %d fields", len(f.FieldTypes), len(names))
	}

	for row, rec := range records {
		if len(rec) != len(names) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", row+1, len(rec), len(names))
		}
	}

	var cols []*Col
	for ind, name := range names {
		raw := make([]string, len(records))
		for row, rec := range records {
			raw[row] = strings.TrimSpace(rec[ind])
		}

		dt := DTunknown
		if f.FieldTypes != nil {
			dt = f.FieldTypes[ind]
		}

		if slices.Contains(f.stringCols, name) {
			dt = DTstring
		}

		var (
			col *Col
			ex  error
		)
		if col, ex = parseColumn(name, raw, dt); ex != nil {
			return nil, ex
		}

		cols = append(cols, col)
	}

	return NewTable(cols...)
}

func parseColumn(name string, raw []string, dt DataTypes) (*Col, error) {
	if dt == DTunknown {
		dt = DTfloat
		for _, s := range raw {
			if isNA(s) {
				continue
			}

			if _, e := strconv.ParseFloat(s, 64); e != nil {
				dt = DTstring
				break
			}
		}
	}

	switch dt {
	case DTfloat:
		x := make([]float64, len(raw))
		for ind, s := range raw {
			if isNA(s) {
				x[ind] = math.NaN()
				continue
			}

			var e error
			if x[ind], e = strconv.ParseFloat(s, 64); e != nil {
				return nil, fmt.Errorf("column %s row %d: %w", name, ind+1, e)
			}
		}

		return NewCol(x, ColName(name))
	case DTint:
		x := make([]int, len(raw))
		for ind, s := range raw {
			var e error
			if x[ind], e = strconv.Atoi(s); e != nil {
				return nil, fmt.Errorf("column %s row %d: %w", name, ind+1, e)
			}
		}

		return NewCol(x, ColName(name))
	default:
		x := make([]string, len(raw))
		for ind, s := range raw {
			if !isNA(s) {
				x[ind] = s
			}
		}

		return NewCol(x, ColName(name))
	}
}

func isNA(s string) bool {
	return slices.Contains(naTokens, s)
}

// ***************** Save *****************

func (f *Files) SaveFile(fileName string, t *Table) error {
	var (
		fh *os.File
		e  error
	)
	if fh, e = os.Create(fileName); e != nil {
		return e
	}

	if ex := f.Save(fh, t); ex != nil {
		_ = fh.Close()
		return ex
	}

	return fh.Close()
}

// Save writes t. Missing values are written as empty fields.
func (f *Files) Save(w io.Writer, t *Table) error {
	wtr := csv.NewWriter(w)
	wtr.Comma = f.Sep

	if f.Header {
		if e := wtr.Write(t.ColumnNames()); e != nil {
			return e
		}
	}

	for row := 0; row < t.RowCount(); row++ {
		vals := t.Row(row)
		rec := make([]string, len(vals))
		for ind, v := range vals {
			switch x := v.(type) {
			case nil:
				rec[ind] = ""
			case float64:
				rec[ind] = fmt.Sprintf(f.FloatFormat, x)
			default:
				rec[ind] = fmt.Sprintf("%v", x)
			}
		}

		if e := wtr.Write(rec); e != nil {
			return e
		}
	}

	wtr.Flush()

	return wtr.Error()
}
