// Package export writes scored tables.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invertedv/sods"
	"github.com/xuri/excelize/v2"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Sink writes sheets to dest.
type Sink interface {
	Write(sheets []sods.Sheet, dest string) error
}

// New returns the Sink for format.
func New(format string) (Sink, error) {
	switch strings.ToLower(format) {
	case FormatXLSX, "excel", "":
		return &Excel{}, nil
	case FormatCSV:
		return &CSVDir{}, nil
	default:
		return nil, sods.NewConfigError("output.format", "unknown format %q", format)
	}
}

func check(sheets []sods.Sheet) error {
	if len(sheets) == 0 {
		return sods.NewConfigError("output", "no sheets to write")
	}

	var names []string
	for _, sh := range sheets {
		if sh.Name == "" || sh.Table == nil {
			return sods.NewConfigError("output", "sheet %q has no name or no table", sh.Name)
		}

		if slices.ContainsFunc(names, func(s string) bool { return strings.EqualFold(s, sh.Name) }) {
			return sods.NewConfigError("output", "duplicate sheet %s", sh.Name)
		}

		names = append(names, sh.Name)
	}

	return nil
}

// Excel writes a workbook with one sheet per table: a header row, then the rows.
// Missing values are empty cells.
type Excel struct{}

func (x *Excel) Write(sheets []sods.Sheet, dest string) error {
	if e := check(sheets); e != nil {
		return e
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for _, sh := range sheets {
		if _, e := f.NewSheet(sh.Name); e != nil {
			return sods.ExportError("sheet "+sh.Name, e)
		}
	}

	if !slices.ContainsFunc(sheets, func(sh sods.Sheet) bool { return sh.Name == "Sheet1" }) {
		if e := f.DeleteSheet("Sheet1"); e != nil {
			return sods.ExportError("sheet Sheet1", e)
		}
	}

	for _, sh := range sheets {
		if e := writeSheet(f, sh); e != nil {
			return sods.ExportError("sheet "+sh.Name, e)
		}
	}

	if ind, e := f.GetSheetIndex(sheets[0].Name); e == nil {
		f.SetActiveSheet(ind)
	}

	if e := f.SaveAs(dest); e != nil {
		return sods.ExportError("save "+dest, e)
	}

	return nil
}

func writeSheet(f *excelize.File, sh sods.Sheet) error {
	var (
		sw *excelize.StreamWriter
		e  error
	)
	if sw, e = f.NewStreamWriter(sh.Name); e != nil {
		return e
	}

	var header []any
	for _, cn := range sh.Table.ColumnNames() {
		header = append(header, cn)
	}

	if ex := sw.SetRow("A1", header); ex != nil {
		return ex
	}

	for row := 0; row < sh.Table.RowCount(); row++ {
		vals := sh.Table.Row(row)
		for ind, v := range vals {
			if v == nil {
				vals[ind] = ""
			}
		}

		var cell string
		if cell, e = excelize.CoordinatesToCellName(1, row+2); e != nil {
			return e
		}

		if ex := sw.SetRow(cell, vals); ex != nil {
			return ex
		}
	}

	return sw.Flush()
}

// CSVDir writes one <sheet>.csv per table into the directory dest, creating it if needed.
type CSVDir struct {
	Opts []sods.FileOpt
}

func (c *CSVDir) Write(sheets []sods.Sheet, dest string) error {
	if e := check(sheets); e != nil {
		return e
	}

	if e := os.MkdirAll(dest, 0o755); e != nil {
		return sods.ExportError("mkdir "+dest, e)
	}

	var (
		f *sods.Files
		e error
	)
	if f, e = sods.NewFiles(c.Opts...); e != nil {
		return sods.NewConfigError("output", "%v", e)
	}

	for _, sh := range sheets {
		fileName := filepath.Join(dest, fmt.Sprintf("%s.csv", sh.Name))
		if ex := f.SaveFile(fileName, sh.Table); ex != nil {
			return sods.ExportError("write "+fileName, ex)
		}
	}

	return nil
}
