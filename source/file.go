package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invertedv/sods"
	"github.com/xuri/excelize/v2"
)

// CSV reads a delimited file. The SQL of a Query is ignored.
type CSV struct {
	Path string
	Opts []sods.FileOpt
}

func NewCSV(path string, opts ...sods.FileOpt) *CSV {
	return &CSV{Path: path, Opts: opts}
}

func (c *CSV) Fetch(ctx context.Context, q Query) (*sods.Table, error) {
	if e := ctx.Err(); e != nil {
		return nil, e
	}

	var (
		f *sods.Files
		t *sods.Table
		e error
	)
	if f, e = sods.NewFiles(append(c.Opts, sods.FileStrings(q.Strings...))...); e != nil {
		return nil, sods.NewConfigError("source.csv", "%v", e)
	}

	if t, e = f.LoadFile(c.Path); e != nil {
		return nil, sods.SourceError("load "+c.Path, e)
	}

	return head(t, q.MaxRows)
}

// ReadExcel reads a worksheet whose first row is the header. sheet "" is the first sheet.
// Columns in strs are read as strings.
func ReadExcel(path, sheet string, strs ...string) (*sods.Table, error) {
	var (
		f *excelize.File
		e error
	)
	if f, e = excelize.OpenFile(path); e != nil {
		return nil, sods.SourceError("open "+path, e)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	var rows [][]string
	if rows, e = f.GetRows(sheet); e != nil {
		return nil, sods.SourceError("read sheet "+sheet, e)
	}

	if len(rows) == 0 {
		return nil, sods.SourceError("read sheet "+sheet, fmt.Errorf("sheet is empty"))
	}

	// trailing empty cells are not returned
	width := len(rows[0])
	for ind, row := range rows {
		if len(row) < width {
			rows[ind] = append(row, make([]string, width-len(row))...)
		}

		rows[ind] = rows[ind][:width]
	}

	var (
		files *sods.Files
		t     *sods.Table
	)
	if files, e = sods.NewFiles(sods.FileStrings(strs...)); e != nil {
		return nil, e
	}

	if t, e = files.FromRecords(rows); e != nil {
		return nil, sods.SourceError("parse sheet "+sheet, e)
	}

	return t, nil
}

// LoadTable reads an .xlsx workbook's first sheet or a delimited file, by extension.
func LoadTable(path string, strs ...string) (*sods.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadExcel(path, "", strs...)
	}

	return NewCSV(path).Fetch(context.Background(), Query{Strings: strs})
}
