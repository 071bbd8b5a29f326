// Package source loads establishment data into a sods.Table from a database or a file.
package source

import (
	"context"

	"github.com/invertedv/sods"
)

// columns read as strings whatever the database type, so codes keep their leading zeros
var KeyColumns = []string{"ID", "PARENT_ID", "EIN", "NAICNEW", "STFIPS", "ACTYFIPS", "STATE",
	"COUNTY_CODE", "FOUR_DIG_NAICS"}

// Query is a request for rows.
//   - SQL is ignored by file sources.
//   - Strings are columns forced to DTstring.
//   - MaxRows > 0 caps the number of rows read.
type Query struct {
	SQL     string
	Strings []string
	MaxRows int
}

type Source interface {
	Fetch(ctx context.Context, q Query) (*sods.Table, error)
}

func head(t *sods.Table, maxRows int) (*sods.Table, error) {
	if maxRows <= 0 || t.RowCount() <= maxRows {
		return t, nil
	}

	rows := make([]int, maxRows)
	for ind := range rows {
		rows[ind] = ind
	}

	return t.Subset(rows)
}
