package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/invertedv/sods"
)

// DB runs queries against a database.
type DB struct {
	dialect *Dialect
	logger  *slog.Logger
}

func NewDB(d *Dialect, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}

	return &DB{dialect: d, logger: logger}
}

func (s *DB) Dialect() *Dialect {
	return s.dialect
}

// Fetch runs q.SQL. A column is DTint if every value is a non-null integer, DTfloat if every
// non-null value is a number (nulls become NaN), and DTstring otherwise.
func (s *DB) Fetch(ctx context.Context, q Query) (*sods.Table, error) {
	if q.SQL == "" {
		return nil, sods.NewConfigError("query", "no SQL")
	}

	var (
		rows *sql.Rows
		e    error
	)
	if rows, e = s.dialect.DB().QueryContext(ctx, q.SQL); e != nil {
		return nil, sods.SourceError("query", e)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	if names, e = rows.Columns(); e != nil {
		return nil, sods.SourceError("columns", e)
	}

	data := make([][]any, len(names))
	row2read := make([]any, len(names))
	for ind := range row2read {
		var x any
		row2read[ind] = &x
	}

	n := 0
	for rows.Next() {
		if q.MaxRows > 0 && n == q.MaxRows {
			break
		}

		if ex := rows.Scan(row2read...); ex != nil {
			return nil, sods.SourceError("scan", ex)
		}

		for ind := range names {
			data[ind] = append(data[ind], deref(*row2read[ind].(*any)))
		}

		n++
	}

	if ex := rows.Err(); ex != nil {
		return nil, sods.SourceError("rows", ex)
	}

	var cols []*sods.Col
	for ind, name := range names {
		var col *sods.Col
		if col, e = makeCol(name, data[ind], slices.Contains(q.Strings, name)); e != nil {
			return nil, sods.SourceError("column "+name, e)
		}

		cols = append(cols, col)
	}

	var t *sods.Table
	if t, e = sods.NewTable(cols...); e != nil {
		return nil, sods.SourceError("table", e)
	}

	s.logger.Debug("fetched", slog.String("dialect", s.dialect.DialectName()), slog.Int("rows", t.RowCount()),
		slog.Int("columns", t.ColumnCount()))

	return t, nil
}

func makeCol(name string, vals []any, forceString bool) (*sods.Col, error) {
	dt := sods.DTint
	if forceString {
		dt = sods.DTstring
	}

	for _, v := range vals {
		if dt == sods.DTstring {
			break
		}

		switch {
		case v == nil:
			dt = sods.DTfloat
		case isInt(v):
		case isNumber(v):
			dt = sods.DTfloat
		default:
			dt = sods.DTstring
		}
	}

	// no rows
	if dt == sods.DTint && len(vals) == 0 {
		dt = sods.DTfloat
	}

	switch dt {
	case sods.DTint:
		x := make([]int, len(vals))
		for ind, v := range vals {
			x[ind] = int(toInt(v))
		}

		return sods.NewCol(x, sods.ColName(name))
	case sods.DTfloat:
		x := make([]float64, len(vals))
		for ind, v := range vals {
			var ok bool
			if x[ind], ok = toFloat(v); !ok {
				x[ind] = math.NaN()
			}
		}

		return sods.NewCol(x, sods.ColName(name))
	default:
		x := make([]string, len(vals))
		for ind, v := range vals {
			x[ind] = toString(v)
		}

		return sods.NewCol(x, sods.ColName(name))
	}
}

// deref returns the value a pointer points to, nil for a nil pointer. []byte becomes string.
func deref(x any) any {
	if x == nil {
		return nil
	}

	if b, ok := x.([]byte); ok {
		return string(b)
	}

	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}

		return deref(rv.Elem().Interface())
	}

	return x
}

func isInt(x any) bool {
	switch x.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}

	return false
}

func isNumber(x any) bool {
	switch x.(type) {
	case float32, float64:
		return true
	}

	return isInt(x)
}

func toFloat(x any) (float64, bool) {
	switch v := x.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}

	return math.NaN(), false
}

func toInt(x any) int64 {
	switch v := x.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	}

	return 0
}

func toString(x any) string {
	switch v := x.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}

		return v.Format(time.RFC3339)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		if math.IsNaN(v) {
			return ""
		}

		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	if isInt(x) {
		return strconv.FormatInt(toInt(x), 10)
	}

	return fmt.Sprintf("%v", x)
}
