package source

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/invertedv/sods"
)

var refPerPattern = regexp.MustCompile(`^[0-9A-Za-z]+$`)

// TradeQuery selects the tabulated establishments of one trade for a reference period, with the
// group keys COUNTY_CODE (STFIPS followed by ACTYFIPS) and FOUR_DIG_NAICS (first four digits of
// NAICNEW) computed in the database.
type TradeQuery struct {
	// Vars are the trade's fields or expressions, e.g. "(PAYANN + CSTMTOT) AS PAYANN_AND_CSTMTOT".
	Vars   []string `mapstructure:"vars"`
	Table  string   `mapstructure:"table"`
	RefPer string   `mapstructure:"refper"`

	// Extra fields passed through, e.g. NAME1, NOTESTAT.
	Extra   []string `mapstructure:"extra"`
	MaxRows int      `mapstructure:"max_rows"`
}

func (q TradeQuery) Query(d *Dialect) (Query, error) {
	if len(q.Vars) == 0 {
		return Query{}, sods.NewConfigError("source.trade.vars", "no trade variables")
	}

	if e := checkTable(q.Table, "source.trade.table"); e != nil {
		return Query{}, e
	}

	if e := checkRefPer(q.RefPer, "source.trade.refper"); e != nil {
		return Query{}, e
	}

	fields := append(append([]string{}, q.Vars...), q.Extra...)
	for _, f := range fields {
		if strings.TrimSpace(f) == "" || strings.Contains(f, ";") {
			return Query{}, sods.NewConfigError("source.trade.vars", "invalid field %q", f)
		}
	}

	sqlx := strings.ReplaceAll(d.trade, "?Fields", strings.Join(fields, ", "))
	sqlx = strings.ReplaceAll(sqlx, "?Table", q.Table)
	sqlx = strings.ReplaceAll(sqlx, "?RefPer", q.RefPer)

	return Query{SQL: sqlx, Strings: KeyColumns, MaxRows: q.MaxRows}, nil
}

// NotesQuery selects the analyst notes of a reference period. Table defaults to NOTES.
type NotesQuery struct {
	Table   string `mapstructure:"table"`
	RefPer  string `mapstructure:"refper"`
	MaxRows int    `mapstructure:"max_rows"`
}

func (q NotesQuery) Query() (Query, error) {
	table := q.Table
	if table == "" {
		table = "NOTES"
	}

	if e := checkTable(table, "source.notes.table"); e != nil {
		return Query{}, e
	}

	if e := checkRefPer(q.RefPer, "source.notes.refper"); e != nil {
		return Query{}, e
	}

	sqlx := strings.ReplaceAll(notesSkeleton, "?Table", table)
	sqlx = strings.ReplaceAll(sqlx, "?RefPer", q.RefPer)

	return Query{SQL: sqlx, Strings: []string{"NOTEID", "ID", "PARENT_ID", "EIN", "USERID", "REFPER"}, MaxRows: q.MaxRows}, nil
}

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func checkTable(table, elem string) error {
	if !tablePattern.MatchString(table) {
		return sods.NewConfigError(elem, "invalid table name %q", table)
	}

	return nil
}

func checkRefPer(refPer, elem string) error {
	if !refPerPattern.MatchString(refPer) {
		return sods.NewConfigError(elem, "invalid reference period %q", refPer)
	}

	return nil
}

func (q TradeQuery) String() string {
	return fmt.Sprintf("%s refper %s: %s", q.Table, q.RefPer, strings.Join(q.Vars, ", "))
}
