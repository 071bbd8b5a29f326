package source

import (
	"math"

	"github.com/invertedv/sods"
)

// DefaultSignificance is given to establishments missing from the significance file.
const DefaultSignificance = 1.0

// DeriveKeys adds FOUR_DIG_NAICS and COUNTY_CODE to t when they are absent and the fields they
// derive from are present, as TradeQuery does in the database.
func DeriveKeys(t *sods.Table) (*sods.Table, error) {
	out := t.Copy()

	if out.Missing("FOUR_DIG_NAICS") != nil && out.Missing("NAICNEW") == nil {
		naics, _ := out.Column("NAICNEW")
		x := make([]string, out.RowCount())
		for ind := range x {
			s := naics.ElementString(ind)
			x[ind] = s[:min(4, len(s))]
		}

		if e := appendStrings(out, "FOUR_DIG_NAICS", x); e != nil {
			return nil, e
		}
	}

	if out.Missing("COUNTY_CODE") != nil && out.Missing("STFIPS", "ACTYFIPS") == nil {
		st, _ := out.Column("STFIPS")
		cty, _ := out.Column("ACTYFIPS")
		x := make([]string, out.RowCount())
		for ind := range x {
			if st.IsMissing(ind) || cty.IsMissing(ind) {
				continue
			}

			x[ind] = st.ElementString(ind) + cty.ElementString(ind)
		}

		if e := appendStrings(out, "COUNTY_CODE", x); e != nil {
			return nil, e
		}
	}

	return out, nil
}

func appendStrings(t *sods.Table, name string, x []string) error {
	var (
		col *sods.Col
		e   error
	)
	if col, e = sods.NewCol(x, sods.ColName(name)); e != nil {
		return e
	}

	return t.AppendColumn(col)
}

// MergeSignificance left-joins the significance column sigCol of sig onto t by idCol. Rows of t
// with no match, or a missing significance, get def. If an id repeats in sig the first row wins.
// Row order and count are those of t.
func MergeSignificance(t, sig *sods.Table, idCol, sigCol string, def float64) (*sods.Table, error) {
	if t.Missing(idCol) != nil {
		return nil, sods.NewConfigError("significance", "id column %s not in data", idCol)
	}

	if t.Missing(sigCol) == nil {
		return nil, sods.NewConfigError("significance", "column %s already in data", sigCol)
	}

	if missing := sig.Missing(idCol, sigCol); missing != nil {
		return nil, sods.NewConfigError("significance", "columns %v not in significance table", missing)
	}

	sigIDs, _ := sig.Column(idCol)
	sigVals, _ := sig.Column(sigCol)
	if !sigVals.DataType().IsNumeric() {
		return nil, sods.NewConfigError("significance", "column %s is %s, not numeric", sigCol, sigVals.DataType())
	}

	vals := sigVals.AsFloat()
	lookup := make(map[string]float64)
	for ind := 0; ind < sig.RowCount(); ind++ {
		id := sigIDs.ElementString(ind)
		if _, ok := lookup[id]; !ok {
			lookup[id] = vals[ind]
		}
	}

	ids, _ := t.Column(idCol)
	x := make([]float64, t.RowCount())
	for ind := range x {
		v, ok := lookup[ids.ElementString(ind)]
		if !ok || math.IsNaN(v) {
			v = def
		}

		x[ind] = v
	}

	var (
		col *sods.Col
		e   error
	)
	if col, e = sods.NewCol(x, sods.ColName(sigCol)); e != nil {
		return nil, e
	}

	out := t.Copy()
	if ex := out.AppendColumn(col); ex != nil {
		return nil, ex
	}

	return out, nil
}
