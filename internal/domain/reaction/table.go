// Package reaction holds the domain model of a catalytic reaction measurement
// and the column classifier that reconstructs it from a lab spreadsheet.
//
// A measurement file arrives as a RawTable whose column headers follow the
// lab's naming convention (`<prefix> <species> [<unit>]`).  Build scans the
// table once and returns a ReactionRecord; Project mirrors the record into the
// searchable ResultsTree.
package reaction

import (
	"math"
	"strconv"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Cell / Column / RawTable
// ─────────────────────────────────────────────────────────────────────────────

// Cell is a single spreadsheet value.  Text always holds the source
// representation; Num is meaningful only when Numeric is true.  Blank cells are
// numeric NaN.
type Cell struct {
	Text    string
	Num     float64
	Numeric bool
}

// NumberCell returns a numeric Cell.
func NumberCell(v float64) Cell {
	return Cell{Text: strconv.FormatFloat(v, 'g', -1, 64), Num: v, Numeric: true}
}

// TextCell parses s into a Cell.  Anything strconv.ParseFloat accepts is
// numeric; the empty string becomes NaN.
func TextCell(s string) Cell {
	t := strings.TrimSpace(s)
	if t == "" {
		return Cell{Text: "", Num: math.NaN(), Numeric: true}
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return Cell{Text: t, Num: f, Numeric: true}
	}
	return Cell{Text: t}
}

// Blank reports whether the cell carries no value.
func (c Cell) Blank() bool {
	return c.Numeric && math.IsNaN(c.Num) && c.Text == ""
}

// Column is one named column of a RawTable.
type Column struct {
	Name   string
	Values []Cell
}

// Len returns the number of cells in the column.
func (c Column) Len() int { return len(c.Values) }

// Floats returns the numeric view of the column with non-finite values
// coerced: NaN becomes 0 and ±Inf becomes ±MaxFloat64.  Non-numeric cells are
// coerced to 0 as well; their count is returned so that callers can warn.
func (c Column) Floats() (values []float64, nonNumeric int) {
	values = make([]float64, len(c.Values))
	for i, cell := range c.Values {
		if !cell.Numeric {
			nonNumeric++
			continue
		}
		values[i] = Coerce(cell.Num)
	}
	return values, nonNumeric
}

// Raw returns the numeric view without coercion; non-numeric cells are NaN.
func (c Column) Raw() []float64 {
	values := make([]float64, len(c.Values))
	for i, cell := range c.Values {
		if cell.Numeric {
			values[i] = cell.Num
		} else {
			values[i] = math.NaN()
		}
	}
	return values
}

// First returns the text of the first cell, or "" for an empty column.
func (c Column) First() string {
	if len(c.Values) == 0 {
		return ""
	}
	return c.Values[0].Text
}

// Coerce maps non-finite floats to finite ones: NaN → 0, +Inf → MaxFloat64,
// -Inf → -MaxFloat64.  After coercion a missing value is indistinguishable
// from zero.
func Coerce(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	default:
		return v
	}
}

// CoerceAll applies Coerce to every element of vs in place and returns vs.
func CoerceAll(vs []float64) []float64 {
	for i := range vs {
		vs[i] = Coerce(vs[i])
	}
	return vs
}

// RawTable is an ordered collection of columns read from a lab-data file.
type RawTable struct {
	Columns []Column
	index   map[string]int
}

// NewRawTable builds a table from already materialized columns.  Later
// columns with the same name as an earlier one are renamed with a ".1", ".2",
// ... suffix.
func NewRawTable(columns []Column) RawTable {
	t := RawTable{Columns: make([]Column, 0, len(columns)), index: make(map[string]int, len(columns))}
	seen := make(map[string]int, len(columns))
	for _, col := range columns {
		name := dedupe(col.Name, seen)
		col.Name = name
		t.index[name] = len(t.Columns)
		t.Columns = append(t.Columns, col)
	}
	return t
}

// NewRawTableFromRows builds a table from a header row and data rows as
// produced by CSV and spreadsheet readers.  Short rows are padded with blank
// cells and columns that are blank in every row are dropped.
func NewRawTableFromRows(header []string, rows [][]string) RawTable {
	cols := make([]Column, len(header))
	for j, h := range header {
		cols[j] = Column{Name: strings.TrimSpace(h), Values: make([]Cell, len(rows))}
	}
	for i, row := range rows {
		for j := range cols {
			if j < len(row) {
				cols[j].Values[i] = TextCell(row[j])
			} else {
				cols[j].Values[i] = TextCell("")
			}
		}
	}

	kept := cols[:0]
	for _, c := range cols {
		if !allBlank(c) {
			kept = append(kept, c)
		}
	}
	return NewRawTable(kept)
}

func allBlank(c Column) bool {
	for _, v := range c.Values {
		if !v.Blank() {
			return false
		}
	}
	return true
}

func dedupe(name string, seen map[string]int) string {
	n, dup := seen[name]
	seen[name] = n + 1
	if !dup {
		return name
	}
	for {
		candidate := name + "." + strconv.Itoa(n)
		if _, taken := seen[candidate]; !taken {
			seen[candidate] = 1
			return candidate
		}
		n++
	}
}

// Column returns the column with the given header.
func (t RawTable) Column(name string) (Column, bool) {
	if t.index == nil {
		for _, c := range t.Columns {
			if c.Name == name {
				return c, true
			}
		}
		return Column{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// Has reports whether a column with the given header exists.
func (t RawTable) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Names returns the column headers in order.
func (t RawTable) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
