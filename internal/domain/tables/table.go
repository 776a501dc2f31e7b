// Package tables holds the raw tabular form of SAP extracts and the loader
// that validates and normalizes them before analysis.
package tables

import "strings"

// Table names as exported from SAP.
const (
	USR02    = "USR02"
	AGRUsers = "AGR_USERS"
	USR12    = "USR12"
	UST12    = "UST12"
)

// RawTable is an ordered set of rows over named columns. Cells are text.
// Loader functions never modify a RawTable in place; they work on a Clone.
type RawTable struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// NewRawTable builds a table and pads or truncates each row to the header width.
func NewRawTable(name string, columns []string, rows [][]string) *RawTable {
	t := &RawTable{Name: name, Columns: append([]string(nil), columns...)}
	t.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		t.Rows = append(t.Rows, fit(r, len(columns)))
	}
	return t
}

// Clone returns a deep copy.
func (t *RawTable) Clone() *RawTable {
	c := &RawTable{Name: t.Name, Columns: append([]string(nil), t.Columns...)}
	c.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append([]string(nil), r...)
	}
	return c
}

// Len is the number of data rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the position of a column, or an absent Column.
func (t *RawTable) Column(name string) Column {
	if t == nil {
		return Column(-1)
	}
	for i, c := range t.Columns {
		if c == name {
			return Column(i)
		}
	}
	return Column(-1)
}

// Has reports whether the column exists.
func (t *RawTable) Has(name string) bool { return t.Column(name).Present() }

// Distinct returns the set of trimmed, non-empty values of a column.
func (t *RawTable) Distinct(name string) map[string]struct{} {
	col := t.Column(name)
	out := map[string]struct{}{}
	if !col.Present() {
		return out
	}
	for _, r := range t.Rows {
		if v := strings.TrimSpace(col.Of(r)); v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}

// addAlias appends a copy of column src under the name alias.
func (t *RawTable) addAlias(alias, src string) {
	col := t.Column(src)
	t.Columns = append(t.Columns, alias)
	for i, r := range t.Rows {
		t.Rows[i] = append(r, col.Of(r))
	}
}

// addConstant appends a column holding value on every row.
func (t *RawTable) addConstant(name, value string) {
	t.Columns = append(t.Columns, name)
	for i, r := range t.Rows {
		t.Rows[i] = append(r, value)
	}
}

// Column indexes a row. Absent columns read as "".
type Column int

// Present reports whether the column exists in its table.
func (c Column) Present() bool { return c >= 0 }

// Of returns the cell of this column in row.
func (c Column) Of(row []string) string {
	if c < 0 || int(c) >= len(row) {
		return ""
	}
	return row[c]
}

// Key is the join key shared by every table: "client:username".
func Key(client, username string) string { return client + ":" + username }

func fit(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
