// Package table is the in-memory labeled 2D dataset that flows through the pipeline.
package table

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
)

// Table is an ordered set of uniquely named columns of equal length.
// Tables are values: derivation helpers return new tables and never modify the receiver.
type Table struct {
	name  string
	cols  []*Column
	index map[string]int
	rows  int
}

// Field describes one column of a table's schema.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// New validates the column invariants and assembles a table.
func New(cols ...*Column) (*Table, error) {
	t := &Table{cols: make([]*Column, 0, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, &errs.ColumnError{Column: c.Name(), Reason: "duplicate column name"}
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, &errs.ColumnError{Column: c.Name(), Reason: fmt.Sprintf("has %d rows, want %d", c.Len(), t.rows)}
		}
		t.index[c.Name()] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New that panics; intended for fixtures.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Name() string { return t.name }
func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }

// WithName returns a shallow copy carrying a display name (usually the source file).
func (t *Table) WithName(name string) *Table {
	out := t.shallow()
	out.name = name
	return out
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.cols...)
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnNames returns all column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name()
	}
	return out
}

// NumericColumns returns the columns declared numeric, in order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.cols {
		if c.Kind() == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// NumericNames returns the names of the numeric columns.
func (t *Table) NumericNames() []string {
	var out []string
	for _, c := range t.NumericColumns() {
		out = append(out, c.Name())
	}
	return out
}

// Schema returns name and kind per column.
func (t *Table) Schema() []Field {
	out := make([]Field, len(t.cols))
	for i, c := range t.cols {
		out[i] = Field{Name: c.Name(), Kind: c.Kind()}
	}
	return out
}

// Take returns a table holding the given rows, in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{name: t.name, cols: make([]*Column, len(t.cols)), index: t.index, rows: len(rows)}
	for i, c := range t.cols {
		out.cols[i] = c.Take(rows)
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{name: t.name, cols: make([]*Column, len(t.cols)), index: t.index, rows: t.rows}
	for i, c := range t.cols {
		out.cols[i] = c.Clone()
	}
	return out
}

// WithColumn returns a table where c replaces the column of the same name,
// or is appended when no such column exists.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if len(t.cols) > 0 && c.Len() != t.rows {
		return nil, &errs.ColumnError{Column: c.Name(), Reason: fmt.Sprintf("has %d rows, want %d", c.Len(), t.rows)}
	}
	cols := t.Columns()
	if i, ok := t.index[c.Name()]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.name = t.name
	return out, nil
}

// Equal reports whether both tables have identical schema and cells.
func (t *Table) Equal(o *Table) bool {
	if o == nil || t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for i, c := range t.cols {
		if !c.Equal(o.cols[i]) {
			return false
		}
	}
	return true
}

// RowKey returns a key that is equal for two rows iff all their cells are equal.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for j, c := range t.cols {
		if j > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(c.Key(i))
	}
	return b.String()
}

// RowHasNull reports whether any cell of row i is null.
func (t *Table) RowHasNull(i int) bool {
	for _, c := range t.cols {
		if c.IsNull(i) {
			return true
		}
	}
	return false
}

// MissingCounts returns the null count per column name.
func (t *Table) MissingCounts() map[string]int {
	out := make(map[string]int, len(t.cols))
	for _, c := range t.cols {
		out[c.Name()] = c.NullCount()
	}
	return out
}

// Records renders the first n rows (all rows when n <= 0) as text cells.
func (t *Table) Records(n int) [][]string {
	if n <= 0 || n > t.rows {
		n = t.rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.cols))
		for j, c := range t.cols {
			row[j] = c.Text(i)
		}
		out[i] = row
	}
	return out
}

func (t *Table) shallow() *Table {
	return &Table{name: t.name, cols: t.cols, index: t.index, rows: t.rows}
}
