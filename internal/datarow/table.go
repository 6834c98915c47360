package datarow

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// Table is an immutable, fully materialized tabular data source.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]cty.Value
}

// NewTable builds a table; every row must have one value per column.
func NewTable(columns []string, rows [][]cty.Value) (*Table, error) {
	t := &Table{
		columns: slices.Clone(columns),
		index:   make(map[string]int, len(columns)),
		rows:    make([][]cty.Value, 0, len(rows)),
	}
	for i, c := range columns {
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("duplicate column '%s'", c)
		}
		t.index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(r), len(columns))
		}
		t.rows = append(t.rows, slices.Clone(r))
	}
	return t, nil
}

// FromValues builds a table from native Go values, converting each one with ToCtyValue.
func FromValues(columns []string, rows [][]any) (*Table, error) {
	converted := make([][]cty.Value, len(rows))
	for i, r := range rows {
		converted[i] = make([]cty.Value, len(r))
		for j, v := range r {
			cv, err := ToCtyValue(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			converted[i][j] = cv
		}
	}
	return NewTable(columns, converted)
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Value returns the value of column at row pos.
func (t *Table) Value(pos int, column string) (cty.Value, error) {
	ci, ok := t.index[column]
	if !ok {
		return cty.NilVal, &FieldError{Field: column, Cause: fmt.Errorf("unknown column")}
	}
	if pos < 0 || pos >= len(t.rows) {
		return cty.NilVal, &FieldError{Field: column, Cause: fmt.Errorf("row %d out of range", pos)}
	}
	return t.rows[pos][ci], nil
}

// View returns the global view of row pos; flags compare against row pos-1.
func (t *Table) View(pos int) *View {
	return &View{table: t, pos: pos}
}

// View is the DataRow for one position of a Table.
type View struct {
	table *Table
	pos   int
}

// Position returns the row index the view points at.
func (v *View) Position() int { return v.pos }

// Names lists the table's columns.
func (v *View) Names() []string { return v.table.Columns() }

// Flags implements DataRow. The first row reports every field as changed.
func (v *View) Flags(name string) (Flags, error) {
	cur, err := v.table.Value(v.pos, name)
	if err != nil {
		return Flags{}, err
	}
	if v.pos == 0 {
		return Flags{Value: cur, Changed: true}, nil
	}
	prev, err := v.table.Value(v.pos-1, name)
	if err != nil {
		return Flags{}, err
	}
	return Flags{Value: cur, Changed: !cur.RawEquals(prev)}, nil
}
