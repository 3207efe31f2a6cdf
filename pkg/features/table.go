// Package features derives numeric feature columns from raw flow records.
//
// Three extractors (time-based, statistical, protocol-specific) each map a
// flow batch to named columns; Assemble merges their outputs into a single
// Table whose rows align positionally with the input batch.
package features

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Table maps feature names to equal-length columns of values, one value per
// input flow record. Column order is the insertion order and is stable.
type Table struct {
	names   []string
	columns map[string][]float64
	rows    int
}

// NewTable creates an empty table expecting columns of the given length.
func NewTable(rows int) *Table {
	return &Table{
		columns: make(map[string][]float64),
		rows:    rows,
	}
}

// Add appends a named column. The name must be unique and the column length
// must match the table's row count.
func (t *Table) Add(name string, column []float64) error {
	if _, ok := t.columns[name]; ok {
		return fmt.Errorf("%w: duplicate feature %q", ErrSchemaConflict, name)
	}
	if len(column) != t.rows {
		return fmt.Errorf("%w: feature %q has %d values, want %d",
			ErrLengthMismatch, name, len(column), t.rows)
	}
	t.names = append(t.names, name)
	t.columns[name] = column
	return nil
}

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) []float64 {
	return t.columns[name]
}

// Names returns the feature names in column order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// NumFeatures returns the number of columns.
func (t *Table) NumFeatures() int { return len(t.names) }

// Matrix copies the table into a dense row-major matrix with one row per
// flow record and one column per feature, in column order. The table must
// have at least one row and one column; Assemble guarantees both.
func (t *Table) Matrix() *mat.Dense {
	m := mat.NewDense(t.rows, len(t.names), nil)
	for j, name := range t.names {
		col := t.columns[name]
		for i := 0; i < t.rows; i++ {
			m.Set(i, j, col[i])
		}
	}
	return m
}

// FromMatrix builds a table from a dense matrix and matching column names.
func FromMatrix(m *mat.Dense, names []string) (*Table, error) {
	rows, cols := m.Dims()
	if cols != len(names) {
		return nil, fmt.Errorf("%w: %d columns, %d names", ErrLengthMismatch, cols, len(names))
	}
	t := NewTable(rows)
	for j, name := range names {
		col := make([]float64, rows)
		mat.Col(col, j, m)
		if err := t.Add(name, col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.rows)
	for _, name := range t.names {
		col := make([]float64, t.rows)
		copy(col, t.columns[name])
		out.names = append(out.names, name)
		out.columns[name] = col
	}
	return out
}
