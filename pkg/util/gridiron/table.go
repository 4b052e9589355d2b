package gridiron

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/richard-senior/gridiron/pkg/util"
)

// Table is a small column-ordered table of loosely typed cells.
// It is the shape play-by-play data takes between the datasource and the
// numeric helpers. A row without an entry for a column has a missing cell.
type Table struct {
	columns []string
	rows    []map[string]any
}

// NewTable builds a table from column names and rows.
// Rows may only reference declared columns.
func NewTable(columns []string, rows []map[string]any) (*Table, error) {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := known[c]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidInput, c)
		}
		known[c] = struct{}{}
	}
	t := &Table{columns: slices.Clone(columns), rows: make([]map[string]any, len(rows))}
	for i, r := range rows {
		for c := range r {
			if _, ok := known[c]; !ok {
				return nil, fmt.Errorf("%w: row %d has undeclared column %q", ErrInvalidInput, i, c)
			}
		}
		t.rows[i] = maps.Clone(r)
		if t.rows[i] == nil {
			t.rows[i] = map[string]any{}
		}
	}
	return t, nil
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether name is a column of t
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.columns, name)
}

// Row returns a copy of row i
func (t *Table) Row(i int) map[string]any {
	return maps.Clone(t.rows[i])
}

// Column returns the cells of a column in row order; missing cells are nil
func (t *Table) Column(name string) ([]any, error) {
	if err := t.requireColumn(name); err != nil {
		return nil, err
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out, nil
}

// DropRename returns a new table without the drop columns and with columns
// renamed per rename (old name -> new name). Unknown names in either argument
// are ignored. When a rename collides with an existing column the two merge,
// keeping the first position and the later column's values.
func (t *Table) DropRename(drop []string, rename map[string]string) *Table {
	dropped := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		dropped[d] = struct{}{}
	}

	var columns []string
	for _, c := range t.columns {
		if _, gone := dropped[c]; gone {
			continue
		}
		if to, ok := rename[c]; ok {
			c = to
		}
		columns = append(columns, c)
	}
	columns = dedupeKeepFirst(columns)

	out := &Table{columns: columns, rows: make([]map[string]any, len(t.rows))}
	for i, r := range t.rows {
		nr := make(map[string]any, len(r))
		for _, c := range t.columns {
			v, ok := r[c]
			if !ok {
				continue
			}
			if _, gone := dropped[c]; gone {
				continue
			}
			if to, ok := rename[c]; ok {
				c = to
			}
			nr[c] = v
		}
		out.rows[i] = nr
	}
	return out
}

func dedupeKeepFirst(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Concat joins left and right side by side, pairing rows by position.
// The result has as many rows as the longer input; cells beyond the end of
// the shorter input are missing. Column names must not overlap.
func Concat(left, right *Table) (*Table, error) {
	if left == nil || right == nil {
		return nil, fmt.Errorf("%w: cannot concatenate a nil table", ErrInvalidInput)
	}
	for _, c := range right.columns {
		if left.HasColumn(c) {
			return nil, fmt.Errorf("%w: column %q exists on both sides", ErrInvalidInput, c)
		}
	}

	n := max(len(left.rows), len(right.rows))
	out := &Table{
		columns: append(slices.Clone(left.columns), right.columns...),
		rows:    make([]map[string]any, n),
	}
	for i := 0; i < n; i++ {
		r := make(map[string]any)
		if i < len(left.rows) {
			maps.Copy(r, left.rows[i])
		}
		if i < len(right.rows) {
			maps.Copy(r, right.rows[i])
		}
		out.rows[i] = r
	}
	return out, nil
}

// Floats returns a column converted to float64. A missing or non-numeric
// cell is an error.
func (t *Table) Floats(name string) ([]float64, error) {
	if err := t.requireColumn(name); err != nil {
		return nil, err
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		v, err := cellFloat(r, name)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Record extracts the named features of row i
func (t *Table) Record(i int, features []string) (Record, error) {
	if i < 0 || i >= len(t.rows) {
		return nil, fmt.Errorf("%w: row %d out of range [0, %d)", ErrInvalidInput, i, len(t.rows))
	}
	rec := make(Record, len(features))
	for _, f := range features {
		if err := t.requireColumn(f); err != nil {
			return nil, err
		}
		v, err := cellFloat(t.rows[i], f)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rec[f] = v
	}
	return rec, nil
}

// TrainingSet converts the table into a training set over features, labelled
// by labelColumn rendered as a string.
func (t *Table) TrainingSet(features []string, labelColumn string) (*TrainingSet[string], error) {
	if err := validateFeatures(features); err != nil {
		return nil, err
	}
	if err := t.requireColumn(labelColumn); err != nil {
		return nil, err
	}
	records := make([]Record, len(t.rows))
	labels := make([]string, len(t.rows))
	for i, r := range t.rows {
		rec, err := t.Record(i, features)
		if err != nil {
			return nil, err
		}
		raw, ok := r[labelColumn]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: row %d has no %q label", ErrInvalidInput, i, labelColumn)
		}
		label, err := util.GetAsString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d label: %v", ErrInvalidInput, i, err)
		}
		records[i] = rec
		labels[i] = label
	}
	return NewTrainingSet(records, labels)
}

// Covariance returns the sample covariance of two numeric columns
func (t *Table) Covariance(a, b string) (float64, error) {
	as, err := t.Floats(a)
	if err != nil {
		return 0, err
	}
	bs, err := t.Floats(b)
	if err != nil {
		return 0, err
	}
	return Covariance(as, bs)
}

func (t *Table) requireColumn(name string) error {
	if t.HasColumn(name) {
		return nil
	}
	if guess, ok := util.ClosestMatch(name, t.columns, 3); ok {
		return fmt.Errorf("%w: unknown column %q (did you mean %q?)", ErrInvalidInput, name, guess)
	}
	return fmt.Errorf("%w: unknown column %q", ErrInvalidInput, name)
}

func cellFloat(row map[string]any, name string) (float64, error) {
	raw, ok := row[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %q is missing", ErrInvalidInput, name)
	}
	v, err := util.GetAsFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidInput, name, err)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q is missing", ErrInvalidInput, name)
	}
	return v, nil
}
