package table

import (
	"slices"
	"sort"
	"strings"
)

// Schema is an ordered set of unique column names.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema builds a schema. Duplicate or empty column names are rejected.
func NewSchema(names ...string) (*Schema, error) {
	s := &Schema{names: make([]string, 0, len(names)), index: make(map[string]int, len(names))}
	for _, n := range names {
		if n == "" {
			return nil, Invalid("schema", "columns", n, "empty column name")
		}
		if _, dup := s.index[n]; dup {
			return nil, Invalid("schema", "columns", n, "duplicate column name")
		}
		s.index[n] = len(s.names)
		s.names = append(s.names, n)
	}
	return s, nil
}

// Names returns a copy of the column names in order.
func (s *Schema) Names() []string { return slices.Clone(s.names) }

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.names) }

// Has reports whether the schema contains name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Index returns the position of name, or -1.
func (s *Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Column is a validated accessor for one column of a schema.
type Column struct {
	name string
	idx  int
}

// Name returns the column name.
func (c Column) Name() string { return c.name }

// Of reads the column from a record built on the same schema.
func (c Column) Of(r Record) Value { return r.vals[c.idx] }

// Lookup validates a single column name for op.
func (s *Schema) Lookup(op, name string) (Column, error) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, Invalid(op, "columns", name, "column not found")
	}
	return Column{name: name, idx: i}, nil
}

// Columns validates every name up front and returns their accessors. The
// error names the first absent column.
func (s *Schema) Columns(op string, names ...string) ([]Column, error) {
	cols := make([]Column, len(names))
	for i, n := range names {
		c, err := s.Lookup(op, n)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

// Record is one row bound to its schema.
type Record struct {
	schema *Schema
	vals   []Value
}

// NewRecord binds values to a schema. Short rows are padded with Missing.
func NewRecord(s *Schema, vals []Value) Record {
	row := make([]Value, s.Len())
	copy(row, vals)
	return Record{schema: s, vals: row}
}

// Schema returns the record's schema.
func (r Record) Schema() *Schema { return r.schema }

// Get returns the named field and whether the column exists.
func (r Record) Get(name string) (Value, bool) {
	i := r.schema.Index(name)
	if i < 0 {
		return Missing(), false
	}
	return r.vals[i], true
}

// Value returns the named field, Missing when the column does not exist.
func (r Record) Value(name string) Value {
	v, _ := r.Get(name)
	return v
}

// At returns field i in schema order.
func (r Record) At(i int) Value { return r.vals[i] }

// Values returns a copy of the record's fields in schema order.
func (r Record) Values() []Value { return slices.Clone(r.vals) }

// Map returns the record as a column name to plain value map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.vals))
	for i, n := range r.schema.names {
		m[n] = r.vals[i].Any()
	}
	return m
}

// Table is an ordered sequence of records sharing a schema. Transform methods
// never modify the receiver; they return a new table.
type Table struct {
	schema *Schema
	rows   [][]Value
}

// New creates an empty table with the given columns.
func New(columns ...string) (*Table, error) {
	s, err := NewSchema(columns...)
	if err != nil {
		return nil, err
	}
	return &Table{schema: s}, nil
}

// MustNew is New for statically known columns. It panics on invalid columns.
func MustNew(columns ...string) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRows builds a table from plain Go values, converted with Of.
func FromRows(columns []string, rows ...[]any) (*Table, error) {
	t, err := New(columns...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		vals := make([]Value, len(r))
		for i, x := range r {
			vals[i] = Of(x)
		}
		if err := t.Append(vals...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Append adds a row to a table under construction. It is the only mutating
// method and must not be used on a table shared with other callers.
func (t *Table) Append(vals ...Value) error {
	if len(vals) != t.schema.Len() {
		return Invalid("append", "row", "", "row width does not match schema")
	}
	t.rows = append(t.rows, slices.Clone(vals))
	return nil
}

// Schema returns the table schema.
func (t *Table) Schema() *Schema { return t.schema }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.schema.Names() }

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool { return t.schema.Has(name) }

// Len returns the row count.
func (t *Table) Len() int { return len(t.rows) }

// Row returns record i.
func (t *Table) Row(i int) Record { return Record{schema: t.schema, vals: t.rows[i]} }

// Records returns every row as a record.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Col returns a copy of the named column's values.
func (t *Table) Col(name string) ([]Value, error) {
	c, err := t.schema.Lookup("column", name)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[c.idx]
	}
	return out, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		rows[i] = slices.Clone(r)
	}
	return &Table{schema: t.schema, rows: rows}
}

// WithColumn returns a new table with name set to vals. An existing column is
// replaced in place; a new one is appended at the end.
func (t *Table) WithColumn(name string, vals []Value) (*Table, error) {
	if len(vals) != len(t.rows) {
		return nil, Invalid("with column", "values", name, "value count does not match row count")
	}
	schema := t.schema
	idx := schema.Index(name)
	if idx < 0 {
		s, err := NewSchema(append(schema.Names(), name)...)
		if err != nil {
			return nil, err
		}
		schema = s
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		if idx < 0 {
			row := make([]Value, len(r)+1)
			copy(row, r)
			row[len(r)] = vals[i]
			rows[i] = row
			continue
		}
		row := slices.Clone(r)
		row[idx] = vals[i]
		rows[i] = row
	}
	return &Table{schema: schema, rows: rows}, nil
}

// Project returns a table restricted to columns, in the given order.
func (t *Table) Project(columns ...string) (*Table, error) {
	cols, err := t.schema.Columns("project", columns...)
	if err != nil {
		return nil, err
	}
	schema, err := NewSchema(columns...)
	if err != nil {
		return nil, err
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(cols))
		for j, c := range cols {
			row[j] = r[c.idx]
		}
		rows[i] = row
	}
	return &Table{schema: schema, rows: rows}, nil
}

// Drop returns a table without the named columns. Absent names are ignored.
func (t *Table) Drop(columns ...string) *Table {
	keep := make([]string, 0, t.schema.Len())
	for _, n := range t.schema.names {
		if !slices.Contains(columns, n) {
			keep = append(keep, n)
		}
	}
	out, _ := t.Project(keep...)
	return out
}

// Rename returns a table with columns renamed according to m.
func (t *Table) Rename(m map[string]string) (*Table, error) {
	names := t.schema.Names()
	for i, n := range names {
		if to, ok := m[n]; ok {
			names[i] = to
		}
	}
	schema, err := NewSchema(names...)
	if err != nil {
		return nil, err
	}
	return &Table{schema: schema, rows: t.Clone().rows}, nil
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := &Table{schema: t.schema}
	for _, r := range t.rows {
		if keep(Record{schema: t.schema, vals: r}) {
			out.rows = append(out.rows, slices.Clone(r))
		}
	}
	return out
}

// DropMissing returns the rows where every named column is present.
func (t *Table) DropMissing(columns ...string) (*Table, error) {
	cols, err := t.schema.Columns("drop missing", columns...)
	if err != nil {
		return nil, err
	}
	return t.Filter(func(r Record) bool {
		for _, c := range cols {
			if c.Of(r).IsMissing() {
				return false
			}
		}
		return true
	}), nil
}

// DropDuplicates removes rows equal on every column. The first occurrence wins.
func (t *Table) DropDuplicates() *Table {
	out, _ := t.DropDuplicatesOn(t.schema.names...)
	return out
}

// DropDuplicatesOn removes rows equal on the named columns. The first
// occurrence wins.
func (t *Table) DropDuplicatesOn(columns ...string) (*Table, error) {
	cols, err := t.schema.Columns("drop duplicates", columns...)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(t.rows))
	return t.Filter(func(r Record) bool {
		k := RowKey(r, cols)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	}), nil
}

// SortStable returns the rows ordered by less. Equal rows keep their order.
func (t *Table) SortStable(less func(a, b Record) bool) *Table {
	out := t.Clone()
	sort.SliceStable(out.rows, func(i, j int) bool {
		return less(Record{schema: t.schema, vals: out.rows[i]}, Record{schema: t.schema, vals: out.rows[j]})
	})
	return out
}

// RowKey encodes the given columns of r for equality comparison.
func RowKey(r Record, cols []Column) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(c.Of(r).MatchKey())
	}
	return b.String()
}

// MapColumns applies fn to each listed column, writing the result to
// "<prefix>_<col>". Columns that are absent, or whose target already exists,
// are skipped. With substitute the source column is dropped.
func (t *Table) MapColumns(columns []string, fn func(Value) Value, substitute bool, prefix string) (*Table, error) {
	out := t
	for _, col := range columns {
		target := prefix + "_" + col
		if !out.Has(col) || out.Has(target) {
			continue
		}
		src, err := out.Col(col)
		if err != nil {
			return nil, err
		}
		mapped := make([]Value, len(src))
		for i, v := range src {
			mapped[i] = fn(v)
		}
		if out, err = out.WithColumn(target, mapped); err != nil {
			return nil, err
		}
		if substitute {
			out = out.Drop(col)
		}
	}
	return out, nil
}
