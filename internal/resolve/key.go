package resolve

import (
	"strings"

	"github.com/sells-group/recordlink/internal/table"
)

// KeySeparator joins normalized fragments of a composite key.
const KeySeparator = "_"

// BuildKey normalizes each value and joins the fragments with "_". A single
// value yields a single-fragment key. If any value is missing the whole key is
// missing; partial keys are never produced.
func BuildKey(values ...table.Value) table.Value {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v.IsMissing() {
			return table.Missing()
		}
		parts = append(parts, Normalize(v.String()))
	}
	return table.String(strings.Join(parts, KeySeparator))
}

// BuildKeyColumn applies BuildKey row by row over columns, in the given order.
// The result is aligned to the table's rows.
func BuildKeyColumn(t *table.Table, columns ...string) ([]table.Value, error) {
	if len(columns) == 0 {
		return nil, table.Invalid("build key", "columns", "", "at least one column is required")
	}
	cols, err := t.Schema().Columns("build key", columns...)
	if err != nil {
		return nil, err
	}
	keys := make([]table.Value, t.Len())
	vals := make([]table.Value, len(cols))
	for i, r := range t.Records() {
		for j, c := range cols {
			vals[j] = c.Of(r)
		}
		keys[i] = BuildKey(vals...)
	}
	return keys, nil
}

// WithKeyColumn returns a copy of t with the key of columns stored in out.
func WithKeyColumn(t *table.Table, out string, columns ...string) (*table.Table, error) {
	keys, err := BuildKeyColumn(t, columns...)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(out, keys)
}
