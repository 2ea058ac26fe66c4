package merge

import (
	"github.com/sells-group/recordlink/internal/table"
)

// AggregateDuplicates collapses rows that share a grouping key into one record.
// A column whose values are all booleans is OR-ed across the group; every
// other column takes the first row's value.
func AggregateDuplicates(rows []table.Record) (table.Record, error) {
	if len(rows) == 0 {
		return table.Record{}, table.Invalid("aggregate duplicates", "rows", "", "empty group")
	}
	schema := rows[0].Schema()
	for _, r := range rows[1:] {
		if r.Schema() != schema {
			return table.Record{}, table.Invalid("aggregate duplicates", "rows", "", "rows do not share a schema")
		}
	}

	out := rows[0].Values()
	for i := range out {
		allBool, anyTrue := true, false
		for _, r := range rows {
			b, ok := r.At(i).BoolVal()
			if !ok {
				allBool = false
				break
			}
			anyTrue = anyTrue || b
		}
		if allBool {
			out[i] = table.Bool(anyTrue)
		}
	}
	return table.NewRecord(schema, out), nil
}

// GroupAggregate groups t by the key columns and applies AggregateDuplicates
// to every group. Groups keep the order of their first row. Rows with a
// missing key value are dropped.
func GroupAggregate(t *table.Table, keys ...string) (*table.Table, error) {
	cols, err := t.Schema().Columns("group aggregate", keys...)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string][]table.Record)
	for _, r := range t.Records() {
		missing := false
		for _, c := range cols {
			if c.Of(r).IsMissing() {
				missing = true
				break
			}
		}
		if missing {
			continue
		}
		k := table.RowKey(r, cols)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	out, err := table.New(t.Columns()...)
	if err != nil {
		return nil, err
	}
	for _, k := range order {
		rec, err := AggregateDuplicates(groups[k])
		if err != nil {
			return nil, err
		}
		if err := out.Append(rec.Values()...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
