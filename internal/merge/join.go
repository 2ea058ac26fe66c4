package merge

import (
	"slices"

	"github.com/sells-group/recordlink/internal/table"
)

// joinPlan is the schema-level description of an inner equi-join.
type joinPlan struct {
	names     []string          // output columns
	leftNames map[string]string // left column -> output column
	leftKey   string
	rightKey  string
	rightCols []string // right columns carried into the output, in order
}

// planJoin resolves output column names before any row is touched.
func planJoin(left, right []string, leftKey, rightKey string) (*joinPlan, error) {
	coalesce := leftKey == rightKey
	shared := make(map[string]bool)
	for _, n := range right {
		if coalesce && n == rightKey {
			continue
		}
		if slices.Contains(left, n) {
			shared[n] = true
		}
	}

	p := &joinPlan{leftNames: make(map[string]string, len(left)), leftKey: leftKey, rightKey: rightKey}
	for _, n := range left {
		out := n
		if shared[n] {
			out = n + "_x"
		}
		p.leftNames[n] = out
		p.names = append(p.names, out)
	}
	for _, n := range right {
		if coalesce && n == rightKey {
			continue
		}
		out := n
		if shared[n] {
			out = n + "_y"
		}
		p.rightCols = append(p.rightCols, n)
		p.names = append(p.names, out)
	}
	if _, err := table.NewSchema(p.names...); err != nil {
		return nil, table.Invalid(op, StageKeys, "", "joined column names collide: "+err.Error())
	}
	return p, nil
}

// join emits one row per matching (left, right) pair, in left order and then
// right order. Rows with a missing key on either side never match.
func (p *joinPlan) join(left, right *table.Table) (*table.Table, error) {
	lk, err := left.Schema().Lookup(op, p.leftKey)
	if err != nil {
		return nil, err
	}
	rk, err := right.Schema().Lookup(op, p.rightKey)
	if err != nil {
		return nil, err
	}
	rcols, err := right.Schema().Columns(op, p.rightCols...)
	if err != nil {
		return nil, err
	}

	index := make(map[string][]table.Record)
	for _, r := range right.Records() {
		k := rk.Of(r)
		if k.IsMissing() {
			continue
		}
		index[k.MatchKey()] = append(index[k.MatchKey()], r)
	}

	out, err := table.New(p.names...)
	if err != nil {
		return nil, err
	}
	for _, l := range left.Records() {
		k := lk.Of(l)
		if k.IsMissing() {
			continue
		}
		for _, r := range index[k.MatchKey()] {
			row := l.Values()
			for _, c := range rcols {
				row = append(row, c.Of(r))
			}
			if err := out.Append(row...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
