package derive

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/recordlink/internal/table"
)

// CountColumn holds per-company frequencies in TopNByCompany output.
const CountColumn = "count"

// PrimaryColumn names the first-company column written by SplitCompany.
func PrimaryColumn(col string) string { return "primary_" + col }

// SecondaryColumn names the remaining-companies column written by SplitCompany.
func SecondaryColumn(col string) string { return "secondary_" + col }

// SplitCompany splits a comma-separated company list into primary (first)
// and secondary (the rest) columns. Missing or empty lists give Missing in
// both; a single company leaves secondary Missing. A present non-string value
// returns table.ErrTransformNotApplicable.
func SplitCompany(t *table.Table, col string) (*table.Table, error) {
	c, err := t.Schema().Lookup("split company", col)
	if err != nil {
		return nil, err
	}

	primary := make([]table.Value, t.Len())
	secondary := make([]table.Value, t.Len())
	for i, r := range t.Records() {
		v := c.Of(r)
		if v.IsMissing() {
			continue
		}
		s, ok := v.Str()
		if !ok {
			return nil, table.NotApplicable(col, "expected text, found "+v.Kind().String())
		}
		if s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		primary[i] = table.String(parts[0])
		if len(parts) > 1 {
			secondary[i] = table.String(strings.Join(parts[1:], ","))
		}
	}

	out, err := t.WithColumn(PrimaryColumn(col), primary)
	if err != nil {
		return nil, err
	}
	return out.WithColumn(SecondaryColumn(col), secondary)
}

// TopNByCompany ranks rows by how often their primary company occurs. With
// n == 0 every row is kept, sorted by descending count; with n > 0 only rows
// of the n most frequent primary companies are kept. Ties keep the order in
// which companies first appear. The result holds columns plus the primary
// company column. The count column is always attached when n > 0, and only
// when addCount is set for n == 0.
//
// Schema errors are returned. A company column that does not hold text is
// logged and the input is returned unmodified.
func TopNByCompany(t *table.Table, col string, columns []string, n int, addCount bool) (*table.Table, error) {
	const op = "top companies"
	if _, err := t.Schema().Lookup(op, col); err != nil {
		return nil, err
	}
	if _, err := t.Schema().Columns(op, columns...); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, table.Invalid(op, "n", strconv.Itoa(n), "n must be a non-negative integer")
	}

	split, err := SplitCompany(t, col)
	if errors.Is(err, table.ErrTransformNotApplicable) {
		zap.L().Warn("company split not applied; check the column data type",
			zap.String("column", col),
			zap.Error(err),
		)
		return t, nil
	}
	if err != nil {
		return nil, err
	}

	primaryCol := PrimaryColumn(col)
	cols := slices.Clone(columns)
	if !slices.Contains(cols, primaryCol) {
		cols = append(cols, primaryCol)
	}

	primaries, err := split.Col(primaryCol)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	rank := make(map[string]int)
	var order []string
	for _, v := range primaries {
		s, ok := v.Str()
		if !ok {
			continue
		}
		if _, seen := rank[s]; !seen {
			rank[s] = len(order)
			order = append(order, s)
		}
		counts[s]++
	}

	countVals := make([]table.Value, len(primaries))
	for i, v := range primaries {
		if s, ok := v.Str(); ok {
			countVals[i] = table.Int(counts[s])
		}
	}
	ranked, err := split.WithColumn(CountColumn, countVals)
	if err != nil {
		return nil, err
	}

	if n > 0 {
		top := slices.Clone(order)
		slices.SortStableFunc(top, func(a, b string) int {
			return int(counts[b] - counts[a])
		})
		if len(top) > n {
			top = top[:n]
		}
		pc, _ := ranked.Schema().Lookup(op, primaryCol)
		ranked = ranked.Filter(func(r table.Record) bool {
			s, ok := pc.Of(r).Str()
			return ok && slices.Contains(top, s)
		})
	}

	pc, _ := ranked.Schema().Lookup(op, primaryCol)
	cc, _ := ranked.Schema().Lookup(op, CountColumn)
	sorted := ranked.SortStable(func(a, b table.Record) bool {
		ca, okA := cc.Of(a).IntVal()
		cb, okB := cc.Of(b).IntVal()
		switch {
		case !okA || !okB:
			return okA && !okB
		case ca != cb:
			return ca > cb
		}
		sa, _ := pc.Of(a).Str()
		sb, _ := pc.Of(b).Str()
		return rank[sa] < rank[sb]
	})

	// The top-n ranking always carries its count; addCount only governs n == 0.
	if (n > 0 || addCount) && !slices.Contains(cols, CountColumn) {
		cols = append(cols, CountColumn)
	}
	return sorted.Project(cols...)
}

// ParseTopN coerces user input to a non-negative company count.
func ParseTopN(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, table.Invalid("top companies", "n", s, "input a non-negative integer value for n")
	}
	return n, nil
}
