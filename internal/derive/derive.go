// Package derive adds computed per-row metrics to merged tables. Every
// function returns a new table and leaves its input untouched.
package derive

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/recordlink/internal/table"
)

// ROIColumn is the column written by ComputeROI.
const ROIColumn = "roi_perctg"

// QuantileColumn is the column written by QuantileBucket.
const QuantileColumn = "quantile"

// AgeBounds is the inclusive range of plausible ages.
type AgeBounds struct {
	Min float64
	Max float64
}

// DefaultAgeBounds keeps ages from 18 to 70.
var DefaultAgeBounds = AgeBounds{Min: 18, Max: 70}

// ComputeAge writes release year minus birth year to outCol. Ages outside the
// bounds are replaced with Missing, not clipped.
func ComputeAge(t *table.Table, birthCol, releaseCol, outCol string, bounds AgeBounds) (*table.Table, error) {
	cols, err := t.Schema().Columns("compute age", birthCol, releaseCol)
	if err != nil {
		return nil, err
	}
	if bounds.Min > bounds.Max {
		return nil, table.Invalid("compute age", "bounds", "", "min age exceeds max age")
	}
	birth, release := cols[0], cols[1]

	ages := make([]table.Value, t.Len())
	for i, r := range t.Records() {
		ages[i] = age(birth.Of(r), release.Of(r), bounds)
	}
	return t.WithColumn(outCol, ages)
}

func age(birth, release table.Value, bounds AgeBounds) table.Value {
	b, ok1 := birth.Number()
	r, ok2 := release.Number()
	if !ok1 || !ok2 {
		return table.Missing()
	}
	a := r - b
	if a < bounds.Min || a > bounds.Max {
		return table.Missing()
	}
	if birth.Kind() == table.KindInt && release.Kind() == table.KindInt {
		return table.Int(int64(a))
	}
	return table.Float(a)
}

// ComputeROI adds roi_perctg = revenue / budget * 100. Rows with a missing
// operand or a zero budget get Missing. If roi_perctg already exists the
// input is returned as is.
func ComputeROI(t *table.Table, revenueCol, budgetCol string) (*table.Table, error) {
	cols, err := t.Schema().Columns("compute roi", revenueCol, budgetCol)
	if err != nil {
		return nil, err
	}
	if t.Has(ROIColumn) {
		return t, nil
	}
	revenue, budget := cols[0], cols[1]

	roi := make([]table.Value, t.Len())
	for i, r := range t.Records() {
		rev, ok1 := revenue.Of(r).Number()
		bud, ok2 := budget.Of(r).Number()
		if !ok1 || !ok2 || bud == 0 {
			roi[i] = table.Missing()
			continue
		}
		roi[i] = table.Float(rev / bud * 100)
	}
	return t.WithColumn(ROIColumn, roi)
}

// QuantileBucket assigns each row the bucket index of col against the
// cutpoints [min, q..., max]: bucket i holds cut[i-1] < v <= cut[i], and the
// minimum itself is bucket 0. Quantiles use linear interpolation over the
// present values. Missing values get a Missing bucket.
func QuantileBucket(t *table.Table, col string, quantiles []float64) (*table.Table, error) {
	c, err := t.Schema().Lookup("quantile bucket", col)
	if err != nil {
		return nil, err
	}
	for _, q := range quantiles {
		if q < 0 || q > 1 || math.IsNaN(q) {
			return nil, table.Invalid("quantile bucket", "quantiles", col, "quantiles must lie in [0, 1]")
		}
	}

	var present []float64
	for _, r := range t.Records() {
		v := c.Of(r)
		if v.IsMissing() {
			continue
		}
		x, ok := v.Number()
		if !ok {
			return nil, table.Invalid("quantile bucket", "values", col, "column is not numeric")
		}
		present = append(present, x)
	}
	if t.Has(QuantileColumn) {
		zap.L().Warn("quantile column already present, overwriting", zap.String("column", col))
	}

	buckets := make([]table.Value, t.Len())
	if len(present) == 0 {
		return t.WithColumn(QuantileColumn, buckets)
	}
	sort.Float64s(present)
	cuts := make([]float64, 0, len(quantiles)+2)
	cuts = append(cuts, present[0])
	for _, q := range quantiles {
		cuts = append(cuts, quantile(present, q))
	}
	cuts = append(cuts, present[len(present)-1])

	for i, r := range t.Records() {
		x, ok := c.Of(r).Number()
		if !ok {
			continue
		}
		buckets[i] = table.Int(int64(bucket(cuts, x)))
	}
	return t.WithColumn(QuantileColumn, buckets)
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func bucket(cuts []float64, x float64) int {
	if x == cuts[0] {
		return 0
	}
	for i := 1; i < len(cuts); i++ {
		if cuts[i-1] < x && x <= cuts[i] {
			return i
		}
	}
	return 0
}
