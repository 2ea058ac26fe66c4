// Package report prints exploratory summaries of tables and statistical test
// outcomes to the console.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sells-group/recordlink/internal/table"
)

// DefaultAlpha is the significance level used when none is configured.
const DefaultAlpha = 0.05

// ColumnStat is the missing-value count of one column.
type ColumnStat struct {
	Column  string
	Missing int
	// Ratio is Missing over the table length, 0 for an empty table.
	Ratio float64
}

// Summary describes missing values across a table.
type Summary struct {
	Total   int
	Columns []ColumnStat
}

// MissingStats counts Missing values per column, in schema order.
func MissingStats(t *table.Table) Summary {
	s := Summary{Total: t.Len(), Columns: make([]ColumnStat, t.Schema().Len())}
	for i, name := range t.Columns() {
		s.Columns[i].Column = name
	}
	for _, r := range t.Records() {
		for i := range s.Columns {
			if r.At(i).IsMissing() {
				s.Columns[i].Missing++
			}
		}
	}
	if s.Total > 0 {
		for i := range s.Columns {
			s.Columns[i].Ratio = float64(s.Columns[i].Missing) / float64(s.Total)
		}
	}
	return s
}

// PrintMissingStats writes the table length and one line per column with its
// missing count and ratio.
func PrintMissingStats(out io.Writer, t *table.Table) {
	s := MissingStats(t)
	_, _ = fmt.Fprintf(out, "Total length: %d\n", s.Total)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COLUMN\tMISSING\tRATIO")
	_, _ = fmt.Fprintln(w, "------\t-------\t-----")
	for _, c := range s.Columns {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.2f\n", c.Column, c.Missing, c.Ratio)
	}
	_ = w.Flush()
}

// TestResult is the outcome of a hypothesis test computed elsewhere.
type TestResult struct {
	Statistic      float64
	PValue         float64
	StatisticName  string
	NullHypothesis string
	// Alpha is the significance level. Zero means DefaultAlpha.
	Alpha float64
}

// Rejects reports whether the null hypothesis is rejected at Alpha.
func (r TestResult) Rejects() bool {
	alpha := r.Alpha
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return r.PValue < alpha
}

// PrintTestResult writes a two-line verdict for r.
func PrintTestResult(out io.Writer, r TestResult) {
	verdict := "CANNOT"
	if r.Rejects() {
		verdict = "CAN"
	}
	_, _ = fmt.Fprintf(out, "With a value of %.2f for %s and a p-value of %.2f,\n", r.Statistic, r.StatisticName, r.PValue)
	_, _ = fmt.Fprintf(out, "we %s significantly REJECT the null hypothesis (i.e. %q)\n", verdict, r.NullHypothesis)
}
