package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recordlink/internal/table"
)

func TestMissingStats(t *testing.T) {
	tbl, err := table.FromRows([]string{"name", "birth_year", "gender"},
		[]any{"Al Pacino", 1940, "M"},
		[]any{"Unknown", nil, nil},
		[]any{"", nil, "F"},
		[]any{nil, 1950, "F"},
	)
	require.NoError(t, err)

	s := MissingStats(tbl)
	assert.Equal(t, 4, s.Total)
	require.Len(t, s.Columns, 3)
	assert.Equal(t, ColumnStat{Column: "name", Missing: 1, Ratio: 0.25}, s.Columns[0])
	assert.Equal(t, ColumnStat{Column: "birth_year", Missing: 2, Ratio: 0.5}, s.Columns[1])
	assert.Equal(t, 1, s.Columns[2].Missing)
}

func TestMissingStats_EmptyTable(t *testing.T) {
	s := MissingStats(table.MustNew("a"))
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, []ColumnStat{{Column: "a"}}, s.Columns)
}

func TestPrintMissingStats(t *testing.T) {
	tbl, err := table.FromRows([]string{"title", "budget"},
		[]any{"Heat", 60000000},
		[]any{"Alien", nil},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintMissingStats(&buf, tbl)

	out := buf.String()
	assert.Contains(t, out, "Total length: 2")
	assert.Contains(t, out, "COLUMN")
	assert.Regexp(t, `budget\s+1\s+0\.50`, out)
	assert.Regexp(t, `title\s+0\s+0\.00`, out)
}

func TestPrintTestResult(t *testing.T) {
	tests := []struct {
		name    string
		result  TestResult
		verdict string
	}{
		{"reject at default alpha", TestResult{Statistic: 3.2, PValue: 0.01, StatisticName: "t", NullHypothesis: "equal means"}, "we CAN significantly REJECT"},
		{"keep at default alpha", TestResult{Statistic: 0.4, PValue: 0.3, StatisticName: "t", NullHypothesis: "equal means"}, "we CANNOT significantly REJECT"},
		{"boundary is not rejected", TestResult{PValue: 0.05, StatisticName: "t"}, "we CANNOT"},
		{"custom alpha", TestResult{PValue: 0.03, StatisticName: "t", Alpha: 0.01}, "we CANNOT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintTestResult(&buf, tt.result)
			assert.Contains(t, buf.String(), tt.verdict)
		})
	}

	var buf bytes.Buffer
	PrintTestResult(&buf, TestResult{Statistic: 3.2, PValue: 0.01, StatisticName: "Pearson r", NullHypothesis: "no correlation"})
	assert.Equal(t,
		"With a value of 3.20 for Pearson r and a p-value of 0.01,\nwe CAN significantly REJECT the null hypothesis (i.e. \"no correlation\")\n",
		buf.String())
}
