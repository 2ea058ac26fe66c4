package reconcile

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recordlink/internal/table"
)

func splitSet(t *testing.T, v table.Value) []string {
	t.Helper()
	s, ok := v.Str()
	require.True(t, ok, "expected a string value, got %s", v.Kind())
	parts := strings.Split(s, ",")
	sort.Strings(parts)
	return parts
}

func TestMergeLists_Union(t *testing.T) {
	got := MergeLists(table.String("a,b"), table.String("b,c"))
	assert.Equal(t, []string{"a", "b", "c"}, splitSet(t, got))
}

func TestMergeLists_DedupsWithinInput(t *testing.T) {
	got := MergeLists(table.String("drama,drama"), table.String("comedy"))
	assert.Equal(t, []string{"comedy", "drama"}, splitSet(t, got))
}

func TestMergeLists_MissingSides(t *testing.T) {
	assert.Equal(t, table.String("x"), MergeLists(table.Missing(), table.String("x")))
	assert.Equal(t, table.String("x,x"), MergeLists(table.String("x,x"), table.Missing()))
	assert.True(t, MergeLists(table.Missing(), table.Missing()).IsMissing())
}

func TestSelectDate(t *testing.T) {
	tests := []struct {
		name string
		in   table.Value
		want table.Value
	}{
		{"skips placeholder", table.String("2020-01-01,2019-05-03"), table.String("2019-05-03")},
		{"year fallback", table.String("2020-01-01"), table.String("2020")},
		{"all placeholders", table.String("2020-01-01,2018-01-01"), table.String("2020")},
		{"first wins", table.String("2001-03-04,2002-05-06"), table.String("2001-03-04")},
		{"timestamp trimmed", table.String("1999-07-16T00:00:00Z"), table.String("1999-07-16")},
		{"short candidate", table.String("1999"), table.String("1999")},
		{"empty", table.String(""), table.Missing()},
		{"missing", table.Missing(), table.Missing()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectDate(tt.in))
		})
	}
}

func TestExtractValues(t *testing.T) {
	tests := []struct {
		name string
		in   table.Value
		want table.Value
	}{
		{"document order", table.String(`{"/m/02h40lc": "English", "/m/064_8sq": "French"}`), table.String("English,French")},
		{"single", table.String(`{"k": "Drama"}`), table.String("Drama")},
		{"empty object", table.String(`{}`), table.Missing()},
		{"empty value", table.String(`{"k": ""}`), table.Missing()},
		{"invalid json", table.String(`{"k": `), table.Missing()},
		{"array", table.String(`["a","b"]`), table.Missing()},
		{"non-string value", table.String(`{"k": 1}`), table.Missing()},
		{"missing", table.Missing(), table.Missing()},
		{"not a string", table.Int(3), table.Missing()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractValues(tt.in))
		})
	}
}

func TestExtractYear(t *testing.T) {
	assert.Equal(t, table.Int(1995), ExtractYear(table.String("1995-12-15")))
	assert.Equal(t, table.Int(1750), ExtractYear(table.String("1750")))
	assert.True(t, ExtractYear(table.String("1749-01-01")).IsMissing())
	assert.True(t, ExtractYear(table.String("2025")).IsMissing())
	assert.True(t, ExtractYear(table.String("abcd")).IsMissing())
	assert.True(t, ExtractYear(table.Missing()).IsMissing())
}

func TestIsValidDate(t *testing.T) {
	assert.True(t, IsValidDate("2020-02-29"))
	assert.False(t, IsValidDate("2019-02-29"))
	assert.False(t, IsValidDate("2020"))
	assert.False(t, IsValidDate(""))
}

func TestValidDate(t *testing.T) {
	assert.Equal(t, table.String("2020-05-01"), ValidDate(table.String("2020-05-01")))
	assert.True(t, ValidDate(table.String("05/01/2020")).IsMissing())
}

func TestLowercaseAndRemoveLanguage(t *testing.T) {
	assert.Equal(t, table.String("english"), Lowercase(table.String("English")))
	assert.True(t, Lowercase(table.Int(1)).IsMissing())
	assert.Equal(t, table.String("French"), RemoveLanguage(table.String("French language")))
	assert.True(t, RemoveLanguage(table.Missing()).IsMissing())
}

func TestSelectGender(t *testing.T) {
	assert.Equal(t, table.String("M"), SelectGender(table.String("male")))
	assert.Equal(t, table.String("F"), SelectGender(table.String("female")))
	assert.True(t, SelectGender(table.String("non-binary")).IsMissing())
	assert.True(t, SelectGender(table.Missing()).IsMissing())
}

func TestLookup(t *testing.T) {
	fn, ok := Lookup("select_date")
	require.True(t, ok)
	assert.Equal(t, table.String("2019-05-03"), fn(table.String("2020-01-01,2019-05-03")))

	_, ok = Lookup("nope")
	assert.False(t, ok)
	assert.Contains(t, Names(), "extract_values")
}
