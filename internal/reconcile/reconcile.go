// Package reconcile merges conflicting or multi-sourced field values into a
// single canonical value. Every function here is total: bad input becomes
// table.Missing, never an error.
package reconcile

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sells-group/recordlink/internal/table"
)

// Year bounds accepted by ExtractYear.
const (
	MinYear = 1750
	MaxYear = 2024
)

// placeholderSuffix marks a January 1st date, usually a year-only artifact.
const placeholderSuffix = "-01-01"

// MergeLists returns the set union of two comma-separated lists. It is missing
// only when both inputs are; when one side is missing the other is returned
// unchanged. Elements keep first-appearance order, a's before b's.
func MergeLists(a, b table.Value) table.Value {
	switch {
	case a.IsMissing() && b.IsMissing():
		return table.Missing()
	case a.IsMissing():
		return b
	case b.IsMissing():
		return a
	}

	seen := make(map[string]struct{})
	var out []string
	for _, part := range append(strings.Split(a.String(), ","), strings.Split(b.String(), ",")...) {
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return table.String(strings.Join(out, ","))
}

// SelectDate picks a release date from a comma-separated list of dates. The
// first candidate whose 10-character prefix is not a January 1st placeholder
// wins. When every candidate is a placeholder the year of the first one is
// returned.
func SelectDate(dates table.Value) table.Value {
	if dates.IsMissing() {
		return table.Missing()
	}
	s := dates.String()
	if s == "" {
		return table.Missing()
	}
	parts := strings.Split(s, ",")
	for _, p := range parts {
		day := prefix(p, 10)
		if !strings.HasSuffix(day, placeholderSuffix) {
			return table.String(day)
		}
	}
	return table.String(prefix(parts[0], 4))
}

// ExtractValues parses text as a JSON object and joins its values with ",",
// in document order. Parse failures, non-object documents, non-string values
// and empty results all yield Missing.
func ExtractValues(text table.Value) table.Value {
	s, ok := text.Str()
	if !ok || !gjson.Valid(s) {
		return table.Missing()
	}
	doc := gjson.Parse(s)
	if !doc.IsObject() {
		return table.Missing()
	}

	var vals []string
	valid := true
	doc.ForEach(func(_, v gjson.Result) bool {
		if v.Type != gjson.String {
			valid = false
			return false
		}
		vals = append(vals, v.Str)
		return true
	})
	out := strings.Join(vals, ",")
	if !valid || out == "" {
		return table.Missing()
	}
	return table.String(out)
}

// ExtractYear reads the leading four characters as a year. Years outside
// [MinYear, MaxYear] are missing.
func ExtractYear(text table.Value) table.Value {
	if text.IsMissing() {
		return table.Missing()
	}
	y, err := strconv.Atoi(strings.TrimSpace(prefix(text.String(), 4)))
	if err != nil || y < MinYear || y > MaxYear {
		return table.Missing()
	}
	return table.Int(int64(y))
}

// IsValidDate reports whether s is a YYYY-MM-DD calendar date.
func IsValidDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// Lowercase lowercases string values. Anything else is missing.
func Lowercase(v table.Value) table.Value {
	s, ok := v.Str()
	if !ok {
		return table.Missing()
	}
	return table.String(strings.ToLower(s))
}

// RemoveLanguage strips " language" from labels such as "French language".
func RemoveLanguage(v table.Value) table.Value {
	s, ok := v.Str()
	if !ok {
		return table.Missing()
	}
	return table.String(strings.ReplaceAll(s, " language", ""))
}

// SelectGender maps "male" to "M" and "female" to "F". Other labels are missing.
func SelectGender(v table.Value) table.Value {
	s, _ := v.Str()
	switch s {
	case "male":
		return table.String("M")
	case "female":
		return table.String("F")
	default:
		return table.Missing()
	}
}

// ValidDate returns v when it is a YYYY-MM-DD date and Missing otherwise.
func ValidDate(v table.Value) table.Value {
	s, ok := v.Str()
	if !ok || !IsValidDate(s) {
		return table.Missing()
	}
	return v
}

// prefix returns at most the first n bytes of s.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
