package reconcile

import (
	"slices"

	"github.com/sells-group/recordlink/internal/table"
)

// Func is a unary reconciler applied to one column value.
type Func func(table.Value) table.Value

var registry = map[string]Func{
	"select_date":     SelectDate,
	"extract_values":  ExtractValues,
	"extract_year":    ExtractYear,
	"lowercase":       Lowercase,
	"remove_language": RemoveLanguage,
	"select_gender":   SelectGender,
	"valid_date":      ValidDate,
}

// Lookup returns the named reconciler.
func Lookup(name string) (Func, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Names lists the registered reconcilers in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
