package schema

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// AttrName derives the logical attribute name from a physical column
// name: snake_case becomes camelCase ("emp_number" -> "empNumber").
// The transform is the single naming convention of the engine; the
// reverse direction is never computed, bindings keep both maps.
func AttrName(column string) string {
	parts := strings.Split(column, "_")
	out := make([]string, 0, len(parts))
	first := true
	for _, part := range parts {
		if part == "" {
			continue
		}
		if first {
			out = append(out, strings.ToLower(part))
			first = false
			continue
		}
		out = append(out, titleCaser.String(strings.ToLower(part)))
	}
	if len(out) == 0 {
		return column
	}
	return strings.Join(out, "")
}
