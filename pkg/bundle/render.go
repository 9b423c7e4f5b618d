package bundle

import (
	"regexp"
	"slices"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Render replaces {{ name }} placeholders with values from vars. It performs
// plain substitution only. Placeholders without a value are left verbatim and
// their names are returned, sorted and deduplicated.
func Render(text string, vars map[string]string) (string, []string) {
	var unknown []string

	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			unknown = append(unknown, name)
			return match
		}
		return value
	})

	slices.Sort(unknown)
	return out, slices.Compact(unknown)
}
