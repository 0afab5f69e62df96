package scope

import (
	"regexp"
	"strings"
)

// ShouldIgnore reports whether a rule name matches any ignore pattern.
//
// Matching is case-insensitive glob, anchored to the full string:
// '*' matches zero or more characters, '?' matches exactly one. A
// pattern that cannot be evaluated as a glob degrades to a
// case-insensitive exact comparison for that pattern only, so one bad
// pattern never poisons the whole lookup.
func ShouldIgnore(ruleName string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchPattern(ruleName, pattern) {
			return true
		}
	}
	return false
}

// Ignored returns the subset of names matched by the config patterns.
func (c Config) Ignored(names []string) []string {
	var out []string
	for _, name := range names {
		if ShouldIgnore(name, c.Patterns) {
			out = append(out, name)
		}
	}
	return out
}

func matchPattern(ruleName, pattern string) bool {
	re, err := regexp.Compile(translateGlob(pattern))
	if err != nil {
		// translateGlob quotes every non-wildcard rune, so compilation
		// only fails if the translation itself regresses; the pattern
		// then degrades to an exact comparison.
		return strings.EqualFold(ruleName, pattern)
	}
	return re.MatchString(ruleName)
}

// translateGlob converts a glob pattern into an anchored
// case-insensitive regular expression.
func translateGlob(pattern string) string {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}
