package graph

import (
	"strings"
	"unicode"
)

// Labels and relationship types cannot be passed as Cypher parameters, so
// they are interpolated into the statement text. Both normalizers fold
// anything outside [A-Za-z0-9_] to '_' and guard a leading digit before
// interpolation.

const (
	fallbackLabel   = "Node"
	fallbackRelType = "RELATED_TO"
)

// NodeLabel capitalizes the first rune of a record's type tag, matching
// the export convention of capitalized node labels ("class" -> "Class").
func NodeLabel(t string) string {
	s := sanitizeIdentifier(t)
	if s == "" {
		return fallbackLabel
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// RelType uppercases a record's type tag for use as a relationship type
// ("contains" -> "CONTAINS", "calls-into" -> "CALLS_INTO").
func RelType(t string) string {
	s := sanitizeIdentifier(t)
	if s == "" {
		return fallbackRelType
	}
	return strings.ToUpper(s)
}

func sanitizeIdentifier(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s) + 1)
	for i, r := range s {
		valid := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
		if i == 0 && r >= '0' && r <= '9' {
			b.WriteByte('_')
		}
		if valid {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, "_") == "" {
		return ""
	}
	return out
}
