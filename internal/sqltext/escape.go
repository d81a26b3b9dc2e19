// Package sqltext holds the small, dialect-aware string helpers the SQL
// drivers and the brokerage's filter/pagination rewriters share: literal
// escaping, identifier validation, and identifier quoting.
package sqltext

import "strings"

// EscapeLiteral escapes a string for safe inclusion inside a single-quoted
// SQL literal. It covers the seven characters MySQL/Postgres-family drivers
// treat specially; callers should still prefer parameterized queries and
// only reach for this when building generated DDL or filter text where a
// bind parameter isn't available.
func EscapeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\b':
			b.WriteString(`\b`)
		case '\x1a':
			b.WriteString(`\Z`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateIdentifier rejects identifiers that are empty or contain a NUL
// byte, the two shapes that would otherwise let a crafted column/table name
// break out of a quoted identifier.
func ValidateIdentifier(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsRune(name, 0)
}
