package query

import "regexp"

// Flat rewrites. None of these need nesting awareness, so plain regular
// expressions are enough.
var (
	// indexHint matches FORCE INDEX (...), USE INDEX (...) and IGNORE INDEX (...)
	// together with their leading whitespace. The identifier list is assumed
	// to contain no parentheses.
	indexHint = regexp.MustCompile(`(?i)\s+(?:FORCE|USE|IGNORE)\s+INDEX\s*\([^)]+\)`)

	nullCoalescingCall = regexp.MustCompile(`(?i)\bIFNULL\s*\(`)

	// dateFormatYMD only recognizes the '%Y-%m-%d' format string; any other
	// format passes through unchanged.
	dateFormatYMD = regexp.MustCompile(`(?i)\bDATE_FORMAT\s*\(\s*([^,]+?)\s*,\s*['"]%Y-%m-%d['"]\s*\)`)
)

// StripIndexHints removes index hint clauses.
func StripIndexHints(sql string) string {
	return indexHint.ReplaceAllString(sql, "")
}

// RenameNullCoalescing renames IFNULL( to COALESCE(. Arguments are untouched.
func RenameNullCoalescing(sql string) string {
	return nullCoalescingCall.ReplaceAllLiteralString(sql, "COALESCE(")
}

// RewriteDateFormat converts DATE_FORMAT(expr, '%Y-%m-%d') to
// TO_CHAR(expr, 'YYYY-MM-DD').
func RewriteDateFormat(sql string) string {
	return dateFormatYMD.ReplaceAllString(sql, "TO_CHAR(${1}, 'YYYY-MM-DD')")
}
