package query

import (
	"strconv"
	"strings"
)

// PostgresNormalizer converts positional ? placeholders to $1, $2, ... and
// backtick-quoted identifiers to double-quoted ones. Text inside string
// literals and quoted identifiers is left alone.
type PostgresNormalizer struct{}

// NewPostgresNormalizer creates a normalizer.
func NewPostgresNormalizer() *PostgresNormalizer {
	return &PostgresNormalizer{}
}

// Normalize rewrites sql.
func (PostgresNormalizer) Normalize(sql string) string {
	if !strings.ContainsAny(sql, "?`") {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 8)

	var quote byte
	param := 0
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			if ch == quote && (i == 0 || sql[i-1] != '\\') {
				quote = 0
				if ch == '`' {
					b.WriteByte('"')
					continue
				}
			}
			b.WriteByte(ch)
		case ch == '\'' || ch == '"':
			quote = ch
			b.WriteByte(ch)
		case ch == '`':
			quote = ch
			b.WriteByte('"')
		case ch == '?':
			param++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(param))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
