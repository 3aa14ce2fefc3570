// Package query translates dialect-A SQL into PostgreSQL-compatible SQL and
// executes it with transparent recovery from aborted transactions.
package query

// Result is the outcome of executing one statement. Read statements fill
// Columns, ColumnTypes and Rows; write statements fill RowsAffected.
type Result struct {
	Columns      []string `json:"columns,omitempty"`
	ColumnTypes  []string `json:"columnTypes,omitempty"`
	Rows         [][]any  `json:"rows,omitempty"`
	RowsAffected int64    `json:"rowsAffected"`
}

// ConvertValue normalizes driver values for JSON output.
func ConvertValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	default:
		return v
	}
}
