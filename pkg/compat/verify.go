package compat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
	"github.com/nnnkkk7/pgcompat/pkg/query"
)

// check is one verification query and the predicate its single value must
// satisfy.
type check struct {
	name     string
	query    string
	expected string
	accept   func(v any) bool
}

var checks = []check{
	{
		name:     "GROUP_CONCAT",
		query:    "SELECT GROUP_CONCAT(val) FROM (VALUES ('a'), ('b'), ('c')) AS t(val)",
		expected: "a,b,c",
		accept:   func(v any) bool { return v == "a,b,c" },
	},
	{
		name:     "unix_timestamp (current time)",
		query:    "SELECT unix_timestamp() > 0",
		expected: "true",
		accept:   func(v any) bool { return v == true },
	},
	{
		name:     "unix_timestamp (specific time)",
		query:    "SELECT unix_timestamp('2024-01-01 00:00:00'::timestamp)",
		expected: "integer",
		accept: func(v any) bool {
			_, ok := asInt(v)
			return ok
		},
	},
	{
		name:     "timestampdiff (days)",
		query:    "SELECT timestampdiff('day', '2024-01-01'::timestamp, '2024-01-31'::timestamp)",
		expected: "30",
		accept: func(v any) bool {
			n, ok := asInt(v)
			return ok && n == 30
		},
	},
	{
		name:     "timestampdiff (hours)",
		query:    "SELECT timestampdiff('hour', '2024-01-01 00:00:00'::timestamp, '2024-01-01 12:00:00'::timestamp)",
		expected: "12",
		accept: func(v any) bool {
			n, ok := asInt(v)
			return ok && n == 12
		},
	},
}

// CheckResult is the outcome of one verification query.
type CheckResult struct {
	Name     string `json:"name"`
	Query    string `json:"query"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Verify runs every check and reports whether all passed.
func (i *Installer) Verify(ctx context.Context) (bool, []CheckResult) {
	allPassed := true
	results := make([]CheckResult, 0, len(checks))

	for _, c := range checks {
		res := CheckResult{Name: c.name, Query: c.query, Expected: c.expected}

		var v any
		if err := i.db.QueryRow(ctx, c.query).Scan(&v); err != nil {
			res.Error = diagnostic.Excerpt(err.Error(), 80)
		} else {
			v = query.ConvertValue(v)
			res.Actual = fmt.Sprint(v)
			res.Passed = c.accept(v)
		}

		if !res.Passed {
			allPassed = false
			i.logger.WarnContext(ctx, "compatibility check failed",
				slog.String("check", c.name),
				slog.String("actual", res.Actual),
				slog.String("error", res.Error),
			)
		}
		results = append(results, res)
	}
	return allPassed, results
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
