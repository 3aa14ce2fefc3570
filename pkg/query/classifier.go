package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
)

// StatementKind is the coarse category of a SQL statement.
type StatementKind string

// Statement kinds.
const (
	KindRead  StatementKind = "read"
	KindWrite StatementKind = "write"
	KindOther StatementKind = "other"
)

// readPrefixes start statements that return rows even when the parser
// cannot handle them (PostgreSQL syntax, $n placeholders).
var readPrefixes = []string{"SELECT", "WITH", "SHOW", "VALUES", "EXPLAIN", "TABLE", "DESCRIBE", "DESC"}

var writePrefixes = []string{"INSERT", "UPDATE", "DELETE", "REPLACE", "MERGE"}

var returningClause = regexp.MustCompile(`(?i)\bRETURNING\b`)

// Classification describes a statement.
type Classification struct {
	Kind StatementKind `json:"kind"`
	// Parsed is false when the statement was classified by prefix only.
	Parsed bool `json:"parsed"`
	// Functions lists the distinct upper-cased function names called, when parsed.
	Functions []string `json:"functions,omitempty"`
}

// Classifier provides SQL statement classification functionality.
type Classifier struct{}

// NewClassifier creates a new SQL classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify parses sql and reports its kind. Statements the parser rejects
// fall back to keyword inspection.
func (c *Classifier) Classify(sql string) Classification {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return Classification{Kind: KindOther}
	}

	stmt, err := parse(trimmed)
	if err != nil {
		return Classification{Kind: c.classifyByPrefix(trimmed)}
	}

	result := Classification{Parsed: true, Functions: functionNames(stmt)}
	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect, *sqlparser.Show, *sqlparser.OtherRead:
		result.Kind = KindRead
	case *sqlparser.Insert, *sqlparser.Update, *sqlparser.Delete:
		result.Kind = KindWrite
		if returningClause.MatchString(trimmed) {
			result.Kind = KindRead
		}
	default:
		result.Kind = KindOther
	}
	return result
}

// parse wraps sqlparser.Parse, which panics on some valid statements
// (SHOW TABLES, SHOW DATABASES).
func parse(sql string) (stmt sqlparser.Statement, err error) {
	defer func() {
		if r := recover(); r != nil {
			stmt, err = nil, fmt.Errorf("sqlparser panic: %v", r)
		}
	}()
	return sqlparser.Parse(sql)
}

// IsRead reports whether sql returns rows.
func (c *Classifier) IsRead(sql string) bool {
	return c.Classify(sql).Kind == KindRead
}

func (c *Classifier) classifyByPrefix(sql string) StatementKind {
	upperSQL := strings.ToUpper(strings.TrimLeft(sql, "( \t\r\n"))
	for _, prefix := range readPrefixes {
		if hasKeywordPrefix(upperSQL, prefix) {
			return KindRead
		}
	}
	for _, prefix := range writePrefixes {
		if hasKeywordPrefix(upperSQL, prefix) {
			if returningClause.MatchString(sql) {
				return KindRead
			}
			return KindWrite
		}
	}
	return KindOther
}

// hasKeywordPrefix reports whether s starts with keyword as a whole word.
func hasKeywordPrefix(s, keyword string) bool {
	if !strings.HasPrefix(s, keyword) {
		return false
	}
	if len(s) == len(keyword) {
		return true
	}
	next := s[len(keyword)]
	return !(next == '_' || next >= 'A' && next <= 'Z' || next >= '0' && next <= '9')
}

func functionNames(stmt sqlparser.Statement) []string {
	seen := make(map[string]struct{})
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if n, ok := node.(*sqlparser.FuncExpr); ok {
			seen[strings.ToUpper(n.Name.String())] = struct{}{}
		}
		return true, nil
	}, stmt)

	if len(seen) == 0 {
		return nil
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
