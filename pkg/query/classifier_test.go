package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantKind StatementKind
	}{
		{name: "Select", sql: "SELECT name FROM tabUser WHERE enabled = 1", wantKind: KindRead},
		{name: "SelectLeadingWhitespace", sql: "\n\t  select 1", wantKind: KindRead},
		{name: "Union", sql: "SELECT a FROM t UNION SELECT b FROM u", wantKind: KindRead},
		{name: "Show", sql: "SHOW TABLES", wantKind: KindRead},
		{name: "ShowDatabases", sql: "SHOW DATABASES", wantKind: KindRead},
		{name: "ShowColumns", sql: "SHOW COLUMNS FROM tabItem", wantKind: KindRead},
		{name: "With", sql: "WITH x AS (SELECT 1 AS n) SELECT n FROM x", wantKind: KindRead},
		{name: "Values", sql: "VALUES (1), (2)", wantKind: KindRead},
		{name: "PostgresCast", sql: "SELECT $1::text", wantKind: KindRead},
		{name: "CaseExpression", sql: "SELECT CASE WHEN a THEN 1 ELSE 2 END FROM t", wantKind: KindRead},
		{name: "Insert", sql: "INSERT INTO t (a) VALUES (1)", wantKind: KindWrite},
		{name: "Update", sql: "UPDATE t SET a = 1 WHERE b = 2", wantKind: KindWrite},
		{name: "Delete", sql: "DELETE FROM t WHERE a = 1", wantKind: KindWrite},
		{name: "InsertReturning", sql: "INSERT INTO t (a) VALUES ($1) RETURNING id", wantKind: KindRead},
		{name: "CreateTable", sql: "CREATE TABLE t (id INTEGER)", wantKind: KindOther},
		{name: "CreateFunction", sql: "CREATE OR REPLACE FUNCTION f() RETURNS int AS $$ SELECT 1 $$ LANGUAGE sql", wantKind: KindOther},
		{name: "Selector", sql: "SELECTOR foo", wantKind: KindOther},
		{name: "Empty", sql: "   ", wantKind: KindOther},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.sql)
			if got.Kind != tt.wantKind {
				t.Errorf("Classify(%q).Kind = %q, want %q", tt.sql, got.Kind, tt.wantKind)
			}
			if got := c.IsRead(tt.sql); got != (tt.wantKind == KindRead) {
				t.Errorf("IsRead(%q) = %v", tt.sql, got)
			}
		})
	}
}

func TestClassifier_ParserFailureFallsBack(t *testing.T) {
	c := NewClassifier()
	for _, sql := range []string{"SHOW TABLES", "SHOW DATABASES"} {
		got := c.Classify(sql)
		want := Classification{Kind: KindRead}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Classify(%q) mismatch (-want +got):\n%s", sql, diff)
		}
	}
}

func TestClassifier_Functions(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("SELECT count(*), IFNULL(a, 0), ifnull(b, 0) FROM t")
	if !got.Parsed {
		t.Fatal("Classify().Parsed = false, want true")
	}
	if diff := cmp.Diff([]string{"COUNT", "IFNULL"}, got.Functions); diff != "" {
		t.Errorf("Classify().Functions mismatch (-want +got):\n%s", diff)
	}
}

func TestHasKeywordPrefix(t *testing.T) {
	tests := []struct {
		s       string
		keyword string
		want    bool
	}{
		{"SELECT 1", "SELECT", true},
		{"SELECT", "SELECT", true},
		{"SELECT(1)", "SELECT", true},
		{"SELECTED", "SELECT", false},
		{"DESCRIBE t", "DESC", false},
		{"DESC t", "DESC", true},
	}
	for _, tt := range tests {
		if got := hasKeywordPrefix(tt.s, tt.keyword); got != tt.want {
			t.Errorf("hasKeywordPrefix(%q, %q) = %v, want %v", tt.s, tt.keyword, got, tt.want)
		}
	}
}
