package query

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
)

// recordingSink collects emitted records for assertions.
type recordingSink struct {
	mu      sync.Mutex
	records []diagnostic.Record
}

func (s *recordingSink) Emit(_ context.Context, rec diagnostic.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) kinds() []diagnostic.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []diagnostic.Kind
	for _, rec := range s.records {
		kinds = append(kinds, rec.Kind)
	}
	return kinds
}

func TestTranslator_Translate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "ConcreteScenario",
			input:    "SELECT SUM(IF(status='Active', amount, 0)) FROM t FORCE INDEX (idx1) WHERE IFNULL(x,0)>0",
			expected: "SELECT SUM(CASE WHEN status='Active' THEN amount ELSE 0 END) FROM t WHERE COALESCE(x,0)>0",
		},
		{
			name:     "UseIndex",
			input:    "SELECT name FROM tabItem USE INDEX (item_code, modified) WHERE disabled = 0",
			expected: "SELECT name FROM tabItem WHERE disabled = 0",
		},
		{
			name:     "IgnoreIndexLowercase",
			input:    "select * from t ignore index(idx) join u on t.id = u.id",
			expected: "select * from t join u on t.id = u.id",
		},
		{
			name:     "IfNullLowercase",
			input:    "SELECT ifnull(qty, 0) FROM bin",
			expected: "SELECT COALESCE(qty, 0) FROM bin",
		},
		{
			name:     "DateFormatYMD",
			input:    "SELECT DATE_FORMAT(posting_date, '%Y-%m-%d') FROM gl",
			expected: "SELECT TO_CHAR(posting_date, 'YYYY-MM-DD') FROM gl",
		},
		{
			name:     "DateFormatDoubleQuoted",
			input:    `SELECT date_format( creation , "%Y-%m-%d" ) FROM t`,
			expected: "SELECT TO_CHAR(creation, 'YYYY-MM-DD') FROM t",
		},
		{
			name:     "DateFormatOtherPatternUntouched",
			input:    "SELECT DATE_FORMAT(posting_date, '%Y-%m') FROM gl",
			expected: "SELECT DATE_FORMAT(posting_date, '%Y-%m') FROM gl",
		},
		{
			name:     "IfNullInsideConditional",
			input:    "SELECT IF(IFNULL(a, 0) > 0, 'y', 'n')",
			expected: "SELECT CASE WHEN COALESCE(a, 0) > 0 THEN 'y' ELSE 'n' END",
		},
		{
			name:     "HintBeforeConditional",
			input:    "SELECT IF(a, 1, 2) FROM t FORCE INDEX (idx_a)",
			expected: "SELECT CASE WHEN a THEN 1 ELSE 2 END FROM t",
		},
		{
			name:     "Empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := NewTranslator()
			got := translator.Translate(context.Background(), tt.input)

			if diff := cmp.Diff(tt.expected, got.Text); diff != "" {
				t.Errorf("Translate() mismatch (-want +got):\n%s", diff)
			}
			if got.Original != tt.input {
				t.Errorf("Translate() original = %q, want %q", got.Original, tt.input)
			}
			if got.Changed() != (tt.input != tt.expected) {
				t.Errorf("Translate() changed = %v", got.Changed())
			}
		})
	}
}

func TestTranslator_Idempotent(t *testing.T) {
	inputs := []string{
		"SELECT SUM(IF(status='Active', amount, 0)) FROM t FORCE INDEX (idx1) WHERE IFNULL(x,0)>0",
		"SELECT DATE_FORMAT(d, '%Y-%m-%d'), IFNULL(a, IFNULL(b, 0)) FROM t USE INDEX (a) IGNORE INDEX (b)",
		"SELECT IF(a, IF(b, 1, 2), 3) FROM t",
		"SELECT NULLIF(a, 0) FROM t",
	}

	translator := NewTranslator()
	for _, input := range inputs {
		once := translator.Rewrite(input)
		twice := translator.Rewrite(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("Rewrite() not idempotent for %q (-once +twice):\n%s", input, diff)
		}
	}
}

func TestStripIndexHints_Idempotent(t *testing.T) {
	inputs := []string{
		"SELECT * FROM t FORCE INDEX (a) USE INDEX (b) WHERE x = 1",
		"SELECT * FROM t ignore   index ( idx_1 , idx_2 )",
		"SELECT * FROM t",
	}
	for _, input := range inputs {
		once := StripIndexHints(input)
		if twice := StripIndexHints(once); twice != once {
			t.Errorf("StripIndexHints() not idempotent: %q then %q", once, twice)
		}
		if strings.Contains(strings.ToUpper(once), " INDEX") {
			t.Errorf("StripIndexHints(%q) left a hint: %q", input, once)
		}
	}
}

func TestTranslator_Diagnostics(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		opts          []TranslatorOption
		wantKinds     []diagnostic.Kind
		wantResidual  []int
		wantExhausted bool
	}{
		{
			name:  "CleanTranslation",
			input: "SELECT IF(a, 1, 2) FROM t",
		},
		{
			name:         "MalformedLeavesResidual",
			input:        "SELECT IF(a, b) FROM t",
			wantKinds:    []diagnostic.Kind{diagnostic.KindMalformedRewrite, diagnostic.KindResidualUntranslated},
			wantResidual: []int{7},
		},
		{
			name:          "IterationLimit",
			input:         "SELECT IF(a,1,2), IF(b,1,2)",
			opts:          []TranslatorOption{WithMaxIterations(1)},
			wantKinds:     []diagnostic.Kind{diagnostic.KindIterationLimit, diagnostic.KindResidualUntranslated},
			wantResidual:  []int{38},
			wantExhausted: true,
		},
		{
			name:      "SubstringMatchWithoutPosition",
			input:     "SELECT NULLIF(a, 0) FROM t",
			wantKinds: []diagnostic.Kind{diagnostic.KindResidualUntranslated},
		},
		{
			name:  "Empty",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			opts := append([]TranslatorOption{WithDiagnostics(sink)}, tt.opts...)
			translator := NewTranslator(opts...)

			got := translator.Translate(context.Background(), tt.input)

			if diff := cmp.Diff(tt.wantKinds, sink.kinds()); diff != "" {
				t.Errorf("emitted kinds mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantResidual, got.Residual); diff != "" {
				t.Errorf("Translate() residual mismatch (-want +got):\n%s", diff)
			}
			if got.Exhausted != tt.wantExhausted {
				t.Errorf("Translate() exhausted = %v, want %v", got.Exhausted, tt.wantExhausted)
			}
		})
	}
}

func TestTranslator_ResidualBody(t *testing.T) {
	sink := &recordingSink{}
	translator := NewTranslator(WithDiagnostics(sink), WithPreview(10, 5, 8, 1))

	input := "SELECT IF(a, b), IF(c, d) FROM t"
	got := translator.Translate(context.Background(), input)

	if got.ResidualCount != 2 {
		t.Fatalf("Translate() residual count = %d, want 2", got.ResidualCount)
	}
	if diff := cmp.Diff([]int{7}, got.Residual); diff != "" {
		t.Errorf("Translate() residual mismatch (-want +got):\n%s", diff)
	}

	var body string
	for _, rec := range sink.records {
		if rec.Kind == diagnostic.KindResidualUntranslated {
			body = rec.Body
		}
	}
	for _, want := range []string{
		"Original query length: 32 chars",
		"Original query snippet: SELECT IF(...",
		"IF() found at 2 positions: [7]",
		"...LECT IF(a, b)...",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("residual body missing %q:\n%s", want, body)
		}
	}
}

func TestTranslator_RewriteEmitsNothing(t *testing.T) {
	sink := &recordingSink{}
	translator := NewTranslator(WithDiagnostics(sink))

	got := translator.Rewrite("SELECT IF(a, b)")
	if got != "SELECT IF(a, b)" {
		t.Errorf("Rewrite() = %q", got)
	}
	if len(sink.records) != 0 {
		t.Errorf("Rewrite() emitted %d records, want 0", len(sink.records))
	}
}
