package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nnnkkk7/pgcompat/pkg/config"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
)

// residualCall locates conditional calls that survived translation.
var residualCall = regexp.MustCompile(`(?i)\bIF\s*\(`)

// Translation is the outcome of running the pipeline on one statement.
type Translation struct {
	Original  string       `json:"original"`
	Text      string       `json:"transformed"`
	Converted int          `json:"converted"`
	Malformed []Occurrence `json:"malformed,omitempty"`
	Exhausted bool         `json:"exhausted"`
	// Residual holds the first positions of conditional calls left in Text,
	// capped at the configured maximum; ResidualCount is the full count.
	Residual      []int `json:"residual,omitempty"`
	ResidualCount int   `json:"residualCount"`
}

// Changed reports whether translation modified the statement.
func (t Translation) Changed() bool {
	return t.Original != t.Text
}

// Translator rewrites dialect-A SQL into PostgreSQL-compatible SQL.
//
// The pipeline order is fixed: index hints, conditional calls, null
// coalescing, date formatting. Hints go first because their parentheses
// would otherwise disturb nesting counts; conditional rewriting precedes the
// flat renames so the CASE text it introduces is never reprocessed.
type Translator struct {
	conditional   *ConditionalRewriter
	sink          diagnostic.Sink
	excerptLen    int
	previewBefore int
	previewAfter  int
	maxPositions  int
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithDiagnostics sets the sink residual and malformed reports go to.
func WithDiagnostics(sink diagnostic.Sink) TranslatorOption {
	return func(t *Translator) {
		if sink != nil {
			t.sink = sink
		}
	}
}

// WithMaxIterations bounds the conditional rewrite loop.
func WithMaxIterations(n int) TranslatorOption {
	return func(t *Translator) {
		t.conditional = NewConditionalRewriter(n)
	}
}

// WithPreview sets the residual report's excerpt and context window sizes.
func WithPreview(excerptLen, before, after, maxPositions int) TranslatorOption {
	return func(t *Translator) {
		t.excerptLen = excerptLen
		t.previewBefore = before
		t.previewAfter = after
		t.maxPositions = maxPositions
	}
}

// NewTranslator creates a translator with default bounds and no diagnostics.
func NewTranslator(opts ...TranslatorOption) *Translator {
	t := &Translator{
		conditional:   NewConditionalRewriter(config.DefaultMaxRewriteIterations),
		sink:          diagnostic.Discard,
		excerptLen:    config.DefaultExcerptLen,
		previewBefore: config.DefaultPreviewBefore,
		previewAfter:  config.DefaultPreviewAfter,
		maxPositions:  config.DefaultMaxPositions,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTranslatorFromConfig creates a translator from runtime configuration.
func NewTranslatorFromConfig(cfg *config.Config, sink diagnostic.Sink) *Translator {
	return NewTranslator(
		WithMaxIterations(cfg.MaxRewriteIterations),
		WithPreview(cfg.ExcerptLen, cfg.PreviewBefore, cfg.PreviewAfter, cfg.MaxPositions),
		WithDiagnostics(sink),
	)
}

// Rewrite returns only the translated text and emits no diagnostics.
func (t *Translator) Rewrite(sql string) string {
	return t.translate(sql).Text
}

// Translate runs the pipeline and reports any partial failure to the
// diagnostic sink. It never fails: untranslatable input is returned as-is.
func (t *Translator) Translate(ctx context.Context, sql string) Translation {
	tr := t.translate(sql)

	if len(tr.Malformed) > 0 {
		t.sink.Emit(ctx, diagnostic.New(diagnostic.KindMalformedRewrite,
			fmt.Sprintf("Malformed IF() left unconverted (%d)", len(tr.Malformed)),
			t.malformedBody(tr)))
	}
	if tr.Exhausted {
		t.sink.Emit(ctx, diagnostic.New(diagnostic.KindIterationLimit,
			"IF() conversion stopped at iteration limit",
			fmt.Sprintf("Converted: %d\n\nTransformed query snippet: %s...",
				tr.Converted, diagnostic.Excerpt(tr.Text, t.excerptLen))))
	}
	if tr.ResidualCount > 0 || strings.Contains(strings.ToUpper(tr.Text), "IF(") {
		t.sink.Emit(ctx, diagnostic.New(diagnostic.KindResidualUntranslated,
			"IF() still present after transformation",
			t.residualBody(tr)))
	}
	return tr
}

func (t *Translator) translate(sql string) Translation {
	tr := Translation{Original: sql, Text: sql}
	if sql == "" {
		return tr
	}

	text := StripIndexHints(sql)

	cond := t.conditional.Rewrite(text)
	text = cond.Text
	tr.Converted = cond.Converted
	tr.Malformed = cond.Malformed
	tr.Exhausted = cond.Exhausted

	text = RenameNullCoalescing(text)
	text = RewriteDateFormat(text)
	tr.Text = text

	locs := residualCall.FindAllStringIndex(text, -1)
	tr.ResidualCount = len(locs)
	for i, loc := range locs {
		if i >= t.maxPositions {
			break
		}
		tr.Residual = append(tr.Residual, loc[0])
	}
	return tr
}

func (t *Translator) residualBody(tr Translation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original query length: %d chars\n", len(tr.Original))
	fmt.Fprintf(&b, "Transformed query length: %d chars\n", len(tr.Text))
	fmt.Fprintf(&b, "Original query snippet: %s...\n", diagnostic.Excerpt(tr.Original, t.excerptLen))
	fmt.Fprintf(&b, "Transformed query snippet: %s...\n", diagnostic.Excerpt(tr.Text, t.excerptLen))
	fmt.Fprintf(&b, "IF() found at %d positions: %v\n", tr.ResidualCount, tr.Residual)

	if len(tr.Residual) > 0 {
		first := tr.Residual[0]
		from := max(0, first-t.previewBefore)
		to := min(len(tr.Text), first+t.previewAfter)
		fmt.Fprintf(&b, "\nFirst unconverted IF() context:\n...%s...\n", tr.Text[from:to])
	}
	if len(tr.Malformed) > 0 {
		fmt.Fprintf(&b, "\nMalformed occurrences: %d", len(tr.Malformed))
	}
	return b.String()
}

func (t *Translator) malformedBody(tr Translation) string {
	var b strings.Builder
	for _, occ := range tr.Malformed {
		fmt.Fprintf(&b, "%s at offset %d: %s", occ.Token, occ.Offset, occ.Reason)
		if occ.Reason == ReasonArity {
			fmt.Fprintf(&b, " (%d arguments)", occ.Args)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nOriginal query snippet: %s...", diagnostic.Excerpt(tr.Original, t.excerptLen))
	return b.String()
}
