package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nnnkkk7/pgcompat/pkg/config"
)

// conditionalCall matches the conditional function name bound to its
// opening parenthesis. The word boundary is checked separately against the
// working text, so the pattern carries no anchor.
var conditionalCall = regexp.MustCompile(`(?i)IF\s*\(`)

// MalformedReason explains why a conditional occurrence was left unconverted.
type MalformedReason string

// Malformed reasons.
const (
	ReasonUnterminated  MalformedReason = "unterminated"
	ReasonArity         MalformedReason = "arity"
	ReasonEmptyArgument MalformedReason = "empty-argument"
)

// Occurrence describes a conditional call the rewriter refused to convert.
// Offset is the position in the working text at the time of rejection.
type Occurrence struct {
	Offset int             `json:"offset"`
	Token  string          `json:"token"`
	Reason MalformedReason `json:"reason"`
	Args   int             `json:"args,omitempty"`
}

// ConditionalResult is the outcome of one conditional rewrite pass.
type ConditionalResult struct {
	Text       string
	Converted  int
	Malformed  []Occurrence
	Iterations int
	// Exhausted is set when the iteration bound stopped the pass while
	// occurrences were still present.
	Exhausted bool
}

// ConditionalRewriter converts IF(cond, a, b) into CASE WHEN cond THEN a ELSE b END.
type ConditionalRewriter struct {
	maxIterations int
}

// NewConditionalRewriter creates a rewriter bounded to maxIterations steps.
// A non-positive bound uses the default.
func NewConditionalRewriter(maxIterations int) *ConditionalRewriter {
	if maxIterations <= 0 {
		maxIterations = config.DefaultMaxRewriteIterations
	}
	return &ConditionalRewriter{maxIterations: maxIterations}
}

// Rewrite converts every well-formed conditional call in sql, leftmost first.
//
// Each step either converts one call and restarts the search, or parks the
// call behind a placeholder so later steps skip it. Parked calls are false
// positives (the name is the tail of a longer identifier) or malformed
// (unterminated, wrong arity, empty argument); they are restored to their
// original token before returning.
func (r *ConditionalRewriter) Rewrite(sql string) ConditionalResult {
	res := ConditionalResult{Text: sql}
	if !conditionalCall.MatchString(sql) {
		return res
	}

	var parked []string
	for {
		loc := conditionalCall.FindStringIndex(sql)
		if loc == nil {
			break
		}
		if res.Iterations >= r.maxIterations {
			res.Exhausted = true
			break
		}
		res.Iterations++

		start, end := loc[0], loc[1]
		token := sql[start:end]
		open := end - 1

		if precededByWordChar(sql, start) {
			sql, parked = parkCall(sql, start, end, token, parked)
			continue
		}

		closeEnd, ok := FindClosing(sql, open)
		if !ok {
			res.Malformed = append(res.Malformed, Occurrence{Offset: start, Token: token, Reason: ReasonUnterminated})
			sql, parked = parkCall(sql, start, end, token, parked)
			continue
		}

		args := SplitTopLevel(sql[open+1 : closeEnd-1])
		if len(args) != 3 {
			res.Malformed = append(res.Malformed, Occurrence{Offset: start, Token: token, Reason: ReasonArity, Args: len(args)})
			sql, parked = parkCall(sql, start, end, token, parked)
			continue
		}

		cond := strings.TrimSpace(args[0])
		then := strings.TrimSpace(args[1])
		els := strings.TrimSpace(args[2])
		if cond == "" || then == "" || els == "" {
			res.Malformed = append(res.Malformed, Occurrence{Offset: start, Token: token, Reason: ReasonEmptyArgument, Args: 3})
			sql, parked = parkCall(sql, start, end, token, parked)
			continue
		}

		sql = sql[:start] + "CASE WHEN " + cond + " THEN " + then + " ELSE " + els + " END" + sql[closeEnd:]
		res.Converted++
	}

	for i, token := range parked {
		sql = strings.Replace(sql, parkedToken(i), token, 1)
	}
	res.Text = sql
	return res
}

// parkCall replaces sql[start:end] (name plus opening parenthesis) with a
// numbered placeholder that keeps the parenthesis in place.
func parkCall(sql string, start, end int, token string, parked []string) (string, []string) {
	return sql[:start] + parkedToken(len(parked)) + sql[end:], append(parked, token)
}

func parkedToken(i int) string {
	return fmt.Sprintf("___PGCOMPAT_PARKED_%d___(", i)
}

// precededByWordChar reports whether the rune before offset is a letter,
// digit or underscore.
func precededByWordChar(s string, offset int) bool {
	if offset == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:offset])
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
