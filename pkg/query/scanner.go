package query

// scanState tracks quote and nesting state while walking SQL text.
//
// A quote is opened by ' or " and closed by the same character when it is not
// immediately preceded by a backslash. Doubled quotes ('') are not treated as
// escapes: the second quote simply reopens the literal, which leaves the
// outside-quote state unchanged after the pair.
type scanState struct {
	quote byte // 0 when outside a quoted span
	depth int
}

// step advances the state over s[i]. openCh and closeCh are the nesting
// delimiters being counted. It reports whether s[i] was consumed as part
// of a quoted span (including the quote characters themselves).
func (st *scanState) step(s string, i int, openCh, closeCh byte) (quoted bool) {
	c := s[i]
	if c == '\'' || c == '"' {
		switch {
		case st.quote == 0:
			st.quote = c
		case c == st.quote && (i == 0 || s[i-1] != '\\'):
			st.quote = 0
		}
		return true
	}
	if st.quote != 0 {
		return true
	}
	switch c {
	case openCh:
		st.depth++
	case closeCh:
		st.depth--
	}
	return false
}

// delimiterPairs maps opening delimiters to their closing counterparts.
var delimiterPairs = map[byte]byte{
	'(': ')',
	'[': ']',
	'{': '}',
}

// FindClosing returns the offset one past the delimiter matching the opening
// delimiter at s[open]. Nested delimiters of the same kind are counted and
// delimiters inside single- or double-quoted spans are ignored.
//
// ok is false when open is out of range, s[open] is not an opening delimiter,
// or the input ends before the nesting returns to zero. Callers treat that as
// malformed input.
func FindClosing(s string, open int) (end int, ok bool) {
	if open < 0 || open >= len(s) {
		return 0, false
	}
	closeCh, isOpen := delimiterPairs[s[open]]
	if !isOpen {
		return 0, false
	}

	st := scanState{depth: 1}
	for i := open + 1; i < len(s); i++ {
		st.step(s, i, s[open], closeCh)
		if st.depth == 0 {
			return i + 1, true
		}
	}
	return 0, false
}
