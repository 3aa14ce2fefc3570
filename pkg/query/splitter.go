package query

// SplitTopLevel splits the interior of an argument list on commas that sit at
// parenthesis depth zero and outside quoted spans.
//
// Parts are returned untrimmed so that strings.Join(parts, ",") reproduces
// the input exactly. An empty input yields a single empty part, and a
// trailing comma yields a trailing empty part.
func SplitTopLevel(text string) []string {
	var parts []string
	st := scanState{}
	start := 0

	for i := 0; i < len(text); i++ {
		if st.step(text, i, '(', ')') {
			continue
		}
		if text[i] == ',' && st.depth == 0 {
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}
