package sparql

import "strings"

// StripComments removes '#' comments from a query while keeping '#' inside
// string literals and IRIs intact. Blank lines are dropped.
func StripComments(query string) string {
	var out strings.Builder
	runes := []rune(query)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			end := stringEnd(runes, i)
			out.WriteString(string(runes[i:end]))
			i = end - 1
		case r == '<':
			if end, ok := iriEnd(runes, i); ok {
				out.WriteString(string(runes[i:end]))
				i = end - 1
				continue
			}
			out.WriteRune(r)
		case r == '#':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			if i < len(runes) {
				out.WriteRune('\n')
			}
		default:
			out.WriteRune(r)
		}
	}

	lines := strings.Split(out.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// stringEnd returns the index just past the literal starting at start.
// Handles short and long ("""...""") forms with backslash escapes.
func stringEnd(runes []rune, start int) int {
	q := runes[start]
	long := start+2 < len(runes) && runes[start+1] == q && runes[start+2] == q
	i := start + 1
	if long {
		i = start + 3
	}
	for i < len(runes) {
		switch {
		case runes[i] == '\\':
			i += 2
			continue
		case long && runes[i] == q && i+2 < len(runes) && runes[i+1] == q && runes[i+2] == q:
			return i + 3
		case !long && runes[i] == q:
			return i + 1
		case !long && runes[i] == '\n':
			return i
		}
		i++
	}
	return len(runes)
}

// iriEnd finds the closing '>' of an IRI. A '<' followed by whitespace before
// the closing bracket is a comparison operator, not an IRI.
func iriEnd(runes []rune, start int) (int, bool) {
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case '>':
			return i + 1, true
		case ' ', '\t', '\n', '\r', '<', '"':
			return 0, false
		}
	}
	return 0, false
}
