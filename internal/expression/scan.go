package expression

import "strings"

var closers = map[byte]byte{'(': ')', '[': ']', '{': '}'}

// Balanced returns the length of the group opening at s[0], closing
// delimiter included, or -1 when the group is not closed. Nested groups of
// every bracket kind and quoted strings are skipped.
func Balanced(s string) int {
	if s == "" {
		return -1
	}
	if _, ok := closers[s[0]]; !ok {
		return -1
	}
	var stack []byte
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"', '\'':
			end := skipString(s, i)
			if end < 0 {
				return -1
			}
			i = end
		case '(', '[', '{':
			stack = append(stack, closers[ch])
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// skipString returns the index of the quote closing the string at s[i].
func skipString(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return -1
}

// SplitTopLevel splits s on sep where sep is outside any group or string.
// Parts are trimmed; a blank s yields no parts.
func SplitTopLevel(s string, sep byte) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '"' || ch == '\'':
			if end := skipString(s, i); end >= 0 {
				i = end
			}
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// IndexTopLevel returns the index of the first sep outside groups and
// strings, or -1.
func IndexTopLevel(s, sep string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '"' || ch == '\'':
			if end := skipString(s, i); end >= 0 {
				i = end
			}
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			return i
		}
	}
	return -1
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || ch >= '0' && ch <= '9'
}

// Ident returns the length of the identifier at the start of s.
func Ident(s string) int {
	if s == "" || !isIdentStart(s[0]) {
		return 0
	}
	n := 1
	for n < len(s) && isIdentPart(s[n]) {
		n++
	}
	return n
}

// IsIdent reports whether s is exactly one identifier.
func IsIdent(s string) bool {
	return s != "" && Ident(s) == len(s)
}

// ScanChain returns the length of the dotted chain at the start of s, e.g.
// `user.name`, `items[0].title` or `format(x).trim()`. A trailing dot that
// is not followed by an identifier is not part of the chain.
func ScanChain(s string) int {
	n := Ident(s)
	if n == 0 {
		return 0
	}
	for n < len(s) {
		switch s[n] {
		case '.':
			m := Ident(s[n+1:])
			if m == 0 {
				return n
			}
			n += 1 + m
		case '(', '[':
			m := Balanced(s[n:])
			if m < 0 {
				return n
			}
			n += m
		default:
			return n
		}
	}
	return n
}
