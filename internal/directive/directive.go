// Package directive holds the matchers for the template directives other
// than tag invocation: comments, control flow, layouts, scripting and
// expression output.
package directive

import (
	"errors"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/expression"
	"github.com/dangdungcntt/go-rythm/internal/parser"
	"github.com/dangdungcntt/go-rythm/internal/tag"
)

// Matchers returns every matcher in the order the parse loop tries them.
// Tags and layouts are resolved with r.
func Matchers(r tag.Resolver) []parser.Matcher {
	return []parser.Matcher{
		parser.MatcherFunc(matchComment),
		parser.MatcherFunc(matchEscapedMarker),
		parser.MatcherFunc(matchBlockEnd),
		parser.MatcherFunc(matchCodeType),
		parser.MatcherFunc(matchArgs),
		parser.MatcherFunc(matchReturn),
		parser.MatcherFunc(matchFor),
		parser.MatcherFunc(matchIf),
		parser.MatcherFunc(matchBreak),
		parser.MatcherFunc(matchContinue),
		parser.MatcherFunc(matchSection),
		parser.MatcherFunc(matchRender),
		&extendsMatcher{resolver: r},
		&includeMatcher{resolver: r},
		parser.MatcherFunc(matchRenderBody),
		parser.MatcherFunc(matchCompact),
		parser.MatcherFunc(matchLocale),
		parser.MatcherFunc(matchScript),
		tag.NewMatcher(r),
		parser.MatcherFunc(matchOutput),
	}
}

var errNoGroup = errors.New("no parenthesized group")

func isIdentPart(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

// keyword matches the marker followed by name and no further identifier
// character. It returns the offset just past name.
func keyword(c *parser.Context, name string) (int, bool) {
	m := c.Dialect().Marker
	s := c.Remaining()
	if m == "" || !strings.HasPrefix(s, m+name) {
		return 0, false
	}
	n := len(m) + len(name)
	if n < len(s) && isIdentPart(s[n]) {
		return 0, false
	}
	return n, true
}

// group reads the parenthesized group starting at off, blanks allowed
// before it, and returns its content and the offset past it.
func group(c *parser.Context, off int) (string, int, error) {
	s := c.Remaining()
	i := off
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i >= len(s) || s[i] != '(' {
		return "", off, errNoGroup
	}
	g := expression.Balanced(s[i:])
	if g < 0 {
		return "", off, c.Errorf("Unclosed parenthesis")
	}
	return s[i+1 : i+g-1], i + g, nil
}

// optionalGroup is group where the parentheses may be left out.
func optionalGroup(c *parser.Context, off int) (string, int, error) {
	arg, end, err := group(c, off)
	if errors.Is(err, errNoGroup) {
		return "", off, nil
	}
	return arg, end, err
}

// openBrace expects a block opening `{` at off, whitespace allowed before
// it, and returns the offset past it.
func openBrace(c *parser.Context, off int, what string) (int, error) {
	s := c.Remaining()
	i := off
	for i < len(s) && strings.IndexByte(" \t\r\n", s[i]) >= 0 {
		i++
	}
	if i >= len(s) || s[i] != '{' {
		return 0, c.Errorf("%s must be followed by a block: {", what)
	}
	return i + 1, nil
}

// unquote strips one level of matching quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
