package directive

import (
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

// matchComment drops `@* ... *@` and `@// ...` comments.
func matchComment(c *parser.Context) (codegen.Token, error) {
	m := c.Dialect().Marker
	s := c.Remaining()
	if m == "" {
		return nil, nil
	}
	switch {
	case strings.HasPrefix(s, m+"*"):
		end := strings.Index(s[len(m)+1:], "*"+m)
		if end < 0 {
			c.EnterDirectiveComment()
			c.Advance(len(s))
			return nil, nil
		}
		c.Advance(len(m) + 1 + end + 1 + len(m))
		return nil, nil
	case strings.HasPrefix(s, m+"//"):
		end := strings.IndexByte(s, '\n')
		if end < 0 {
			end = len(s)
		}
		c.Advance(end)
		return nil, nil
	}
	return nil, nil
}

// matchEscapedMarker turns a doubled marker into one literal marker.
func matchEscapedMarker(c *parser.Context) (codegen.Token, error) {
	m := c.Dialect().Marker
	if m == "" || !strings.HasPrefix(c.Remaining(), m+m) {
		return nil, nil
	}
	c.Advance(2 * len(m))
	return codegen.Literal{Text: m}, nil
}
