package directive

import (
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/escape"
	"github.com/dangdungcntt/go-rythm/internal/expression"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

// matchOutput prints an expression: `@user.name`, `@items[0].title` or
// `@(a + b)`. Output is escaped for the current code type unless a
// trailing `.raw()` or `.escape("kind")` says otherwise.
func matchOutput(c *parser.Context) (codegen.Token, error) {
	m := c.Dialect().Marker
	s := c.Remaining()
	if m == "" || !strings.HasPrefix(s, m) {
		return nil, nil
	}
	var (
		src string
		end int
	)
	if strings.HasPrefix(s[len(m):], "(") {
		g := expression.Balanced(s[len(m):])
		if g < 0 {
			return nil, c.Errorf("Unclosed parenthesis")
		}
		src, end = s[len(m)+1:len(m)+g-1], len(m)+g
	} else {
		n := expression.ScanChain(s[len(m):])
		if n == 0 {
			return nil, nil
		}
		src, end = s[len(m):len(m)+n], len(m)+n
	}

	kind := c.EscapeKind()
	src, suffixKind, err := outputEscape(c, src)
	if err != nil {
		return nil, err
	}
	if suffixKind != "" {
		kind = suffixKind
	}
	if src == "" {
		return nil, c.Errorf("Empty expression")
	}
	// `@(expr).raw()` puts the suffix after the group.
	if rest := s[end:]; strings.HasPrefix(rest, ".") {
		n := expression.ScanChain("x" + rest)
		if n > 1 {
			_, k, err := outputEscape(c, "x"+rest[:n-1])
			if err != nil {
				return nil, err
			}
			if k != "" {
				kind = k
				end += n - 1
			}
		}
	}

	op, err := expression.Compile(c, src)
	if err != nil {
		return nil, err
	}
	c.Advance(end)
	return codegen.Output{Operand: op, Escape: kind}, nil
}

// outputEscape strips a trailing `.raw()`, `.escape(kind)` or
// `.escapeKind()` from src and reports the requested kind.
func outputEscape(c *parser.Context, src string) (string, escape.Kind, error) {
	if strings.HasSuffix(src, ".raw()") {
		return strings.TrimSuffix(src, ".raw()"), escape.Raw, nil
	}
	i := strings.LastIndex(src, ".escape")
	if i < 0 {
		return src, "", nil
	}
	tail := src[i+len(".escape"):]
	n := expression.Ident("x" + tail)
	name := tail[:n-1]
	group := tail[n-1:]
	if group == "" || group[0] != '(' || expression.Balanced(group) != len(group) {
		return src, "", nil
	}
	if arg := unquote(group[1 : len(group)-1]); arg != "" {
		name = arg
	}
	if name == "" {
		return src[:i], escape.HTML, nil
	}
	kind, ok := escape.Parse(name)
	if !ok {
		return "", "", c.Errorf("Unknown escape type: %s. Supported escape: %s", name, strings.Join(escape.Names(), ", "))
	}
	return src[:i], kind, nil
}
