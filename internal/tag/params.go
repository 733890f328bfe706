package tag

import (
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/expression"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

// parseParams compiles the text between the call parentheses, e.g.
// `bar='c', foo=bar.length(), zee=component[foo], "hello"`.
func parseParams(c *parser.Context, raw string) ([]codegen.Param, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '{' && expression.Balanced(raw) == len(raw) {
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	parts := expression.SplitTopLevel(raw, ',')
	params := make([]codegen.Param, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, c.Errorf("Invalid parameter list: (%s)", raw)
		}
		name, value := splitNamed(part)
		value = strings.TrimSuffix(value, "@")
		op, err := expression.Compile(c, value)
		if err != nil {
			return nil, err
		}
		params = append(params, codegen.Param{Name: name, Value: op})
	}
	return params, nil
}

// splitNamed separates `name = value` and `name: value`. Names may be
// quoted. Comparisons such as `a == b` are not names.
func splitNamed(part string) (name, value string) {
	s := part
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		if end := strings.IndexByte(s[1:], s[0]); end >= 0 {
			name, s = s[1:end+1], s[end+2:]
		}
	} else if n := expression.Ident(s); n > 0 {
		name, s = s[:n], s[n:]
	}
	if name == "" || !expression.IsIdent(name) {
		return "", part
	}
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" || s[0] != '=' && s[0] != ':' || strings.HasPrefix(s, "==") {
		return "", part
	}
	return name, strings.TrimSpace(s[1:])
}

// CompileParams compiles a parameter list the way call sites do. It is
// shared with directives that pass arguments, such as @renderBody.
func CompileParams(c *parser.Context, raw string) ([]codegen.Param, error) {
	return parseParams(c, raw)
}
