// Package expression translates template expressions into operands of the
// generated template code.
//
// Simple expressions (literals and chains of fields, method calls and
// indexes) map directly onto template syntax. Anything else is complex and
// is evaluated at render time by the expression engine, when the active
// dialect allows it.
package expression

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/dialect"
	"github.com/dangdungcntt/go-rythm/internal/parser"
	"github.com/dangdungcntt/go-rythm/internal/render"
)

// ErrComplex is returned by Translate for expressions beyond the simple
// subset.
var ErrComplex = errors.New("complex expression")

// Variables resolves names declared by enclosing template constructs.
type Variables interface {
	LookupVariable(name string) (ref string, ok bool)
}

// Compile turns src into a template operand in the parsing context c.
// Complex expressions are rejected when the dialect forbids them.
func Compile(c *parser.Context, src string) (string, error) {
	src = strings.TrimSpace(src)
	if m := c.Dialect().Marker; m != "" {
		src = strings.TrimPrefix(src, m)
	}
	if src == "" {
		return "", c.Errorf("Empty expression")
	}
	op, err := Translate(src, c)
	if err == nil {
		return op, nil
	}
	if !errors.Is(err, ErrComplex) {
		return "", c.Errorf("Invalid expression %q: %v", src, err)
	}
	if !c.Dialect().Allows(dialect.ComplexExpression) {
		return "", c.Reject(dialect.ComplexExpression)
	}
	if _, err := render.CompileExpr(src); err != nil {
		return "", c.Errorf("Invalid expression %q: %v", src, err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "(eval $ %s (locals", strconv.Quote(src))
	for _, v := range c.VisibleVariables() {
		fmt.Fprintf(&b, " %q %s", v.Name, v.Ref)
	}
	b.WriteString("))")
	return b.String(), nil
}

// Translate converts a simple expression into a template operand.
func Translate(src string, vars Variables) (string, error) {
	t := &translator{src: src, vars: vars}
	t.space()
	op, err := t.unary()
	if err != nil {
		return "", err
	}
	t.space()
	if t.pos != len(t.src) {
		return "", ErrComplex
	}
	return op, nil
}

type translator struct {
	src  string
	pos  int
	vars Variables
}

func (t *translator) peek() byte {
	if t.pos >= len(t.src) {
		return 0
	}
	return t.src[t.pos]
}

func (t *translator) space() {
	for t.pos < len(t.src) && strings.IndexByte(" \t\r\n", t.src[t.pos]) >= 0 {
		t.pos++
	}
}

func (t *translator) unary() (string, error) {
	if t.peek() == '!' && !strings.HasPrefix(t.src[t.pos:], "!=") {
		t.pos++
		t.space()
		op, err := t.unary()
		if err != nil {
			return "", err
		}
		return "(not " + op + ")", nil
	}
	return t.primary()
}

func (t *translator) primary() (string, error) {
	ch := t.peek()
	switch {
	case ch == '(':
		t.pos++
		t.space()
		op, err := t.unary()
		if err != nil {
			return "", err
		}
		t.space()
		if t.peek() != ')' {
			return "", ErrComplex
		}
		t.pos++
		if !strings.HasPrefix(op, "(") && !strings.HasPrefix(op, "$") {
			return op, nil
		}
		return t.postfix("(" + op + ")")
	case ch == '"' || ch == '\'':
		return t.str()
	case ch >= '0' && ch <= '9' || ch == '-' && t.pos+1 < len(t.src) && t.src[t.pos+1] >= '0' && t.src[t.pos+1] <= '9':
		return t.number()
	}
	n := Ident(t.src[t.pos:])
	if n == 0 {
		return "", ErrComplex
	}
	name := t.src[t.pos : t.pos+n]
	t.pos += n
	switch name {
	case "true", "false":
		return name, nil
	case "null", "nil":
		return "nil", nil
	}
	ref, ok := t.vars.LookupVariable(name)
	if !ok {
		ref = "$.Args." + name
	}
	if t.peek() == '(' {
		args, err := t.args(')')
		if err != nil {
			return "", err
		}
		return t.postfix("(call " + ref + args + ")")
	}
	return t.postfix(ref)
}

// postfix applies field, method and index accessors to cur.
func (t *translator) postfix(cur string) (string, error) {
	for {
		switch t.peek() {
		case '.':
			n := Ident(t.src[t.pos+1:])
			if n == 0 {
				return "", ErrComplex
			}
			field := t.src[t.pos+1 : t.pos+1+n]
			t.pos += 1 + n
			if t.peek() != '(' {
				cur += "." + field
				continue
			}
			args, err := t.args(')')
			if err != nil {
				return "", err
			}
			if args == "" {
				cur += "." + field
			} else {
				cur = "(" + cur + "." + field + args + ")"
			}
		case '[':
			t.pos++
			t.space()
			idx, err := t.unary()
			if err != nil {
				return "", err
			}
			t.space()
			if t.peek() != ']' {
				return "", ErrComplex
			}
			t.pos++
			cur = "(index " + cur + " " + idx + ")"
		default:
			return cur, nil
		}
	}
}

// args parses a parenthesized argument list and returns the operands, each
// preceded by a space.
func (t *translator) args(closer byte) (string, error) {
	t.pos++
	var b strings.Builder
	t.space()
	if t.peek() == closer {
		t.pos++
		return "", nil
	}
	for {
		t.space()
		op, err := t.unary()
		if err != nil {
			return "", err
		}
		b.WriteString(" ")
		b.WriteString(op)
		t.space()
		switch t.peek() {
		case ',':
			t.pos++
		case closer:
			t.pos++
			return b.String(), nil
		default:
			return "", ErrComplex
		}
	}
}

func (t *translator) str() (string, error) {
	q := t.src[t.pos]
	var b strings.Builder
	for i := t.pos + 1; i < len(t.src); i++ {
		ch := t.src[i]
		switch {
		case ch == q:
			t.pos = i + 1
			return strconv.Quote(b.String()), nil
		case ch == '\\' && i+1 < len(t.src):
			i++
			switch e := t.src[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(ch)
		}
	}
	return "", fmt.Errorf("unterminated string literal")
}

func (t *translator) number() (string, error) {
	start := t.pos
	if t.peek() == '-' {
		t.pos++
	}
	digits := func() {
		for t.pos < len(t.src) && t.src[t.pos] >= '0' && t.src[t.pos] <= '9' {
			t.pos++
		}
	}
	digits()
	if t.peek() == '.' && t.pos+1 < len(t.src) && t.src[t.pos+1] >= '0' && t.src[t.pos+1] <= '9' {
		t.pos++
		digits()
	}
	if c := t.peek(); c == 'e' || c == 'E' {
		t.pos++
		if c := t.peek(); c == '+' || c == '-' {
			t.pos++
		}
		digits()
	}
	lit := t.src[start:t.pos]
	if strings.IndexByte("lLfFdD", t.peek()) >= 0 && t.peek() != 0 {
		t.pos++
	}
	if isIdentPart(t.peek()) {
		return "", ErrComplex
	}
	return lit, nil
}
