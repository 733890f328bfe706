// Package tag compiles tag invocations: call sites such as
// `@foo(a=1).cache("1h").escape()` and their optional bodies.
package tag

import (
	"errors"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/expression"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

// Matcher recognizes tag invocations at the cursor.
type Matcher struct {
	resolver Resolver
}

var _ parser.Matcher = (*Matcher)(nil)

// NewMatcher creates a matcher resolving callees with r.
func NewMatcher(r Resolver) *Matcher {
	return &Matcher{resolver: r}
}

// Match compiles the call site at the cursor. It declines when the text is
// not a call to a known tag.
func (m *Matcher) Match(c *parser.Context) (codegen.Token, error) {
	marker := c.Dialect().Marker
	rest := c.Remaining()
	if marker == "" || !strings.HasPrefix(rest, marker) {
		return nil, nil
	}
	s := rest[len(marker):]

	if strings.HasPrefix(s, "invoke(") {
		return m.dynamic(c, len(marker)+len("invoke"))
	}

	var ends []int
	n := 0
	for {
		k := expression.Ident(s[n:])
		if k == 0 {
			break
		}
		n += k
		ends = append(ends, n)
		if n >= len(s) || s[n] != '.' {
			break
		}
		n++
	}
	b := c.Builder()
	for k := len(ends); k > 0; k-- {
		name := s[:ends[k-1]]
		callee, err := m.resolver.Resolve(name, b.IncludingUnitName(), b.Lang)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			perr := c.Errorf("Error load tag %s: %v", name, err)
			perr.Kind = parser.Resolution
			perr.Err = err
			var le *LoadError
			if errors.As(err, &le) {
				perr.WithHint("Possible cause: lower or upper case issue on a case-insensitive file system; the tag is named %s", le.Found)
			}
			return nil, perr
		}
		return m.call(c, &codegen.Invocation{Callee: callee}, len(marker)+ends[k-1])
	}
	return nil, nil
}

// dynamic compiles `@invoke(calleeExpr, params...)`.
func (m *Matcher) dynamic(c *parser.Context, off int) (codegen.Token, error) {
	s := c.Remaining()[off:]
	g := expression.Balanced(s)
	if g < 0 {
		return nil, c.Errorf("Unclosed parameter list in @invoke")
	}
	parts := expression.SplitTopLevel(s[1:g-1], ',')
	if len(parts) == 0 || parts[0] == "" {
		return nil, c.Errorf("@invoke needs the name of the tag to call")
	}
	callee, err := expression.Compile(c, parts[0])
	if err != nil {
		return nil, err
	}
	inv := &codegen.Invocation{Callee: callee, Dynamic: true}
	return m.finish(c, inv, off, g, strings.Join(parts[1:], ", "))
}

// call compiles the parameters, extensions and body following the callee
// name, which ends off bytes after the cursor.
func (m *Matcher) call(c *parser.Context, inv *codegen.Invocation, off int) (codegen.Token, error) {
	s := c.Remaining()[off:]
	if s == "" || s[0] != '(' {
		exts, _ := scanExtensions(s)
		if len(exts) == 0 {
			return nil, nil
		}
		return m.finish(c, inv, off, 0, "")
	}
	g := expression.Balanced(s)
	if g < 0 {
		return nil, c.Errorf("Unclosed parameter list calling %s", inv.Callee)
	}
	return m.finish(c, inv, off, g, s[1:g-1])
}

// finish completes an invocation whose parameter group spans g bytes from
// off. raw is the parameter text.
func (m *Matcher) finish(c *parser.Context, inv *codegen.Invocation, off, g int, raw string) (codegen.Token, error) {
	s := c.Remaining()[off+g:]
	exts, n := scanExtensions(s)
	consumed := off + g + n

	after := s[n:]
	trimmed := strings.TrimLeft(after, " \t\r\n")
	delim := ""
	switch {
	case strings.HasPrefix(trimmed, "{"):
		delim = "}"
		consumed += len(after) - len(trimmed) + 1
	case strings.HasPrefix(trimmed, "<<"):
		delim = ">>"
		consumed += len(after) - len(trimmed) + 2
	}

	b := c.Builder()
	inv.Line = c.CurrentLine()
	inv.Owner = b.IncludingUnitName()
	inv.HasBody = delim != ""
	inv.Nested = c.InsideBody()

	params, err := parseParams(c, raw)
	if err != nil {
		return nil, err
	}
	inv.Params = params
	if err := applyExtensions(c, inv, exts); err != nil {
		return nil, err
	}

	if !inv.HasBody {
		c.Advance(consumed)
		if inv.AssignTo != "" {
			c.DeclareVariable(inv.AssignTo, "$"+inv.AssignTo)
			b.SuppressNextLineBreak()
		}
		return inv, nil
	}

	inv.Captures = c.VisibleVariables()
	c.Advance(consumed)
	c.OpenBlock(&bodyHandler{c: c, inv: inv, delim: delim})
	return codegen.BodyEnter{Call: inv}, nil
}

// bodyHandler is the open block of a body-capturing invocation. The body is
// rendered in a definition of its own, so it only sees captured names.
type bodyHandler struct {
	parser.Vars
	c     *parser.Context
	inv   *codegen.Invocation
	delim string
	start int
}

func (h *bodyHandler) Open() {
	h.start = h.c.Cursor()
	h.c.PushInsideBody(true)
	h.c.PushBreak(nil)
	h.c.PushContinue(nil)
	for _, v := range h.inv.Captures {
		h.Declare(v.Name, "$.Vars."+v.Name)
	}
	for _, a := range h.inv.Callback {
		h.Declare(a.Name, "$.Vars."+a.Name)
	}
}

func (h *bodyHandler) Close() (codegen.Token, error) {
	h.c.PopInsideBody()
	h.c.PopBreak()
	h.c.PopContinue()
	if h.inv.Cache {
		h.inv.BodyKey = codegen.BodyKeyFor(h.c.Source(h.start, h.c.Cursor()))
	}
	if h.inv.AssignTo != "" {
		h.c.DeclareVariable(h.inv.AssignTo, "$"+h.inv.AssignTo)
		h.c.Builder().SuppressNextLineBreak()
	}
	return codegen.BodyExit{Call: h.inv}, nil
}

func (h *bodyHandler) Barrier() bool { return true }

func (h *bodyHandler) Delimiter() string { return h.delim }
