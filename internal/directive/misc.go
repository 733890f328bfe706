package directive

import (
	"fmt"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/dialect"
	"github.com/dangdungcntt/go-rythm/internal/expression"
	"github.com/dangdungcntt/go-rythm/internal/parser"
	"github.com/dangdungcntt/go-rythm/internal/tag"
)

// matchArgs declares render arguments: `@args String name, int age` up to
// the end of the line or a `;`, parentheses optional.
func matchArgs(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "args")
	if !ok {
		return nil, nil
	}
	s := c.Remaining()
	arg, end, err := group(c, off)
	if err != nil {
		end = len(s)
		if i := strings.IndexByte(s[off:], '\n'); i >= 0 {
			end = off + i
		}
		line := s[off:end]
		if i := expression.IndexTopLevel(line, ";"); i >= 0 {
			line = line[:i]
			end = off + i + 1
		}
		arg = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	}
	if arg == "" {
		return nil, c.Errorf("@args needs at least one argument")
	}
	b := c.Builder()
	for _, decl := range splitDecls(arg) {
		fields := strings.Fields(decl)
		var a codegen.RenderArg
		switch {
		case len(fields) == 1:
			a.Name = fields[0]
		case len(fields) >= 2:
			a.Name = fields[len(fields)-1]
			a.Type = strings.Join(fields[:len(fields)-1], " ")
		default:
			return nil, c.Errorf("Invalid argument declaration: %s", arg)
		}
		if !expression.IsIdent(a.Name) {
			return nil, c.Errorf("Invalid argument name: %s", a.Name)
		}
		if a.Type != "" && !c.Dialect().Allows(dialect.TypeDeclaration) {
			return nil, c.Reject(dialect.TypeDeclaration)
		}
		if _, dup := b.RenderArg(a.Name); dup {
			return nil, c.Errorf("Argument already declared: %s", a.Name)
		}
		b.AddRenderArg(a)
	}
	c.Advance(end)
	b.SuppressNextLineBreak()
	return nil, nil
}

// splitDecls splits on commas outside generic brackets, so
// `Map<String, Object> m` stays one declaration.
func splitDecls(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

// matchReturn ends the template early: nothing after @return is compiled.
func matchReturn(c *parser.Context) (codegen.Token, error) {
	if _, ok := keyword(c, "return"); !ok {
		return nil, nil
	}
	return nil, parser.ErrStop
}

// matchCompact compiles `@compact() {` and `@nocompact() {`, which switch
// whitespace compaction of literal text for their content.
func matchCompact(c *parser.Context) (codegen.Token, error) {
	for _, kw := range []string{"compact", "nocompact"} {
		off, ok := keyword(c, kw)
		if !ok {
			continue
		}
		_, end, err := optionalGroup(c, off)
		if err != nil {
			return nil, err
		}
		end, err = openBrace(c, end, "@"+kw)
		if err != nil {
			return nil, err
		}
		on := kw == "compact"
		line := c.CurrentLine()
		c.Advance(end)
		c.OpenBlock(&parser.Block{
			Kind:   kw,
			Line:   line,
			OnOpen: func() { c.PushCompact(on) },
			OnClose: func() (codegen.Token, error) {
				c.PopCompact()
				return nil, nil
			},
		})
		return nil, nil
	}
	return nil, nil
}

// matchLocale compiles `@locale("fr") {`, scoping the render locale.
func matchLocale(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "locale")
	if !ok {
		return nil, nil
	}
	arg, end, err := group(c, off)
	if err != nil {
		return nil, c.Errorf("@locale needs a locale")
	}
	op, err := expression.Compile(c, arg)
	if err != nil {
		return nil, err
	}
	end, err = openBrace(c, end, "@locale")
	if err != nil {
		return nil, err
	}
	line := c.CurrentLine()
	c.Advance(end)
	c.OpenBlock(&parser.Block{
		Kind:   "locale",
		Line:   line,
		OnOpen: func() { c.PushLocale(unquote(arg)) },
		OnClose: func() (codegen.Token, error) {
			c.PopLocale()
			return codegen.Action{Code: "{{ popLocale $ }}"}, nil
		},
	})
	return codegen.Action{Code: "{{ pushLocale $ " + op + " }}"}, nil
}

// matchScript compiles `@{ x = a + b; y = x * 2 }`. Each statement binds
// a template variable, visible until the enclosing block closes.
func matchScript(c *parser.Context) (codegen.Token, error) {
	m := c.Dialect().Marker
	s := c.Remaining()
	if m == "" || !strings.HasPrefix(s, m+"{") {
		return nil, nil
	}
	if !c.Dialect().Allows(dialect.Scripting) {
		return nil, c.Reject(dialect.Scripting)
	}
	g := expression.Balanced(s[len(m):])
	if g < 0 {
		return nil, c.Errorf("Unclosed script block")
	}
	body := s[len(m)+1 : len(m)+g-1]

	var code strings.Builder
	for _, line := range strings.Split(body, "\n") {
		for _, stmt := range expression.SplitTopLevel(line, ';') {
			if stmt == "" || strings.HasPrefix(stmt, "//") {
				continue
			}
			if err := compileStatement(c, &code, stmt); err != nil {
				return nil, err
			}
		}
	}
	c.Advance(len(m) + g)
	c.Builder().SuppressNextLineBreak()
	if code.Len() == 0 {
		return nil, nil
	}
	return codegen.Action{Code: code.String()}, nil
}

// compileStatement handles `[let|var|Type] name = expr`.
func compileStatement(c *parser.Context, w *strings.Builder, stmt string) error {
	eq := expression.IndexTopLevel(stmt, "=")
	if eq < 0 || strings.HasPrefix(stmt[eq:], "==") {
		return c.Errorf("Unsupported script statement: %s", stmt)
	}
	lhs := strings.TrimSpace(stmt[:eq])
	if lhs == "" || strings.ContainsAny(lhs[len(lhs)-1:], "+-*/!<>") {
		return c.Errorf("Unsupported script statement: %s", stmt)
	}
	fields := strings.Fields(lhs)
	if len(fields) == 0 || len(fields) > 2 {
		return c.Errorf("Unsupported script statement: %s", stmt)
	}
	name := fields[len(fields)-1]
	if !expression.IsIdent(name) {
		return c.Errorf("Invalid variable name: %s", name)
	}
	if tag.Reserved(name) {
		return c.Errorf("Variable name is reserved: %s", name)
	}
	op, err := expression.Compile(c, stmt[eq+1:])
	if err != nil {
		return err
	}
	if ref, ok := c.LookupVariable(name); ok && len(fields) == 1 && strings.HasPrefix(ref, "$") && !strings.HasPrefix(ref, "$.") {
		fmt.Fprintf(w, "{{ %s = %s }}", ref, op)
		return nil
	}
	fmt.Fprintf(w, "{{ $%s := %s }}", name, op)
	c.DeclareVariable(name, "$"+name)
	return nil
}
