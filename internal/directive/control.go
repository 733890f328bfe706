package directive

import (
	"fmt"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/dialect"
	"github.com/dangdungcntt/go-rythm/internal/expression"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

// matchBlockEnd closes the innermost block on its delimiter. A `}`
// followed by `else` continues an @if, or the empty branch of a @for,
// instead. A delimiter with no open block is literal text.
func matchBlockEnd(c *parser.Context) (codegen.Token, error) {
	h := c.CurrentBlock()
	if h == nil {
		return nil, nil
	}
	delim := "}"
	if d, ok := h.(parser.Delimited); ok {
		delim = d.Delimiter()
	}
	s := c.Remaining()
	if !strings.HasPrefix(s, delim) {
		return nil, nil
	}
	if blk, ok := h.(*parser.Block); ok && delim == "}" && (blk.Kind == "if" || blk.Kind == "for") {
		if tok, matched, err := elseBranch(c, blk); matched || err != nil {
			return tok, err
		}
	}
	tok, err := c.CloseBlock()
	if err != nil {
		return nil, err
	}
	c.Advance(len(delim))
	return tok, nil
}

// elseBranch handles `} else {` and `} else if (cond) {`.
func elseBranch(c *parser.Context, blk *parser.Block) (codegen.Token, bool, error) {
	s := c.Remaining()
	i := 1
	for i < len(s) && strings.IndexByte(" \t\r\n", s[i]) >= 0 {
		i++
	}
	if !strings.HasPrefix(s[i:], "else") || i+4 < len(s) && isIdentPart(s[i+4]) {
		return nil, false, nil
	}
	i += 4
	j := i
	for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
		j++
	}
	if strings.HasPrefix(s[j:], "if") && (j+2 == len(s) || !isIdentPart(s[j+2])) {
		if blk.Kind != "if" {
			return nil, false, c.Errorf("else if is not allowed after @%s", blk.Kind)
		}
		cond, end, err := group(c, j+2)
		if err != nil {
			return nil, false, c.Errorf("else if needs a condition")
		}
		op, err := expression.Compile(c, cond)
		if err != nil {
			return nil, false, err
		}
		end, err = openBrace(c, end, "else if")
		if err != nil {
			return nil, false, err
		}
		c.Advance(end)
		blk.Vars = parser.Vars{}
		return codegen.Action{Code: "{{ else if " + op + " }}"}, true, nil
	}
	end, err := openBrace(c, i, "else")
	if err != nil {
		return nil, false, err
	}
	c.Advance(end)
	blk.Vars = parser.Vars{}
	return codegen.Action{Code: "{{ else }}"}, true, nil
}

// matchIf compiles `@if(cond) {`.
func matchIf(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "if")
	if !ok {
		return nil, nil
	}
	cond, end, err := group(c, off)
	if err != nil {
		return nil, c.Errorf("@if needs a condition")
	}
	op, err := expression.Compile(c, cond)
	if err != nil {
		return nil, err
	}
	end, err = openBrace(c, end, "@if")
	if err != nil {
		return nil, err
	}
	line := c.CurrentLine()
	c.Advance(end)
	c.OpenBlock(&parser.Block{Kind: "if", Line: line})
	return codegen.Action{Code: "{{ if " + op + " }}"}, nil
}

// matchFor compiles `@for(x : items) {` and the counting form
// `@for(i = 0; i < n; i++) {`.
func matchFor(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "for")
	if !ok {
		return nil, nil
	}
	header, end, err := group(c, off)
	if err != nil {
		return nil, c.Errorf("@for needs a loop header")
	}

	var (
		code string
		vars [][2]string
	)
	if strings.Count(header, ";") == 2 {
		if !c.Dialect().Allows(dialect.FreeLoop) {
			return nil, c.Reject(dialect.FreeLoop)
		}
		code, vars, err = countingLoop(c, header)
	} else {
		code, vars, err = rangeLoop(c, header)
	}
	if err != nil {
		return nil, err
	}
	end, err = openBrace(c, end, "@for")
	if err != nil {
		return nil, err
	}

	line := c.CurrentLine()
	c.Advance(end)
	blk := &parser.Block{Kind: "for", Line: line}
	blk.OnOpen = func() {
		c.PushBreak(&parser.Break{Line: line})
		c.PushContinue(&parser.Continue{Line: line})
	}
	blk.OnClose = func() (codegen.Token, error) {
		c.PopBreak()
		c.PopContinue()
		return codegen.Action{Code: "{{ end }}"}, nil
	}
	c.OpenBlock(blk)
	for _, v := range vars {
		blk.Declare(v[0], v[1])
	}
	return codegen.Action{Code: code}, nil
}

// rangeLoop compiles `[Type] x : expr`, `x in expr` or a bare `expr`, the
// element then being called `_`.
func rangeLoop(c *parser.Context, header string) (string, [][2]string, error) {
	decl, src := "", header
	if i := expression.IndexTopLevel(header, ":"); i >= 0 {
		decl, src = header[:i], header[i+1:]
	} else if i := strings.Index(header, " in "); i >= 0 {
		decl, src = header[:i], header[i+4:]
	}
	name := "_"
	if fields := strings.Fields(decl); len(fields) > 0 {
		name = fields[len(fields)-1]
		if len(fields) > 2 || !expression.IsIdent(name) {
			return "", nil, c.Errorf("Invalid loop variable: %s", strings.TrimSpace(decl))
		}
	}
	op, err := expression.Compile(c, src)
	if err != nil {
		return "", nil, err
	}
	v := "$" + loopVar(name)
	code := fmt.Sprintf("{{ range %s_index, %s := %s }}", v, v, op)
	return code, [][2]string{{name, v}, {name + "_index", v + "_index"}}, nil
}

func loopVar(name string) string {
	if name == "_" {
		return "_it"
	}
	return name
}

// countingLoop compiles `[int] i = a; i < b; i++` style headers.
func countingLoop(c *parser.Context, header string) (string, [][2]string, error) {
	parts := strings.Split(header, ";")
	init, cond, update := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])

	eq := strings.IndexByte(init, '=')
	if eq < 0 {
		return "", nil, c.Errorf("Invalid loop initializer: %s", init)
	}
	fields := strings.Fields(init[:eq])
	if len(fields) == 0 || len(fields) > 2 || !expression.IsIdent(fields[len(fields)-1]) {
		return "", nil, c.Errorf("Invalid loop initializer: %s", init)
	}
	name := fields[len(fields)-1]
	start, err := expression.Compile(c, init[eq+1:])
	if err != nil {
		return "", nil, err
	}

	if !strings.HasPrefix(cond, name) {
		return "", nil, c.Errorf("Loop condition must test %s: %s", name, cond)
	}
	op := strings.TrimSpace(cond[len(name):])
	var (
		cmp       string
		inclusive bool
	)
	for _, candidate := range []string{"<=", ">=", "<", ">"} {
		if strings.HasPrefix(op, candidate) {
			cmp = candidate
			break
		}
	}
	if cmp == "" {
		return "", nil, c.Errorf("Unsupported loop condition: %s", cond)
	}
	inclusive = len(cmp) == 2
	limit, err := expression.Compile(c, op[len(cmp):])
	if err != nil {
		return "", nil, err
	}

	step, err := loopStep(c, name, update)
	if err != nil {
		return "", nil, err
	}
	if (cmp[0] == '<') != !strings.HasPrefix(step, "-") {
		return "", nil, c.Errorf("Loop update %s never reaches the limit in %s", update, cond)
	}
	v := "$" + name
	code := fmt.Sprintf("{{ range %s := loop %s %s %s %t }}", v, start, limit, step, inclusive)
	return code, [][2]string{{name, v}}, nil
}

// loopStep reads `i++`, `++i`, `i--`, `--i`, `i += k` and `i -= k`.
func loopStep(c *parser.Context, name, update string) (string, error) {
	u := strings.ReplaceAll(update, " ", "")
	switch u {
	case name + "++", "++" + name:
		return "1", nil
	case name + "--", "--" + name:
		return "-1", nil
	}
	for _, op := range []string{"+=", "-="} {
		if !strings.HasPrefix(u, name+op) {
			continue
		}
		k := u[len(name)+len(op):]
		for _, ch := range k {
			if ch < '0' || ch > '9' {
				return "", c.Errorf("Loop step must be an integer literal: %s", update)
			}
		}
		if k == "" || k == strings.Repeat("0", len(k)) {
			return "", c.Errorf("Invalid loop step: %s", update)
		}
		if op == "-=" {
			return "-" + k, nil
		}
		return k, nil
	}
	return "", c.Errorf("Unsupported loop update: %s", update)
}

// matchBreak compiles @break, legal only inside a loop of the current
// definition.
func matchBreak(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "break")
	if !ok {
		return nil, nil
	}
	_, end, err := optionalGroup(c, off)
	if err != nil {
		return nil, err
	}
	if c.PeekBreak() == nil {
		return nil, c.Errorf("@break is only allowed inside a loop")
	}
	c.Advance(end)
	return codegen.Action{Code: "{{ break }}"}, nil
}

// matchContinue compiles @continue.
func matchContinue(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "continue")
	if !ok {
		return nil, nil
	}
	_, end, err := optionalGroup(c, off)
	if err != nil {
		return nil, err
	}
	if c.PeekContinue() == nil {
		return nil, c.Errorf("@continue is only allowed inside a loop")
	}
	c.Advance(end)
	return codegen.Action{Code: "{{ continue }}"}, nil
}
