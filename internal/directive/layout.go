package directive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/expression"
	"github.com/dangdungcntt/go-rythm/internal/parser"
	"github.com/dangdungcntt/go-rythm/internal/tag"
)

// matchSection compiles `@section("name") {`. The content becomes a
// definition the layout renders with @render("name").
func matchSection(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "section")
	if !ok {
		return nil, nil
	}
	arg, end, err := group(c, off)
	if err != nil {
		return nil, c.Errorf("@section needs a name")
	}
	name := unquote(arg)
	if !expression.IsIdent(name) {
		return nil, c.Errorf("Invalid section name: %s", arg)
	}
	if cur := c.CurrentSection(); cur != "" {
		return nil, c.Errorf("Section cannot be nested: %s is inside %s", name, cur)
	}
	end, err = openBrace(c, end, "@section")
	if err != nil {
		return nil, err
	}
	line := c.CurrentLine()
	c.Advance(end)
	blk := &parser.SectionBlock{Name: name}
	blk.Kind, blk.Line = "section", line
	blk.OnOpen = func() { c.PushBreak(nil); c.PushContinue(nil) }
	blk.OnClose = func() (codegen.Token, error) {
		c.PopBreak()
		c.PopContinue()
		return codegen.DefineClose{}, nil
	}
	c.OpenBlock(blk)
	return codegen.DefineOpen{Name: "__section_" + name}, nil
}

// matchRender compiles the layout side: `@render("name")` renders a
// section, `@render()` and `@doLayout()` the extending template's content.
func matchRender(c *parser.Context) (codegen.Token, error) {
	for _, kw := range []string{"render", "renderSection", "doLayout"} {
		off, ok := keyword(c, kw)
		if !ok {
			continue
		}
		arg, end, err := optionalGroup(c, off)
		if err != nil {
			return nil, err
		}
		name := unquote(arg)
		if name != "" && !expression.IsIdent(name) {
			return nil, c.Errorf("Invalid section name: %s", arg)
		}
		if kw == "doLayout" && name != "" {
			return nil, c.Errorf("@doLayout takes no argument")
		}
		c.Advance(end)
		return codegen.Action{Code: fmt.Sprintf("{{ renderSection $ %q }}", name)}, nil
	}
	return nil, nil
}

// extendsMatcher compiles `@extends("layout")`.
type extendsMatcher struct {
	resolver tag.Resolver
}

func (m *extendsMatcher) Match(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "extends")
	if !ok {
		return nil, nil
	}
	arg, end, err := group(c, off)
	if err != nil {
		return nil, c.Errorf("@extends needs the name of a layout")
	}
	b := c.Builder()
	if b.Extends != "" {
		return nil, c.Errorf("Template already extends %s", b.Extends)
	}
	name := unquote(expression.SplitTopLevel(arg, ',')[0])
	layout, err := resolveUnit(c, m.resolver, name, "layout")
	if err != nil {
		return nil, err
	}
	if layout == b.Name {
		return nil, c.Errorf("Template cannot extend itself")
	}
	b.Extends = layout
	c.Advance(end)
	b.SuppressNextLineBreak()
	return nil, nil
}

// includeMatcher compiles `@include("a", "b")`. Included templates render
// inline with the includer's arguments.
type includeMatcher struct {
	resolver tag.Resolver
}

func (m *includeMatcher) Match(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "include")
	if !ok {
		return nil, nil
	}
	arg, end, err := group(c, off)
	if err != nil || strings.TrimSpace(arg) == "" {
		return nil, c.Errorf("@include needs the name of a template")
	}
	var code strings.Builder
	for _, part := range expression.SplitTopLevel(arg, ',') {
		name, err := resolveUnit(c, m.resolver, unquote(part), "included template")
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&code, "{{ include $ %q }}", name)
	}
	c.Advance(end)
	return codegen.Action{Code: code.String()}, nil
}

func resolveUnit(c *parser.Context, r tag.Resolver, name, what string) (string, error) {
	b := c.Builder()
	canonical, err := r.Resolve(name, b.IncludingUnitName(), b.Lang)
	if errors.Is(err, tag.ErrNotFound) {
		return "", c.Errorf("Cannot find %s: %s", what, name)
	}
	if err != nil {
		perr := c.Errorf("Error load %s %s: %v", what, name, err)
		perr.Kind = parser.Resolution
		perr.Err = err
		return "", perr
	}
	return canonical, nil
}

// matchRenderBody compiles `@renderBody(params)`, which renders the body
// passed to the current tag.
func matchRenderBody(c *parser.Context) (codegen.Token, error) {
	off, ok := keyword(c, "renderBody")
	if !ok {
		return nil, nil
	}
	arg, end, err := optionalGroup(c, off)
	if err != nil {
		return nil, err
	}
	params, err := tag.CompileParams(c, arg)
	if err != nil {
		return nil, err
	}
	c.Advance(end)
	return codegen.Action{Code: "{{ renderBody $ " + codegen.ParamsOperand(params) + " }}"}, nil
}
