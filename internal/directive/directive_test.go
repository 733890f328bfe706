package directive

import (
	"bytes"
	"context"
	"testing"
	"text/template"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/parser"
	"github.com/dangdungcntt/go-rythm/internal/render"
	"github.com/dangdungcntt/go-rythm/internal/tag"
)

// units compiles and serves a set of templates the way the engine does.
type units struct {
	t     *testing.T
	names map[string]bool
	units map[string]*render.Unit
}

func newUnits(t *testing.T, names ...string) *units {
	u := &units{t: t, names: map[string]bool{}, units: map[string]*render.Unit{}}
	for _, n := range names {
		u.names[n] = true
	}
	return u
}

func (u *units) Resolve(name, _, _ string) (string, error) {
	if u.names[name] {
		return name, nil
	}
	return "", tag.ErrNotFound
}

func (u *units) Unit(name string) (*render.Unit, bool) {
	unit, ok := u.units[name]
	return unit, ok
}

func (u *units) Lookup(name, _ string) (string, bool) {
	_, ok := u.units[name]
	return name, ok
}

// registry adapts units to render.Registry, whose Resolve has another shape.
type registry struct{ *units }

func (r registry) Resolve(name, owner string) (string, bool) {
	return r.Lookup(name, owner)
}

func (u *units) parse(name, src string) (*codegen.Builder, error) {
	u.names[name] = true
	b := codegen.NewBuilder(name, src, "html")
	return b, parser.Parse(b, Matchers(u), parser.Options{Logger: zerolog.Nop()})
}

func (u *units) compile(name, src string) *codegen.Builder {
	u.t.Helper()
	b, err := u.parse(name, src)
	require.NoError(u.t, err)
	text, err := b.Render()
	require.NoError(u.t, err)
	tmpl, err := template.New(name).Funcs(render.Funcs()).Parse(text)
	require.NoError(u.t, err, text)
	unit := &render.Unit{Name: name, Tmpl: tmpl, Extends: b.Extends}
	for _, a := range b.RenderArgs {
		unit.Args = append(unit.Args, render.Arg{Name: a.Name, Type: a.Type})
	}
	u.units[name] = unit
	return b
}

func (u *units) render(name string, args map[string]any) string {
	u.t.Helper()
	var buf bytes.Buffer
	env := &render.Env{Registry: registry{u}, Logger: zerolog.Nop()}
	require.NoError(u.t, render.Execute(context.Background(), &buf, env, u.units[name], args))
	return buf.String()
}

func TestForCollection(t *testing.T) {
	u := newUnits(t)
	u.compile("page", `@for(item : items){@item_index:@item;}`)
	assert.Equal(t, "0:a;1:b;", u.render("page", map[string]any{"items": []string{"a", "b"}}))

	u.compile("typed", `@for(String s in items){[@s]}`)
	assert.Equal(t, "[x]", u.render("typed", map[string]any{"items": []string{"x"}}))
}

func TestForElse(t *testing.T) {
	u := newUnits(t)
	u.compile("page", `@for(x : xs){@x} else {empty}`)
	assert.Equal(t, "empty", u.render("page", map[string]any{"xs": []string{}}))
	assert.Equal(t, "ab", u.render("page", map[string]any{"xs": []string{"a", "b"}}))
}

func TestCountingLoopWithBreak(t *testing.T) {
	u := newUnits(t)
	u.compile("page", `@for(i = 0; i < 10; i++){@if(i == 3){@break}@i,}`)
	assert.Equal(t, "0,1,2,", u.render("page", nil))

	u.compile("down", `@for(int i = 6; i >= 0; i -= 2){@i}`)
	assert.Equal(t, "6420", u.render("down", nil))
}

func TestCountingLoopDirection(t *testing.T) {
	u := newUnits(t)
	_, err := u.parse("page", `@for(i = 0; i < 10; i--){x}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never reaches the limit")
}

func TestIfElseChain(t *testing.T) {
	u := newUnits(t)
	u.compile("page", `@if(a){A} else if (b) {B} else {C}`)

	for _, tc := range []struct {
		args map[string]any
		want string
	}{
		{map[string]any{"a": true}, "A"},
		{map[string]any{"b": true}, "B"},
		{nil, "C"},
	} {
		assert.Equal(t, tc.want, u.render("page", tc.args))
	}
}

func TestLooseBracesAreText(t *testing.T) {
	u := newUnits(t)
	u.compile("page", `a { b } c`)
	assert.Equal(t, "a { b } c", u.render("page", nil))
}

func TestBreakOutsideLoop(t *testing.T) {
	u := newUnits(t, "wrap")
	_, err := u.parse("page", "x\n@break")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "@break is only allowed inside a loop")

	_, err = u.parse("body", `@for(x : xs){@wrap(){@continue}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "@continue is only allowed inside a loop")
}

func TestBodyCapturesLoopVariable(t *testing.T) {
	u := newUnits(t)
	u.compile("wrap", `[@renderBody()]`)
	u.compile("page", `@for(x : xs){@wrap(){@x}}`)
	assert.Equal(t, "[a][b]", u.render("page", map[string]any{"xs": []string{"a", "b"}}))
}

func TestScript(t *testing.T) {
	u := newUnits(t)
	u.compile("page", "@{ x = 2; let y = x * 3 }\n@x-@y")
	assert.Equal(t, "2-6", u.render("page", nil))
}

func TestArgs(t *testing.T) {
	u := newUnits(t)
	b := u.compile("page", "@args String name, Map<String, Object> opts\nHello @name")
	want := []codegen.RenderArg{{Name: "name", Type: "String"}, {Name: "opts", Type: "Map<String, Object>"}}
	if diff := cmp.Diff(want, b.RenderArgs); diff != "" {
		t.Fatalf("render args mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Hello Bob", u.render("page", map[string]any{"name": "Bob"}))

	u.compile("script", "@args String src;<script src='@src'></script>")
	assert.Equal(t, "<script src='a.js'></script>", u.render("script", map[string]any{"src": "a.js"}))

	_, err := u.parse("dup", "@args a, a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Argument already declared: a")
}

func TestReturnStopsParsing(t *testing.T) {
	u := newUnits(t)
	u.compile("page", `a@return b @if(`)
	assert.Equal(t, "a", u.render("page", nil))
}

func TestComments(t *testing.T) {
	u := newUnits(t)
	u.compile("page", "a@* x *@b@// c\nd me@@x.com")
	assert.Equal(t, "ab\nd me@x.com", u.render("page", nil))

	_, err := u.parse("open", "a @* never closed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unclosed directive comment")
}

func TestLayout(t *testing.T) {
	u := newUnits(t)
	u.compile("main", `<h1>@render("title")</h1>@doLayout()`)
	b := u.compile("page", "@extends(\"main\")\n@section(\"title\"){Hi @who}Body")
	assert.Equal(t, "main", b.Extends)
	assert.Equal(t, "<h1>Hi Ann</h1>Body", u.render("page", map[string]any{"who": "Ann"}))
}

func TestLayoutErrors(t *testing.T) {
	u := newUnits(t, "main")
	for _, tc := range []struct {
		src  string
		want string
	}{
		{`@extends("missing")`, "Cannot find layout: missing"},
		{`@extends("main") @extends("main")`, "Template already extends main"},
		{`@section("a"){@section("b"){}}`, "Section cannot be nested"},
		{`@section("a")`, "@section must be followed by a block"},
		{`@include("nope")`, "Cannot find included template: nope"},
	} {
		_, err := u.parse("page", tc.src)
		require.Error(t, err, tc.src)
		assert.Contains(t, err.Error(), tc.want, tc.src)
	}
}

func TestInclude(t *testing.T) {
	u := newUnits(t)
	u.compile("inc", `[@name]`)
	u.compile("page", `@include("inc")!`)
	assert.Equal(t, "[Bob]!", u.render("page", map[string]any{"name": "Bob"}))
}

func TestRenderBodyWithParameters(t *testing.T) {
	u := newUnits(t)
	u.compile("each", `@for(v : items){@renderBody(v)}`)
	u.compile("page", `@each(items = xs).callback(String s){<@s>}`)
	assert.Equal(t, "<1><2>", u.render("page", map[string]any{"xs": []int{1, 2}}))
}

func TestAssignKeepsLaterLineBreaks(t *testing.T) {
	u := newUnits(t)
	u.compile("foo", `F`)
	u.compile("page", "@foo().assign(\"v\")@v\nnext")
	assert.Equal(t, "F\nnext", u.render("page", nil))

	u.compile("own", "@foo().assign(\"v\")\n@v")
	assert.Equal(t, "F", u.render("own", nil))
}

func TestCompact(t *testing.T) {
	u := newUnits(t)
	u.compile("page", "@compact(){a   b}   c")
	assert.Equal(t, "a b   c", u.render("page", nil))
}

func TestLocale(t *testing.T) {
	u := newUnits(t)
	b, err := u.parse("page", `@locale("fr"){x}`)
	require.NoError(t, err)
	text, err := b.Render()
	require.NoError(t, err)
	assert.Equal(t, `{{ pushLocale $ "fr" }}x{{ popLocale $ }}`, text)
}

func TestOutputEscaping(t *testing.T) {
	u := newUnits(t)
	u.compile("page", `<script>var s = "@s";</script><p>@s</p>@s.raw()|@(s).escape("xml")`)
	got := u.render("page", map[string]any{"s": `a"<b`})
	assert.Equal(t, `<script>var s = "a\"\u003Cb";</script><p>a&#34;&lt;b</p>a"<b|a&#34;&lt;b`, got)

	_, err := u.parse("bad", `@s.escape("nope")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown escape type: nope")
}

func TestUnclosedBlock(t *testing.T) {
	u := newUnits(t)
	_, err := u.parse("page", `@if(a){x`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unclosed block")
}

func TestBasicDialectRewinds(t *testing.T) {
	u := newUnits(t)
	b := u.compile("page", `@if(n > 1){many}`)
	b.RequiredDialect = "basic"
	err := parser.Parse(b, Matchers(u), parser.Options{Logger: zerolog.Nop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Complex expression not allowed in current dialect[basic]")
	assert.Equal(t, "many", u.render("page", map[string]any{"n": 2}))
}
