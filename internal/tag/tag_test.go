package tag

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/escape"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

func testResolver(names ...string) Resolver {
	return ResolverFunc(func(name, _, _ string) (string, error) {
		n := strings.ReplaceAll(name, ".", "/")
		for _, k := range names {
			if k == n {
				return k, nil
			}
			if strings.EqualFold(k, n) {
				return "", &LoadError{Name: name, Found: k}
			}
		}
		return "", ErrNotFound
	})
}

// closer ends the innermost block on its delimiter.
var closer = parser.MatcherFunc(func(c *parser.Context) (codegen.Token, error) {
	h := c.CurrentBlock()
	if h == nil {
		return nil, nil
	}
	d := "}"
	if dl, ok := h.(parser.Delimited); ok {
		d = dl.Delimiter()
	}
	if !strings.HasPrefix(c.Remaining(), d) {
		return nil, nil
	}
	tok, err := c.CloseBlock()
	c.Advance(len(d))
	return tok, err
})

func parse(src string, names ...string) (*codegen.Builder, error) {
	if len(names) == 0 {
		names = []string{"foo", "bar", "my/foo"}
	}
	b := codegen.NewBuilder("page", src, "html")
	err := parser.Parse(b, []parser.Matcher{closer, NewMatcher(testResolver(names...))}, parser.Options{})
	return b, err
}

func onlyInvocation(t *testing.T, src string) *codegen.Invocation {
	t.Helper()
	b, err := parse(src)
	require.NoError(t, err)
	require.Len(t, b.Tokens(), 1)
	inv, ok := b.Tokens()[0].(*codegen.Invocation)
	require.True(t, ok, "got %T", b.Tokens()[0])
	return inv
}

func bodyInvocation(t *testing.T, src string) *codegen.Invocation {
	t.Helper()
	b, err := parse(src)
	require.NoError(t, err)
	require.NotEmpty(t, b.Tokens())
	enter, ok := b.Tokens()[0].(codegen.BodyEnter)
	require.True(t, ok, "got %T", b.Tokens()[0])
	return enter.Call
}

func TestSimpleInvocation(t *testing.T) {
	inv := onlyInvocation(t, "@foo()")
	assert.Equal(t, "foo", inv.Callee)
	assert.Empty(t, inv.Params)
	assert.False(t, inv.Cache)
	assert.Empty(t, inv.Escape)
	assert.Empty(t, inv.AssignTo)
	assert.False(t, inv.HasBody)
	assert.Equal(t, "page", inv.Owner)
	assert.Equal(t, 1, inv.Line)

	b, err := parse("@foo()")
	require.NoError(t, err)
	out, err := b.Render()
	require.NoError(t, err)
	assert.Equal(t, `{{ invokeTag $ 1 "foo" (params) false }}`, out)
}

func TestInvocationWithParamsAndExtensions(t *testing.T) {
	inv := onlyInvocation(t, `@foo(a=1, "x").cache(30).escape('html')`)
	want := []codegen.Param{{Name: "a", Value: "1"}, {Value: `"x"`}}
	if diff := cmp.Diff(want, inv.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, inv.Cache)
	assert.Equal(t, "30s", inv.CacheDuration)
	assert.Equal(t, escape.HTML, inv.Escape)
}

func TestBodyInvocation(t *testing.T) {
	b, err := parse("@foo(){ @bar() }")
	require.NoError(t, err)

	toks := b.Tokens()
	require.Len(t, toks, 5)
	enter, ok := toks[0].(codegen.BodyEnter)
	require.True(t, ok)
	assert.Equal(t, "foo", enter.Call.Callee)
	assert.True(t, enter.Call.HasBody)
	assert.Equal(t, codegen.Literal{Text: " "}, toks[1])
	nested, ok := toks[2].(*codegen.Invocation)
	require.True(t, ok)
	assert.Equal(t, "bar", nested.Callee)
	exit, ok := toks[4].(codegen.BodyExit)
	require.True(t, ok)
	assert.Same(t, enter.Call, exit.Call)

	out, err := b.Render()
	require.NoError(t, err)
	assert.Equal(t, `{{ invokeTag $ 1 "foo" (params) false (body $ "__body_1" (locals)) }}`+
		`{{ define "__body_1" }} {{ invokeTag $.Self 1 "bar" (params) false }} {{ end }}`, out)
}

func TestHeredocBody(t *testing.T) {
	inv := bodyInvocation(t, "@foo() << x >>")
	assert.True(t, inv.HasBody)
}

func TestUnknownExtension(t *testing.T) {
	_, err := parse("@foo.bogusExt()")
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parser.Structural, perr.Kind)
	assert.Contains(t, perr.Message, "bogusExt")
	assert.Contains(t, perr.Message, "cache, escape, raw, callback, ignoreNonExistsTag, assign")
}

func TestUnknownExtensionSuggestion(t *testing.T) {
	_, err := parse("@foo().cahce()")
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Hint, ".cache()")
}

func TestLongestResolvingPrefix(t *testing.T) {
	inv := onlyInvocation(t, "@my.foo(1)")
	assert.Equal(t, "my/foo", inv.Callee)

	inv = onlyInvocation(t, "@foo.raw()")
	assert.Equal(t, "foo", inv.Callee)
	assert.Equal(t, escape.Raw, inv.Escape)
}

func TestNotFoundDeclines(t *testing.T) {
	b, err := parse("@zzz() and @foo")
	require.NoError(t, err)
	assert.Equal(t, []codegen.Token{codegen.Literal{Text: "@zzz() and @foo"}}, b.Tokens())
}

func TestLoadErrorIsFatal(t *testing.T) {
	_, err := parse("@foo()", "Foo")
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parser.Resolution, perr.Kind)
	assert.Contains(t, perr.Hint, "lower or upper case")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "Foo", le.Found)
}

func TestEscapeExtension(t *testing.T) {
	tests := map[string]escape.Kind{
		"@foo().escape()":           escape.HTML,
		"@foo().escapeHTML()":       escape.HTML,
		"@foo().escapeJS()":         escape.JS,
		`@foo().escape("json")`:     escape.JSON,
		`@foo().escapeXml("csv")`:   escape.CSV,
		"@foo().raw().escape()":     escape.Raw,
		"@foo().escape().raw()":     escape.Raw,
		"@foo().escapeJava().raw()": escape.Raw,
	}
	for src, want := range tests {
		t.Run(src, func(t *testing.T) {
			assert.Equal(t, want, onlyInvocation(t, src).Escape)
		})
	}

	_, err := parse(`@foo().escape("yaml")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown escape type: yaml")
}

func TestAssign(t *testing.T) {
	b, err := parse("@foo().assign(\"out\")\nnext")
	require.NoError(t, err)
	require.Len(t, b.Tokens(), 2)
	inv := b.Tokens()[0].(*codegen.Invocation)
	assert.Equal(t, "out", inv.AssignTo)
	assert.False(t, inv.AssignFinal)
	assert.Equal(t, codegen.Literal{Text: "next"}, b.Tokens()[1])

	out, err := b.Render()
	require.NoError(t, err)
	assert.Equal(t, `{{ $out := "" }}{{ $_pl1 := (params) }}{{ $_rs1 := invokeTag $ 1 "foo" $_pl1 false }}{{ $out = $_rs1 }}next`, out)

	inv = onlyInvocation(t, "@foo().assign(res, true)")
	assert.Equal(t, "res", inv.AssignTo)
	assert.True(t, inv.AssignFinal)
}

func TestAssignReservedTarget(t *testing.T) {
	for _, name := range []string{"range", "func", "nil", "_rs1", "end"} {
		b, err := parse(`@foo().assign("` + name + `")`)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "reserved", name)
		assert.Empty(t, b.Tokens(), name)
	}
	_, err := parse("@foo().assign()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a variable name")
}

func TestCallback(t *testing.T) {
	_, err := parse("@foo().callback(name)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only apply to tag invocation with body")

	inv := bodyInvocation(t, "@foo().callback(String name, int n = 2){}")
	want := []codegen.CallbackArg{{Type: "String", Name: "name"}, {Type: "int", Name: "n", Default: "2"}}
	assert.Equal(t, want, inv.Callback)
}

func TestIgnoreNonExistsTag(t *testing.T) {
	assert.True(t, onlyInvocation(t, "@foo().ignoreNonExistsTag()").IgnoreMissing)
}

func TestSimpleAndBodyParamsAgree(t *testing.T) {
	src := `@foo(a = x.y, 'z', n: 10l, items[0])`
	simple := onlyInvocation(t, src)
	body := bodyInvocation(t, src+"{ }")
	assert.Equal(t, simple.Params, body.Params)
	assert.Len(t, simple.Params, 4)
}

func TestCacheKeyIsDeterministic(t *testing.T) {
	first := bodyInvocation(t, `@foo(1).cache("1h"){ same body }`)
	second := bodyInvocation(t, `@foo(1).cache("1h"){ same body }`)
	assert.Equal(t, first.CacheKey(), second.CacheKey())
	assert.NotEmpty(t, first.BodyKey)

	b, err := parse(`text before @foo(2).cache("2h"){ same body }`)
	require.NoError(t, err)
	var moved *codegen.Invocation
	for _, tok := range b.Tokens() {
		if e, ok := tok.(codegen.BodyEnter); ok {
			moved = e.Call
		}
	}
	require.NotNil(t, moved)
	assert.Equal(t, first.CacheKey(), moved.CacheKey(), "key ignores call-site location")

	other := bodyInvocation(t, `@foo(1).cache("1h"){ other body }`)
	assert.NotEqual(t, first.CacheKey(), other.CacheKey())

	simple := onlyInvocation(t, `@foo(1).cache()`)
	assert.Equal(t, "", simple.CacheDuration)
	assert.Empty(t, simple.BodyKey)
}

func TestCacheExtraKeys(t *testing.T) {
	inv := onlyInvocation(t, `@foo().cache("10mn", user.id, "k")`)
	assert.Equal(t, "10m0s", inv.CacheDuration)
	assert.Equal(t, []string{"$.Args.user.id", `"k"`}, inv.CacheArgs)

	_, err := parse(`@foo().cache("soon")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cache duration")
}

func TestNestedBody(t *testing.T) {
	b, err := parse("@foo(){@bar(){}}")
	require.NoError(t, err)
	var calls []*codegen.Invocation
	for _, tok := range b.Tokens() {
		if e, ok := tok.(codegen.BodyEnter); ok {
			calls = append(calls, e.Call)
		}
	}
	require.Len(t, calls, 2)
	assert.False(t, calls[0].Nested)
	assert.True(t, calls[1].Nested)

	out, err := b.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `{{ define "__body_2" }}{{ end }}`)
	assert.Contains(t, out, `{{ define "__body_1" }}{{ invokeTag $.Self 1 "bar" (params) false (body $ "__body_2" (locals)) }}{{ end }}`)
}

func TestDynamicInvocation(t *testing.T) {
	inv := onlyInvocation(t, "@invoke(name, 1).escape()")
	assert.True(t, inv.Dynamic)
	assert.Equal(t, "$.Args.name", inv.Callee)
	assert.Equal(t, []codegen.Param{{Value: "1"}}, inv.Params)
	assert.Equal(t, escape.HTML, inv.Escape)

	_, err := parse("@invoke()")
	require.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"null":     "",
		"forever":  "",
		"30":       "30s",
		`"1h"`:     "1h0m0s",
		`'30mn'`:   "30m0s",
		"2d":       "48h0m0s",
		`"1h30m"`:  "1h30m0s",
		"1min 10s": "1m10s",
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"abc", "1x", "-5", "h1"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestReserved(t *testing.T) {
	assert.True(t, Reserved("if"))
	assert.True(t, Reserved("define"))
	assert.True(t, Reserved("_x"))
	assert.True(t, Reserved("go"))
	assert.False(t, Reserved("total"))
}
