package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/dialect"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

type vars map[string]string

func (v vars) LookupVariable(name string) (string, bool) {
	ref, ok := v[name]
	return ref, ok
}

func TestTranslate(t *testing.T) {
	scope := vars{"item": "$item", "x": "$.Vars.x"}
	tests := []struct {
		src  string
		want string
	}{
		{`user.name`, `$.Args.user.name`},
		{`item.title`, `$item.title`},
		{`x`, `$.Vars.x`},
		{`a.b(1)`, `($.Args.a.b 1)`},
		{`a.b()`, `$.Args.a.b`},
		{`a[0]`, `(index $.Args.a 0)`},
		{`a[0].name`, `(index $.Args.a 0).name`},
		{`m["k"]`, `(index $.Args.m "k")`},
		{`f(item, 'y')`, `(call $.Args.f $item "y")`},
		{`'x'`, `"x"`},
		{`"say \"hi\""`, `"say \"hi\""`},
		{`10l`, `10`},
		{`1.5f`, `1.5`},
		{`-3`, `-3`},
		{`null`, `nil`},
		{`true`, `true`},
		{`!done`, `(not $.Args.done)`},
		{` ( user ) `, `($.Args.user)`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Translate(tt.src, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateComplex(t *testing.T) {
	for _, src := range []string{`a > 1`, `a + b`, `a ? b : c`, `a != b`, `a && b`, `x.`, `10px`} {
		_, err := Translate(src, vars{})
		assert.ErrorIs(t, err, ErrComplex, src)
	}
}

func newContext(t *testing.T, d *dialect.Dialect) *parser.Context {
	t.Helper()
	c := parser.NewContext(codegen.NewBuilder("expr", "", "html"), false)
	c.SetDialect(d)
	return c
}

func TestCompileSimple(t *testing.T) {
	op, err := Compile(newContext(t, dialect.Basic), "@user.name")
	require.NoError(t, err)
	assert.Equal(t, "$.Args.user.name", op)
}

func TestCompileComplexRejectedUnderBasic(t *testing.T) {
	_, err := Compile(newContext(t, dialect.Basic), "a > 1")
	var rej *parser.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, dialect.ComplexExpression, rej.Feature)
}

func TestCompileComplexUnderRythm(t *testing.T) {
	c := newContext(t, dialect.Rythm)
	c.DeclareVariable("item", "$item")
	op, err := Compile(c, "item.n > limit")
	require.NoError(t, err)
	assert.Equal(t, `(eval $ "item.n > limit" (locals "item" $item))`, op)
}

func TestCompileInvalid(t *testing.T) {
	_, err := Compile(newContext(t, dialect.Rythm), "a >")
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parser.Structural, perr.Kind)

	_, err = Compile(newContext(t, dialect.Rythm), "  ")
	require.Error(t, err)
}

func TestBalanced(t *testing.T) {
	assert.Equal(t, 6, Balanced(`(a(b))x`))
	assert.Equal(t, 8, Balanced(`("(", x)`))
	assert.Equal(t, -1, Balanced(`(a]`))
	assert.Equal(t, -1, Balanced(`(a`))
	assert.Equal(t, 4, Balanced(`{[]}`))
}

func TestSplitTopLevel(t *testing.T) {
	assert.Equal(t, []string{`a=1`, `"x,y"`, `f(1, 2)`}, SplitTopLevel(`a=1, "x,y", f(1, 2)`, ','))
	assert.Nil(t, SplitTopLevel("  ", ','))
	assert.Equal(t, 4, IndexTopLevel(`f(=)=1`, "="))
}

func TestScanChain(t *testing.T) {
	tests := map[string]int{
		`user.name</p>`:     9,
		`user.name. Next`:   9,
		`items[0].title!`:   14,
		`fmt(x).trim() and`: 13,
		`9lives`:            0,
	}
	for src, want := range tests {
		assert.Equal(t, want, ScanChain(src), src)
	}
}
