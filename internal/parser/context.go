// Package parser holds the parsing context shared by every syntax matcher
// and the rewindable parse loop that drives them.
package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/codetype"
	"github.com/dangdungcntt/go-rythm/internal/dialect"
	"github.com/dangdungcntt/go-rythm/internal/escape"
)

// Break marks the innermost loop a @break can leave.
type Break struct {
	Line int
}

// Continue marks the innermost loop a @continue can restart.
type Continue struct {
	Line int
}

// Context is the state of one parse attempt over one template. It is not
// safe for concurrent use; every compilation owns its own Context.
type Context struct {
	b          *codegen.Builder
	src        string
	totalLines int
	cursor     int
	dialect    *dialect.Dialect
	baseLang   *codetype.Lang

	defaultCompact bool
	compact        Stack[bool]
	breaks         Stack[*Break]
	continues      Stack[*Continue]
	insideBody     Stack[bool]
	codeTypes      codeTypeStack
	locales        Stack[string]
	blocks         Stack[BlockHandler]
	vars           Vars

	insideDirectiveComment bool
	rejected               dialect.Feature
	seq                    int
}

// NewContext creates a context over the builder's source.
func NewContext(b *codegen.Builder, compact bool) *Context {
	lang, ok := codetype.Lookup(b.Lang)
	if !ok {
		lang = codetype.HTML
	}
	c := &Context{
		b:              b,
		src:            b.Source,
		totalLines:     strings.Count(b.Source, "\n") + 1,
		baseLang:       lang,
		defaultCompact: compact,
		dialect:        dialect.Rythm,
	}
	c.codeTypes.push(lang)
	return c
}

// reset drains every stack and reseeds the code-type stack for a new attempt.
func (c *Context) reset() {
	c.compact.Clear()
	c.breaks.Clear()
	c.continues.Clear()
	c.insideBody.Clear()
	c.codeTypes.clear()
	c.codeTypes.push(c.baseLang)
	c.locales.Clear()
	c.blocks.Clear()
	c.vars = Vars{}
	c.insideDirectiveComment = false
	c.rejected = 0
	c.cursor = 0
	c.seq = 0
}

// Builder returns the code builder tokens are added to.
func (c *Context) Builder() *codegen.Builder {
	return c.b
}

// TemplateName returns the identity of the template being parsed.
func (c *Context) TemplateName() string {
	return c.b.Name
}

// Dialect returns the dialect of the current attempt.
func (c *Context) Dialect() *dialect.Dialect {
	return c.dialect
}

// SetDialect is called by the dialect manager between attempts.
func (c *Context) SetDialect(d *dialect.Dialect) {
	c.dialect = d
}

// Rejected reports the feature that ended the attempt with a rewind.
func (c *Context) Rejected() (dialect.Feature, bool) {
	return c.rejected, c.rejected != 0
}

// Remaining returns the unconsumed source.
func (c *Context) Remaining() string {
	if c.cursor >= len(c.src) {
		return ""
	}
	return c.src[c.cursor:]
}

// HasRemain reports whether input is left.
func (c *Context) HasRemain() bool {
	return c.cursor < len(c.src)
}

// Cursor returns the current offset into the source.
func (c *Context) Cursor() int {
	return c.cursor
}

// Peek returns the byte at the cursor, or 0 at end of input.
func (c *Context) Peek() byte {
	if !c.HasRemain() {
		return 0
	}
	return c.src[c.cursor]
}

// Pop consumes one byte.
func (c *Context) Pop() (byte, error) {
	if !c.HasRemain() {
		return 0, ErrOutOfRange
	}
	ch := c.src[c.cursor]
	c.cursor++
	return ch, nil
}

// Advance moves the cursor forward by n bytes.
func (c *Context) Advance(n int) {
	c.cursor += n
}

// Source returns the template text between two offsets.
func (c *Context) Source(start, end int) string {
	if end > len(c.src) {
		end = len(c.src)
	}
	if start > end {
		return ""
	}
	return c.src[start:end]
}

// CurrentLine returns the 1-based line of the cursor. Past the end of input
// it returns the total line count.
func (c *Context) CurrentLine() int {
	if c.cursor >= len(c.src) {
		return c.totalLines
	}
	return strings.Count(c.src[:c.cursor], "\n") + 1
}

// NextID returns a number unique within the current attempt.
func (c *Context) NextID() int {
	c.seq++
	return c.seq
}

// CompactMode reports whether literal whitespace is collapsed.
func (c *Context) CompactMode() bool {
	if c.compact.Empty() {
		return c.defaultCompact
	}
	return c.compact.Peek()
}

func (c *Context) PushCompact(v bool) { c.compact.Push(v) }
func (c *Context) PeekCompact() bool  { return c.compact.Peek() }
func (c *Context) PopCompact() bool   { return c.compact.Pop() }

func (c *Context) PushBreak(b *Break)       { c.breaks.Push(b) }
func (c *Context) PeekBreak() *Break        { return c.breaks.Peek() }
func (c *Context) PopBreak() *Break         { return c.breaks.Pop() }
func (c *Context) PushContinue(v *Continue) { c.continues.Push(v) }
func (c *Context) PeekContinue() *Continue  { return c.continues.Peek() }
func (c *Context) PopContinue() *Continue   { return c.continues.Pop() }

// InsideBody reports whether the parser is inside a tag body at any depth.
// Which define block generated code lands in is tracked by codegen when
// the tokens are rendered.
func (c *Context) InsideBody() bool      { return c.insideBody.Peek() }
func (c *Context) PushInsideBody(v bool) { c.insideBody.Push(v) }
func (c *Context) PopInsideBody() bool   { return c.insideBody.Pop() }

func (c *Context) PushCodeType(l *codetype.Lang) { c.codeTypes.push(l) }
func (c *Context) PeekCodeType() *codetype.Lang  { return c.codeTypes.peek() }
func (c *Context) PopCodeType() *codetype.Lang   { return c.codeTypes.pop() }

// ParentCodeType returns the code type enclosing the active one.
func (c *Context) ParentCodeType() *codetype.Lang { return c.codeTypes.parent() }

// EscapeKind returns the default escape of the active code type, falling
// back through enclosing code types.
func (c *Context) EscapeKind() escape.Kind { return c.codeTypes.escapeKind() }

func (c *Context) PushLocale(l string) { c.locales.Push(l) }
func (c *Context) PeekLocale() string  { return c.locales.Peek() }
func (c *Context) PopLocale() string   { return c.locales.Pop() }

func (c *Context) InsideDirectiveComment() bool { return c.insideDirectiveComment }
func (c *Context) EnterDirectiveComment()       { c.insideDirectiveComment = true }
func (c *Context) LeaveDirectiveComment()       { c.insideDirectiveComment = false }

// OpenBlock opens h and pushes it onto the block stack.
func (c *Context) OpenBlock(h BlockHandler) {
	h.Open()
	c.blocks.Push(h)
}

// CurrentBlock returns the innermost open block, or nil.
func (c *Context) CurrentBlock() BlockHandler {
	return c.blocks.Peek()
}

// OpenBlocks returns the number of open blocks.
func (c *Context) OpenBlocks() int {
	return c.blocks.Len()
}

// CloseBlock pops the innermost block and returns its closing token.
func (c *Context) CloseBlock() (codegen.Token, error) {
	if c.blocks.Empty() {
		return nil, c.Errorf("No open block found")
	}
	return c.blocks.Pop().Close()
}

// CurrentSection returns the name of the nearest enclosing section block.
func (c *Context) CurrentSection() string {
	for i := c.blocks.Len() - 1; i >= 0; i-- {
		if s, ok := c.blocks.At(i).(*SectionBlock); ok {
			return s.Name
		}
	}
	return ""
}

// LookupVariable resolves name to the template reference of a variable
// declared by an enclosing block.
func (c *Context) LookupVariable(name string) (string, bool) {
	for i := c.blocks.Len() - 1; i >= 0; i-- {
		h := c.blocks.At(i)
		if s, ok := h.(Scope); ok {
			if ref, ok := s.Lookup(name); ok {
				return ref, true
			}
		}
		if b, ok := h.(Barrier); ok && b.Barrier() {
			return "", false
		}
	}
	return c.vars.Lookup(name)
}

// DeclareVariable declares name in the innermost scope.
func (c *Context) DeclareVariable(name, ref string) {
	for i := c.blocks.Len() - 1; i >= 0; i-- {
		if s, ok := c.blocks.At(i).(Scope); ok {
			s.Declare(name, ref)
			return
		}
	}
	c.vars.Declare(name, ref)
}

// VisibleVariables returns every variable reachable from the cursor, inner
// declarations shadowing outer ones, sorted by name.
func (c *Context) VisibleVariables() []codegen.Capture {
	seen := map[string]string{}
	collect := func(s Scope) {
		for _, n := range s.Names() {
			if _, ok := seen[n]; !ok {
				ref, _ := s.Lookup(n)
				seen[n] = ref
			}
		}
	}
	barrier := false
	for i := c.blocks.Len() - 1; i >= 0 && !barrier; i-- {
		h := c.blocks.At(i)
		if s, ok := h.(Scope); ok {
			collect(s)
		}
		if b, ok := h.(Barrier); ok && b.Barrier() {
			barrier = true
		}
	}
	if !barrier {
		collect(&c.vars)
	}
	out := make([]codegen.Capture, 0, len(seen))
	for n, ref := range seen {
		out = append(out, codegen.Capture{Name: n, Ref: ref})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Errorf builds a structural parse error at the current line.
func (c *Context) Errorf(format string, args ...any) *Error {
	return &Error{
		Kind:     Structural,
		Template: c.b.Name,
		Line:     c.CurrentLine(),
		Dialect:  c.dialectName(),
		Message:  fmt.Sprintf(format, args...),
	}
}

// Reject signals that the active dialect forbids f.
func (c *Context) Reject(f dialect.Feature) *Rejection {
	return &Rejection{
		Feature:  f,
		Template: c.b.Name,
		Line:     c.CurrentLine(),
		Dialect:  c.dialectName(),
	}
}

func (c *Context) dialectName() string {
	if c.dialect == nil {
		return ""
	}
	return c.dialect.Name
}
