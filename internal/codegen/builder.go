// Package codegen accumulates the tokens produced while parsing a template
// and renders them into Go text/template source.
package codegen

import (
	"fmt"
	"strings"
)

// RenderArg is a render argument declared by the template with @args.
type RenderArg struct {
	Name string
	Type string
}

// Builder is the token sink of one compilation unit.
type Builder struct {
	// Name is the identity of the template being compiled.
	Name string
	// Source is the template text.
	Source string
	// Lang is the base code type of the template.
	Lang string
	// RequiredDialect pins the dialect; empty lets the parser negotiate.
	RequiredDialect string

	// Extends names the layout this template renders into.
	Extends    string
	RenderArgs []RenderArg

	tokens       []Token
	removeNextLF bool
	pendingLF    bool
}

// NewBuilder creates a builder for the named template source.
func NewBuilder(name, source, lang string) *Builder {
	return &Builder{Name: name, Source: source, Lang: lang}
}

// AddToken appends t. Adjacent literals are merged.
func (b *Builder) AddToken(t Token) {
	suppress := b.removeNextLF
	b.removeNextLF = false
	if lit, ok := t.(Literal); ok {
		if suppress {
			lit.Text = trimLeadingLineBreak(lit.Text)
		}
		if lit.Text == "" {
			return
		}
		if n := len(b.tokens); n > 0 {
			if prev, ok := b.tokens[n-1].(Literal); ok {
				b.tokens[n-1] = Literal{Text: prev.Text + lit.Text}
				return
			}
		}
		t = lit
	}
	b.tokens = append(b.tokens, t)
}

// Tokens returns the tokens added so far.
func (b *Builder) Tokens() []Token {
	return b.tokens
}

// Rewind discards everything produced by a previous parse attempt.
func (b *Builder) Rewind() {
	b.tokens = nil
	b.RenderArgs = nil
	b.Extends = ""
	b.removeNextLF = false
	b.pendingLF = false
}

// IncludingUnitName returns the identity used for cache keys and relative
// tag resolution.
func (b *Builder) IncludingUnitName() string {
	return b.Name
}

// SuppressNextLineBreak drops the line break directly following the
// current call site. It takes effect at the next EndStep.
func (b *Builder) SuppressNextLineBreak() {
	b.pendingLF = true
}

// EndStep marks the end of one call site. Only the token added right after
// it can lose a suppressed line break.
func (b *Builder) EndStep() {
	if b.pendingLF {
		b.removeNextLF = true
		b.pendingLF = false
	}
}

// AddRenderArg declares a render argument.
func (b *Builder) AddRenderArg(arg RenderArg) {
	b.RenderArgs = append(b.RenderArgs, arg)
}

// RenderArg returns the declared render argument called name.
func (b *Builder) RenderArg(name string) (RenderArg, bool) {
	for _, a := range b.RenderArgs {
		if a.Name == name {
			return a, true
		}
	}
	return RenderArg{}, false
}

func trimLeadingLineBreak(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	if strings.HasPrefix(s, "\n") {
		return s[1:]
	}
	return s
}

// renderer carries render-time state: a stack of output sinks (the main
// template and open definitions) and whether the code being generated
// runs inside a tag body.
type renderer struct {
	sinks      []*strings.Builder
	defines    []string
	defNames   []string
	insideBody []bool
	bodyNames  map[*Invocation]string
	seq        int
}

func (r *renderer) out() *strings.Builder {
	return r.sinks[len(r.sinks)-1]
}

func (r *renderer) openDefine(name string) {
	r.sinks = append(r.sinks, &strings.Builder{})
	r.defNames = append(r.defNames, name)
}

func (r *renderer) closeDefine() error {
	if len(r.sinks) < 2 {
		return fmt.Errorf("definition closed without being opened")
	}
	n := len(r.sinks) - 1
	r.defines = append(r.defines, fmt.Sprintf("{{ define %q }}%s{{ end }}", r.defNames[n-1], r.sinks[n].String()))
	r.sinks = r.sinks[:n]
	r.defNames = r.defNames[:n-1]
	return nil
}

func (r *renderer) inBody() bool {
	return len(r.insideBody) > 0 && r.insideBody[len(r.insideBody)-1]
}

// Render turns the token stream into template source. Definitions are
// collected and appended after the main template.
func (b *Builder) Render() (string, error) {
	r := &renderer{
		sinks:     []*strings.Builder{{}},
		bodyNames: map[*Invocation]string{},
	}
	for _, t := range b.tokens {
		switch t := t.(type) {
		case Literal:
			r.out().WriteString(strings.ReplaceAll(t.Text, "{{", `{{"{{"}}`))
		case Action:
			r.out().WriteString(t.Code)
		case Output:
			fmt.Fprintf(r.out(), "{{ escape %q %s }}", string(t.Escape), t.Operand)
		case *Invocation:
			r.seq++
			caller := "$"
			if r.inBody() {
				caller = "$.Self"
			}
			t.write(r.out(), r.seq, caller, "")
		case BodyEnter:
			r.seq++
			name := fmt.Sprintf("__body_%d", r.seq)
			r.bodyNames[t.Call] = name
			r.openDefine(name)
			r.insideBody = append(r.insideBody, true)
		case BodyExit:
			name, ok := r.bodyNames[t.Call]
			if !ok {
				return "", fmt.Errorf("[%s] tag body closed without being opened (line %d)", b.Name, t.Call.Line)
			}
			r.insideBody = r.insideBody[:len(r.insideBody)-1]
			if err := r.closeDefine(); err != nil {
				return "", fmt.Errorf("[%s] %w", b.Name, err)
			}
			r.seq++
			caller := "$"
			if t.Call.Nested {
				caller = "$.Self"
			}
			t.Call.write(r.out(), r.seq, caller, t.Call.bodyOperand(name))
		case DefineOpen:
			r.openDefine(t.Name)
			r.insideBody = append(r.insideBody, false)
		case DefineClose:
			r.insideBody = r.insideBody[:len(r.insideBody)-1]
			if err := r.closeDefine(); err != nil {
				return "", fmt.Errorf("[%s] %w", b.Name, err)
			}
		default:
			return "", fmt.Errorf("[%s] unknown token %T", b.Name, t)
		}
	}
	if len(r.sinks) != 1 {
		return "", fmt.Errorf("[%s] %d definitions left open", b.Name, len(r.sinks)-1)
	}
	var out strings.Builder
	out.WriteString(r.sinks[0].String())
	for _, d := range r.defines {
		out.WriteString(d)
	}
	return out.String(), nil
}
