package codegen

import (
	"github.com/dangdungcntt/go-rythm/internal/escape"
)

// Token is one element of the generated output. The set of variants is
// closed; Builder.Render switches over them.
type Token interface {
	isToken()
}

// Literal is template text copied to the output verbatim.
type Literal struct {
	Text string
}

// Action is already-formatted template code, e.g. `{{ range $x := .Args.xs }}`.
type Action struct {
	Code string
}

// Output prints an expression operand through an escape kind.
type Output struct {
	Operand string
	Escape  escape.Kind
}

// BodyEnter starts the captured body of a body-capturing invocation.
// Everything up to the matching BodyExit is rendered into the body definition.
type BodyEnter struct {
	Call *Invocation
}

// BodyExit ends a captured body and emits the invocation itself.
type BodyExit struct {
	Call *Invocation
}

// DefineOpen starts a named top-level definition such as a layout section.
type DefineOpen struct {
	Name string
}

// DefineClose ends the innermost DefineOpen.
type DefineClose struct{}

func (Literal) isToken()     {}
func (Action) isToken()      {}
func (Output) isToken()      {}
func (*Invocation) isToken() {}
func (BodyEnter) isToken()   {}
func (BodyExit) isToken()    {}
func (DefineOpen) isToken()  {}
func (DefineClose) isToken() {}
