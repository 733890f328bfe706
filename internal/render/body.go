package render

import (
	"fmt"
	"io"
)

// CallbackArg is a formal argument of a tag body.
type CallbackArg struct {
	Name    string
	Type    string
	Default any
}

// Body is a block of template content passed to a tag at its call site.
// It executes in the defining unit, seeing the defining frame's arguments
// and the values captured when the call was made.
type Body struct {
	parent   *Frame
	define   string
	locals   map[string]any
	callback []CallbackArg
}

// NewBody binds the definition named define to the frame it was called from.
func NewBody(parent *Frame, define string, locals map[string]any, callback ...CallbackArg) *Body {
	return &Body{parent: parent, define: define, locals: locals, callback: callback}
}

// Render executes the body with the arguments the tag passes back.
func (b *Body) Render(p *Params) (string, error) {
	vars := make(map[string]any, len(b.locals)+len(b.callback))
	for k, v := range b.locals {
		vars[k] = v
	}
	for _, a := range b.callback {
		vars[a.Name] = a.Default
	}
	declared := make([]string, len(b.callback))
	for i, a := range b.callback {
		declared[i] = a.Name
	}
	for i, name := range p.assign(declared) {
		if name == "" {
			return "", fmt.Errorf("[%s] body takes %d argument(s), got more", b.parent.unit.Name, len(b.callback))
		}
		vars[name] = p.At(i).Value
	}
	for _, a := range b.callback {
		v, err := Coerce(a.Type, vars[a.Name])
		if err != nil {
			return "", fmt.Errorf("[%s] body argument %s: %w", b.parent.unit.Name, a.Name, err)
		}
		vars[a.Name] = v
	}

	defining := b.parent.Self
	f := &Frame{
		Args:    b.parent.Args,
		Vars:    vars,
		Self:    defining,
		ctx:     b.parent.ctx,
		env:     b.parent.env,
		unit:    b.parent.unit,
		body:    b.parent.body,
		layout:  b.parent.layout,
		locales: append([]string(nil), b.parent.locales...),
		depth:   b.parent.depth,
	}
	return f.renderString(func(w io.Writer) error {
		return f.unit.Tmpl.ExecuteTemplate(w, b.define, f)
	})
}
