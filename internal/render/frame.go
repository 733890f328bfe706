// Package render is the library compiled templates call into while they
// execute: tag invocation, body callbacks, layouts, caching and escaping.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxDepth bounds nested tag invocations and layouts.
const DefaultMaxDepth = 64

// Arg is a render argument declared by a template.
type Arg struct {
	Name string
	Type string
}

// Unit is one compiled template.
type Unit struct {
	Name    string
	Tmpl    *template.Template
	Args    []Arg
	Extends string
}

// Registry looks up compiled units at render time.
type Registry interface {
	Unit(name string) (*Unit, bool)
	// Resolve turns a name computed at render time into a unit name,
	// relative to the owning unit first.
	Resolve(name, owner string) (string, bool)
}

// Cache stores rendered tag output.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Env is shared by every frame of one render.
type Env struct {
	Registry Registry
	Cache    Cache
	Logger   zerolog.Logger
	MaxDepth int
}

// Frame is the data every compiled template executes against. Generated
// code reaches render arguments through Args and values captured by a tag
// body through Vars.
type Frame struct {
	Args map[string]any
	Vars map[string]any
	// Self is the frame of the unit the executing code belongs to. For a
	// body it is the frame that defined the body.
	Self *Frame

	ctx     context.Context
	env     *Env
	unit    *Unit
	body    *Body
	layout  *layout
	locales []string
	depth   int
}

type layout struct {
	body     string
	sections []*template.Template
}

// Execute renders unit into w with the given arguments.
func Execute(ctx context.Context, w io.Writer, env *Env, unit *Unit, args map[string]any) error {
	if env.MaxDepth <= 0 {
		env.MaxDepth = DefaultMaxDepth
	}
	bound, err := bindArgs(unit, args, nil)
	if err != nil {
		return err
	}
	f := &Frame{Args: bound, Vars: map[string]any{}, ctx: ctx, env: env, unit: unit}
	f.Self = f
	return f.run(w)
}

// Locale returns the innermost locale set with @locale, or "".
func (f *Frame) Locale() string {
	if len(f.locales) == 0 {
		return ""
	}
	return f.locales[len(f.locales)-1]
}

// Unit returns the name of the executing unit.
func (f *Frame) Unit() string {
	return f.unit.Name
}

func (f *Frame) derive(u *Unit, args map[string]any) (*Frame, error) {
	if f.depth+1 > f.env.MaxDepth {
		return nil, fmt.Errorf("[%s] maximum render depth %d exceeded calling %s", f.unit.Name, f.env.MaxDepth, u.Name)
	}
	if err := f.ctx.Err(); err != nil {
		return nil, err
	}
	nf := &Frame{
		Args:    args,
		Vars:    map[string]any{},
		ctx:     f.ctx,
		env:     f.env,
		unit:    u,
		locales: append([]string(nil), f.locales...),
		depth:   f.depth + 1,
	}
	nf.Self = nf
	return nf, nil
}

// run executes the unit, rendering it into its layout chain when it
// extends another unit.
func (f *Frame) run(w io.Writer) error {
	if f.unit.Extends == "" {
		return f.unit.Tmpl.Execute(w, f)
	}
	var buf bytes.Buffer
	if err := f.unit.Tmpl.Execute(&buf, f); err != nil {
		return err
	}
	parent, ok := f.env.Registry.Unit(f.unit.Extends)
	if !ok {
		return fmt.Errorf("[%s] layout %s not found", f.unit.Name, f.unit.Extends)
	}
	pf, err := f.derive(parent, f.Args)
	if err != nil {
		return err
	}
	sections := []*template.Template{f.unit.Tmpl}
	if f.layout != nil {
		sections = append(append([]*template.Template(nil), f.layout.sections...), f.unit.Tmpl)
	}
	pf.layout = &layout{body: buf.String(), sections: sections}
	return pf.run(w)
}

func (f *Frame) renderString(fn func(w io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// bindArgs maps call arguments onto the declared arguments of u. Named
// arguments bind by name, positional ones by declaration order.
func bindArgs(u *Unit, named map[string]any, p *Params) (map[string]any, error) {
	out := make(map[string]any, len(named)+p.Len())
	for k, v := range named {
		out[k] = v
	}
	declared := make([]string, len(u.Args))
	for i, a := range u.Args {
		declared[i] = a.Name
	}
	pos := 0
	for i, name := range p.assign(declared) {
		a := p.At(i)
		if a.Name == "" {
			if name == "" {
				name = fmt.Sprintf("_%d", pos)
			}
			pos++
		}
		out[name] = a.Value
	}
	for _, d := range u.Args {
		v, ok := out[d.Name]
		if !ok {
			continue
		}
		cv, err := Coerce(d.Type, v)
		if err != nil {
			return nil, fmt.Errorf("[%s] argument %s: %w", u.Name, d.Name, err)
		}
		out[d.Name] = cv
	}
	return out, nil
}
