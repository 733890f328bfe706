package rythm

import (
	"fmt"
	"text/template"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/codetype"
	"github.com/dangdungcntt/go-rythm/internal/directive"
	"github.com/dangdungcntt/go-rythm/internal/parser"
	"github.com/dangdungcntt/go-rythm/internal/render"
)

// sourceFile is one template file found in the engine's file system.
type sourceFile struct {
	Name string
	Path string
	// Raw is the raw file content
	Raw  string
	Lang *codetype.Lang
	// ModTime is the modification time in unix milliseconds
	ModTime int64
}

// compiled is the outcome of compiling one source file.
type compiled struct {
	unit *render.Unit
	// text is the generated template source, kept for debugging
	text string
}

// compile turns the file into an executable unit. It only reads cat, so
// files can be compiled concurrently.
func (s *sourceFile) compile(cat *catalog, opts *options) (*compiled, error) {
	b := codegen.NewBuilder(s.Name, s.Raw, s.Lang.ID)
	b.RequiredDialect = opts.dialect
	err := parser.Parse(b, directive.Matchers(cat), parser.Options{
		Dialects:    opts.dialects,
		MaxAttempts: opts.maxAttempts,
		Compact:     opts.compact,
		Logger:      opts.logger,
	})
	if err != nil {
		return nil, err
	}

	text, err := b.Render()
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(s.Name).Funcs(render.Funcs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("[%s] generated template does not parse: %w", s.Name, err)
	}

	u := &render.Unit{Name: s.Name, Tmpl: tmpl, Extends: b.Extends}
	for _, a := range b.RenderArgs {
		u.Args = append(u.Args, render.Arg{Name: a.Name, Type: a.Type})
	}
	return &compiled{unit: u, text: text}, nil
}
