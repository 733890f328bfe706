package parser

import (
	"github.com/dangdungcntt/go-rythm/internal/codegen"
)

// BlockHandler is pushed when a construct opens a nested scope and popped
// when the scope closes. Close returns the token that ends the construct.
type BlockHandler interface {
	Open()
	Close() (codegen.Token, error)
}

// Scope is implemented by handlers that declare template variables.
type Scope interface {
	Lookup(name string) (ref string, ok bool)
	Declare(name, ref string)
	Names() []string
}

// Barrier is implemented by handlers whose content is rendered in a separate
// definition; variable lookup does not continue past them.
type Barrier interface {
	Barrier() bool
}

// Delimited is implemented by handlers closed by something other than "}".
type Delimited interface {
	Delimiter() string
}

// Vars is a Scope backed by a map, embeddable by handlers.
type Vars struct {
	refs  map[string]string
	order []string
}

func (v *Vars) Lookup(name string) (string, bool) {
	ref, ok := v.refs[name]
	return ref, ok
}

func (v *Vars) Declare(name, ref string) {
	if v.refs == nil {
		v.refs = map[string]string{}
	}
	if _, ok := v.refs[name]; !ok {
		v.order = append(v.order, name)
	}
	v.refs[name] = ref
}

func (v *Vars) Names() []string {
	return v.order
}

// Block is a general purpose handler for directive blocks such as loops and
// conditionals.
type Block struct {
	Vars
	// Kind names the directive that opened the block, e.g. "for" or "if".
	Kind    string
	Line    int
	Delim   string
	OnOpen  func()
	OnClose func() (codegen.Token, error)
}

func (b *Block) Open() {
	if b.OnOpen != nil {
		b.OnOpen()
	}
}

func (b *Block) Close() (codegen.Token, error) {
	if b.OnClose == nil {
		return codegen.Action{Code: "{{ end }}"}, nil
	}
	return b.OnClose()
}

func (b *Block) Delimiter() string {
	if b.Delim == "" {
		return "}"
	}
	return b.Delim
}

// SectionBlock is the handler of a named layout section.
type SectionBlock struct {
	Block
	Name string
}

// Barrier reports true: a section is rendered in a definition of its own.
func (s *SectionBlock) Barrier() bool { return true }
