// Package dialect describes which template constructs are legal and picks the
// dialect each parse attempt runs under.
package dialect

import "strings"

// Feature is a construct some dialects forbid.
type Feature int

const (
	FreeLoop Feature = iota + 1
	Scripting
	ComplexExpression
	TypeDeclaration
)

func (f Feature) String() string {
	switch f {
	case FreeLoop:
		return "Free loop style (@for(;;))"
	case Scripting:
		return "Scripting"
	case ComplexExpression:
		return "Complex expression"
	case TypeDeclaration:
		return "Type declaration"
	}
	return "Unknown feature"
}

// Dialect is a named set of legality rules. Marker prefixes every directive
// and call site.
type Dialect struct {
	Name      string
	Marker    string
	forbidden map[Feature]bool
}

// New creates a dialect forbidding the given features.
func New(name, marker string, forbidden ...Feature) *Dialect {
	d := &Dialect{Name: name, Marker: marker, forbidden: map[Feature]bool{}}
	for _, f := range forbidden {
		d.forbidden[f] = true
	}
	return d
}

// Allows reports whether f is legal under d.
func (d *Dialect) Allows(f Feature) bool {
	return !d.forbidden[f]
}

func (d *Dialect) String() string {
	return d.Name
}

var (
	// Basic forbids everything that needs the full expression engine.
	Basic = New("basic", "@", FreeLoop, Scripting, ComplexExpression, TypeDeclaration)
	// Rythm permits every construct.
	Rythm = New("rythm", "@")
)

// Defaults is the candidate order, most restrictive first.
func Defaults() []*Dialect {
	return []*Dialect{Basic, Rythm}
}

// Find looks a dialect up by name among candidates.
func Find(candidates []*Dialect, name string) (*Dialect, bool) {
	for _, d := range candidates {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return nil, false
}
