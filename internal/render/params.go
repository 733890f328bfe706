package render

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// Param is one argument passed to a tag. Positional arguments have no name.
type Param struct {
	Name  string
	Value any
}

// Params is the ordered argument list of one tag call.
type Params struct {
	list []Param
}

// NewParams builds a list from alternating name and value arguments.
func NewParams(kv ...any) (*Params, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("params: odd number of arguments (%d)", len(kv))
	}
	p := &Params{list: make([]Param, 0, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("params: name at %d is %T, not string", i, kv[i])
		}
		p.list = append(p.list, Param{Name: name, Value: kv[i+1]})
	}
	return p, nil
}

// Len returns the number of arguments.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.list)
}

// At returns the i-th argument.
func (p *Params) At(i int) Param {
	return p.list[i]
}

// Get returns the value of the last argument called name.
func (p *Params) Get(name string) (any, bool) {
	if p == nil {
		return nil, false
	}
	for i := len(p.list) - 1; i >= 0; i-- {
		if p.list[i].Name == name {
			return p.list[i].Value, true
		}
	}
	return nil, false
}

// assign names every argument: named ones keep their name, positional
// ones take the next declared name not passed by name. A positional
// argument left without a declared name gets "".
func (p *Params) assign(declared []string) []string {
	byName := map[string]bool{}
	for i := 0; i < p.Len(); i++ {
		if n := p.list[i].Name; n != "" {
			byName[n] = true
		}
	}
	out := make([]string, p.Len())
	next := 0
	for i := 0; i < p.Len(); i++ {
		if n := p.list[i].Name; n != "" {
			out[i] = n
			continue
		}
		for next < len(declared) && byName[declared[next]] {
			next++
		}
		if next < len(declared) {
			out[i] = declared[next]
			next++
		}
	}
	return out
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Discriminator hashes the argument list so that calls with different
// arguments never share a cache entry.
func (p *Params) Discriminator() (string, error) {
	pairs := make([][2]any, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		pairs = append(pairs, [2]any{p.list[i].Name, encodable(p.list[i].Value)})
	}
	data, err := encMode.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("params: encode discriminator: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}

// encodable replaces values CBOR cannot represent with their printed form.
func encodable(v any) any {
	if _, err := encMode.Marshal(v); err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return v
}
