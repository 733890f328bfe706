package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dangdungcntt/go-rythm/internal/escape"
)

// cacheKeyPrefix seeds every tag cache key.
const cacheKeyPrefix = "_RYTHM_TAG_"

// Param is one compiled parameter declaration. Value is a template operand.
type Param struct {
	Name  string
	Value string
}

func (p Param) String() string {
	return p.Name + ":" + p.Value
}

// CallbackArg is a formal argument of a tag body declared with .callback().
type CallbackArg struct {
	Type    string
	Name    string
	Default string
}

// Capture is a template variable visible at a body call site, handed to the
// body definition under Name.
type Capture struct {
	Name string
	Ref  string
}

// Invocation is the compiled form of one tag call site.
type Invocation struct {
	Line int
	// Callee is the canonical tag name, or a template operand when Dynamic.
	Callee  string
	Dynamic bool
	// Owner is the identity of the template containing the call site.
	Owner  string
	Params []Param

	Escape escape.Kind

	Cache         bool
	CacheDuration string
	CacheArgs     []string

	AssignTo    string
	AssignFinal bool

	IgnoreMissing bool

	// Body fields; zero for simple invocations.
	HasBody  bool
	Callback []CallbackArg
	Captures []Capture
	// BodyKey is derived from the captured body source when caching.
	BodyKey string
	// Nested is set when the body call site itself sits inside a tag body.
	Nested bool
}

// NeedsCapture reports whether the call result has to be held in a variable
// for caching, escaping or assignment before it reaches the output.
func (inv *Invocation) NeedsCapture() bool {
	return inv.AssignTo != "" || inv.escapes() || inv.Cache
}

func (inv *Invocation) escapes() bool {
	return inv.Escape != "" && inv.Escape != escape.Raw
}

// CacheKey returns the template operand of the call site's cache key. It only
// depends on the callee, the owner and the captured body text.
func (inv *Invocation) CacheKey() string {
	if inv.Dynamic {
		return fmt.Sprintf("(print %q %s %q %q)", cacheKeyPrefix, inv.Callee, inv.BodyKey, inv.Owner)
	}
	id := uuid.NewMD5(uuid.NameSpaceOID, []byte(cacheKeyPrefix+inv.Callee+inv.BodyKey+inv.Owner))
	return strconv.Quote(id.String())
}

// BodyKeyFor derives the body component of a cache key from body source.
func BodyKeyFor(body string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(body)).String()
}

func (inv *Invocation) calleeOperand() string {
	if inv.Dynamic {
		return inv.Callee
	}
	return strconv.Quote(inv.Callee)
}

// ParamsOperand renders the parameter list as a `params` call.
func ParamsOperand(params []Param) string {
	var b strings.Builder
	b.WriteString("(params")
	for _, p := range params {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(p.Name))
		b.WriteString(" ")
		b.WriteString(p.Value)
	}
	b.WriteString(")")
	return b.String()
}

func (inv *Invocation) bodyOperand(define string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(body $ %q (locals", define)
	for _, c := range inv.Captures {
		fmt.Fprintf(&b, " %q %s", c.Name, c.Ref)
	}
	b.WriteString(")")
	for _, a := range inv.Callback {
		def := a.Default
		if def == "" {
			def = "nil"
		}
		fmt.Fprintf(&b, " (cbArg %q %q %s)", a.Name, a.Type, def)
	}
	b.WriteString(")")
	return b.String()
}

func (inv *Invocation) cacheExtras(plVar string) string {
	if len(inv.CacheArgs) == 0 {
		return plVar + ".Discriminator"
	}
	return strings.Join(inv.CacheArgs, " ")
}

// write emits the call. n makes generated variable names unique, caller is
// the frame operand passed as the invoking template and body is the body
// operand or empty.
func (inv *Invocation) write(w *strings.Builder, n int, caller, body string) {
	call := func(params string) string {
		s := fmt.Sprintf("invokeTag %s %d %s %s %t", caller, inv.Line, inv.calleeOperand(), params, inv.IgnoreMissing)
		if body != "" {
			s += " " + body
		}
		return s
	}
	if !inv.NeedsCapture() {
		fmt.Fprintf(w, "{{ %s }}", call(ParamsOperand(inv.Params)))
		return
	}

	pl := fmt.Sprintf("$_pl%d", n)
	rs := fmt.Sprintf("$_rs%d", n)
	if inv.AssignTo != "" && !inv.AssignFinal {
		fmt.Fprintf(w, "{{ $%s := \"\" }}", inv.AssignTo)
	}
	fmt.Fprintf(w, "{{ %s := %s }}", pl, ParamsOperand(inv.Params))
	if inv.Cache {
		c := fmt.Sprintf("$_c%d", n)
		fmt.Fprintf(w, "{{ %s := cacheGet %s %s %s }}", c, caller, inv.CacheKey(), inv.cacheExtras(pl))
		fmt.Fprintf(w, "{{ %s := %s.Value }}{{ if not %s.Hit }}", rs, c, c)
		fmt.Fprintf(w, "{{ %s = %s }}", rs, call(pl))
	} else {
		fmt.Fprintf(w, "{{ %s := %s }}", rs, call(pl))
	}
	if inv.escapes() {
		fmt.Fprintf(w, "{{ %s = escape %q %s }}", rs, string(inv.Escape), rs)
	}
	if inv.Cache {
		fmt.Fprintf(w, "{{ %s = cachePut %s %s %s %q %s }}{{ end }}", rs, caller, inv.CacheKey(), rs, inv.CacheDuration, inv.cacheExtras(pl))
	}
	switch {
	case inv.AssignTo != "" && inv.AssignFinal:
		fmt.Fprintf(w, "{{ $%s := %s }}", inv.AssignTo, rs)
	case inv.AssignTo != "":
		fmt.Fprintf(w, "{{ $%s = %s }}", inv.AssignTo, rs)
	default:
		fmt.Fprintf(w, "{{ %s }}", rs)
	}
}
