package render

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cast"

	"github.com/dangdungcntt/go-rythm/internal/escape"
)

// Cached is the result of a cache lookup. Value is only meaningful on a hit.
type Cached struct {
	Value string
	Hit   bool
}

// Funcs returns the functions generated template code calls.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"escape":        escapeValue,
		"params":        NewParams,
		"locals":        locals,
		"body":          NewBody,
		"cbArg":         cbArg,
		"invokeTag":     invokeTag,
		"renderBody":    renderBody,
		"cacheGet":      cacheGet,
		"cachePut":      cachePut,
		"eval":          eval,
		"renderSection": renderSection,
		"include":       include,
		"pushLocale":    pushLocale,
		"popLocale":     popLocale,
		"loop":          loop,
	}
}

func escapeValue(kind string, v any) (string, error) {
	return escape.Apply(escape.Kind(kind), v)
}

func locals(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("locals: odd number of arguments (%d)", len(kv))
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return m, nil
}

func cbArg(name, typ string, def any) CallbackArg {
	return CallbackArg{Name: name, Type: typ, Default: def}
}

// invokeTag renders the tag callee with the given arguments and optional
// body and returns its output.
func invokeTag(caller *Frame, line int, callee string, p *Params, ignoreMissing bool, body ...*Body) (string, error) {
	name, ok := caller.env.Registry.Resolve(callee, caller.unit.Name)
	var u *Unit
	if ok {
		u, ok = caller.env.Registry.Unit(name)
	}
	if !ok {
		if ignoreMissing {
			return "", nil
		}
		return "", fmt.Errorf("[%s:%d] tag not found: %s", caller.unit.Name, line, callee)
	}
	args, err := bindArgs(u, nil, p)
	if err != nil {
		return "", fmt.Errorf("[%s:%d] %w", caller.unit.Name, line, err)
	}
	f, err := caller.derive(u, args)
	if err != nil {
		return "", err
	}
	if len(body) > 0 {
		f.body = body[0]
	}
	return f.renderString(f.run)
}

func renderBody(f *Frame, p *Params) (string, error) {
	if f.body == nil {
		return "", nil
	}
	return f.body.Render(p)
}

func cacheKey(key string, extras []any) string {
	var b strings.Builder
	b.WriteString(key)
	for _, e := range extras {
		b.WriteByte('|')
		b.WriteString(fmt.Sprint(e))
	}
	return b.String()
}

// cacheGet never fails the render; a store error counts as a miss.
func cacheGet(f *Frame, key string, extras ...any) Cached {
	if f.env.Cache == nil {
		return Cached{}
	}
	v, ok, err := f.env.Cache.Get(f.ctx, cacheKey(key, extras))
	if err != nil {
		f.env.Logger.Warn().Err(err).Str("template", f.unit.Name).Msg("tag cache get failed")
		return Cached{}
	}
	return Cached{Value: v, Hit: ok}
}

// cachePut stores value and returns it unchanged. An empty duration
// never expires.
func cachePut(f *Frame, key, value, duration string, extras ...any) (string, error) {
	if f.env.Cache == nil {
		return value, nil
	}
	var ttl time.Duration
	if duration != "" {
		d, err := time.ParseDuration(duration)
		if err != nil {
			return "", fmt.Errorf("[%s] invalid cache duration %q: %w", f.unit.Name, duration, err)
		}
		ttl = d
	}
	if err := f.env.Cache.Set(f.ctx, cacheKey(key, extras), value, ttl); err != nil {
		f.env.Logger.Warn().Err(err).Str("template", f.unit.Name).Msg("tag cache put failed")
	}
	return value, nil
}

// renderSection renders a section filled by a unit extending this one.
// The empty name renders the extending unit's main content.
func renderSection(f *Frame, name string) (string, error) {
	if f.layout == nil {
		return "", nil
	}
	if name == "" {
		return f.layout.body, nil
	}
	define := "__section_" + name
	for _, t := range f.layout.sections {
		if t.Lookup(define) == nil {
			continue
		}
		return f.renderString(func(w io.Writer) error {
			return t.ExecuteTemplate(w, define, f)
		})
	}
	return "", nil
}

// include renders another unit inline with the caller's arguments.
func include(f *Frame, name string) (string, error) {
	resolved, ok := f.env.Registry.Resolve(name, f.unit.Name)
	var u *Unit
	if ok {
		u, ok = f.env.Registry.Unit(resolved)
	}
	if !ok {
		return "", fmt.Errorf("[%s] included template not found: %s", f.unit.Name, name)
	}
	nf, err := f.derive(u, f.Args)
	if err != nil {
		return "", err
	}
	nf.Vars = f.Vars
	return nf.renderString(nf.run)
}

func pushLocale(f *Frame, locale string) string {
	f.locales = append(f.locales, locale)
	return ""
}

func popLocale(f *Frame) string {
	if len(f.locales) > 0 {
		f.locales = f.locales[:len(f.locales)-1]
	}
	return ""
}

// loop returns the values of a counting loop from start towards end.
func loop(start, end, step any, inclusive bool) ([]int, error) {
	s, err := cast.ToIntE(start)
	if err != nil {
		return nil, fmt.Errorf("loop start: %w", err)
	}
	e, err := cast.ToIntE(end)
	if err != nil {
		return nil, fmt.Errorf("loop end: %w", err)
	}
	st, err := cast.ToIntE(step)
	if err != nil {
		return nil, fmt.Errorf("loop step: %w", err)
	}
	if st == 0 {
		return nil, fmt.Errorf("loop step must not be zero")
	}
	var out []int
	for i := s; ; i += st {
		if st > 0 && (i > e || (i == e && !inclusive)) {
			break
		}
		if st < 0 && (i < e || (i == e && !inclusive)) {
			break
		}
		out = append(out, i)
	}
	return out, nil
}
