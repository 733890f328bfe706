// Package rythm compiles Rythm style templates (`@tag(...)`, `@for`,
// `@extends`, ...) into Go text/template programs and renders them.
package rythm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dangdungcntt/go-rythm/internal/codetype"
	"github.com/dangdungcntt/go-rythm/internal/render"
)

var ValidFileExtensions = []string{".rythm", ".html", ".tmpl", ".gohtml", ".txt"}

// Engine holds loaded templates.
type Engine struct {
	dir       string
	dirPrefix string
	fs        fs.FS
	opts      *options

	// loadMu serializes Load; sources and lastCompileTime are only touched
	// while holding it.
	loadMu          sync.Mutex
	sources         map[string]*sourceFile
	lastCompileTime int64

	mu             sync.RWMutex
	reg            *registry
	langs          map[string]*codetype.Lang
	debugTemplates map[string]string
}

// NewEngine creates a new engine pointing to a directory with files.
func NewEngine(dir string, opts ...Option) *Engine {
	e := NewEngineFS(os.DirFS(dir), "", opts...)
	e.dir = dir
	return e
}

// NewEngineFS creates a new engine pointing to a filesystem.
// When using embed.FS, pass the embedded folder as prefix.
func NewEngineFS(fsys fs.FS, prefix string, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Engine{
		dirPrefix:       strings.Trim(prefix, "/"),
		fs:              fsys,
		opts:            o,
		sources:         map[string]*sourceFile{},
		lastCompileTime: -1,
		debugTemplates:  map[string]string{},
	}
}

// Load reads all template files from the fs and compiles them.
// It will only recompile if files have been added, removed or modified
// since the last successful compile.
func (e *Engine) Load() error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	scanStart := time.Now().UnixMilli()
	changed, err := e.scan()
	if err != nil {
		return err
	}
	e.mu.RLock()
	loaded := e.reg != nil
	e.mu.RUnlock()
	if !changed && loaded {
		return nil
	}

	names := make([]string, 0, len(e.sources))
	for name := range e.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	cat := newCatalog(names)

	results := make([]*compiled, len(names))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		src := e.sources[name]
		g.Go(func() error {
			c, err := src.compile(cat, e.opts)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.opts.logger.Error().Err(err).Msg("template compilation failed")
		return err
	}

	reg := &registry{catalog: cat, units: make(map[string]*render.Unit, len(names))}
	langs := make(map[string]*codetype.Lang, len(names))
	debug := make(map[string]string, len(names))
	for i, name := range names {
		reg.units[name] = results[i].unit
		langs[name] = e.sources[name].Lang
		debug[name] = results[i].text
	}
	if err := checkLayouts(reg); err != nil {
		return err
	}

	e.mu.Lock()
	e.reg, e.langs, e.debugTemplates = reg, langs, debug
	e.mu.Unlock()
	e.lastCompileTime = scanStart

	e.opts.logger.Info().
		Int("templates", len(names)).
		Dur("took", time.Since(time.UnixMilli(scanStart))).
		Msg("templates compiled")
	return nil
}

// scan refreshes the sources from the fs and reports whether anything
// changed.
func (e *Engine) scan() (bool, error) {
	root := e.dirPrefix
	if root == "" {
		root = "."
	}
	seen := map[string]string{}
	changed := false
	err := fs.WalkDir(e.fs, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		if !slices.Contains(ValidFileExtensions, ext) {
			return nil
		}

		name := e.nameFromPath(p)
		if other, dup := seen[name]; dup {
			return fmt.Errorf("[%s] defined by both %s and %s", name, other, p)
		}
		seen[name] = p

		info, err := d.Info()
		if err != nil {
			return err
		}
		modTime := info.ModTime().UnixMilli()
		if old, ok := e.sources[name]; ok && old.Path == p && modTime <= e.lastCompileTime {
			return nil
		}

		raw, err := fs.ReadFile(e.fs, p)
		if err != nil {
			return err
		}
		e.sources[name] = &sourceFile{
			Name:    name,
			Path:    p,
			Raw:     string(raw),
			Lang:    langFromPath(p),
			ModTime: modTime,
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	for name := range e.sources {
		if _, ok := seen[name]; !ok {
			delete(e.sources, name)
			changed = true
		}
	}
	return changed, nil
}

// checkLayouts rejects layout chains that loop back on themselves.
func checkLayouts(reg *registry) error {
	for name, u := range reg.units {
		chain := []string{name}
		for next := u.Extends; next != ""; {
			if slices.Contains(chain, next) {
				return fmt.Errorf("[%s] layout cycle: %s", name, strings.Join(append(chain, next), " -> "))
			}
			chain = append(chain, next)
			parent, ok := reg.units[next]
			if !ok {
				return fmt.Errorf("[%s] layout %s not found", chain[len(chain)-2], next)
			}
			next = parent.Extends
		}
	}
	return nil
}

// Render executes the template identified by entry (e.g., "pages/home")
// into writer with data.
func (e *Engine) Render(w io.Writer, entry string, data any) error {
	return e.RenderContext(context.Background(), w, entry, data)
}

// RenderContext is Render with a context. Rendering stops with the
// context's error once it is done. Nothing is written to w when rendering
// fails.
func (e *Engine) RenderContext(ctx context.Context, w io.Writer, entry string, data any) error {
	entry = normalizeName(entry)
	e.mu.RLock()
	reg := e.reg
	e.mu.RUnlock()
	if reg == nil {
		return fmt.Errorf("template %s not loaded", entry)
	}
	u, ok := reg.Unit(entry)
	if !ok {
		return fmt.Errorf("template %s not loaded", entry)
	}
	args, err := renderArgs(data)
	if err != nil {
		return fmt.Errorf("[%s] %w", entry, err)
	}

	env := &render.Env{
		Registry: reg,
		Cache:    e.opts.cache,
		Logger:   e.opts.logger,
		MaxDepth: e.opts.maxDepth,
	}
	var buf bytes.Buffer
	if err := render.Execute(ctx, &buf, env, u, args); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// renderArgs turns render data into named arguments. Structs are decoded
// field by field.
func renderArgs(data any) (map[string]any, error) {
	switch d := data.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return d, nil
	}
	var args map[string]any
	if err := mapstructure.Decode(data, &args); err != nil {
		return nil, fmt.Errorf("render data must be a map or a struct: %w", err)
	}
	return args, nil
}

// GetDebugTemplates returns a map of all loaded templates and their
// generated template source.
func (e *Engine) GetDebugTemplates() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]string, len(e.debugTemplates))
	for k, v := range e.debugTemplates {
		out[k] = v
	}
	return out
}

// Templates returns the names of all loaded templates, sorted.
func (e *Engine) Templates() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.reg == nil {
		return nil
	}
	names := make([]string, 0, len(e.reg.units))
	for name := range e.reg.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContentType returns the media type matching the language of the named
// template.
func (e *Engine) ContentType(entry string) string {
	e.mu.RLock()
	lang := e.langs[normalizeName(entry)]
	e.mu.RUnlock()
	switch lang {
	case codetype.JSON:
		return "application/json; charset=utf-8"
	case codetype.XML:
		return "application/xml; charset=utf-8"
	case codetype.CSV:
		return "text/csv; charset=utf-8"
	case codetype.JS:
		return "text/javascript; charset=utf-8"
	case codetype.CSS:
		return "text/css; charset=utf-8"
	case codetype.Text:
		return "text/plain; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// nameFromPath converts a filesystem path to a template name, relative to
// the engine dir: "pages/home.html" and "feed.xml.rythm" become
// "pages/home" and "feed".
func (e *Engine) nameFromPath(p string) string {
	rel := p
	if e.dirPrefix != "" {
		rel = strings.TrimPrefix(strings.TrimPrefix(p, e.dirPrefix), "/")
	}
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	if ext := path.Ext(rel); ext != "" {
		if _, ok := codetype.Lookup(ext[1:]); ok {
			rel = strings.TrimSuffix(rel, ext)
		}
	}
	return rel
}

// langFromPath picks the code type from the file name. A .rythm file is
// typed by the extension before it, HTML by default.
func langFromPath(p string) *codetype.Lang {
	base := path.Base(p)
	if strings.EqualFold(path.Ext(base), ".rythm") {
		base = strings.TrimSuffix(base, path.Ext(base))
		if path.Ext(base) == "" {
			return codetype.HTML
		}
	}
	return codetype.ForFile(base)
}
