package rythm

import (
	"path"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/render"
	"github.com/dangdungcntt/go-rythm/internal/tag"
)

// catalog is the set of template names shared by every compilation of one
// load. It is built before compiling starts and never changes afterwards,
// so compilations running in parallel read it without locking.
type catalog struct {
	names map[string]struct{}
	// folded maps lower-cased names to the real name, for case mismatch
	// diagnostics.
	folded map[string]string
}

func newCatalog(names []string) *catalog {
	c := &catalog{names: map[string]struct{}{}, folded: map[string]string{}}
	for _, n := range names {
		c.names[n] = struct{}{}
		c.folded[strings.ToLower(n)] = n
	}
	return c
}

// candidates lists the names a reference may mean, most specific first:
// relative to the directory of owner, then from the root.
func candidates(ref, owner string) []string {
	ref = refName(ref)
	if ref == "" {
		return nil
	}
	if strings.HasPrefix(ref, "/") {
		return []string{strings.TrimPrefix(ref, "/")}
	}
	out := make([]string, 0, 2)
	if dir := path.Dir(owner); dir != "." && dir != "/" {
		out = append(out, path.Join(dir, ref))
	}
	return append(out, ref)
}

// lookup resolves ref used inside owner.
func (c *catalog) lookup(ref, owner string) (string, bool) {
	for _, n := range candidates(ref, owner) {
		if _, ok := c.names[n]; ok {
			return n, true
		}
	}
	return "", false
}

// Resolve implements tag.Resolver. A name that only matches with another
// letter case is a load error rather than a miss.
func (c *catalog) Resolve(ref, owner, _ string) (string, error) {
	if n, ok := c.lookup(ref, owner); ok {
		return n, nil
	}
	for _, n := range candidates(ref, owner) {
		if found, ok := c.folded[strings.ToLower(n)]; ok {
			return "", &tag.LoadError{Name: n, Found: found}
		}
	}
	return "", tag.ErrNotFound
}

// registry serves compiled units to the render runtime.
type registry struct {
	*catalog
	units map[string]*render.Unit
}

func (r *registry) Unit(name string) (*render.Unit, bool) {
	u, ok := r.units[name]
	return u, ok
}

func (r *registry) Resolve(ref, owner string) (string, bool) {
	return r.lookup(ref, owner)
}

var (
	_ tag.Resolver    = (*catalog)(nil)
	_ render.Registry = (*registry)(nil)
)

// refName turns a reference as written in a template into a unit name:
// `"layouts.main"`, `layouts/main` and `layouts/main.html` all name
// layouts/main.
func refName(n string) string {
	n = strings.TrimSpace(n)
	n = strings.Trim(n, `"' `)
	for _, ext := range ValidFileExtensions {
		if strings.HasSuffix(strings.ToLower(n), ext) {
			n = n[:len(n)-len(ext)]
			break
		}
	}
	return strings.ReplaceAll(n, ".", "/")
}

// normalizeName turns a caller supplied entry name into a unit name.
func normalizeName(n string) string {
	return strings.TrimPrefix(refName(strings.ReplaceAll(n, `\`, "/")), "/")
}
