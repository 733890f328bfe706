package tag

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ErrNotFound is returned by a Resolver when no tag has the given name.
// The matcher then declines so the text can be read another way.
var ErrNotFound = errors.New("tag not found")

// LoadError reports a tag that exists but cannot be loaded under the
// requested name, typically because the name differs only in case.
type LoadError struct {
	Name  string
	Found string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Error load tag %s: found %s", e.Name, e.Found)
}

// Resolver maps a tag name used in a template to the canonical name of a
// compilation unit.
type Resolver interface {
	Resolve(name, owner, lang string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name, owner, lang string) (string, error)

func (f ResolverFunc) Resolve(name, owner, lang string) (string, error) {
	return f(name, owner, lang)
}

// suggest returns the candidate closest to target, or "".
func suggest(target string, candidates []string) string {
	if ranks := fuzzy.RankFindFold(target, candidates); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", len(target)/2+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
