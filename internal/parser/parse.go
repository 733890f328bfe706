package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/dialect"
)

// Matcher recognizes one construct at the cursor. Returning a nil token
// without moving the cursor declines; other matchers are then tried.
type Matcher interface {
	Match(c *Context) (codegen.Token, error)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(c *Context) (codegen.Token, error)

func (f MatcherFunc) Match(c *Context) (codegen.Token, error) {
	return f(c)
}

// Options configure Parse.
type Options struct {
	// Dialects are the candidates negotiated over, most restrictive first.
	Dialects []*dialect.Dialect
	// MaxAttempts bounds rewinds. Zero means one more than the candidates.
	MaxAttempts int
	// Compact collapses literal whitespace unless overridden by a block.
	Compact bool
	Logger  zerolog.Logger
}

type outcomeKind int

const (
	outcomeContinue outcomeKind = iota
	outcomeRewind
	outcomeDone
	outcomeFatal
)

type outcome struct {
	kind      outcomeKind
	rejection *Rejection
	err       error
}

// Parse runs matchers over the builder's source until it is fully consumed,
// restarting from scratch under another dialect whenever a construct is
// rejected by the active one.
func Parse(b *codegen.Builder, matchers []Matcher, opts Options) error {
	candidates := opts.Dialects
	if len(candidates) == 0 {
		candidates = dialect.Defaults()
	}
	var dm *dialect.Manager
	if b.RequiredDialect != "" {
		d, ok := dialect.Find(candidates, b.RequiredDialect)
		if !ok {
			return fmt.Errorf("[%s] unknown dialect %q", b.Name, b.RequiredDialect)
		}
		dm = dialect.NewPinnedManager(d)
	} else {
		dm = dialect.NewManager(candidates...)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = dm.Candidates() + 1
	}

	c := NewContext(b, opts.Compact)
	var last *Rejection
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.reset()
		b.Rewind()
		if err := dm.BeginParse(c); err != nil {
			if last != nil {
				return forbidden(last, "no dialect permits it")
			}
			return fmt.Errorf("[%s] dialect negotiation failed: %w", b.Name, err)
		}

		out := c.scan(matchers)
		dm.EndParse(c)

		switch out.kind {
		case outcomeDone:
			return nil
		case outcomeRewind:
			last = out.rejection
			if dm.Pinned() {
				return forbidden(last, "")
			}
			opts.Logger.Debug().
				Str("template", b.Name).
				Str("dialect", out.rejection.Dialect).
				Stringer("feature", out.rejection.Feature).
				Int("attempt", attempt).
				Msg("rewinding parse")
		case outcomeFatal:
			return out.err
		}
	}
	if last != nil {
		return forbidden(last, fmt.Sprintf("gave up after %d attempt(s)", maxAttempts))
	}
	return fmt.Errorf("[%s] dialect negotiation did not converge after %d attempts", b.Name, maxAttempts)
}

// forbidden turns the rejection that ended negotiation into a fatal error.
func forbidden(rej *Rejection, hint string) *Error {
	return &Error{
		Kind:     Forbidden,
		Template: rej.Template,
		Line:     rej.Line,
		Dialect:  rej.Dialect,
		Message:  fmt.Sprintf("%s not allowed in current dialect[%s]", rej.Feature, rej.Dialect),
		Hint:     hint,
		Err:      rej,
	}
}

// scan makes one left-to-right pass over the whole input.
func (c *Context) scan(matchers []Matcher) outcome {
	for c.HasRemain() {
		tok, err := c.step(matchers)
		if err != nil {
			return c.classify(err)
		}
		if tok != nil {
			c.b.AddToken(tok)
		}
		c.b.EndStep()
	}
	if c.insideDirectiveComment {
		return outcome{kind: outcomeFatal, err: c.Errorf("Unclosed directive comment")}
	}
	if !c.blocks.Empty() {
		return outcome{kind: outcomeFatal, err: c.Errorf("Unclosed block: %d block(s) still open at end of template", c.blocks.Len())}
	}
	return outcome{kind: outcomeDone}
}

func (c *Context) classify(err error) outcome {
	var rej *Rejection
	switch {
	case errors.Is(err, ErrStop):
		return outcome{kind: outcomeDone}
	case errors.As(err, &rej):
		c.rejected = rej.Feature
		return outcome{kind: outcomeRewind, rejection: rej}
	}
	return outcome{kind: outcomeFatal, err: err}
}

// step runs the matchers once at the cursor. When none matches a run of
// literal text is consumed.
func (c *Context) step(matchers []Matcher) (codegen.Token, error) {
	start := c.cursor
	for _, m := range matchers {
		tok, err := m.Match(c)
		if err != nil {
			return nil, err
		}
		if tok != nil || c.cursor != start {
			return tok, nil
		}
	}
	return c.literal(), nil
}

// literal consumes text up to the next byte a matcher might start on.
func (c *Context) literal() codegen.Token {
	rest := c.Remaining()
	stops := "}<>"
	if c.dialect != nil && c.dialect.Marker != "" {
		stops += c.dialect.Marker[:1]
	}
	n := 1
	if i := strings.IndexAny(rest[1:], stops); i >= 0 {
		n += i
	} else {
		n = len(rest)
	}
	text := rest[:n]
	c.Advance(n)
	if c.CompactMode() {
		text = compact(text)
	}
	return codegen.Literal{Text: text}
}

// compact collapses whitespace runs: runs holding a line break become a
// single line break, others a single space.
func compact(s string) string {
	var b strings.Builder
	ws := false
	nl := false
	flush := func() {
		if nl {
			b.WriteByte('\n')
		} else if ws {
			b.WriteByte(' ')
		}
		ws, nl = false, false
	}
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case ' ', '\t', '\r':
			ws = true
		case '\n':
			nl = true
		default:
			flush()
			b.WriteByte(ch)
		}
	}
	flush()
	return b.String()
}
