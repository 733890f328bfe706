package directive

import (
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/codetype"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

var embedded = []struct {
	tag  string
	lang *codetype.Lang
}{
	{"script", codetype.JS},
	{"style", codetype.CSS},
}

// matchCodeType switches the code type on `<script` and `<style` inside
// HTML, so output in them escapes for the embedded language, and switches
// back on the closing tag. The tag text itself is kept.
func matchCodeType(c *parser.Context) (codegen.Token, error) {
	s := c.Remaining()
	if len(s) < 2 || s[0] != '<' {
		return nil, nil
	}
	for _, e := range embedded {
		if s[1] == '/' {
			closing := "</" + e.tag + ">"
			if len(s) >= len(closing) && strings.EqualFold(s[:len(closing)], closing) && c.PeekCodeType() == e.lang {
				c.PopCodeType()
				c.Advance(len(closing))
				return codegen.Literal{Text: s[:len(closing)]}, nil
			}
			continue
		}
		n := 1 + len(e.tag)
		if len(s) <= n || !strings.EqualFold(s[1:n], e.tag) || !(s[n] == '>' || s[n] == ' ' || s[n] == '\t' || s[n] == '\n') {
			continue
		}
		if c.PeekCodeType() != codetype.HTML {
			return nil, nil
		}
		c.PushCodeType(e.lang)
		c.Advance(n)
		return codegen.Literal{Text: s[:n]}, nil
	}
	return nil, nil
}
