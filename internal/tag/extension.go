package tag

import (
	"go/token"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/codegen"
	"github.com/dangdungcntt/go-rythm/internal/escape"
	"github.com/dangdungcntt/go-rythm/internal/expression"
	"github.com/dangdungcntt/go-rythm/internal/parser"
)

// Extensions lists the supported call-site extensions.
var Extensions = []string{"cache", "escape", "raw", "callback", "ignoreNonExistsTag", "assign"}

var templateKeywords = map[string]bool{
	"if": true, "else": true, "end": true, "range": true, "with": true, "define": true,
	"template": true, "block": true, "break": true, "continue": true,
	"nil": true, "true": true, "false": true,
}

// Reserved reports whether name cannot be used as an assign target.
func Reserved(name string) bool {
	return token.IsKeyword(name) || templateKeywords[name] || strings.HasPrefix(name, "_")
}

// extension is one `.name(arg)` suffix of a call site.
type extension struct {
	name string
	arg  string
}

// scanExtensions reads `.name(args)` suffixes at the start of s and returns
// them with the number of bytes consumed.
func scanExtensions(s string) ([]extension, int) {
	var (
		exts []extension
		n    int
	)
	for n < len(s) && s[n] == '.' {
		m := expression.Ident(s[n+1:])
		if m == 0 {
			break
		}
		open := n + 1 + m
		if open >= len(s) || s[open] != '(' {
			break
		}
		g := expression.Balanced(s[open:])
		if g < 0 {
			break
		}
		exts = append(exts, extension{name: s[n+1 : open], arg: strings.TrimSpace(s[open+1 : open+g-1])})
		n = open + g
	}
	return exts, n
}

// apply sets the effect of every extension on inv. raw is applied last so
// that it wins over any escape, whatever the order.
func applyExtensions(c *parser.Context, inv *codegen.Invocation, exts []extension) error {
	raw := false
	for _, ext := range exts {
		switch {
		case ext.name == "cache":
			if err := applyCache(c, inv, ext.arg); err != nil {
				return err
			}
		case strings.HasPrefix(ext.name, "escape"):
			if err := applyEscape(c, inv, ext); err != nil {
				return err
			}
		case ext.name == "raw":
			raw = true
		case ext.name == "callback":
			if !inv.HasBody {
				return c.Errorf("callback extension only apply to tag invocation with body")
			}
			args, err := parseCallback(c, ext.arg)
			if err != nil {
				return err
			}
			inv.Callback = args
		case ext.name == "ignoreNonExistsTag":
			inv.IgnoreMissing = true
		case ext.name == "assign":
			if err := applyAssign(c, inv, ext.arg); err != nil {
				return err
			}
		default:
			err := c.Errorf("Unknown tag invocation extension: %s. Currently supported extensions: %s", ext.name, strings.Join(Extensions, ", "))
			if s := suggest(ext.name, Extensions); s != "" {
				err.WithHint("Did you mean .%s()?", s)
			}
			return err
		}
	}
	if raw {
		inv.Escape = escape.Raw
	}
	return nil
}

func applyCache(c *parser.Context, inv *codegen.Invocation, arg string) error {
	parts := expression.SplitTopLevel(arg, ',')
	dur := ""
	if len(parts) > 0 {
		dur = parts[0]
	}
	d, err := ParseDuration(dur)
	if err != nil {
		return c.Errorf("%v", err).WithHint(`Cache durations look like "1h", "30mn", "2d", "1h30m" or a number of seconds`)
	}
	inv.Cache = true
	inv.CacheDuration = d
	for _, p := range parts[min(1, len(parts)):] {
		op, err := expression.Compile(c, p)
		if err != nil {
			return err
		}
		inv.CacheArgs = append(inv.CacheArgs, op)
	}
	return nil
}

func applyEscape(c *parser.Context, inv *codegen.Invocation, ext extension) error {
	name := unquote(ext.arg)
	if name == "" {
		name = strings.TrimPrefix(ext.name, "escape")
	}
	if name == "" {
		inv.Escape = escape.HTML
		return nil
	}
	kind, ok := escape.Parse(name)
	if !ok {
		err := c.Errorf("Unknown escape type: %s. Supported escape: %s", name, strings.Join(escape.Names(), ", "))
		if s := suggest(strings.ToUpper(name), escape.Names()); s != "" {
			err.WithHint("Did you mean %s?", s)
		}
		return err
	}
	inv.Escape = kind
	return nil
}

func applyAssign(c *parser.Context, inv *codegen.Invocation, arg string) error {
	parts := expression.SplitTopLevel(arg, ',')
	if len(parts) == 0 || unquote(parts[0]) == "" {
		return c.Errorf("assign extension needs a variable name")
	}
	name := unquote(parts[0])
	if !expression.IsIdent(name) {
		return c.Errorf("assign variable name is not an identifier: %s", name)
	}
	if Reserved(name) {
		return c.Errorf("assign variable name is reserved: %s", name)
	}
	inv.AssignTo = name
	if len(parts) > 1 {
		inv.AssignFinal = strings.EqualFold(unquote(parts[1]), "true")
	}
	return nil
}

// parseCallback reads formal body arguments such as `String name, int n = 1`.
func parseCallback(c *parser.Context, arg string) ([]codegen.CallbackArg, error) {
	var out []codegen.CallbackArg
	for _, part := range expression.SplitTopLevel(arg, ',') {
		decl, def := part, ""
		if i := expression.IndexTopLevel(part, "="); i >= 0 {
			decl, def = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:])
		}
		fields := strings.Fields(decl)
		var a codegen.CallbackArg
		switch len(fields) {
		case 1:
			a.Name = fields[0]
		case 2:
			a.Type, a.Name = fields[0], fields[1]
		default:
			return nil, c.Errorf("Invalid callback argument: %s", part)
		}
		if !expression.IsIdent(a.Name) {
			return nil, c.Errorf("Invalid callback argument name: %s", a.Name)
		}
		if def != "" {
			op, err := expression.Compile(c, def)
			if err != nil {
				return nil, err
			}
			a.Default = op
		}
		out = append(out, a)
	}
	return out, nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
