// Package escape implements the output escaping kinds that tag invocations
// and expression output can request.
package escape

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// Kind names one escaping strategy. The zero value means "not set".
type Kind string

const (
	Raw  Kind = "RAW"
	HTML Kind = "HTML"
	Java Kind = "JAVA"
	JS   Kind = "JS"
	JSON Kind = "JSON"
	CSV  Kind = "CSV"
	XML  Kind = "XML"
)

// Kinds lists every supported kind, default first after RAW.
var Kinds = []Kind{Raw, HTML, Java, JS, JSON, CSV, XML}

// Parse matches name case-insensitively against the supported kinds.
func Parse(name string) (Kind, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, k := range Kinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Names returns the supported kind names, used in diagnostics.
func Names() []string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return names
}

// Apply escapes v according to kind. nil renders as the empty string.
func Apply(kind Kind, v any) (string, error) {
	s := stringify(v)
	switch kind {
	case "", Raw:
		return s, nil
	case HTML:
		return template.HTMLEscapeString(s), nil
	case Java:
		q := strconv.Quote(s)
		return q[1 : len(q)-1], nil
	case JS:
		return template.JSEscapeString(s), nil
	case JSON:
		b, err := json.Marshal(s)
		if err != nil {
			return "", err
		}
		return string(b[1 : len(b)-1]), nil
	case CSV:
		return escapeCSV(s), nil
	case XML:
		var b strings.Builder
		if err := xml.EscapeText(&b, []byte(s)); err != nil {
			return "", err
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("unknown escape kind %q", kind)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func escapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
