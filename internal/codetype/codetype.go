// Package codetype defines the surface languages a template can be written
// in. A language decides how expression output is escaped by default.
package codetype

import (
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/escape"
)

// Lang is one code type. An empty Escape means the language does not define
// output escaping and defers to the enclosing language.
type Lang struct {
	ID     string
	Escape escape.Kind
}

var (
	HTML = &Lang{ID: "html", Escape: escape.HTML}
	JS   = &Lang{ID: "js", Escape: escape.JS}
	CSS  = &Lang{ID: "css"}
	JSON = &Lang{ID: "json", Escape: escape.JSON}
	XML  = &Lang{ID: "xml", Escape: escape.XML}
	CSV  = &Lang{ID: "csv", Escape: escape.CSV}
	Text = &Lang{ID: "text", Escape: escape.Raw}
)

var byID = map[string]*Lang{}

func init() {
	for _, l := range []*Lang{HTML, JS, CSS, JSON, XML, CSV, Text} {
		byID[l.ID] = l
	}
}

// Lookup returns the language registered under id.
func Lookup(id string) (*Lang, bool) {
	l, ok := byID[strings.ToLower(id)]
	return l, ok
}

// ForFile guesses the language from a template file name.
func ForFile(name string) *Lang {
	ext := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext = name[i+1:]
	}
	switch strings.ToLower(ext) {
	case "js":
		return JS
	case "json":
		return JSON
	case "xml":
		return XML
	case "csv":
		return CSV
	case "css":
		return CSS
	case "txt", "text":
		return Text
	}
	return HTML
}
