package template_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	rythm "github.com/dangdungcntt/go-rythm"
)

// makeLargeTemplate builds a page big enough for parse, compile and render
// costs to show up in the benchmarks.
func makeLargeTemplate() string {
	var b strings.Builder
	b.WriteString("@extends(\"layout\")\n@args List<String> items\n")
	b.WriteString("<ul>\n")
	b.WriteString("@for(String it : items){<li>@row(index = it_index, text = it)</li>}\n")
	b.WriteString("</ul>\n")
	for i := range 20 {
		fmt.Fprintf(&b, "@if(len(items) > %d){<p>block %d</p>}\n", i, i)
	}
	return b.String()
}

func views(mod time.Time) fstest.MapFS {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s), ModTime: mod} }
	return fstest.MapFS{
		"layout.html": file(`<html><body>@doLayout()</body></html>`),
		"row.html":    file(`<div class="row">@index: @text</div>`),
		"big.html":    file(makeLargeTemplate()),
	}
}

func benchData() map[string]any {
	items := make([]string, 100)
	for i := range items {
		items[i] = fmt.Sprintf("Item number %d <%d>", i, i)
	}
	return map[string]any{"items": items}
}

func loadedEngine(b *testing.B, opts ...rythm.Option) *rythm.Engine {
	opts = append([]rythm.Option{rythm.WithLogger(zerolog.Nop())}, opts...)
	e := rythm.NewEngineFS(views(time.Unix(0, 0)), "", opts...)
	require.NoError(b, e.Load(), "load templates failed")
	return e
}

// 1) Render an already compiled template (concurrent-safe)
func Benchmark_Engine_Render(b *testing.B) {
	e := loadedEngine(b)
	data := benchData()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		var buf bytes.Buffer
		for pb.Next() {
			buf.Reset()
			if err := e.Render(&buf, "big", data); err != nil {
				b.Fatalf("render failed: %v", err)
			}
		}
	})
}

// 2) Render with every row served from the memory cache
func Benchmark_Engine_RenderCached(b *testing.B) {
	e := rythm.NewEngineFS(fstest.MapFS{
		"row.html":  &fstest.MapFile{Data: []byte(`<div>@text</div>`)},
		"page.html": &fstest.MapFile{Data: []byte(`@for(it : items){@row(text = it).cache("1h")}`)},
	}, "", rythm.WithLogger(zerolog.Nop()), rythm.WithCache(rythm.NewMemoryCache(0)))
	require.NoError(b, e.Load())
	data := benchData()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		var buf bytes.Buffer
		for pb.Next() {
			buf.Reset()
			if err := e.Render(&buf, "page", data); err != nil {
				b.Fatalf("render failed: %v", err)
			}
		}
	})
}

// 3) Compile every template on every iteration (uncached compile)
func Benchmark_Engine_CompileEachTime(b *testing.B) {
	fsys := views(time.Unix(0, 0))
	data := benchData()
	b.ReportAllocs()
	b.ResetTimer()

	var buf bytes.Buffer
	for i := 0; i < b.N; i++ {
		buf.Reset()
		e := rythm.NewEngineFS(fsys, "", rythm.WithLogger(zerolog.Nop()))
		if err := e.Load(); err != nil {
			b.Fatalf("load failed: %v", err)
		}
		if err := e.Render(&buf, "big", data); err != nil {
			b.Fatalf("render failed: %v", err)
		}
	}
}
