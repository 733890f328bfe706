package rythm

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

type View interface {
	Name() string
	Data() any
	Status() int
}

type view struct {
	name   string
	data   any
	status int
}

func NewView(name string, data any, status ...int) View {
	statusCode := http.StatusOK
	if len(status) > 0 {
		statusCode = status[0]
	}
	return view{
		name:   name,
		data:   data,
		status: statusCode,
	}
}

func (v view) Name() string {
	return v.name
}

func (v view) Data() any {
	return v.data
}

func (v view) Status() int {
	return v.status
}

var _ render.HTMLRender = (*HtmlRender)(nil)

// HtmlRender gin HtmlRender compatible
type HtmlRender struct {
	e *Engine
}

// NewHTMLRender create a new HtmlRender
func NewHTMLRender(e *Engine) *HtmlRender {
	return &HtmlRender{e: e}
}

// Instance returns a new render.Render
func (h *HtmlRender) Instance(name string, data any) render.Render {
	return &Render{ctx: context.Background(), e: h.e, name: name, data: data}
}

// View renders v as the response of c, e.g. `h.View(c, rythm.NewView("pages/home", data))`.
func (h *HtmlRender) View(c *gin.Context, v View) {
	c.Render(v.Status(), &Render{ctx: c.Request.Context(), e: h.e, name: v.Name(), data: v.Data()})
}

// Render renders a template with data and writes to w
type Render struct {
	ctx  context.Context
	e    *Engine
	name string
	data any
}

// Render renders the template and writes it to w. Views rendered through
// HtmlRender.View stop rendering when the request is cancelled.
func (r *Render) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	return r.e.RenderContext(r.ctx, w, r.name, r.data)
}

// WriteContentType writes the content type of the template's language to
// the response header if not set
func (r *Render) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{r.e.ContentType(r.name)}
	}
}
