package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/editorjs"
)

//go:embed templates/*.html
var templateFS embed.FS

var viewNames = []string{"home", "blog", "post", "page", "events", "event_detail", "error"}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("January 2, 2006") },
	"when": eventWhen,
	"add":  func(a, b int) int { return a + b },
	"sub":  func(a, b int) int { return a - b },
	"content": func(raw []byte) template.HTML {
		doc, err := editorjs.Parse(raw)
		if err != nil {
			return ""
		}
		return editorjs.RenderHTML(doc)
	},
}

// parseViews compiles every view against the shared layout.
func parseViews() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(viewNames))
	for _, name := range viewNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

func (h *Handler) execute(name string, data interface{}) ([]byte, error) {
	t, ok := h.tmpl[name]
	if !ok {
		return nil, fmt.Errorf("unknown view %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func eventWhen(e models.EventModel) string {
	const day = "Mon, January 2, 2006"
	const clock = "3:04 PM"
	start := e.StartDate
	if e.AllDay {
		if e.EndDate == nil || sameDay(start, *e.EndDate) {
			return start.Format(day)
		}
		return start.Format(day) + " to " + e.EndDate.Format(day)
	}
	if e.EndDate == nil {
		return start.Format(day + ", " + clock)
	}
	if sameDay(start, *e.EndDate) {
		return start.Format(day+", "+clock) + " to " + e.EndDate.Format(clock)
	}
	return start.Format(day+", "+clock) + " to " + e.EndDate.Format(day+", "+clock)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
