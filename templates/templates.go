// Package templates holds the server-rendered pages and renders them to bytes,
// so callers can cache a rendering before writing it.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"time"
)

//go:embed *.html
var files embed.FS

var shared = []string{"base.html", "partials.html"}

// Renderer executes named pages.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page against the shared layout. mediaURL maps a stored
// file name to its public URL.
func New(mediaURL func(string) string) (*Renderer, error) {
	funcs := template.FuncMap{
		"media": mediaURL,
		"date": func(t time.Time) string {
			return t.Format("2 January 2006 15:04")
		},
	}
	layout, err := template.New("base.html").Funcs(funcs).ParseFS(files, shared...)
	if err != nil {
		return nil, err
	}

	names, err := fs.Glob(files, "*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range names {
		if name == "base.html" || name == "partials.html" {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(files, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes page with data inside the base layout.
func (r *Renderer) Render(page string, data interface{}) ([]byte, error) {
	t, ok := r.pages[page]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
