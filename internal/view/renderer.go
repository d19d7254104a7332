// Package view renders the HTML pages. Every page is the shared layout plus
// one content template, embedded into the binary.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"

	"github.com/labstack/echo/v4"

	"github.com/helenjin/databases-proj-group27/internal/middleware"
	"github.com/helenjin/databases-proj-group27/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "layout.html"

// Page is what every template executes against.
type Page struct {
	Identity model.Identity
	Data     any
}

// Renderer implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"pathEscape": url.PathEscape,
}

// New parses every page template against the layout.
func New() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		base := path.Base(name)
		if base == layoutFile {
			continue
		}
		t, err := template.New(base).Funcs(funcs).ParseFS(templateFS, "templates/"+layoutFile, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[base] = t
	}
	return r, nil
}

// Render executes the named page with data wrapped in a Page carrying the
// caller's identity.
func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout", Page{Identity: middleware.IdentityFrom(c), Data: data})
}
