package webapp

import (
	"embed"
	"html/template"
	"net/http"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// renderer serves the page templates. In debug mode every render
// reparses from disk so template edits show up without a restart.
type renderer struct {
	debug     bool
	diskRoot  string
	templates *template.Template
}

func newRenderer(debug bool, diskRoot string) (*renderer, error) {
	r := &renderer{debug: debug, diskRoot: diskRoot}
	if !debug {
		parsed, err := template.ParseFS(templateFS, "templates/*.html")
		if err != nil {
			return nil, cerr.Wrap(err, "parse embedded templates")
		}
		r.templates = parsed
	}
	return r, nil
}

func (r *renderer) render(w http.ResponseWriter, name string, status int, data interface{}) error {
	tmpl := r.templates
	if r.debug {
		parsed, err := template.ParseGlob(filepath.Join(r.diskRoot, "*.html"))
		if err != nil {
			return cerr.Wrap(err, "reparse templates")
		}
		tmpl = parsed
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, name, data)
}
