package views

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	tplCrudsList  = "cruds_list.html"
	tplList       = "crud_list.html"
	tplCreate     = "crud_create.html"
	tplUpdate     = "crud_update.html"
	tplDelete     = "crud_delete.html"
	tplLoad       = "crud_load.html"
	tplCreateAjax = "crud_create_ajax.html"
	tplUpdateAjax = "crud_update_ajax.html"
)

// renderer executes pongo2 templates loaded from the embedded set, or from
// a caller supplied file system that overrides it.
type renderer struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

func newRenderer(override fs.FS) (*renderer, error) {
	embedded, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("views: open embedded templates: %w", err)
	}
	var loaders []pongo2.TemplateLoader
	if override != nil {
		loaders = append(loaders, pongo2.NewFSLoader(override))
	}
	loaders = append(loaders, pongo2.NewFSLoader(embedded))

	return &renderer{
		set:       pongo2.NewSet("cruds", loaders...),
		templates: make(map[string]*pongo2.Template),
	}, nil
}

func (r *renderer) template(name string) (*pongo2.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := r.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("views: load template %q: %w", name, err)
	}
	r.templates[name] = tmpl
	return tmpl, nil
}

// render executes name into a buffer first so a template error never leaves
// a half written page behind.
func (r *renderer) render(w http.ResponseWriter, status int, name string, ctx pongo2.Context) error {
	tmpl, err := r.template(name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(ctx, &buf); err != nil {
		return fmt.Errorf("views: execute template %q: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(buf.Bytes())
	return err
}
