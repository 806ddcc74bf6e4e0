// Package views serves the generic CRUD pages for every registered model:
// list, create, update, delete, dump, load and the Ajax variants of create
// and update. A Site is an http.Handler mounting one ViewSet per model.
package views

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/mesh-intelligence/cruds/pkg/dump"
	"github.com/mesh-intelligence/cruds/pkg/forms"
	"github.com/mesh-intelligence/cruds/pkg/registry"
	"github.com/mesh-intelligence/cruds/pkg/types"
)

// directorySlug is the path segment of the model directory page.
const directorySlug = "cruds"

// ErrReservedName is returned for a model whose slug collides with the
// directory page.
var ErrReservedName = errors.New("model name is reserved")

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the logger used for request and failure logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Site) {
		s.logger = logger
	}
}

// WithPrefix mounts every route under prefix.
func WithPrefix(prefix string) Option {
	return func(s *Site) {
		s.prefix = prefix
	}
}

// WithDefaultFormat sets the format used by the dump and load links.
func WithDefaultFormat(format string) Option {
	return func(s *Site) {
		s.defaultFormat = format
	}
}

// WithForm replaces the generated form of the named model.
func WithForm(model string, factory forms.Factory) Option {
	return func(s *Site) {
		s.forms[strings.ToLower(model)] = factory
	}
}

// WithTemplates adds a file system whose templates take precedence over the
// built-in ones.
func WithTemplates(fsys fs.FS) Option {
	return func(s *Site) {
		s.templates = fsys
	}
}

// Site routes requests to the ViewSets of all registered models.
type Site struct {
	registry      *registry.Registry
	store         types.Store
	logger        *slog.Logger
	prefix        string
	defaultFormat string
	forms         map[string]forms.Factory
	templates     fs.FS

	renderer *renderer
	viewSets map[string]*ViewSet
	handler  http.Handler
}

// NewSite builds the handler for every model in reg. The store must be
// attached; one adapter is obtained per model.
func NewSite(reg *registry.Registry, store types.Store, opts ...Option) (*Site, error) {
	s := &Site{
		registry:      reg,
		store:         store,
		logger:        slog.New(slog.DiscardHandler),
		prefix:        "/",
		defaultFormat: dump.DefaultFormat,
		forms:         make(map[string]forms.Factory),
		viewSets:      make(map[string]*ViewSet),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.prefix = normalizePrefix(s.prefix)
	if !dump.Supported(s.defaultFormat) {
		return nil, fmt.Errorf("default format %q: %w", s.defaultFormat, dump.ErrFormatNotImplemented)
	}

	r, err := newRenderer(s.templates)
	if err != nil {
		return nil, err
	}
	s.renderer = r

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+s.prefix+"{$}", s.root)
	mux.HandleFunc("GET "+s.prefix+directorySlug+"/{$}", s.directory)

	for _, m := range reg.Models() {
		if m.Slug() == directorySlug {
			return nil, fmt.Errorf("%w: %s", ErrReservedName, m.Name)
		}
		a, err := store.Adapter(m)
		if err != nil {
			return nil, fmt.Errorf("adapter for %s: %w", m.Name, err)
		}
		factory := s.forms[m.Slug()]
		if factory == nil {
			factory = func(m *types.Model) forms.Validator { return forms.Build(m) }
		}
		vs := newViewSet(s, a, factory)
		vs.mount(mux)
		s.viewSets[m.Slug()] = vs
	}

	s.handler = logRequests(s.logger, mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ViewSet returns the view set of the named model.
func (s *Site) ViewSet(name string) (*ViewSet, bool) {
	vs, ok := s.viewSets[strings.ToLower(name)]
	return vs, ok
}

// DirectoryURL is the path of the model directory page.
func (s *Site) DirectoryURL() string {
	return s.prefix + directorySlug + "/"
}

func (s *Site) root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.DirectoryURL(), http.StatusFound)
}

type directoryEntry struct {
	Name      string
	URLList   string
	URLCreate string
}

func (s *Site) directory(w http.ResponseWriter, r *http.Request) {
	var cruds []directoryEntry
	for _, m := range s.registry.Models() {
		vs := s.viewSets[m.Slug()]
		cruds = append(cruds, directoryEntry{
			Name:      capitalize(m.Slug()),
			URLList:   vs.urls.Index,
			URLCreate: vs.urls.Create,
		})
	}
	s.render(w, r, http.StatusOK, tplCrudsList, pongo2.Context{
		"cruds":     cruds,
		"cruds_url": s.DirectoryURL(),
	})
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, ctx pongo2.Context) {
	if err := s.renderer.render(w, status, name, ctx); err != nil {
		s.serverError(w, r, err)
	}
}

// serverError logs err and answers 500.
func (s *Site) serverError(w http.ResponseWriter, r *http.Request, err error, attrs ...any) {
	attrs = append(attrs, "method", r.Method, "path", r.URL.Path, "error", err)
	s.logger.ErrorContext(r.Context(), "request failed", attrs...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
