package views

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/cruds/pkg/dump"
	"github.com/mesh-intelligence/cruds/pkg/forms"
	"github.com/mesh-intelligence/cruds/pkg/types"
)

// URLs are the model level links placed in every page context.
type URLs struct {
	Cruds  string
	Create string
	Load   string
	Dump   string
	Index  string
}

// ViewSet serves the pages of one model.
type ViewSet struct {
	site    *Site
	model   *types.Model
	adapter types.Adapter
	form    forms.Factory
	base    string
	urls    URLs
}

func newViewSet(s *Site, a types.Adapter, factory forms.Factory) *ViewSet {
	m := a.Model()
	base := s.prefix + m.Slug() + "/"
	return &ViewSet{
		site:    s,
		model:   m,
		adapter: a,
		form:    factory,
		base:    base,
		urls: URLs{
			Cruds:  s.DirectoryURL(),
			Create: base + "create/",
			Load:   base + "load/" + s.defaultFormat + "/",
			Dump:   base + "dump/" + s.defaultFormat + "/",
			Index:  base,
		},
	}
}

func (vs *ViewSet) mount(mux *http.ServeMux) {
	b := vs.base
	mux.HandleFunc("GET "+b+"{$}", vs.list)
	mux.HandleFunc("GET "+b+"create/{$}", vs.createForm)
	mux.HandleFunc("POST "+b+"create/{$}", vs.create)
	mux.HandleFunc("GET "+b+"update/{pk}/{$}", vs.updateForm)
	mux.HandleFunc("POST "+b+"update/{pk}/{$}", vs.update)
	mux.HandleFunc("GET "+b+"delete/{pk}/{$}", vs.deleteForm)
	mux.HandleFunc("POST "+b+"delete/{pk}/{$}", vs.delete)
	mux.HandleFunc("GET "+b+"dump/{format}/{$}", vs.dump)
	mux.HandleFunc("GET "+b+"load/{format}/{$}", vs.loadForm)
	mux.HandleFunc("POST "+b+"load/{format}/{$}", vs.load)
	mux.HandleFunc("GET "+b+"create.ajax/{$}", vs.createAjaxForm)
	mux.HandleFunc("POST "+b+"create.ajax/{$}", vs.createAjax)
	mux.HandleFunc("GET "+b+"update.ajax/{pk}/{$}", vs.updateAjaxForm)
	mux.HandleFunc("POST "+b+"update.ajax/{pk}/{$}", vs.updateAjax)
}

// URLs returns the model level links.
func (vs *ViewSet) URLs() URLs {
	return vs.urls
}

// UpdateURL is the update page of the record with the given pk.
func (vs *ViewSet) UpdateURL(pk string) string {
	return vs.base + "update/" + url.PathEscape(pk) + "/"
}

// DeleteURL is the delete page of the record with the given pk.
func (vs *ViewSet) DeleteURL(pk string) string {
	return vs.base + "delete/" + url.PathEscape(pk) + "/"
}

// CreateAjaxURL is the Ajax create endpoint.
func (vs *ViewSet) CreateAjaxURL() string {
	return vs.base + "create.ajax/"
}

// UpdateAjaxURL is the Ajax update endpoint of the record with the given pk.
func (vs *ViewSet) UpdateAjaxURL(pk string) string {
	return vs.base + "update.ajax/" + url.PathEscape(pk) + "/"
}

// DumpURL is the dump endpoint for format.
func (vs *ViewSet) DumpURL(format string) string {
	return vs.base + "dump/" + format + "/"
}

// LoadURL is the load page for format.
func (vs *ViewSet) LoadURL(format string) string {
	return vs.base + "load/" + format + "/"
}

// context returns the entries shared by every page of the model.
func (vs *ViewSet) context() pongo2.Context {
	return pongo2.Context{
		"model_verbose_name":        vs.model.VerboseName(),
		"model_verbose_name_plural": vs.model.VerboseNamePlural(),
		"model_name":                vs.model.Slug(),
		"uuid":                      uuid.NewString(),
		"cruds_url":                 vs.urls.Cruds,
		"crud_urls": map[string]string{
			"cruds":  vs.urls.Cruds,
			"create": vs.urls.Create,
			"load":   vs.urls.Load,
			"dump":   vs.urls.Dump,
			"index":  vs.urls.Index,
		},
	}
}

// row is one record on the list page.
type row struct {
	PK        string
	Name      string
	Cells     []string
	URLEdit   string
	URLDelete string
}

func (vs *ViewSet) list(w http.ResponseWriter, r *http.Request) {
	records, err := vs.adapter.List(r.Context(), nil)
	if err != nil {
		vs.site.serverError(w, r, err, "model", vs.model.Slug())
		return
	}

	columns := make([]string, 0, len(vs.model.Fields))
	for _, f := range vs.model.Fields {
		columns = append(columns, capitalize(f.VerboseName()))
	}
	rows := make([]row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, row{
			PK:        rec.PK,
			Name:      vs.displayName(rec),
			Cells:     vs.cells(rec),
			URLEdit:   vs.UpdateURL(rec.PK),
			URLDelete: vs.DeleteURL(rec.PK),
		})
	}

	ctx := vs.context()
	ctx["columns"] = columns
	ctx["crud_object_list"] = rows
	ctx["url_create"] = vs.urls.Create
	vs.site.render(w, r, http.StatusOK, tplList, ctx)
}

// displayName is the first non-empty text field, falling back to the pk.
func (vs *ViewSet) displayName(rec *types.Record) string {
	for _, f := range vs.model.Fields {
		if f.Type != types.FieldTypeText {
			continue
		}
		if s, ok := rec.Get(f.Name).(string); ok && s != "" {
			return s
		}
	}
	return rec.PK
}

func (vs *ViewSet) cells(rec *types.Record) []string {
	out := make([]string, 0, len(vs.model.Fields))
	for _, f := range vs.model.Fields {
		switch v := f.Export(rec.Get(f.Name)).(type) {
		case nil:
			out = append(out, "")
		case []string:
			out = append(out, strings.Join(v, ", "))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

// formPage renders a create or update page.
func (vs *ViewSet) formPage(w http.ResponseWriter, r *http.Request, tpl string, object *types.Record, fields []forms.BoundField, errs types.ValidationErrors, action string) {
	ctx := vs.context()
	ctx["form"] = fields
	ctx["non_field_errors"] = nonFieldErrors(fields, errs)
	ctx["action"] = action
	ctx["url_self"] = action
	if object != nil {
		ctx["object"] = object
		ctx["object_pk"] = object.PK
		ctx["url_delete"] = vs.DeleteURL(object.PK)
	}
	vs.site.render(w, r, http.StatusOK, tpl, ctx)
}

func (vs *ViewSet) createForm(w http.ResponseWriter, r *http.Request) {
	vs.formPage(w, r, tplCreate, nil, vs.form(vs.model).Initial(nil), nil, vs.urls.Create)
}

func (vs *ViewSet) create(w http.ResponseWriter, r *http.Request) {
	values, err := postValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := vs.form(vs.model)
	saved, errs, err := vs.save(r, form, values, nil)
	if err != nil {
		vs.site.serverError(w, r, err, "model", vs.model.Slug())
		return
	}
	if errs != nil {
		vs.formPage(w, r, tplCreate, nil, form.Bind(values, errs), errs, vs.urls.Create)
		return
	}
	http.Redirect(w, r, vs.UpdateURL(saved.PK), http.StatusFound)
}

func (vs *ViewSet) updateForm(w http.ResponseWriter, r *http.Request) {
	rec, ok := vs.object(w, r)
	if !ok {
		return
	}
	vs.formPage(w, r, tplUpdate, rec, vs.form(vs.model).Initial(rec), nil, vs.UpdateURL(rec.PK))
}

func (vs *ViewSet) update(w http.ResponseWriter, r *http.Request) {
	rec, ok := vs.object(w, r)
	if !ok {
		return
	}
	values, err := postValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := vs.form(vs.model)
	saved, errs, err := vs.save(r, form, values, rec)
	if err != nil {
		vs.site.serverError(w, r, err, "model", vs.model.Slug(), "pk", rec.PK)
		return
	}
	if errs != nil {
		vs.formPage(w, r, tplUpdate, rec, form.Bind(values, errs), errs, vs.UpdateURL(rec.PK))
		return
	}
	http.Redirect(w, r, vs.UpdateURL(saved.PK), http.StatusFound)
}

// save validates values and stores the result. When existing is set the
// submitted fields are merged into it and its primary key is kept.
// Validation failures, from the form or the store, come back as errs.
func (vs *ViewSet) save(r *http.Request, form forms.Validator, values url.Values, existing *types.Record) (*types.Record, types.ValidationErrors, error) {
	rec, errs := form.Validate(values)
	if errs != nil {
		return nil, errs, nil
	}
	if existing != nil {
		merged := existing.Clone()
		for name, v := range rec.Fields {
			if forms.Unchanged(existing.Get(name), v) {
				continue
			}
			merged.Fields[name] = v
		}
		if pk, ok := vs.model.Field(vs.model.PK()); ok {
			merged.Fields[pk.Name] = existing.Get(pk.Name)
		}
		rec = merged
	}

	saved, err := vs.adapter.Save(r.Context(), rec)
	var verrs types.ValidationErrors
	if errors.As(err, &verrs) {
		return nil, verrs, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return saved, nil, nil
}

func (vs *ViewSet) deleteForm(w http.ResponseWriter, r *http.Request) {
	rec, ok := vs.object(w, r)
	if !ok {
		return
	}
	ctx := vs.context()
	ctx["object"] = rec
	ctx["object_pk"] = rec.PK
	ctx["object_name"] = vs.displayName(rec)
	ctx["action"] = vs.DeleteURL(rec.PK)
	vs.site.render(w, r, http.StatusOK, tplDelete, ctx)
}

func (vs *ViewSet) delete(w http.ResponseWriter, r *http.Request) {
	rec, ok := vs.object(w, r)
	if !ok {
		return
	}
	switch err := vs.adapter.Delete(r.Context(), rec); {
	case err == nil:
		vs.site.logger.InfoContext(r.Context(), "record deleted", "model", vs.model.Slug(), "pk", rec.PK)
	case errors.Is(err, types.ErrNotFound):
		// Removed by another request since the lookup.
	default:
		vs.site.serverError(w, r, err, "model", vs.model.Slug(), "pk", rec.PK)
		return
	}
	http.Redirect(w, r, vs.urls.Index, http.StatusFound)
}

// object loads the record named by the pk path value, answering 404 when it
// does not exist.
func (vs *ViewSet) object(w http.ResponseWriter, r *http.Request) (*types.Record, bool) {
	pk := r.PathValue("pk")
	rec, err := vs.adapter.Get(r.Context(), pk)
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrInvalidPK):
		http.NotFound(w, r)
	default:
		vs.site.serverError(w, r, err, "model", vs.model.Slug(), "pk", pk)
	}
	return nil, false
}

func (vs *ViewSet) dump(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	contentType, err := dump.ContentType(format)
	if err != nil {
		notImplemented(w, format)
		return
	}
	body, err := dump.Export(r.Context(), vs.adapter, format)
	if err != nil {
		vs.site.serverError(w, r, err, "model", vs.model.Slug(), "format", format)
		return
	}
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (vs *ViewSet) loadForm(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	if !dump.Supported(format) {
		notImplemented(w, format)
		return
	}
	vs.loadPage(w, r, format, nil)
}

func (vs *ViewSet) loadPage(w http.ResponseWriter, r *http.Request, format string, errs types.ValidationErrors) {
	ctx := vs.context()
	ctx["format"] = format
	ctx["action"] = vs.LoadURL(format)
	ctx["formats"] = dump.Formats()
	ctx["file_error"] = errs[forms.UploadFile]
	ctx["non_field_errors"] = errs[types.NonFieldErrors]
	vs.site.render(w, r, http.StatusOK, tplLoad, ctx)
}

func (vs *ViewSet) load(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	if !dump.Supported(format) {
		notImplemented(w, format)
		return
	}
	up, errs, err := forms.ParseUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errs != nil {
		vs.loadPage(w, r, format, errs)
		return
	}

	n, err := dump.Import(r.Context(), vs.adapter, format, up.Data, up.EraseExistent)
	var verrs types.ValidationErrors
	switch {
	case errors.Is(err, dump.ErrMalformed), errors.Is(err, types.ErrInvalidData), errors.As(err, &verrs):
		vs.loadPage(w, r, format, types.ValidationErrors{forms.UploadFile: err.Error()})
		return
	case err != nil:
		vs.site.serverError(w, r, err, "model", vs.model.Slug(), "format", format)
		return
	}
	vs.site.logger.InfoContext(r.Context(), "records loaded",
		"model", vs.model.Slug(), "format", format, "count", n, "erase_existent", up.EraseExistent)
	http.Redirect(w, r, vs.urls.Index, http.StatusFound)
}

func (vs *ViewSet) createAjaxForm(w http.ResponseWriter, r *http.Request) {
	vs.formPage(w, r, tplCreateAjax, nil, vs.form(vs.model).Initial(nil), nil, vs.CreateAjaxURL())
}

func (vs *ViewSet) createAjax(w http.ResponseWriter, r *http.Request) {
	values, err := postValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	saved, errs, err := vs.save(r, vs.form(vs.model), values, nil)
	vs.ajaxResult(w, r, saved, errs, err)
}

func (vs *ViewSet) updateAjaxForm(w http.ResponseWriter, r *http.Request) {
	rec, ok := vs.object(w, r)
	if !ok {
		return
	}
	vs.formPage(w, r, tplUpdateAjax, rec, vs.form(vs.model).Initial(rec), nil, vs.UpdateAjaxURL(rec.PK))
}

func (vs *ViewSet) updateAjax(w http.ResponseWriter, r *http.Request) {
	rec, ok := vs.object(w, r)
	if !ok {
		return
	}
	values, err := postValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	saved, errs, err := vs.save(r, vs.form(vs.model), values, rec)
	vs.ajaxResult(w, r, saved, errs, err)
}

func (vs *ViewSet) ajaxResult(w http.ResponseWriter, r *http.Request, saved *types.Record, errs types.ValidationErrors, err error) {
	switch {
	case err != nil:
		vs.site.serverError(w, r, err, "model", vs.model.Slug())
	case errs != nil:
		writeJSON(w, errorPayload(errs))
	default:
		writeJSON(w, successPayload{
			Success:  true,
			Object:   vs.adapter.Dump(saved),
			ObjectPK: saved.PK,
		})
	}
}

// postValues parses a urlencoded or multipart body.
func postValues(r *http.Request) (url.Values, error) {
	if err := r.ParseMultipartForm(forms.MaxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	return r.PostForm, nil
}

// nonFieldErrors collects messages not attached to a rendered field.
func nonFieldErrors(fields []forms.BoundField, errs types.ValidationErrors) []string {
	if errs == nil {
		return nil
	}
	shown := make(map[string]bool, len(fields))
	for _, f := range fields {
		shown[f.Name] = true
	}
	var out []string
	for _, name := range errs.Fields() {
		if shown[name] {
			continue
		}
		if name == types.NonFieldErrors {
			out = append(out, errs[name])
			continue
		}
		out = append(out, name+": "+errs[name])
	}
	return out
}

func notImplemented(w http.ResponseWriter, format string) {
	http.Error(w, fmt.Sprintf("format %q: %v", format, dump.ErrFormatNotImplemented), http.StatusNotImplemented)
}
