package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/civic-registry/console/internal/audit"
	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
	"github.com/civic-registry/console/internal/shared"
)

type fieldView struct {
	screens.Field
	Value    string
	Checked  bool
	Error    string
	Options  []listctl.Option
	Degraded bool
}

type formView struct {
	Def     *screens.Definition
	ID      string
	Action  string
	Fields  []fieldView
	General string
	BackURL string
}

type detailView struct {
	Def     *screens.Definition
	ID      string
	Rows    []detailRow
	BackURL string
	EditURL string
	Delete  string
	Return  string
}

type detailRow struct {
	Label  string
	Text   string
	Format screens.Format
}

// backURL links to the list view the operator came from.
func backURL(r *http.Request, def *screens.Definition) string {
	path := "/" + def.Name
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if q := sess.LastList(def.Name); q != "" {
			return path + "?" + q
		}
	}
	return path
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	def, err := h.screen(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	ctx, cancel := h.fetchContext(r)
	defer cancel()
	rec, err := h.resource(def).Get(ctx, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	v := detailView{
		Def:     def,
		ID:      id,
		BackURL: backURL(r, def),
		EditURL: "/" + def.Name + "/" + url.PathEscape(id) + "/edit",
		Delete:  "/" + def.Name + "/" + url.PathEscape(id) + "/delete",
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		v.Return = sess.LastList(def.Name)
	}
	seen := map[string]bool{}
	for _, col := range def.Columns {
		seen[col.Key] = true
		v.Rows = append(v.Rows, detailRow{Label: col.Label, Text: rec.Text(col.Key), Format: col.Format})
	}
	for _, f := range def.Fields {
		if seen[f.Name] {
			continue
		}
		v.Rows = append(v.Rows, detailRow{Label: f.Label, Text: rec.Text(f.Name), Format: formatOf(f.Kind)})
	}
	data := h.base(r, def.Singular+" "+id)
	data.Data = v
	h.render(w, r, http.StatusOK, "pages/detail.html", data)
}

func formatOf(kind screens.FieldKind) screens.Format {
	switch kind {
	case screens.KindInteger, screens.KindDecimal:
		return screens.FormatNumber
	case screens.KindBool:
		return screens.FormatBool
	}
	return screens.FormatText
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	def, err := h.screen(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	v := h.formView(r.Context(), def, "", nil)
	v.BackURL = backURL(r, def)
	data := h.base(r, "New "+def.Singular)
	data.Data = v
	h.render(w, r, http.StatusOK, "pages/form.html", data)
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	def, err := h.screen(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	ctx, cancel := h.fetchContext(r)
	defer cancel()
	rec, err := h.resource(def).Get(ctx, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	values := make(map[string]string, len(def.Fields))
	for _, f := range def.Fields {
		values[f.Name] = rec.Text(f.Name)
	}
	v := h.formView(ctx, def, id, values)
	v.BackURL = backURL(r, def)
	data := h.base(r, "Edit "+def.Singular)
	data.Data = v
	h.render(w, r, http.StatusOK, "pages/form.html", data)
}

func (h *Handler) formView(ctx context.Context, def *screens.Definition, id string, values map[string]string) formView {
	v := formView{Def: def, ID: id, Action: "/" + def.Name}
	if id != "" {
		v.Action += "/" + url.PathEscape(id)
	}
	for _, f := range def.Fields {
		fv := fieldView{Field: f, Value: values[f.Name]}
		if f.Kind == screens.KindBool {
			fv.Checked = fv.Value == "true"
		}
		if f.Kind == screens.KindRef {
			if h.options == nil {
				fv.Degraded = true
			} else if opts, err := h.options.Options(ctx, listctl.OptionQuery{Resource: f.Resource}); err != nil {
				h.logger.Warn("form options unavailable", slog.String("resource", f.Resource), slog.Any("error", err))
				fv.Degraded = true
			} else {
				fv.Options = opts
			}
		}
		v.Fields = append(v.Fields, fv)
	}
	return v
}

// bind converts submitted form values into an API payload and validates
// every field against its rules.
func (h *Handler) bind(def *screens.Definition, form url.Values) (map[string]any, map[string]string, map[string]string) {
	payload := make(map[string]any, len(def.Fields))
	values := make(map[string]string, len(def.Fields))
	errs := make(map[string]string)
	for _, f := range def.Fields {
		raw := strings.TrimSpace(form.Get(f.Name))
		values[f.Name] = raw
		if f.Kind == screens.KindBool {
			checked := raw == "on" || raw == "true"
			payload[f.Name] = checked
			values[f.Name] = strconv.FormatBool(checked)
			continue
		}
		typed, err := convert(f.Kind, raw)
		if err != nil {
			errs[f.Name] = fmt.Sprintf("%s must be a number", f.Label)
			continue
		}
		if f.Rules != "" {
			if err := h.validator.Var(typed, f.Rules); err != nil {
				errs[f.Name] = describe(f, err)
				continue
			}
		}
		if raw != "" {
			payload[f.Name] = typed
		}
	}
	return payload, values, errs
}

func convert(kind screens.FieldKind, raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	switch kind {
	case screens.KindInteger:
		return strconv.ParseInt(raw, 10, 64)
	case screens.KindDecimal:
		return strconv.ParseFloat(raw, 64)
	case screens.KindRef:
		if n, ok := registry.ID(raw).Int64(); ok {
			return n, nil
		}
	}
	return raw, nil
}

func describe(f screens.Field, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return f.Label + " is invalid"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return f.Label + " is required"
	case "email":
		return f.Label + " must be an email address"
	case "oneof":
		return f.Label + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", f.Label, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", f.Label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", f.Label, fe.Param())
	default:
		return fmt.Sprintf("%s fails %s", f.Label, fe.Tag())
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, id string) {
	def, err := h.screen(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx, cancel := h.fetchContext(r)
	defer cancel()

	payload, values, errs := h.bind(def, r.PostForm)
	var general string
	if len(errs) == 0 {
		res := h.resource(def)
		action := audit.ActionUpdate
		if id == "" {
			action = audit.ActionCreate
			var created registry.ID
			created, err = res.Create(ctx, payload)
			id = created.String()
		} else {
			err = res.Update(ctx, id, payload)
		}
		if err == nil {
			h.record(ctx, r, audit.Entry{Action: action, Screen: def.Name, RecordID: id, Detail: payload})
			h.flash(r, shared.FlashSuccess, fmt.Sprintf("%s saved.", def.Singular))
			target := backURL(r, def)
			if id != "" && action == audit.ActionCreate {
				target = "/" + def.Name + "/" + url.PathEscape(id)
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		h.record(ctx, r, audit.Entry{Action: action, Screen: def.Name, RecordID: id, Outcome: "failed", Detail: map[string]any{"error": err.Error()}})
		general = shared.UserSafeMessage(err, "Unable to save record.")
	}

	v := h.formView(ctx, def, id, values)
	v.BackURL = backURL(r, def)
	v.General = general
	for i := range v.Fields {
		v.Fields[i].Error = errs[v.Fields[i].Name]
	}
	title := "New " + def.Singular
	if id != "" {
		title = "Edit " + def.Singular
	}
	data := h.base(r, title)
	data.Data = v
	h.render(w, r, http.StatusUnprocessableEntity, "pages/form.html", data)
}

// remove deletes a record and lands on the list view it was deleted from,
// refetched and with the page clamped when the record was the last of its page.
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	def, err := h.screen(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	state, err := url.ParseQuery(r.PostForm.Get(paramReturn))
	if err != nil {
		state = url.Values{}
	}
	ctx, cancel := h.fetchContext(r)
	defer cancel()

	ctrl, err := h.controller(def, state, nil)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer ctrl.Close()
	if err := ctrl.Settle(ctx, ctrl.Init(ctx)); err != nil {
		h.renderError(w, r, err)
		return
	}
	if err := ctrl.Settle(ctx, ctrl.Delete(id)); err != nil {
		h.renderError(w, r, err)
		return
	}
	entry := audit.Entry{Action: audit.ActionDelete, Screen: def.Name, RecordID: id, Detail: map[string]any{"list": state.Encode()}}
	if msg := ctrl.DeleteErr(); msg != "" {
		entry.Outcome = "failed"
		h.flash(r, shared.FlashError, msg)
	} else {
		h.flash(r, shared.FlashSuccess, fmt.Sprintf("%s deleted.", def.Singular))
	}
	h.record(ctx, r, entry)
	http.Redirect(w, r, ctrl.Codec().Href("/"+def.Name, ctrl.Query()), http.StatusSeeOther)
}
