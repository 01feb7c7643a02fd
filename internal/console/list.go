package console

import (
	"cmp"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
	"github.com/civic-registry/console/internal/shared"
)

// Form and link parameters that trigger a state transition instead of
// describing state. They never appear in a canonical URL.
const (
	paramAction = "action"
	paramLevel  = "level"
	paramValue  = "value"
	paramInput  = "page_input"
	paramReturn = "return"
	paramSearch = "q"
)

type listView struct {
	Def        *screens.Definition
	Path       string
	Query      listctl.Query
	Canonical  string
	ReturnTo   string
	State      string
	Err        string
	Search     string
	Columns    []columnView
	Rows       []rowView
	Filters    []filterView
	Pagination listctl.Pagination
	Pages      []pageLink
	FirstHref  string
	PrevHref   string
	NextHref   string
	LastHref   string
	PageSizes  []sizeView
	Hidden     []hiddenField
}

type columnView struct {
	Label     string
	Href      string
	Indicator string
	Format    screens.Format
}

type cellView struct {
	Text   string
	Format screens.Format
}

type rowView struct {
	ID     string
	Cells  []cellView
	Href   string
	Edit   string
	Delete string
}

type optionView struct {
	ID       string
	Label    string
	Href     string
	Selected bool
}

type filterView struct {
	Key      string
	Label    string
	Selected string
	AllHref  string
	Options  []optionView
	Loading  bool
	Disabled bool
	Degraded bool
}

type pageLink struct {
	N       int
	Href    string
	Current bool
}

type sizeView struct {
	Size     int
	Href     string
	Selected bool
}

type hiddenField struct {
	Name  string
	Value string
}

// list renders a list screen. Requests carrying an action are applied to
// the state and redirected to the resulting canonical URL; plain requests
// are fetched and rendered, with the browser URL corrected when fetching
// changed the state (for example a clamped page).
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	def, err := h.screen(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	ctx, cancel := h.fetchContext(r)
	defer cancel()

	query := r.URL.Query()
	action := query.Get(paramAction)
	state := stripActionParams(query)
	if action == "search" {
		state.Del(paramSearch)
	}

	var canonical url.Values
	ctrl, err := h.controller(def, state, func(v url.Values) { canonical = v })
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer ctrl.Close()

	if action != "" {
		// Page moves are clamped against the loaded page count.
		if err := ctrl.Settle(ctx, ctrl.Init(ctx)); err != nil {
			h.renderError(w, r, err)
			return
		}
		applyAction(ctrl, action, query)
		http.Redirect(w, r, ctrl.Codec().Href(r.URL.Path, ctrl.Query()), http.StatusSeeOther)
		return
	}

	if err := ctrl.Settle(ctx, ctrl.Init(ctx)); err != nil {
		h.renderError(w, r, err)
		return
	}

	v := buildListView(def, ctrl, r.URL.Path)
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.RememberList(def.Name, canonical.Encode())
	}
	data := h.base(r, def.Title)
	if canonical.Encode() != r.URL.RawQuery {
		data.Canonical = v.Canonical
	}
	data.Data = v
	h.render(w, r, http.StatusOK, "pages/list.html", data)
}

// applyAction performs one state transition named by a form or link and
// returns the fetches it started.
func applyAction(ctrl *listctl.Controller[registry.Record], action string, form url.Values) listctl.Cmd {
	switch action {
	case "search":
		ctrl.Type(form.Get(paramSearch))
		return ctrl.CommitSearch()
	case "filter":
		return ctrl.SetFilterByKey(form.Get(paramLevel), form.Get(paramValue))
	case "sort":
		return ctrl.SetSort(form.Get(paramValue))
	case "page":
		if n, ok := parsePositive(form.Get(paramValue)); ok {
			return ctrl.SetPage(n)
		}
	case "jump":
		return ctrl.JumpToPage(form.Get(paramInput))
	case "size":
		if n, ok := parsePositive(form.Get(paramValue)); ok {
			return ctrl.SetPageSize(n)
		}
	}
	return nil
}

func stripActionParams(values url.Values) url.Values {
	out := url.Values{}
	for k, v := range values {
		switch k {
		case paramAction, paramLevel, paramValue, paramInput, paramReturn:
			continue
		}
		out[k] = v
	}
	return out
}

func parsePositive(text string) (int, bool) {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		return 1, false
	}
	return n, true
}

func buildListView(def *screens.Definition, ctrl *listctl.Controller[registry.Record], path string) listView {
	q := ctrl.Query()
	codec := ctrl.Codec()
	href := func(next listctl.Query) string { return codec.Href(path, next) }

	v := listView{
		Def:        def,
		Path:       path,
		Query:      q,
		Canonical:  href(q),
		ReturnTo:   codec.Encode(q).Encode(),
		State:      ctrl.RenderState().String(),
		Err:        ctrl.Err(),
		Search:     ctrl.RawSearch(),
		Pagination: ctrl.Pagination(),
	}

	for _, col := range def.Columns {
		cv := columnView{Label: col.Label, Format: col.Format}
		if col.Sort != "" {
			cv.Href = href(listctl.ToggleSort(def.Screen, q, col.Sort))
			cv.Indicator = listctl.Indicator(q, col.Sort).String()
		}
		v.Columns = append(v.Columns, cv)
	}

	for _, rec := range ctrl.Items() {
		id := rec.ID()
		row := rowView{
			ID:     id,
			Href:   path + "/" + url.PathEscape(id),
			Edit:   path + "/" + url.PathEscape(id) + "/edit",
			Delete: path + "/" + url.PathEscape(id) + "/delete",
		}
		for _, col := range def.Columns {
			row.Cells = append(row.Cells, cellView{Text: rec.Text(col.Key), Format: col.Format})
		}
		v.Rows = append(v.Rows, row)
	}

	for i, level := range def.Levels {
		opts := ctrl.LevelOptions(i)
		selected := q.Filter(i)
		fv := filterView{
			Key:      level.Key,
			Label:    level.Label,
			Selected: selected,
			AllHref:  href(listctl.SetFilter(q, i, listctl.AllValue)),
			Loading:  opts.Loading,
			Disabled: opts.Disabled || !listctl.ParentSelected(q, i),
			Degraded: opts.Degraded,
		}
		for _, opt := range opts.Items {
			fv.Options = append(fv.Options, optionView{
				ID:       opt.ID,
				Label:    opt.Label,
				Href:     href(listctl.SetFilter(q, i, opt.ID)),
				Selected: opt.ID == selected,
			})
		}
		v.Filters = append(v.Filters, fv)
	}

	p := v.Pagination
	pageHref := func(n int) string {
		next := q.Clone()
		next.Page = n
		return href(next)
	}
	for _, n := range p.Window(7) {
		v.Pages = append(v.Pages, pageLink{N: n, Href: pageHref(n), Current: n == p.Page})
	}
	if p.HasPrev() {
		v.FirstHref = pageHref(1)
		v.PrevHref = pageHref(p.Page - 1)
	}
	if p.HasNext() {
		v.NextHref = pageHref(p.Page + 1)
		v.LastHref = pageHref(listctl.LastPage(p.TotalPages))
	}
	for _, size := range def.PageSizes {
		next := q.Clone()
		next.PageSize = size
		next.Page = 1
		v.PageSizes = append(v.PageSizes, sizeView{Size: size, Href: href(next), Selected: size == q.PageSize})
	}

	// Forms re-submit the current state next to the field they change.
	for name, values := range codec.Encode(q) {
		for _, value := range values {
			v.Hidden = append(v.Hidden, hiddenField{Name: name, Value: value})
		}
	}
	slices.SortFunc(v.Hidden, func(a, b hiddenField) int { return cmp.Compare(a.Name, b.Name) })
	return v
}
