package console

import (
	"fmt"
	"net/http"

	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/platform/httpx"
	"github.com/civic-registry/console/internal/registry"
)

type screenSummary struct {
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Resource   string   `json:"resource"`
	Levels     []string `json:"levels"`
	SortFields []string `json:"sort_fields"`
	PageSizes  []int    `json:"page_sizes"`
}

type paginationJSON struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type filterJSON struct {
	Key      string           `json:"key"`
	Selected string           `json:"selected"`
	Disabled bool             `json:"disabled"`
	Degraded bool             `json:"degraded,omitempty"`
	Options  []listctl.Option `json:"options"`
}

type listJSON struct {
	Screen     string            `json:"screen"`
	Query      string            `json:"query"`
	State      string            `json:"state"`
	Error      string            `json:"error,omitempty"`
	Pagination paginationJSON    `json:"pagination"`
	Filters    []filterJSON      `json:"filters"`
	Items      []registry.Record `json:"items"`
}

var apiActions = map[string]bool{"": true, "search": true, "filter": true, "sort": true, "page": true, "jump": true, "size": true}

func (h *Handler) apiScreens(w http.ResponseWriter, r *http.Request) {
	out := make([]screenSummary, 0, len(h.catalog.Names()))
	for _, def := range h.catalog.All() {
		s := screenSummary{
			Name:       def.Name,
			Title:      def.Title,
			Resource:   def.Resource,
			SortFields: def.SortFields,
			PageSizes:  def.PageSizes,
			Levels:     []string{},
		}
		for _, level := range def.Levels {
			s.Levels = append(s.Levels, level.Key)
		}
		out = append(out, s)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// apiList returns one settled list state. An action in the query is applied
// first, exactly like the HTML list, and the resulting canonical query is
// part of the response. A failed list fetch is reported in the body.
func (h *Handler) apiList(w http.ResponseWriter, r *http.Request) {
	def, err := h.screen(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	query := r.URL.Query()
	action := query.Get(paramAction)
	if !apiActions[action] {
		httpx.RespondError(w, fmt.Errorf("%w: unknown action %q", httpx.ErrValidation, action))
		return
	}
	state := stripActionParams(query)
	if action == "search" {
		state.Del(paramSearch)
	}

	ctx, cancel := h.fetchContext(r)
	defer cancel()
	ctrl, err := h.controller(def, state, nil)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer ctrl.Close()

	if err := ctrl.Settle(ctx, ctrl.Init(ctx)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if action != "" {
		if err := ctrl.Settle(ctx, applyAction(ctrl, action, query)); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	q := ctrl.Query()
	p := ctrl.Pagination()
	out := listJSON{
		Screen:     def.Name,
		Query:      ctrl.Values().Encode(),
		State:      ctrl.RenderState().String(),
		Error:      ctrl.Err(),
		Pagination: paginationJSON{Page: p.Page, PageSize: p.PageSize, Total: p.Total, TotalPages: p.TotalPages},
		Items:      ctrl.Items(),
		Filters:    []filterJSON{},
	}
	if out.Items == nil {
		out.Items = []registry.Record{}
	}
	for i, level := range def.Levels {
		opts := ctrl.LevelOptions(i)
		fj := filterJSON{Key: level.Key, Selected: q.Filter(i), Disabled: opts.Disabled, Degraded: opts.Degraded, Options: opts.Items}
		if fj.Options == nil {
			fj.Options = []listctl.Option{}
		}
		out.Filters = append(out.Filters, fj)
	}
	httpx.JSON(w, http.StatusOK, out)
}
