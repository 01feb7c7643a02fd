// Package console serves the registry admin console: server-rendered list,
// detail and form pages plus a JSON view of every list screen.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/civic-registry/console/internal/audit"
	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
	"github.com/civic-registry/console/internal/shared"
	"github.com/civic-registry/console/internal/view"
)

// OptionCache serves filter options and forgets them after mutations.
type OptionCache interface {
	listctl.OptionSource
	Invalidate(ctx context.Context, resource string) error
}

// Config collects the dependencies of a Handler.
type Config struct {
	Logger    *slog.Logger
	Catalog   *screens.Catalog
	Client    *registry.Client
	Options   OptionCache
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Audit     audit.Store
	Observer  listctl.Observer
	// FetchTimeout bounds the registry calls of one request.
	FetchTimeout time.Duration
}

// Handler wires HTTP endpoints for the console screens.
type Handler struct {
	logger       *slog.Logger
	catalog      *screens.Catalog
	client       *registry.Client
	options      OptionCache
	templates    *view.Engine
	csrf         *shared.CSRFManager
	audit        audit.Store
	observer     listctl.Observer
	validator    *validator.Validate
	fetchTimeout time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Catalog == nil || cfg.Client == nil || cfg.Templates == nil {
		return nil, errors.New("console: catalog, client and templates are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Audit
	if store == nil {
		store = audit.NopStore{}
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Handler{
		logger:       logger,
		catalog:      cfg.Catalog,
		client:       cfg.Client,
		options:      cfg.Options,
		templates:    cfg.Templates,
		csrf:         cfg.CSRF,
		audit:        store,
		observer:     cfg.Observer,
		validator:    validator.New(),
		fetchTimeout: timeout,
	}, nil
}

// MountRoutes registers the HTML routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/audit", h.auditLog)
	r.Route("/{screen}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/new", h.newForm)
		r.Get("/{id}", h.detail)
		r.Post("/{id}", h.update)
		r.Get("/{id}/edit", h.editForm)
		r.Post("/{id}/delete", h.remove)
	})
}

// MountAPI registers the JSON routes.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/screens", h.apiScreens)
	r.Get("/{screen}", h.apiList)
}

func (h *Handler) screen(r *http.Request) (*screens.Definition, error) {
	name := chi.URLParam(r, "screen")
	def, ok := h.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("console: %q: %w", name, shared.ErrUnknownScreen)
	}
	return def, nil
}

func (h *Handler) resource(def *screens.Definition) *registry.Resource[registry.Record] {
	return registry.NewResource[registry.Record](h.client, def.Resource, h.mutated)
}

// mutated drops cached options of a resource after a successful write.
func (h *Handler) mutated(ctx context.Context, resource string) {
	if h.options == nil {
		return
	}
	if err := h.options.Invalidate(ctx, resource); err != nil {
		h.logger.Warn("invalidate options", slog.String("resource", resource), slog.Any("error", err))
	}
}

// controller builds a list controller for def starting from initial. The
// location callback receives every canonical encoding the controller publishes.
func (h *Handler) controller(def *screens.Definition, initial url.Values, location func(url.Values)) (*listctl.Controller[registry.Record], error) {
	var loc listctl.Location
	if location != nil {
		loc = listctl.LocationFunc(location)
	}
	var opts listctl.OptionSource
	if h.options != nil {
		opts = h.options
	}
	return listctl.New(listctl.Config[registry.Record]{
		Screen:   def.Screen,
		Source:   h.resource(def),
		Options:  opts,
		Location: loc,
		Observer: h.observer,
		Logger:   h.logger,
		Initial:  initial,
	})
}

func (h *Handler) fetchContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.fetchTimeout)
}

func (h *Handler) base(r *http.Request, title string) view.TemplateData {
	sess := shared.SessionFromContext(r.Context())
	data := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Nav:         h.nav(r.URL.Path),
	}
	if sess != nil {
		data.Flash = sess.PopFlash()
		if h.csrf != nil {
			data.CSRFToken = h.csrf.EnsureToken(sess)
		}
	}
	return data
}

func (h *Handler) nav(current string) []view.NavItem {
	items := make([]view.NavItem, 0, len(h.catalog.Names())+1)
	for _, def := range h.catalog.All() {
		href := "/" + def.Name
		items = append(items, view.NavItem{Title: def.Title, Href: href, Active: current == href || strings.HasPrefix(current, href+"/")})
	}
	items = append(items, view.NavItem{Title: "Audit log", Href: "/audit", Active: current == "/audit"})
	return items
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data view.TemplateData) {
	if err := h.templates.RenderStatus(w, status, name, data); err != nil {
		h.logger.Error("render", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	title := "Something went wrong"
	switch {
	case errors.Is(err, shared.ErrUnknownScreen), errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
		title = "Not found"
	case registry.IsTransport(err):
		status = http.StatusBadGateway
		title = "Registry unavailable"
	}
	if status >= 500 {
		h.logger.Error("console request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	data := h.base(r, title)
	data.Data = map[string]any{"Message": shared.UserSafeMessage(err, "The request could not be completed.")}
	h.render(w, r, status, "pages/error.html", data)
}

func (h *Handler) flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}

func (h *Handler) record(ctx context.Context, r *http.Request, entry audit.Entry) {
	entry.RequestID = middleware.GetReqID(r.Context())
	if err := h.audit.Record(ctx, entry); err != nil {
		h.logger.Warn("audit record", slog.String("action", entry.Action), slog.String("screen", entry.Screen), slog.Any("error", err))
	}
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	data := h.base(r, "Civic Registry")
	data.Data = map[string]any{"Screens": h.catalog.All()}
	h.render(w, r, http.StatusOK, "pages/home.html", data)
}

func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	page, _ := parsePositive(r.URL.Query().Get("page"))
	result, err := h.audit.Recent(r.Context(), page, 25)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data := h.base(r, "Audit log")
	data.Data = result
	h.render(w, r, http.StatusOK, "pages/audit.html", data)
}
