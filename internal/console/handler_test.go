package console_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civic-registry/console/internal/audit"
	"github.com/civic-registry/console/internal/console"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
	"github.com/civic-registry/console/internal/shared"
	"github.com/civic-registry/console/internal/view"
	_ "github.com/civic-registry/console/testing"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingAudit) Recent(_ context.Context, page, pageSize int) (audit.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return audit.Page{Entries: r.entries, Page: page, PageSize: pageSize}, nil
}

type harness struct {
	api     *fakeRegistry
	router  chi.Router
	audit   *recordingAudit
	csrf    *shared.CSRFManager
	manager *shared.SessionManager
	session *shared.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeRegistry()
	srv := api.server(t)

	client, err := registry.NewClient(registry.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	options, err := registry.NewOptionStore(registry.OptionStoreConfig{Client: client})
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		api:     api,
		audit:   &recordingAudit{},
		csrf:    shared.NewCSRFManager("test-secret"),
		manager: shared.NewSessionManager(rdb, "console_test", time.Hour, false),
	}
	handler, err := console.NewHandler(console.Config{
		Catalog:   screens.Default(),
		Client:    client,
		Options:   options,
		Templates: templates,
		CSRF:      h.csrf,
		Audit:     h.audit,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if h.session == nil {
				sess, err := h.manager.Load(req.Context(), req)
				require.NoError(t, err)
				h.session = sess
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), h.session)))
		})
	})
	r.Route("/api/v1", handler.MountAPI)
	handler.MountRoutes(r)
	h.router = r
	return h
}

func (h *harness) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (h *harness) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestListRendersFirstPage(t *testing.T) {
	h := newHarness(t)
	rec := h.get(t, "/villages")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Village 01")
	assert.Contains(t, body, "Village 12")
	assert.NotContains(t, body, "Village 13")
	assert.NotContains(t, body, "data-canonical")
	assert.Contains(t, body, "Karnataka")
	assert.Equal(t, "", h.session.LastList("villages"))
}

func TestListCorrectsPageBeyondRange(t *testing.T) {
	h := newHarness(t)
	rec := h.get(t, "/villages?page=9")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-canonical="/villages?page=2"`)
	assert.Contains(t, rec.Body.String(), "Village 13")
	assert.Equal(t, "page=2", h.session.LastList("villages"))
}

func TestListActionsRedirectToCanonicalURL(t *testing.T) {
	cases := []struct {
		name   string
		target string
		want   string
	}{
		{"sort", "/villages?action=sort&value=population", "/villages?sort=population"},
		{"sort again flips", "/villages?sort=population&action=sort&value=population", "/villages?dir=desc&sort=population"},
		{"unsortable field", "/villages?action=sort&value=households", "/villages"},
		{"search resets page", "/villages?page=2&action=search&q=village+1", "/villages?q=village+1"},
		{"filter", "/villages?action=filter&level=state&value=29", "/villages?state=29"},
		{"filter all clears children", "/villages?state=29&district=4&action=filter&level=state&value=all", "/villages"},
		{"page", "/villages?action=page&value=2", "/villages?page=2"},
		{"size resets page", "/villages?page=2&action=size&value=24", "/villages?size=24"},
		{"size not offered", "/villages?action=size&value=50", "/villages"},
		{"jump", "/villages?action=jump&page_input=2", "/villages?page=2"},
		{"jump clamps", "/villages?action=jump&page_input=40", "/villages?page=2"},
		{"jump ignores garbage", "/villages?page=2&action=jump&page_input=abc", "/villages?page=2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.get(t, tc.target)
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tc.want, rec.Header().Get("Location"))
		})
	}
}

func TestPaginationLinksOnMiddlePage(t *testing.T) {
	h := newHarness(t)
	h.api.seedVillages(60)

	rec := h.get(t, "/villages?page=3")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/villages" aria-label="First page"`)
	assert.Contains(t, body, `href="/villages?page=2" aria-label="Previous page"`)
	assert.Contains(t, body, `href="/villages?page=4" aria-label="Next page"`)
	assert.Contains(t, body, `href="/villages?page=5" aria-label="Last page"`)
}

func TestPageActionKeepsInRangePages(t *testing.T) {
	cases := []struct {
		target string
		want   string
	}{
		{"/villages?action=page&value=4", "/villages?page=4"},
		{"/villages?page=4&action=page&value=5", "/villages?page=5"},
		{"/villages?page=2&action=page&value=1", "/villages"},
		{"/villages?page=3&action=page&value=99", "/villages?page=5"},
		{"/villages?page=3&action=jump&page_input=4", "/villages?page=4"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			h := newHarness(t)
			h.api.seedVillages(60)
			rec := h.get(t, tc.target)
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tc.want, rec.Header().Get("Location"))
		})
	}
}

func TestListRegistryFailureShowsBanner(t *testing.T) {
	h := newHarness(t)
	h.api.failList["villages"] = http.StatusInternalServerError

	rec := h.get(t, "/villages")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "list exploded")
	assert.Contains(t, body, "Retry")
	assert.NotContains(t, body, "Village 01")
}

func TestUnknownScreenIs404(t *testing.T) {
	h := newHarness(t)
	rec := h.get(t, "/planets")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteLastRecordOfPageClampsAndFlashes(t *testing.T) {
	h := newHarness(t)
	rec := h.post(t, "/villages/13/delete", url.Values{"return": {"page=2"}})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/villages", rec.Header().Get("Location"))
	assert.Equal(t, 12, h.api.count("villages"))

	// The page is loaded before the delete, refreshed after it, then clamped.
	calls := h.api.listCalls("villages")
	require.Len(t, calls, 3)
	assert.Equal(t, "2", calls[0].Get("page"))
	assert.Equal(t, "2", calls[1].Get("page"))
	assert.Equal(t, "1", calls[2].Get("page"))

	flash := h.session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)

	require.Len(t, h.audit.entries, 1)
	assert.Equal(t, audit.ActionDelete, h.audit.entries[0].Action)
	assert.Equal(t, "13", h.audit.entries[0].RecordID)
	assert.Empty(t, h.audit.entries[0].Outcome)
}

func TestDeleteFailureKeepsPageAndReportsMessage(t *testing.T) {
	h := newHarness(t)
	h.api.failWrite["villages"] = "Village has providers"

	rec := h.post(t, "/villages/3/delete", url.Values{"return": {"sort=population"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/villages?sort=population", rec.Header().Get("Location"))
	assert.Equal(t, 13, h.api.count("villages"))

	flash := h.session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashError, flash.Kind)
	assert.Equal(t, "Village has providers", flash.Message)
	assert.Equal(t, "failed", h.audit.entries[0].Outcome)
}

func TestDetail(t *testing.T) {
	h := newHarness(t)
	rec := h.get(t, "/villages/5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Village 05")

	rec = h.get(t, "/villages/404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidatesFields(t *testing.T) {
	h := newHarness(t)
	rec := h.post(t, "/villages", url.Values{"name": {"X"}, "pincode": {"12"}, "population": {"many"}})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Name must be at least 2")
	assert.Contains(t, body, "Gram Panchayat is required")
	assert.Contains(t, body, "Population must be a number")
	assert.Contains(t, body, "PIN code must have length 6")
	assert.Empty(t, h.api.writes)
}

func TestCreateSendsTypedPayload(t *testing.T) {
	h := newHarness(t)
	rec := h.post(t, "/villages", url.Values{
		"name":              {"Nandagudi"},
		"gram_panchayat_id": {"11"},
		"pincode":           {"562122"},
		"population":        {"4210"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/villages/101", rec.Header().Get("Location"))
	require.Len(t, h.api.writes, 1)
	payload := h.api.writes[0]
	assert.Equal(t, "Nandagudi", payload["name"])
	assert.EqualValues(t, 11, payload["gram_panchayat_id"])
	assert.EqualValues(t, 4210, payload["population"])
	assert.Equal(t, "562122", payload["pincode"])
	assert.NotContains(t, payload, "latitude")

	require.Len(t, h.audit.entries, 1)
	assert.Equal(t, audit.ActionCreate, h.audit.entries[0].Action)
	assert.Equal(t, "101", h.audit.entries[0].RecordID)
}

func TestUpdateReturnsToRememberedList(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/villages?sort=population&dir=desc")

	rec := h.post(t, "/villages/2", url.Values{"name": {"Renamed"}, "gram_panchayat_id": {"11"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/villages?dir=desc&sort=population", rec.Header().Get("Location"))

	detail := h.get(t, "/villages/2")
	assert.Contains(t, detail.Body.String(), "Renamed")
}

func TestCreateAPIErrorIsShownOnForm(t *testing.T) {
	h := newHarness(t)
	h.api.failWrite["villages"] = "Duplicate village code"

	rec := h.post(t, "/villages", url.Values{"name": {"Nandagudi"}, "gram_panchayat_id": {"11"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Duplicate village code")
	assert.Equal(t, "failed", h.audit.entries[0].Outcome)
}

func TestAPIList(t *testing.T) {
	h := newHarness(t)
	rec := h.get(t, "/api/v1/villages?state=29&page=9")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Query      string `json:"query"`
		State      string `json:"state"`
		Pagination struct {
			Page       int `json:"page"`
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
		Filters []struct {
			Key      string `json:"key"`
			Selected string `json:"selected"`
			Disabled bool   `json:"disabled"`
		} `json:"filters"`
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "page=2&state=29", body.Query)
	assert.Equal(t, "populated", body.State)
	assert.Equal(t, 2, body.Pagination.Page)
	assert.Equal(t, 13, body.Pagination.Total)
	require.Len(t, body.Items, 1)
	require.Len(t, body.Filters, 4)
	assert.Equal(t, "29", body.Filters[0].Selected)
	assert.False(t, body.Filters[1].Disabled)
	assert.True(t, body.Filters[2].Disabled)
}

func TestAPIListAppliesActions(t *testing.T) {
	h := newHarness(t)
	rec := h.get(t, "/api/v1/villages?action=sort&value=population")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"query":"sort=population"`)

	rec = h.get(t, "/api/v1/villages?action=explode")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestAPIListReportsFailureInBody(t *testing.T) {
	h := newHarness(t)
	h.api.failList["villages"] = http.StatusBadGateway

	rec := h.get(t, "/api/v1/villages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"error"`)
	assert.Contains(t, rec.Body.String(), `"error":"list exploded"`)
}

func TestAPIScreens(t *testing.T) {
	h := newHarness(t)
	rec := h.get(t, "/api/v1/screens")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"villages"`)

	rec = h.get(t, "/api/v1/planets")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditLogPage(t *testing.T) {
	h := newHarness(t)
	h.post(t, "/villages/13/delete", url.Values{})
	rec := h.get(t, "/audit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "delete")
}
