package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civic-registry/console/internal/listctl"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/{screen}")

	req := httptest.NewRequest(http.MethodGet, "/villages", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `console_http_requests_total{code="418",route="/{screen}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `console_http_request_duration_seconds_bucket{route="/{screen}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestListOutcomes(t *testing.T) {
	metrics := NewMetrics()
	var observer listctl.Observer = metrics
	observer.ObserveList("villages", listctl.OutcomeSuccess, 30*time.Millisecond)
	observer.ObserveList("villages", listctl.OutcomeStale, time.Second)
	observer.ObserveList("villages", listctl.OutcomeStale, time.Second)

	body := scrape(t, metrics)
	if !strings.Contains(body, `console_list_fetches_total{outcome="stale",screen="villages"} 2`) {
		t.Fatalf("expected stale outcomes, got: %s", body)
	}
	if !strings.Contains(body, `console_list_fetch_duration_seconds_count{screen="villages"} 1`) {
		t.Fatalf("stale fetches must not feed the latency histogram, got: %s", body)
	}
}

func TestOptionLookups(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveOptionLookup("districts", "memory")
	body := scrape(t, metrics)
	if !strings.Contains(body, `console_option_lookups_total{resource="districts",source="memory"} 1`) {
		t.Fatalf("expected option lookup, got: %s", body)
	}
}

func TestJobTracker(t *testing.T) {
	metrics := NewMetrics()
	jobs := NewJobMetrics(metrics.Registerer())
	err := jobs.Track("registry:options:warm").End(errors.New("boom"))
	if err == nil {
		t.Fatal("tracker must return the error")
	}
	jobs.AddWarmed(3)
	body := scrape(t, metrics)
	if !strings.Contains(body, `console_jobs_total{job="registry:options:warm",status="failure"} 1`) {
		t.Fatalf("expected job failure, got: %s", body)
	}
	if !strings.Contains(body, "console_option_lists_warmed_total 3") {
		t.Fatalf("expected warmed counter, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveList("states", listctl.OutcomeError, 0)
	m.ObserveOptionLookup("states", "api")
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
