package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/mutation"
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
	metrics := NewMetrics(nil)

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "marketdesk_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "marketdesk_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestObserveMutation(t *testing.T) {
	metrics := NewMetrics(func() int { return 3 })
	metrics.ObserveMutation("orders", mutation.OpUpdate, mutation.ResultFailed)
	metrics.ObserveMutation("orders", mutation.OpUpdate, mutation.ResultFailed)

	body := scrape(t, metrics)
	if !strings.Contains(body, `marketdesk_mutations_total{op="update",result="failed",screen="orders"} 2`) {
		t.Fatalf("expected mutation counter, got: %s", body)
	}
	if !strings.Contains(body, "marketdesk_workspaces 3") {
		t.Fatalf("expected workspace gauge, got: %s", body)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveMutation("orders", mutation.OpCreate, mutation.ResultConfirmed)
}
