package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		statusCode int
		label      string
	}{
		{
			name:       "labels by route pattern",
			method:     http.MethodGet,
			path:       "/api/v1/catalog",
			statusCode: http.StatusTeapot,
			label:      "/api/v1/catalog",
		},
		{
			name:       "collapses unknown paths",
			method:     http.MethodPost,
			path:       "/wp-admin/setup.php",
			statusCode: http.StatusNotFound,
			label:      unmatchedPath,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			httpRequestsTotal.Reset()
			httpRequestDuration.Reset()
			httpRequestsInFlight.Set(0)

			handlerCalled := false
			r := chi.NewRouter()
			r.Use(Metrics)
			r.Get("/api/v1/catalog", func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(tc.statusCode)
			})
			r.NotFound(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(tc.statusCode)
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			rr := httptest.NewRecorder()

			r.ServeHTTP(rr, req)

			if !handlerCalled {
				t.Fatalf("next handler was not invoked")
			}

			if got := testutil.ToFloat64(httpRequestsInFlight); got != 0 {
				t.Fatalf("expected in-flight gauge to return to 0, got %v", got)
			}

			counter := httpRequestsTotal.WithLabelValues(tc.method, tc.label, strconv.Itoa(tc.statusCode))
			if got := testutil.ToFloat64(counter); got != 1 {
				t.Fatalf("expected counter to be 1, got %v", got)
			}
		})
	}
}

func TestNormalizePathOutsideRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if got := normalizePath(req); got != "/health" {
		t.Fatalf("normalizePath = %q, expected /health", got)
	}
}

func TestMetricsMiddlewareCountsReplays(t *testing.T) {
	httpIdempotentReplays.Reset()

	r := chi.NewRouter()
	r.Use(Metrics)
	r.Post("/api/v1/purchases/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(IdempotencyReplayHeader, "true")
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/purchases/", nil))
	}

	if got := testutil.ToFloat64(httpIdempotentReplays.WithLabelValues("/api/v1/purchases/")); got != 2 {
		t.Fatalf("expected 2 replays, got %v", got)
	}
}
