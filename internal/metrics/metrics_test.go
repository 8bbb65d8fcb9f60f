package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordIngest(t *testing.T) {
	before := testutil.ToFloat64(ingestTotal.WithLabelValues("synced"))
	RecordIngest("synced")
	assert.Equal(t, before+1, testutil.ToFloat64(ingestTotal.WithLabelValues("synced")))
}

func TestRecordSyncAttempt(t *testing.T) {
	okBefore := testutil.ToFloat64(syncAttempts.WithLabelValues("http", "ok"))
	errBefore := testutil.ToFloat64(syncAttempts.WithLabelValues("http", "error"))

	RecordSyncAttempt("http", nil)
	RecordSyncAttempt("http", errors.New("boom"))
	RecordSyncAttempt("http", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(syncAttempts.WithLabelValues("http", "ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(syncAttempts.WithLabelValues("http", "error")))
}

func TestObserveStage(t *testing.T) {
	ObserveStage("ocr", 25*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(stageDuration), 1)
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/leads/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/leads/{id}", "404"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/leads/{id}", "404")))
}

func TestMiddleware_UnmatchedRouteLabel(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404"))

	for _, path := range []string{"/wp-admin/setup.php", "/.env", "/random-1234"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
