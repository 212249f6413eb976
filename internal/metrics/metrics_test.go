package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTokenFetch(t *testing.T) {
	before := testutil.ToFloat64(tokenFetchesTotal.WithLabelValues("api", "success"))
	RecordTokenFetch("api", true)
	after := testutil.ToFloat64(tokenFetchesTotal.WithLabelValues("api", "success"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %v", after-before)
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/get-link", "400"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/get-link", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/get-link", "400"))
	if after-before != 1 {
		t.Errorf("expected one 400 recorded, got %v", after-before)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordFileExcluded()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "gofile_files_excluded_total") {
		t.Error("expected gofile_files_excluded_total in exposition")
	}
}
