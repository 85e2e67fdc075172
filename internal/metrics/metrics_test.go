package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T, reg *Registry) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(w, req)
	return w.Body.String()
}

func TestRegistry_RecordRun(t *testing.T) {
	reg := NewRegistry()
	reg.RecordRun("ok", 1.5, 42)
	reg.RecordRun("failed", 0.1, 0)
	reg.RecordWarning("no_liquidity")

	body := scrape(t, reg)
	for _, want := range []string{
		`quantsim_runs_total{status="ok"} 1`,
		`quantsim_runs_total{status="failed"} 1`,
		`quantsim_trades_executed_total 42`,
		`quantsim_warnings_total{kind="no_liquidity"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestRegistry_JobGauge(t *testing.T) {
	reg := NewRegistry()
	reg.JobStarted()
	reg.JobStarted()
	reg.JobFinished()

	if !strings.Contains(scrape(t, reg), "quantsim_jobs_active 1") {
		t.Error("jobs_active gauge should read 1")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	reg := NewRegistry()
	handler := HTTPMiddleware(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest("GET", "/api/v1/backtests/x", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !strings.Contains(scrape(t, reg), `status="4xx"`) {
		t.Error("request status class not recorded")
	}
}
