package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.Decision("granted", "Scheduled entry")
	m.DBJob(time.Millisecond, nil)
	m.ObserveRequest("/v1/gates", "GET", 200, time.Millisecond)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := metrics.New()
	m.Decision("denied", "No active schedule")
	m.LogRecorded("denied", "api")
	m.DBJob(2*time.Millisecond, errors.New("x"))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`portcullis_access_decisions_total{access="denied",reason="No active schedule"} 1`,
		`portcullis_access_logs_recorded_total{access="denied",source="api"} 1`,
		`portcullis_db_write_jobs_total{outcome="error"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
