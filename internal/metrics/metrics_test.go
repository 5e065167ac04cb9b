package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"salesboard/internal/core"
)

func TestNilRecorderIsNoop(t *testing.T) {
	var m *DashboardMetrics
	m.IncLoad(core.FormatCSV, "upload")
	m.IncLoadFailure(core.ErrSourceUnavailable)
	m.ObserveRender("api", time.Second, 3, true)
	m.SetSessions(2)

	empty := NewDashboardMetrics(nil)
	empty.IncLoad(core.FormatCSV, "upload")
	empty.ObserveRender("api", time.Second, 3, true)
}

func TestLoadCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDashboardMetrics(reg)

	m.IncLoad(core.FormatCSV, "upload")
	m.IncLoad(core.FormatCSV, "upload")
	m.IncLoad(core.FormatXLS, "")
	m.IncLoadFailure(&core.UnsupportedFormatError{Name: "a.json", Extension: ".json"})
	m.IncLoadFailure(fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}))
	m.IncLoadFailure(nil)

	families := gather(t, reg)
	if got := counterValue(families, "salesboard_dataset_loads_total", map[string]string{"format": "csv", "origin": "upload"}); got != 2 {
		t.Fatalf("csv loads = %v, want 2", got)
	}
	if got := counterValue(families, "salesboard_dataset_loads_total", map[string]string{"format": "xls", "origin": "unknown"}); got != 1 {
		t.Fatalf("xls loads = %v, want 1", got)
	}
	if got := counterValue(families, "salesboard_dataset_load_failures_total", map[string]string{"reason": ReasonUnsupported}); got != 1 {
		t.Fatalf("unsupported failures = %v", got)
	}
	if got := counterValue(families, "salesboard_dataset_load_failures_total", map[string]string{"reason": ReasonTooLarge}); got != 1 {
		t.Fatalf("too large failures = %v", got)
	}
}

func TestObserveRender(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDashboardMetrics(reg)

	m.ObserveRender("ui", 20*time.Millisecond, 12, false)
	m.ObserveRender("ui", 30*time.Millisecond, 0, true)
	m.SetSessions(4)

	families := gather(t, reg)
	mf := findMetricFamily(families, "salesboard_render_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("render histogram missing")
	}
	if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
		t.Fatalf("render samples = %d, want 2", got)
	}
	if got := counterValue(families, "salesboard_empty_pivots_total", nil); got != 1 {
		t.Fatalf("empty pivots = %v, want 1", got)
	}
	sessions := findMetricFamily(families, "salesboard_active_sessions")
	if sessions == nil || sessions.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("sessions gauge not set")
	}
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDashboardMetrics(reg)

	m.ObserveRequest("GET /api/report", 200, time.Millisecond)
	m.ObserveRequest("GET /api/report", 204, time.Millisecond)
	m.ObserveRequest("", 404, time.Millisecond)
	m.IncRejected("rate_limit")

	families := gather(t, reg)
	mf := findMetricFamily(families, "salesboard_http_request_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 2 {
		t.Fatalf("expected two request series, got %v", mf)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric, map[string]string{"route": "GET /api/report", "status": "2xx"}) &&
			metric.GetHistogram().GetSampleCount() != 2 {
			t.Fatalf("2xx samples = %d", metric.GetHistogram().GetSampleCount())
		}
	}
	if got := counterValue(families, "salesboard_http_rejected_total", map[string]string{"reason": "rate_limit"}); got != 1 {
		t.Fatalf("rejected = %v", got)
	}
}

func TestFailureReason(t *testing.T) {
	cases := map[error]string{
		&core.SourceUnavailableError{Location: "x.xls"}: ReasonUnavailable,
		fmt.Errorf("decode csv: bad quote"):               ReasonDecode,
	}
	for err, want := range cases {
		if got := FailureReason(err); got != want {
			t.Fatalf("FailureReason(%v) = %q, want %q", err, got, want)
		}
	}
}

func gather(t *testing.T, reg *prometheus.Registry) []*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	return families
}

func counterValue(families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	mf := findMetricFamily(families, name)
	if mf == nil {
		return 0
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric, labels) {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func findMetricFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(metric *dto.Metric, labels map[string]string) bool {
	for name, value := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
