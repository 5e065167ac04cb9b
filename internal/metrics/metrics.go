package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"salesboard/internal/core"
)

// Failure reasons for dataset loads.
const (
	ReasonUnsupported = "unsupported_format"
	ReasonUnavailable = "source_unavailable"
	ReasonDecode      = "decode_error"
	ReasonTooLarge    = "too_large"
)

// DashboardMetrics records dataset loads and report renders.
type DashboardMetrics struct {
	loads        *prometheus.CounterVec
	loadFailures *prometheus.CounterVec
	renders      *prometheus.HistogramVec
	filteredRows prometheus.Histogram
	emptyPivots  prometheus.Counter
	sessions     prometheus.Gauge
	requests     *prometheus.HistogramVec
	rejected     *prometheus.CounterVec
}

// NewDashboardMetrics registers the dashboard metrics on the provided
// registerer. A nil registerer yields a no-op recorder.
func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	if reg == nil {
		return &DashboardMetrics{}
	}
	m := &DashboardMetrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesboard_dataset_loads_total",
			Help: "Datasets loaded, by format and origin.",
		}, []string{"format", "origin"}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesboard_dataset_load_failures_total",
			Help: "Dataset loads that failed, by reason.",
		}, []string{"reason"}),
		renders: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesboard_render_duration_seconds",
			Help:    "Time spent running the report pipeline.",
			Buckets: prometheus.DefBuckets,
		}, []string{"view"}),
		filteredRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesboard_filtered_rows",
			Help:    "Rows left in the filtered view per render.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		emptyPivots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesboard_empty_pivots_total",
			Help: "Renders where the category by segment pivot had no data.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salesboard_active_sessions",
			Help: "Sessions currently held in memory.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesboard_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesboard_http_rejected_total",
			Help: "Requests flagged or refused by the security middleware.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.loads, m.loadFailures, m.renders, m.filteredRows, m.emptyPivots, m.sessions, m.requests, m.rejected)
	return m
}

// IncLoad counts a successful load.
func (m *DashboardMetrics) IncLoad(format core.Format, origin string) {
	if m == nil || m.loads == nil {
		return
	}
	m.loads.WithLabelValues(normalizeLabel(string(format)), normalizeLabel(origin)).Inc()
}

// IncLoadFailure counts a failed load under the reason derived from err.
func (m *DashboardMetrics) IncLoadFailure(err error) {
	if m == nil || m.loadFailures == nil || err == nil {
		return
	}
	m.loadFailures.WithLabelValues(FailureReason(err)).Inc()
}

// ObserveRender records one pipeline run.
func (m *DashboardMetrics) ObserveRender(view string, d time.Duration, rows int, emptyPivot bool) {
	if m == nil || m.renders == nil {
		return
	}
	m.renders.WithLabelValues(normalizeLabel(view)).Observe(d.Seconds())
	m.filteredRows.Observe(float64(rows))
	if emptyPivot {
		m.emptyPivots.Inc()
	}
}

// SetSessions reports the number of live sessions.
func (m *DashboardMetrics) SetSessions(n int) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// ObserveRequest records one HTTP request under its route pattern.
func (m *DashboardMetrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(route), statusClass(status)).Observe(d.Seconds())
}

// IncRejected counts a request refused or flagged for reason.
func (m *DashboardMetrics) IncRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// FailureReason classifies a load error.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, core.ErrUnsupportedFormat):
		return ReasonUnsupported
	case errors.Is(err, core.ErrSourceUnavailable):
		return ReasonUnavailable
	case isTooLarge(err):
		return ReasonTooLarge
	}
	return ReasonDecode
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
