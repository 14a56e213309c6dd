// Package metrics defines the server's Prometheus collectors. A nil
// *Metrics is valid and records nothing, which keeps tests free of
// registry plumbing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portcullis"

type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	decisions       *prometheus.CounterVec
	logsRecorded    *prometheus.CounterVec
	summaries       *prometheus.CounterVec
	summaryDuration prometheus.Histogram
	dbJobs          *prometheus.CounterVec
	dbJobDuration   prometheus.Histogram
	streamClients   prometheus.Gauge
	ingestMessages  *prometheus.CounterVec
	prunedLogs      prometheus.Counter
}

// New builds the collectors on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "access_decisions_total",
			Help: "Gate access decisions by outcome and reason.",
		}, []string{"access", "reason"}),
		logsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "access_logs_recorded_total",
			Help: "Access log records appended, by decision and source.",
		}, []string{"access", "source"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "summaries_total",
			Help: "Summary generations by outcome.",
		}, []string{"outcome"}),
		summaryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "summary_duration_seconds",
			Help:    "Time spent waiting on the language model.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		dbJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "db", Name: "write_jobs_total",
			Help: "Write transactions run by the single-writer worker.",
		}, []string{"outcome"}),
		dbJobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "db", Name: "write_job_duration_seconds",
			Help:    "Write transaction latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stream", Name: "clients",
			Help: "Connected live access-log subscribers.",
		}),
		ingestMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "messages_total",
			Help: "Queue messages consumed, by outcome.",
		}, []string{"outcome"}),
		prunedLogs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "access_logs_pruned_total",
			Help: "Access log records removed by retention.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount, m.requestDuration,
		m.decisions, m.logsRecorded,
		m.summaries, m.summaryDuration,
		m.dbJobs, m.dbJobDuration,
		m.streamClients, m.ingestMessages, m.prunedLogs,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) Decision(access, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(access, reason).Inc()
}

func (m *Metrics) LogRecorded(access, source string) {
	if m == nil {
		return
	}
	m.logsRecorded.WithLabelValues(access, source).Inc()
}

func (m *Metrics) Summary(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(outcome).Inc()
	m.summaryDuration.Observe(d.Seconds())
}

// DBJob matches db.Observer.
func (m *Metrics) DBJob(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.dbJobs.WithLabelValues(outcome).Inc()
	m.dbJobDuration.Observe(d.Seconds())
}

func (m *Metrics) StreamClients(n int) {
	if m == nil {
		return
	}
	m.streamClients.Set(float64(n))
}

func (m *Metrics) IngestMessage(outcome string) {
	if m == nil {
		return
	}
	m.ingestMessages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Pruned(n int64) {
	if m == nil {
		return
	}
	m.prunedLogs.Add(float64(n))
}
