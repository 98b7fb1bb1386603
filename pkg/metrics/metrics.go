package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voice"

// Pipeline results.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// Metrics owns a private registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	pipelineTotal     *prometheus.CounterVec
	pipelineDuration  prometheus.Histogram
	moderationFlagged prometheus.Counter
	uploadsTotal      *prometheus.CounterVec
	voiceMessages     *prometheus.GaugeVec

	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	systemMemoryUsage *prometheus.GaugeVec
	systemCPUUsage    prometheus.Gauge
	systemGoroutines  prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		pipelineTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_total",
				Help:      "Finished transcription pipeline runs by result",
			},
			[]string{"result"},
		),
		pipelineDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Time from Finish start to the final status",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		moderationFlagged: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moderation_flagged_total",
				Help:      "Transcripts in which at least one banned word was masked",
			},
		),
		uploadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Accepted and rejected audio uploads",
			},
			[]string{"result"},
		),
		voiceMessages: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "messages",
				Help:      "Voice messages by status",
			},
			[]string{"status"},
		),

		cacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		cacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		systemMemoryUsage: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "system_memory_usage_bytes",
				Help: "Host memory usage in bytes",
			},
			[]string{"type"},
		),
		systemCPUUsage: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "system_cpu_usage_percent",
				Help: "Host CPU usage percentage",
			},
		),
		systemGoroutines: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "system_goroutines",
				Help: "Number of goroutines",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPipeline counts one finished Finish run.
func (m *Metrics) RecordPipeline(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pipelineTotal.WithLabelValues(result).Inc()
	m.pipelineDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordModerationFlagged() {
	if m == nil {
		return
	}
	m.moderationFlagged.Inc()
}

func (m *Metrics) RecordUpload(result string) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(result).Inc()
}

// SetVoiceMessages publishes the per-status record counts.
func (m *Metrics) SetVoiceMessages(counts map[string]int64) {
	if m == nil {
		return
	}
	for status, n := range counts {
		m.voiceMessages.WithLabelValues(status).Set(float64(n))
	}
}

func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMissesTotal.WithLabelValues(cache).Inc()
}

// UpdateSystem copies a host snapshot into the system gauges.
func (m *Metrics) UpdateSystem(stats *SystemStats) {
	if m == nil || stats == nil {
		return
	}
	m.systemCPUUsage.Set(stats.CPU.UsagePercent)
	m.systemMemoryUsage.WithLabelValues("used").Set(float64(stats.Memory.Used))
	m.systemMemoryUsage.WithLabelValues("available").Set(float64(stats.Memory.Available))
	m.systemMemoryUsage.WithLabelValues("heap_alloc").Set(float64(stats.Runtime.HeapAlloc))
	m.systemGoroutines.Set(float64(stats.Runtime.Goroutines))
}
