// Package metrics exposes the Prometheus collectors of the API.
package metrics

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blokt"

// Metrics holds every collector. All recording methods are safe on a nil
// receiver so services can run without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	uploadBytes        *prometheus.CounterVec
	analysisJobs       *prometheus.CounterVec
	analysisDuration   prometheus.Histogram
	analysisQueueDepth prometheus.Gauge
	notifications      *prometheus.CounterVec
	procoreSyncs       *prometheus.CounterVec
	dashboardCache     *prometheus.CounterVec
}

// New creates a registry with the process/Go collectors and the API metrics.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken for HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes accepted by the upload endpoints",
		}, []string{"kind"}),
		analysisJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_jobs_total",
			Help:      "Video analysis jobs by outcome",
		}, []string{"result"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analyzing one video",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		analysisQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_queue_depth",
			Help:      "Analysis jobs waiting for a worker",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_notifications_total",
			Help:      "Safety alert notifications by outcome",
		}, []string{"result"}),
		procoreSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procore_syncs_total",
			Help:      "Procore sync runs by outcome",
		}, []string{"result"}),
		dashboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_lookups_total",
			Help:      "Dashboard cache lookups by outcome",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal, m.httpRequestDuration,
		m.uploadBytes, m.analysisJobs, m.analysisDuration, m.analysisQueueDepth,
		m.notifications, m.procoreSyncs, m.dashboardCache,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Middleware records request counts and latencies keyed by route template,
// so ids in paths do not explode label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ObserveUpload(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) ObserveAnalysis(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.analysisJobs.WithLabelValues(result).Inc()
	if d > 0 {
		m.analysisDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetAnalysisQueueDepth(n int) {
	if m == nil {
		return
	}
	m.analysisQueueDepth.Set(float64(n))
}

func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) ObserveProcoreSync(err error) {
	if m == nil {
		return
	}
	m.procoreSyncs.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) ObserveDashboardCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.dashboardCache.WithLabelValues("hit").Inc()
	} else {
		m.dashboardCache.WithLabelValues("miss").Inc()
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
