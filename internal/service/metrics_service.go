package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the
// caches and the academy's money flows.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	charges         *prometheus.CounterVec
	chargedPesos    *prometheus.CounterVec
	attendanceMarks *prometheus.CounterVec
	payrollTotal    prometheus.Gauge
	adviceFallbacks *prometheus.CounterVec
	reportJobs      *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	charges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_enrollment_charges_total",
		Help: "Enrollment plans charged, by category and settlement",
	}, []string{"category", "settlement"})

	chargedPesos := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_enrollment_charged_pesos_total",
		Help: "Pesos charged for enrollment plans, by category",
	}, []string{"category"})

	attendanceMarks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_attendance_marks_total",
		Help: "Attendance marks, by status",
	}, []string{"status"})

	payrollTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "academy_payroll_total_pesos",
		Help: "School-wide payroll total from the last computation",
	})

	adviceFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_advice_fallbacks_total",
		Help: "Advice requests answered with the static fallback, by kind",
	}, []string{"kind"})

	reportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_report_jobs_total",
		Help: "Report jobs reaching a terminal state",
	}, []string{"type", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		charges, chargedPesos, attendanceMarks, payrollTotal, adviceFallbacks, reportJobs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		charges:         charges,
		chargedPesos:    chargedPesos,
		attendanceMarks: attendanceMarks,
		payrollTotal:    payrollTotal,
		adviceFallbacks: adviceFallbacks,
		reportJobs:      reportJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordCharge counts an enrollment charge.
func (m *MetricsService) RecordCharge(category string, paidNow bool, amount int64) {
	if m == nil {
		return
	}
	settlement := "debt"
	if paidNow {
		settlement = "paid_now"
	}
	m.charges.WithLabelValues(category, settlement).Inc()
	if amount > 0 {
		m.chargedPesos.WithLabelValues(category).Add(float64(amount))
	}
}

// RecordAttendance counts an attendance mark.
func (m *MetricsService) RecordAttendance(status string) {
	if m == nil {
		return
	}
	m.attendanceMarks.WithLabelValues(status).Inc()
}

// SetPayrollTotal publishes the latest school-wide payroll total.
func (m *MetricsService) SetPayrollTotal(total int64) {
	if m == nil {
		return
	}
	m.payrollTotal.Set(float64(total))
}

// RecordAdviceFallback counts advice answered without the generative endpoint.
func (m *MetricsService) RecordAdviceFallback(kind string) {
	if m == nil {
		return
	}
	m.adviceFallbacks.WithLabelValues(kind).Inc()
}

// RecordReportJob counts a report job reaching status.
func (m *MetricsService) RecordReportJob(reportType, status string) {
	if m == nil {
		return
	}
	m.reportJobs.WithLabelValues(reportType, status).Inc()
}
