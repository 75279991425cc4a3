package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/lms-backend/internal/broadcast"
	"github.com/stemsi/lms-backend/internal/model"
)

// MetricsService owns the Prometheus collectors. All methods are safe on a
// nil receiver so tests can leave metrics out.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	examEvents      *prometheus.CounterVec
	droppedEvents   *prometheus.CounterVec
	activeViews     prometheus.Gauge
	submissions     *prometheus.CounterVec
	resultsSaved    prometheus.Counter
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

	examEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_events_total",
		Help: "Exam lifecycle events published on the bus",
	}, []string{"kind"})

	droppedEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_events_dropped_total",
		Help: "Exam events discarded because a subscriber buffer was full",
	}, []string{"kind"})

	activeViews := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "student_views_active",
		Help: "Open live student exam views",
	})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attempt_submissions_total",
		Help: "Exam attempts submitted, by reason",
	}, []string{"reason"})

	resultsSaved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attempt_results_persisted_total",
		Help: "Attempt results written to PostgreSQL",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, examEvents, droppedEvents, activeViews, submissions, resultsSaved, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		examEvents:      examEvents,
		droppedEvents:   droppedEvents,
		activeViews:     activeViews,
		submissions:     submissions,
		resultsSaved:    resultsSaved,
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

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

func (m *MetricsService) ExamEvent(kind broadcast.Kind) {
	if m == nil {
		return
	}
	m.examEvents.WithLabelValues(string(kind)).Inc()
}

// EventDropped matches broadcast.DropFunc.
func (m *MetricsService) EventDropped(ev broadcast.Event) {
	if m == nil {
		return
	}
	m.droppedEvents.WithLabelValues(string(ev.Kind)).Inc()
}

func (m *MetricsService) ViewOpened() {
	if m == nil {
		return
	}
	m.activeViews.Inc()
}

func (m *MetricsService) ViewClosed() {
	if m == nil {
		return
	}
	m.activeViews.Dec()
}

func (m *MetricsService) AttemptSubmitted(reason model.SubmitReason) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(reason)).Inc()
}

func (m *MetricsService) ResultsPersisted(n int) {
	if m == nil {
		return
	}
	m.resultsSaved.Add(float64(n))
}
