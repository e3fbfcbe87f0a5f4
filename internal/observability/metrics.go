package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/envutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// Metrics owns a private registry so tests can build as many as they like. Every
// method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	notificationsPersisted *prometheus.CounterVec
	emailsSent             *prometheus.CounterVec
	emailsFailed           *prometheus.CounterVec
	sweepRedeliveries      *prometheus.CounterVec
	adminSummaries         *prometheus.CounterVec

	assignmentConflicts prometheus.Counter
	autoAssignRuns      *prometheus.CounterVec
	autoAssignDuration  prometheus.Histogram
	reconcileFixed      prometheus.Counter
	reconcileFailed     prometheus.Counter
}

var (
	current   *Metrics
	currentMu sync.RWMutex
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics set by Init, or nil.
func Current() *Metrics {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// Init builds the process metrics when METRICS_ENABLED is on and returns nil otherwise.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	m := New()
	currentMu.Lock()
	current = m
	currentMu.Unlock()
	if log != nil {
		log.Info("prometheus metrics enabled")
	}
	return m
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total", Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "api_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "api_requests_inflight", Help: "HTTP requests being served.",
		}),
		notificationsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_persisted_total", Help: "Notification rows written, by type.",
		}, []string{"type"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_emails_sent_total", Help: "Emails accepted by the mail sender, by source.",
		}, []string{"source"}),
		emailsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_emails_failed_total", Help: "Email attempts that failed, by source.",
		}, []string{"source"}),
		sweepRedeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_sweep_redeliveries_total", Help: "Sweep re-delivery attempts, by outcome.",
		}, []string{"outcome"}),
		adminSummaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_unassigned_summaries_total", Help: "Admin unassigned summary emails, by outcome.",
		}, []string{"outcome"}),
		assignmentConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assignment_conflicts_total", Help: "Assignment inserts rejected as duplicates.",
		}),
		autoAssignRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auto_assign_runs_total", Help: "Auto-assign runs, by trigger and status.",
		}, []string{"trigger", "status"}),
		autoAssignDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "auto_assign_run_duration_seconds", Help: "Auto-assign run duration.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		reconcileFixed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gm_profile_reconcile_fixed_total", Help: "Profiles re-linked to a GM record.",
		}),
		reconcileFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gm_profile_reconcile_failed_total", Help: "Profiles whose GM link could not be repaired.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.notificationsPersisted, m.emailsSent, m.emailsFailed, m.sweepRedeliveries, m.adminSummaries,
		m.assignmentConflicts, m.autoAssignRuns, m.autoAssignDuration,
		m.reconcileFixed, m.reconcileFailed,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(method)
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncNotificationPersisted(notificationType string) {
	if m == nil {
		return
	}
	m.notificationsPersisted.WithLabelValues(notificationType).Inc()
}

func (m *Metrics) IncEmail(source string, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.emailsSent.WithLabelValues(source).Inc()
		return
	}
	m.emailsFailed.WithLabelValues(source).Inc()
}

func (m *Metrics) IncSweepRedelivery(outcome string) {
	if m == nil {
		return
	}
	m.sweepRedeliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncAdminSummary(outcome string) {
	if m == nil {
		return
	}
	m.adminSummaries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncAssignmentConflict() {
	if m == nil {
		return
	}
	m.assignmentConflicts.Inc()
}

func (m *Metrics) ObserveAutoAssignRun(trigger, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.autoAssignRuns.WithLabelValues(trigger, status).Inc()
	m.autoAssignDuration.Observe(dur.Seconds())
}

func (m *Metrics) AddReconcile(fixed, failed int) {
	if m == nil {
		return
	}
	m.reconcileFixed.Add(float64(fixed))
	m.reconcileFailed.Add(float64(failed))
}
