package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for claim changes, identity calls, access
// decisions and HTTP traffic. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	claimChanges      *prometheus.CounterVec
	identityCalls     *prometheus.HistogramVec
	accessDecisions   *prometheus.CounterVec
	recordsCreated    prometheus.Counter
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics registers all collectors on reg. A nil reg gets a fresh registry.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{gatherer: reg}

	m.claimChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aurora_admin_claim_changes_total",
		Help: "Admin claim changes by operation and outcome",
	}, []string{"op", "outcome"})

	m.identityCalls = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aurora_identity_call_duration_seconds",
		Help:    "Latency of identity provider calls",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"op", "result"})

	m.accessDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aurora_access_decisions_total",
		Help: "Access decisions by policy and result",
	}, []string{"policy", "result"})

	m.recordsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aurora_admin_records_created_total",
		Help: "Admin records created lazily on first authentication",
	})

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests processed",
	}, []string{"method", "route", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	for _, c := range []prometheus.Collector{
		m.claimChanges, m.identityCalls, m.accessDecisions, m.recordsCreated,
		m.httpRequestsTotal, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler exposes the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ClaimChange counts a grant/revoke/register/repair attempt.
func (m *Metrics) ClaimChange(op, outcome string) {
	if m == nil {
		return
	}
	m.claimChanges.WithLabelValues(op, outcome).Inc()
}

// IdentityCall observes one identity provider round trip.
func (m *Metrics) IdentityCall(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.identityCalls.WithLabelValues(op, result).Observe(time.Since(started).Seconds())
}

// AccessDecision counts an allow or deny.
func (m *Metrics) AccessDecision(policy string, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.accessDecisions.WithLabelValues(policy, result).Inc()
}

// RecordCreated counts a lazily created admin record.
func (m *Metrics) RecordCreated() {
	if m == nil {
		return
	}
	m.recordsCreated.Inc()
}

// HTTPRequest records a served request. route should be the route pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func statusLabel(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status)
}

// registerCollector registers c on reg, ignoring duplicates.
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}
