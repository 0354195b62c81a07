// Package metrics provides Prometheus metrics for the support chat service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Chat pipeline
	ChatRequestsTotal *prometheus.CounterVec
	MatchScore        prometheus.Histogram

	// Knowledge base
	KnowledgeReloadsTotal *prometheus.CounterVec
	KnowledgeIssues       prometheus.Gauge

	// Sessions
	SessionsExpiredTotal   prometheus.Counter
	StoreOperationDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{gatherer: reg}

	m.ChatRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_requests_total",
			Help: "Total number of chat requests by resulting status",
		},
		[]string{"status"},
	)

	m.MatchScore = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_match_score",
			Help:    "Best keyword overlap score per non-empty chat message",
			Buckets: []float64{0, .1, .22, .33, .5, .67, .83, 1},
		},
	)

	m.KnowledgeReloadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_knowledge_reloads_total",
			Help: "Total number of knowledge base reads from disk",
		},
		[]string{"result"},
	)

	m.KnowledgeIssues = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_knowledge_issues",
			Help: "Number of issues in the currently loaded knowledge base",
		},
	)

	m.SessionsExpiredTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "support_sessions_expired_total",
			Help: "Total number of sessions removed by the expiry sweeper",
		},
	)

	m.StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_store_operation_duration_seconds",
			Help:    "Duration of session store operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)

	return m
}

// RecordChat records a chat outcome. score is ignored for NEED_MORE_INFO.
func (m *Metrics) RecordChat(status string, score float64) {
	if m == nil {
		return
	}
	m.ChatRequestsTotal.WithLabelValues(status).Inc()
	if status != "NEED_MORE_INFO" {
		m.MatchScore.Observe(score)
	}
}

// RecordReload records a knowledge base read.
func (m *Metrics) RecordReload(err error, issues int) {
	if m == nil {
		return
	}
	if err != nil {
		m.KnowledgeReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.KnowledgeReloadsTotal.WithLabelValues("ok").Inc()
	m.KnowledgeIssues.Set(float64(issues))
}

// RecordExpired records sessions removed by the sweeper.
func (m *Metrics) RecordExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsExpiredTotal.Add(float64(n))
}

// RecordStoreOperation records the duration of a session store call.
func (m *Metrics) RecordStoreOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler exposes the registered metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
