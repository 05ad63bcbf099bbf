package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Claim outcomes used as the "result" label.
const (
	ClaimSuccess        = "success"
	ClaimInvalidToken   = "invalid_token"
	ClaimAlreadyClaimed = "already_claimed"
	ClaimValidation     = "validation"
	ClaimError          = "error"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry       *prometheus.Registry
	matchesIssued  prometheus.Counter
	qrFailures     prometheus.Counter
	claims         *prometheus.CounterVec
	leaderboardHit prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		matchesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagrush",
			Name:      "matches_issued_total",
			Help:      "Matches created by operators.",
		}),
		qrFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagrush",
			Name:      "qr_render_failures_total",
			Help:      "QR codes that failed to render.",
		}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tagrush",
			Name:      "claims_total",
			Help:      "Claim attempts by result.",
		}, []string{"result"}),
		leaderboardHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagrush",
			Name:      "leaderboard_reads_total",
			Help:      "Leaderboard queries served.",
		}),
	}

	reg.MustRegister(
		m.matchesIssued,
		m.qrFailures,
		m.claims,
		m.leaderboardHit,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) MatchIssued() {
	if m == nil {
		return
	}
	m.matchesIssued.Inc()
}

func (m *Metrics) QRFailed() {
	if m == nil {
		return
	}
	m.qrFailures.Inc()
}

func (m *Metrics) Claim(result string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(result).Inc()
}

func (m *Metrics) LeaderboardRead() {
	if m == nil {
		return
	}
	m.leaderboardHit.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
