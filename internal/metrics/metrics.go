package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uniusa/verify-bot/internal/health"
)

var (
	// Interaction surface metrics

	InteractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verifybot",
		Name:      "interactions_total",
		Help:      "Total inbound interactions, by classified kind.",
	}, []string{"kind"})

	VerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verifybot",
		Name:      "verifications_total",
		Help:      "Total code submissions, by outcome.",
	}, []string{"outcome"})

	PendingCodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "verifybot",
		Name:      "pending_codes",
		Help:      "Number of verification codes currently outstanding.",
	})

	// Membership API metrics

	MemberLookupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "verifybot",
		Name:      "member_lookup_duration_seconds",
		Help:      "Duration of membership directory lookups.",
		Buckets:   prometheus.DefBuckets,
	})

	TokenRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verifybot",
		Name:      "token_refreshes_total",
		Help:      "Total membership-API token refreshes, by outcome.",
	}, []string{"outcome"})

	EmailsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verifybot",
		Name:      "emails_sent_total",
		Help:      "Total verification emails dispatched, by outcome.",
	}, []string{"outcome"})
)

func Register() {
	prometheus.MustRegister(
		InteractionsTotal,
		VerificationsTotal,
		PendingCodes,
		MemberLookupDuration,
		TokenRefreshesTotal,
		EmailsSentTotal,
	)
}

// NewServer returns the side HTTP server exposing metrics and health.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
