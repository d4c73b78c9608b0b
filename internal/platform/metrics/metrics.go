package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellness_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wellness_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellness_questionnaire_submissions_total",
		Help: "Questionnaire submissions by computed risk category",
	}, []string{"risk_category"})

	followupTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellness_followup_status_changes_total",
		Help: "Follow-up status updates by target status",
	}, []string{"status"})

	followupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wellness_followups_created_total",
		Help: "Follow-ups created through scheduling or intake",
	})

	intakes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellness_client_intakes_total",
		Help: "Client intake attempts by result",
	}, []string{"result"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellness_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellness_cache_lookups_total",
		Help: "Reference cache lookups by result",
	}, []string{"cache", "result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func ObserveSubmission(riskCategory string) {
	submissionsTotal.WithLabelValues(riskCategory).Inc()
}

func ObserveFollowupStatus(status string) {
	followupTransitions.WithLabelValues(status).Inc()
}

func ObserveFollowupCreated() {
	followupsCreated.Inc()
}

// ObserveIntake counts an intake attempt; result is "ok" or the failed step.
func ObserveIntake(result string) {
	intakes.WithLabelValues(result).Inc()
}

func ObserveLogin(result string) {
	logins.WithLabelValues(result).Inc()
}

// ObserveCacheLookup records a hit, miss or error for the named cache.
func ObserveCacheLookup(cache, result string) {
	cacheLookups.WithLabelValues(cache, result).Inc()
}
