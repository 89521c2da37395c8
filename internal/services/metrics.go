package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContributionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "industry_contributions_total",
			Help: "Contributions by type and resulting status",
		},
		[]string{"type", "status"}, // status: pending, approved, rejected
	)

	UpstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "industry_upstream_call_seconds",
			Help:    "Tree builder and pricing call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"service", "status"},
	)

	DistributionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "industry_distribution_calculation_seconds",
			Help:    "Time to read and compute a project distribution",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	ProjectsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "industry_projects_created_total",
			Help: "Projects created with a generated bill of materials",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "industry_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

func recordContribution(contributionType, status string) {
	ContributionsTotal.WithLabelValues(contributionType, status).Inc()
}

func recordUpstreamCall(service string, err error, started time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	UpstreamCallDuration.WithLabelValues(service, status).Observe(time.Since(started).Seconds())
}

// RecordHTTPRequest is used by the request metrics middleware.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
