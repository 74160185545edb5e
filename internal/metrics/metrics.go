package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScanRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_scan_runs_total",
			Help: "Expiry scans by outcome",
		},
		[]string{"result"},
	)

	ScanCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_scan_candidates_total",
			Help: "Expiry candidates found by subject type",
		},
		[]string{"subject_type"},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "compliance_scan_duration_seconds",
			Help: "Duration of expiry scan runs in seconds",
		},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications persisted by type",
		},
		[]string{"type"},
	)

	NotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_suppressed_total",
			Help: "Notifications skipped by deduplication, by type",
		},
		[]string{"type"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Outbound deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
