package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_upstream_fetch_duration_seconds",
			Help:    "Duration of backend collection fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	upstreamFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_upstream_fetch_failures_total",
			Help: "Backend collection fetch failures by reason",
		},
		[]string{"collection", "reason"},
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_refresh_duration_seconds",
			Help:    "Duration of a full fetch and aggregate cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_refresh_total",
			Help: "Refresh cycles by outcome",
		},
		[]string{"outcome"},
	)

	activeAlerts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_active_alerts",
			Help: "Item count behind each alert kind in the last computed stats",
		},
		[]string{"kind"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_notifications_total",
			Help: "Notification jobs by channel and result",
		},
		[]string{"channel", "result"},
	)
)
