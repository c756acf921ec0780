package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	lineItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_line_items_total",
			Help: "Purchase line items by outcome",
		},
		[]string{"outcome"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_issued_total",
			Help: "Tickets committed by the issuance transaction",
		},
	)

	issuanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketing_issuance_duration_seconds",
			Help:    "Duration of one line item issuance transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_verifications_total",
			Help: "Verification requests by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_deliveries_total",
			Help: "Ticket delivery attempts by status",
		},
		[]string{"status"},
	)

	retryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ticketing_delivery_retry_queue_length",
			Help: "Deliveries waiting in the retry queue",
		},
	)
)

// TrackLineItem counts one purchase line item. outcome is "issued" or an
// error kind.
func TrackLineItem(outcome string) {
	lineItems.WithLabelValues(outcome).Inc()
}

// TrackIssuance records a committed line item
func TrackIssuance(tickets int, duration time.Duration) {
	ticketsIssued.Add(float64(tickets))
	issuanceDuration.Observe(duration.Seconds())
}

// TrackVerification counts one verification request
func TrackVerification(action, outcome string) {
	verifications.WithLabelValues(action, outcome).Inc()
}

// TrackDelivery counts one delivery attempt
func TrackDelivery(status string) {
	deliveries.WithLabelValues(status).Inc()
}

// Monitor samples gauges that live outside the process
type Monitor struct {
	redis    *redis.Client
	retryKey string
}

// NewMonitor creates a monitor for the delivery retry queue stored at retryKey
func NewMonitor(redisClient *redis.Client, retryKey string) *Monitor {
	return &Monitor{redis: redisClient, retryKey: retryKey}
}

// Run samples until ctx is cancelled
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.collectQueueMetrics(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collectQueueMetrics(ctx context.Context) {
	length, err := m.redis.ZCard(ctx, m.retryKey).Result()
	if err != nil {
		slog.Debug("failed to sample retry queue length", "error", err)
		return
	}
	retryQueueDepth.Set(float64(length))
}
