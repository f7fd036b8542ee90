package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VendorSendDuration tracks the latency of simulated vendor sends
	VendorSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "crm_vendor_send_duration_seconds",
			Help: "Duration of simulated vendor send calls in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
			},
		},
		[]string{"status"}, // sent, failed or error
	)

	// AudiencePreviewDuration tracks the latency of full-audience rule scans
	AudiencePreviewDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crm_audience_preview_duration_seconds",
			Help:    "Duration of audience preview scans in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ReceiptsProcessed counts vendor receipt callbacks by outcome
	ReceiptsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_vendor_receipts_total",
			Help: "Vendor delivery receipts processed, by outcome",
		},
		[]string{"outcome"}, // applied or not_found
	)
)

// RecordVendorSendDuration records the duration of one simulated send
func RecordVendorSendDuration(status string, duration float64) {
	VendorSendDuration.WithLabelValues(status).Observe(duration)
}

// RecordReceipt counts one processed vendor receipt
func RecordReceipt(outcome string) {
	ReceiptsProcessed.WithLabelValues(outcome).Inc()
}
