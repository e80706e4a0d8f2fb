// Package metrics provides Prometheus metrics for remotefs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Connection states reported by SetConnectionState.
var connectionStates = []string{"disconnected", "connecting", "connected", "error"}

var (
	// Remote client metrics
	remoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotefs_remote_requests_total",
			Help: "Total number of requests sent to the remote server",
		},
		[]string{"op", "outcome"},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remotefs_remote_request_duration_seconds",
			Help:    "Remote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	remoteBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remotefs_remote_bytes_uploaded_total",
			Help: "Total bytes uploaded to the remote server",
		},
	)

	remoteBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remotefs_remote_bytes_downloaded_total",
			Help: "Total bytes read from the remote server",
		},
	)

	// Listing parser metrics
	listingParsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotefs_listing_parses_total",
			Help: "Listing pages parsed, by the strategy that succeeded",
		},
		[]string{"strategy"},
	)

	// Overlay metrics
	overlayEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remotefs_overlay_entries",
			Help: "Number of entries held in the virtual overlay",
		},
	)

	// Facade metrics
	facadeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotefs_facade_operations_total",
			Help: "Facade operations, by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// Connection metrics
	connectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remotefs_connection_state",
			Help: "1 for the current connection state, 0 otherwise",
		},
		[]string{"state"},
	)

	connectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotefs_connect_attempts_total",
			Help: "Connection attempts, by result",
		},
		[]string{"result"},
	)

	// Dev server metrics
	devHTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotefs_devserver_requests_total",
			Help: "Requests served by the development server",
		},
		[]string{"method", "action", "status"},
	)
)

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordRemote records one remote request started at start.
func RecordRemote(op string, start time.Time, err error) {
	remoteRequestsTotal.WithLabelValues(op, outcome(err)).Inc()
	remoteRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func RecordUpload(n int) {
	remoteBytesUploaded.Add(float64(n))
}

func RecordDownload(n int) {
	remoteBytesDownloaded.Add(float64(n))
}

// ParsedWith counts a listing page handled by the named strategy.
func ParsedWith(strategy string) {
	listingParsesTotal.WithLabelValues(strategy).Inc()
}

func SetOverlayEntries(n int) {
	overlayEntries.Set(float64(n))
}

func RecordFacadeOp(op string, err error) {
	facadeOpsTotal.WithLabelValues(op, outcome(err)).Inc()
}

// SetConnectionState marks state as current and clears the others.
func SetConnectionState(state string) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		connectionState.WithLabelValues(s).Set(v)
	}
}

func RecordConnectAttempt(result string) {
	connectAttempts.WithLabelValues(result).Inc()
}

func RecordDevRequest(method, action string, status int) {
	devHTTPRequests.WithLabelValues(method, action, strconv.Itoa(status)).Inc()
}
