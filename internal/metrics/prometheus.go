// Package metrics exposes the agent's Prometheus collectors.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all agent metrics.
type Registry struct {
	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	CaptureBytes    prometheus.Histogram

	// Controller link
	ControllerConnected prometheus.Gauge
	ControllerReconnect prometheus.Counter

	// Local API
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostbridge_commands_total",
		Help: "Commands handled, by method and result code",
	}, []string{"method", "code"})

	r.CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hostbridge_command_duration_seconds",
		Help:    "Time spent handling a command",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	r.CaptureBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hostbridge_capture_bytes",
		Help:    "Size of encoded screen captures",
		Buckets: prometheus.ExponentialBuckets(64*1024, 2, 8),
	})

	r.ControllerConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hostbridge_controller_connected",
		Help: "1 while the controller link is registered",
	})

	r.ControllerReconnect = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostbridge_controller_reconnects_total",
		Help: "Times the controller link was lost",
	})

	r.APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostbridge_api_requests_total",
		Help: "Total local API requests",
	}, []string{"method", "path", "status"})

	r.APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hostbridge_api_request_duration_seconds",
		Help:    "Local API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	return r
}

// RecordCommand records one handled command.
func (r *Registry) RecordCommand(method, code string, took time.Duration) {
	r.CommandsTotal.WithLabelValues(method, code).Inc()
	r.CommandDuration.WithLabelValues(method).Observe(took.Seconds())
}

// RecordCapture records the size of an encoded capture.
func (r *Registry) RecordCapture(size int) {
	r.CaptureBytes.Observe(float64(size))
}

// SetControllerConnected updates the controller link gauge.
func (r *Registry) SetControllerConnected(connected bool) {
	if connected {
		r.ControllerConnected.Set(1)
	} else {
		r.ControllerConnected.Set(0)
	}
}

// RecordAPIRequest records a local API request.
func (r *Registry) RecordAPIRequest(method, path string, status int, took time.Duration) {
	r.APIRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.APILatency.WithLabelValues(method, path).Observe(took.Seconds())
}
