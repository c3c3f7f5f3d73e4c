// Package metrics exposes the dashboard's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh results.
const (
	RefreshOK       = "ok"
	RefreshError    = "error"
	RefreshStale    = "stale"
	RefreshCanceled = "canceled"
)

// Metrics holds all collectors, registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Refreshes     *prometheus.CounterVec
	Listings      prometheus.Gauge
	NewItems      prometheus.Gauge
	Notifications *prometheus.CounterVec
	WSClients     prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_refreshes_total",
			Help: "Listing refreshes by result",
		}, []string{"result"}),
		Listings: f.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_listings",
			Help: "Listings in the last applied fetch",
		}),
		NewItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_new_items",
			Help: "Unacknowledged new listings",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_notifications_total",
			Help: "Alert deliveries by sink and result",
		}, []string{"sink", "result"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_websocket_clients",
			Help: "Connected websocket clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
