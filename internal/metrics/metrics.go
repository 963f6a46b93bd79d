package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Total number of accepted registrations per tenant",
		},
		[]string{"tenant"},
	)

	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_validation_failures_total",
			Help: "Total number of submissions rejected by validation per tenant",
		},
		[]string{"tenant"},
	)

	TenantHandlesOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_handles_open",
			Help: "Number of per-tenant storage handles currently cached",
		},
	)

	HandleOpenFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_handle_open_failures_total",
			Help: "Total number of failed tenant storage handle opens",
		},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(RegistrationsTotal)
	prometheus.MustRegister(ValidationFailures)
	prometheus.MustRegister(TenantHandlesOpen)
	prometheus.MustRegister(HandleOpenFailures)
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
