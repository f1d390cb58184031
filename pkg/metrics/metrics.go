// Package metrics provides Prometheus metrics collection for the processor and generator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric exported by this module.
const Namespace = "plant"

// Registry is the process-wide registry behind /metrics. Collectors created by
// the New*Metrics constructors land here; the *With variants take any Registerer.
var Registry = NewRegistry()

// NewRegistry returns a registry preloaded with the Go runtime, process and
// build info collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	return reg
}

// Handler serves the global registry in the OpenMetrics format when the scraper asks for it.
func Handler() http.Handler {
	return HandlerFor(Registry)
}

// HandlerFor serves the metrics in reg and counts scrapes in reg itself.
// A partially failed collection still serves what was gathered.
func HandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
}

// MustRegister adds collectors to the global registry and panics on a duplicate.
func MustRegister(cs ...prometheus.Collector) {
	Registry.MustRegister(cs...)
}
