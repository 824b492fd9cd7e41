package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
