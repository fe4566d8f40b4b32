// Package middleware provides the HTTP middleware of the chat API: message
// ids, CORS, Prometheus instrumentation and request timeouts.
package middleware

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/metrics"
)

// Metrics instruments requests with promhttp, labelling them by method,
// status code and route (see normalizePath).
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := prometheus.Labels{"path": normalizePath(r.URL.Path)}
			var h http.Handler = next
			h = promhttp.InstrumentHandlerCounter(m.HTTPRequestsTotal.MustCurryWith(route), h)
			h = promhttp.InstrumentHandlerDuration(m.HTTPRequestDuration.MustCurryWith(route), h)
			h = promhttp.InstrumentHandlerInFlight(m.HTTPRequestsInFlight, h)
			h.ServeHTTP(w, r)
		})
	}
}

// normalizePath collapses the chat id segment so per-chat routes share one
// label value.
func normalizePath(path string) string {
	const chats = "/api/v1/chats/"
	rest, ok := strings.CutPrefix(path, chats)
	if !ok {
		return path
	}
	if _, tail, found := strings.Cut(rest, "/"); found {
		return chats + "{id}/" + tail
	}
	return chats + "{id}"
}
