// Package router wires the chat HTTP routes and applies the middleware chain
// (MessageID → CORS → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	chathandler "github.com/Adithya-Monish-Kumar-K/phrasebot/internal/chat/handler"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/middleware"
)

// Config holds the HTTP-level settings of the router.
type Config struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// New builds the HTTP handler.
//
// Route table:
//
//	POST   /api/v1/messages                 → handle a chat message
//	GET    /api/v1/chats/{id}/probability   → effective reply probability
//	PUT    /api/v1/chats/{id}/probability   → set reply probability
//	DELETE /api/v1/chats/{id}/probability   → back to the default
//	GET    /api/v1/stats                    → corpus statistics
//	GET    /health/live                     → liveness
//	GET    /health/ready                    → readiness
//
// m may be nil, which skips request metrics.
func New(h *chathandler.Handler, checker *health.Checker, m *metrics.Metrics, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("POST /api/v1/messages", h.PostMessage)
	mux.HandleFunc("GET /api/v1/chats/{id}/probability", h.GetProbability)
	mux.HandleFunc("PUT /api/v1/chats/{id}/probability", h.PutProbability)
	mux.HandleFunc("DELETE /api/v1/chats/{id}/probability", h.DeleteProbability)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)

	var chain http.Handler = mux
	if cfg.RequestTimeout > 0 {
		chain = pkgmw.Timeout(cfg.RequestTimeout)(chain)
	}
	if m != nil {
		chain = pkgmw.Metrics(m)(chain)
	}
	if len(cfg.CORSOrigins) > 0 {
		chain = pkgmw.CORS(cfg.CORSOrigins)(chain)
	}
	chain = pkgmw.MessageID(chain)

	return chain
}
