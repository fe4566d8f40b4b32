package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
)

// Timeout cancels the request context after limit. If the handler has not
// started its response by then, the client gets a 504 JSON error and the
// handler's later writes fail with http.ErrHandlerTimeout. Panics in the
// handler are re-raised on the serving goroutine.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			gw := &guardedWriter{w: w, header: w.Header().Clone()}
			done := make(chan any, 1)
			go func() {
				defer func() { done <- recover() }()
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case p := <-done:
				if p != nil {
					panic(p)
				}
				gw.mu.Lock()
				if !gw.started {
					gw.start()
				}
				gw.mu.Unlock()
			case <-ctx.Done():
				if gw.expire() {
					logger.FromContext(ctx).Warn("request timed out",
						"method", r.Method, "path", r.URL.Path, "limit", limit)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					w.Write([]byte(`{"error":"request timed out"}` + "\n"))
				}
			}
		})
	}
}

// guardedWriter gives the handler its own header map so a timed-out handler
// never touches the real response.
type guardedWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu      sync.Mutex
	started bool
	expired bool
}

func (g *guardedWriter) Header() http.Header { return g.header }

func (g *guardedWriter) WriteHeader(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired || g.started {
		return
	}
	g.start()
	g.w.WriteHeader(code)
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired {
		return 0, http.ErrHandlerTimeout
	}
	if !g.started {
		g.start()
	}
	return g.w.Write(b)
}

// start copies the handler's headers to the real response. Callers hold mu.
func (g *guardedWriter) start() {
	g.started = true
	dst := g.w.Header()
	for k, v := range g.header {
		dst[k] = v
	}
}

// expire reports whether the timeout response may still be written.
func (g *guardedWriter) expire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return false
	}
	g.expired = true
	return true
}
