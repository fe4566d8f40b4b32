package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const exporterShutdownTimeout = 5 * time.Second

// Exporter serves /metrics on a port of its own, away from the chat API.
type Exporter struct {
	server *http.Server
	logger *slog.Logger
}

func NewExporter(gatherer prometheus.Gatherer) *Exporter {
	log := slog.Default().With("component", "metrics")
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
	return &Exporter{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		logger: log,
	}
}

// Run serves on ln until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context, ln net.Listener) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), exporterShutdownTimeout)
		defer cancel()
		if err := e.server.Shutdown(shutdownCtx); err != nil {
			e.logger.Error("metrics exporter shutdown", "error", err)
		}
	}()

	e.logger.Info("metrics exporter listening", "addr", ln.Addr().String())
	if err := e.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics exporter: %w", err)
	}
	<-stopped
	return nil
}

// Serve exposes the default gatherer on port until ctx is cancelled.
func Serve(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("metrics exporter: %w", err)
	}
	return NewExporter(prometheus.DefaultGatherer).Run(ctx, ln)
}
