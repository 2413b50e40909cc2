package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// PingFunc checks a dependency for /healthz.
type PingFunc func(ctx context.Context) error

// NewRouter serves /metrics from gatherer and /healthz backed by ping.
func NewRouter(gatherer prometheus.Gatherer, ping PingFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if ping != nil {
			if err := ping(req.Context()); err != nil {
				http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// NewServer builds the ops HTTP server.
func NewServer(addr string, gatherer prometheus.Gatherer, ping PingFunc) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(gatherer, ping),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	log := logger.With("component", "metrics_server")

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Metrics server starting", "addr", srv.Addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.InfoContext(ctx, "Shutting down metrics server")
		return srv.Shutdown(shutdownCtx)
	}
}
