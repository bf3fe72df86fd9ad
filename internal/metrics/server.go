package metrics

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CreateMetricsServer registers the collectors on a dedicated registry and
// serves it on addr under /metrics. The listener is opened before returning
// so a bad address is reported to the caller.
func CreateMetricsServer(addr string, collectors ...prometheus.Collector) (*http.Server, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(promcollectors.NewGoCollector()); err != nil {
		return nil, err
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	slog.Info("Prometheus metrics server started", "addr", listener.Addr().String())
	return server, nil
}
