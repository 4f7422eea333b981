// Package telemetry wires the OpenTelemetry meter provider to a
// Prometheus scrape endpoint.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Telemetry owns the meter provider and its scrape handler.
type Telemetry struct {
	Provider *sdkmetric.MeterProvider
	Handler  http.Handler

	logger *slog.Logger
	ready  atomic.Bool
	server *http.Server
}

// Setup creates a meter provider exporting to a private Prometheus
// registry, which also carries the Go runtime collectors.
func Setup(serviceName, version string, logger *slog.Logger) (*Telemetry, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	logger.Info("telemetry initialized", slog.String("exporter", "prometheus"))

	return &Telemetry{
		Provider: provider,
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		logger:   logger,
	}, nil
}

// SetReady flips the /readyz answer.
func (t *Telemetry) SetReady(ready bool) { t.ready.Store(ready) }

// Mux serves /metrics, /healthz and /readyz.
func (t *Telemetry) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if t.ready.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})
	return mux
}

// Serve listens on bind in the background and returns the bound address.
func (t *Telemetry) Serve(bind string) (string, error) {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return "", fmt.Errorf("metrics listen: %w", err)
	}

	t.server = &http.Server{
		Handler:           t.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	t.logger.Info("metrics server started", slog.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown stops the server, if any, and flushes the provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		errs = append(errs, t.server.Shutdown(ctx))
	}
	errs = append(errs, t.Provider.Shutdown(ctx))
	return errors.Join(errs...)
}
