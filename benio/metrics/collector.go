// Package metrics exports transfer counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	RoleClient = "client"
	RoleServer = "server"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Collector owns its registry, so several collectors can live in one
// process. All methods are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	bytesDelivered   *prometheus.CounterVec
	rawBytes         *prometheus.CounterVec
	transfersTotal   *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	activeTransfers  *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector creates a collector whose metric names start with
// namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		bytesDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_delivered_total",
				Help:      "Bytes delivered after filtering",
			},
			[]string{"role"},
		),
		rawBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "raw_bytes_total",
				Help:      "Bytes consumed from the underlying stream before filtering",
			},
			[]string{"role"},
		),
		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Finished per-endpoint transfers",
			},
			[]string{"role", "status"},
		),
		transferDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Per-endpoint transfer duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"role"},
		),
		activeTransfers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_transfers",
				Help:      "Transfers in progress",
			},
			[]string{"role"},
		),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// AddBytes records progress of a running transfer.
func (c *Collector) AddBytes(role string, delivered, raw int) {
	if c == nil {
		return
	}
	c.bytesDelivered.WithLabelValues(role).Add(float64(delivered))
	c.rawBytes.WithLabelValues(role).Add(float64(raw))
}

// Started marks a transfer as running until the returned func is called
// with its outcome.
func (c *Collector) Started(role string) func(err error, d time.Duration) {
	if c == nil {
		return func(error, time.Duration) {}
	}
	c.activeTransfers.WithLabelValues(role).Inc()
	return func(err error, d time.Duration) {
		c.activeTransfers.WithLabelValues(role).Dec()
		status := StatusOK
		if err != nil {
			status = StatusFailed
		}
		c.transfersTotal.WithLabelValues(role, status).Inc()
		c.transferDuration.WithLabelValues(role).Observe(d.Seconds())
	}
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, c *Collector) error {
	if c == nil {
		return errors.New("metrics: nil collector")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	c.logger.Info("metrics server listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
