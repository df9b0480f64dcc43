// Package metrics exposes pipeline counters in the Prometheus format.
//
// A nil *Metrics is valid and records nothing, so components take one
// unconditionally.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keymapd"

// Metrics holds the daemon's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	resolved    *prometheus.CounterVec
	notFound    prometheus.Counter
	dispatched  *prometheus.HistogramVec
	dispatchErr *prometheus.CounterVec
	modeSwitch  *prometheus.CounterVec
	reloads     *prometheus.CounterVec
	bindings    prometheus.Gauge
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Keyboard events seen by the capture handler, by verdict.",
		}, []string{"verdict"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Chords waiting for the consumer.",
		}),
		resolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequences_resolved_total",
			Help:      "Key sequences that resolved to an action, by action kind.",
		}, []string{"kind"}),
		notFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_not_found_total",
			Help:      "Chords with no binding at the current position.",
		}),
		dispatched: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching actions, by action kind.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"kind"}),
		dispatchErr: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Failed dispatches, by action kind.",
		}, []string{"kind"}),
		modeSwitch: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_switches_total",
			Help:      "Mode switches, by target mode.",
		}, []string{"mode"}),
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keymap_reloads_total",
			Help:      "Keymap file loads, by result.",
		}, []string{"result"}),
		bindings: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bindings",
			Help:      "Bindings installed across all modes.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveEvent(verdict string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(verdict).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) ObserveResolved(kind string) {
	if m == nil {
		return
	}
	m.resolved.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveKeyNotFound() {
	if m == nil {
		return
	}
	m.notFound.Inc()
}

// ObserveDispatch records one dispatch and whether it failed.
func (m *Metrics) ObserveDispatch(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		m.dispatchErr.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveModeSwitch(mode string) {
	if m == nil {
		return
	}
	m.modeSwitch.WithLabelValues(mode).Inc()
}

// ObserveReload records a keymap load and the resulting binding count.
func (m *Metrics) ObserveReload(bindings int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reloads.WithLabelValues("error").Inc()
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
	m.bindings.Set(float64(bindings))
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return m.serve(ctx, ln)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	}
}
