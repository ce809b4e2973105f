package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the optional secondary Prometheus gauges. This is
// additive instrumentation, not a spec requirement (spec §6 only names
// DogStatsD); it is disabled unless -metrics-addr is set.
type Collector struct {
	ConnectionsActive prometheus.Gauge
	QueueDepth        prometheus.Gauge
	ShipperInFlight   prometheus.Gauge
	EventsParsed      *prometheus.CounterVec
	BatchesShipped    *prometheus.CounterVec
}

// NewCollector registers the gauges/counters against a fresh registry and
// returns both, so Server can serve exactly this registry's metrics.
func NewCollector() (*Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()

	c := &Collector{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linehaul_connections_active",
			Help: "Number of currently open inbound TCP connections.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linehaul_queue_depth",
			Help: "Current depth of the bounded event queue.",
		}),
		ShipperInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linehaul_shipper_inflight",
			Help: "Number of shipper workers currently delivering a batch.",
		}),
		EventsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linehaul_events_parsed_total",
			Help: "Events processed by the parser, labeled by outcome.",
		}, []string{"outcome"}),
		BatchesShipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linehaul_batches_total",
			Help: "Batches handed to the shipper, labeled by final disposition.",
		}, []string{"disposition"}),
	}

	reg.MustRegister(c.ConnectionsActive, c.QueueDepth, c.ShipperInFlight, c.EventsParsed, c.BatchesShipped)
	return c, reg
}

// Server provides the optional HTTP /metrics and health endpoints.
type Server struct {
	addr   string
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a metrics server bound to addr, serving reg's
// registered collectors at /metrics.
func NewServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthHandler)

	return &Server{
		addr:   addr,
		logger: logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// Start starts the metrics server in a goroutine. Returns immediately;
// use Shutdown to stop it.
func (s *Server) Start() {
	s.logger.Info("metrics server starting", "addr", s.addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "error", err)
		}
	}()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
