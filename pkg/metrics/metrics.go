package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ⭐ SSOT: 모든 Prometheus 지표는 여기서만 정의
var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "curator_signals_total", Help: "Signals emitted by the watchtower"},
		[]string{"type"},
	)
	DraftsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "curator_drafts_total", Help: "Drafts by outcome (created, approved, rejected, published, publish_failed)"},
		[]string{"outcome"},
	)
	PollFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "curator_poll_failures_total", Help: "Failed watchtower polls per category"},
		[]string{"category"},
	)
	InstancesOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "curator_instances_opened_total", Help: "Market instances opened by the lifecycle scheduler"},
		[]string{"kind"},
	)
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "curator_resolutions_total", Help: "Judge verdicts per kind and outcome"},
		[]string{"kind", "outcome"},
	)
	PendingDrafts = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "curator_pending_drafts", Help: "Drafts awaiting review"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsTotal,
		DraftsTotal,
		PollFailuresTotal,
		InstancesOpenedTotal,
		ResolutionsTotal,
		PendingDrafts,
	)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server serves /metrics on its own port
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves until Shutdown; http.ErrServerClosed is not reported
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
