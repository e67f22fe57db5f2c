package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PresenceEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetally_presence_events_total",
			Help: "Total classified presence transitions processed",
		},
		[]string{"action"},
	)

	AnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetally_anomalies_total",
			Help: "Total recoverable anomalies (orphan closes, replaced sessions, dropped transitions)",
		},
		[]string{"kind"},
	)

	SilentSessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voicetally_silent_sessions_total",
			Help: "Total inactivity watchdog firings for sessions still silent after the quiet interval",
		},
	)

	OpenSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicetally_open_sessions",
			Help: "Number of currently open presence sessions",
		},
	)

	PersistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetally_persistence_errors_total",
			Help: "Total failed persistence writes",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		PresenceEventsTotal,
		AnomaliesTotal,
		SilentSessionsTotal,
		OpenSessions,
		PersistenceErrorsTotal,
	)
}

// Server exposes /metrics and /health. A nil Server (empty addr) is valid and
// means metrics export is disabled.
type Server struct {
	server *http.Server
}

func NewServer(addr string) *Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

func (s *Server) Start() {
	if s == nil {
		return
	}
	slog.Info("starting metrics server", "addr", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

func (s *Server) Stop() error {
	if s == nil {
		return nil
	}
	return s.server.Close()
}
