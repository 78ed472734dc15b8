package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// ReportSource provides the report of the last successful run.
type ReportSource interface {
	LastReport() (domain.Report, bool)
}

// Server serves the generated map directory plus health, readiness, metrics and the
// last report as JSON.
type Server struct {
	httpServer *http.Server
	reports    ReportSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /cells.json
// routes. Every other GET path is served from outputDir.
func NewServer(addr string, ready sharedobs.ReadinessChecker, reports ReportSource, outputDir string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reports: reports,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /cells.json", s.handleCells)
	mux.Handle("GET /", http.FileServer(http.Dir(outputDir)))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleCells(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.reports.LastReport()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "no report",
			"error":  "no run has completed yet",
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}
