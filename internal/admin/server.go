// Package admin exposes the agent's operational HTTP surface: a liveness
// endpoint and the Prometheus metrics rendered from the agent's registry.
package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/logging"
)

// Server serves /health and /metrics on a dedicated listener.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *logging.Logger
}

// NewServer binds the admin listener on addr. Serving starts with Start.
func NewServer(addr string, metrics *fastlane.Metrics, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("admin")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fastlane.WrapError("LISTEN", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}, nil
}

// Addr returns the bound listener address, useful when addr used port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves requests until Shutdown. It does not block.
func (s *Server) Start() {
	s.logger.Info("admin server listening", "addr", s.Addr())
	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("admin server failed")
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("admin server stopping")
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
