package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/YmClash/vegapunk-sub006/orchestrator"
	"github.com/YmClash/vegapunk-sub006/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server hosts the daemon's HTTP surface: workflow execution, catalog reads,
// health, and Prometheus metrics on a single port.
type Server struct {
	cfg         *config.Config
	coordinator *orchestrator.Coordinator
	logger      *zap.Logger
	httpServer  *http.Server
	shutdownCh  chan os.Signal
}

func NewServer(cfg *config.Config, coordinator *orchestrator.Coordinator, logger *zap.Logger) *Server {
	return &Server{
		cfg:         cfg,
		coordinator: coordinator,
		logger:      logger.With(zap.String("component", "http_server")),
		shutdownCh:  make(chan os.Signal, 1),
	}
}

// Start begins serving; it does not block.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /version", s.handleVersion)

	mux.HandleFunc("POST /api/v1/workflows", s.handleExecuteWorkflow)
	mux.HandleFunc("GET /api/v1/workflows/{id}/metrics", s.handleWorkflowMetrics)
	mux.HandleFunc("GET /api/v1/tools", s.handleListTools)
	mux.HandleFunc("GET /api/v1/resources", s.handleListResources)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		Handler:      mux,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then drains the HTTP server.
func (s *Server) WaitForShutdown() {
	signal.Notify(s.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-s.shutdownCh
	s.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}
}

type workflowRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
}

func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "message and session_id are required")
		return
	}

	result := s.coordinator.ExecuteWorkflow(r.Context(), req.Message, req.SessionID, req.UserID)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWorkflowMetrics(w http.ResponseWriter, r *http.Request) {
	record, ok := s.coordinator.Metrics(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.coordinator.ToolBridge().AvailableTools(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.coordinator.ToolBridge().AvailableResources(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := s.coordinator.SystemHealth(r.Context())

	status := http.StatusOK
	if health.Status == types.HealthStateUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
