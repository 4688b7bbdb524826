package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	factDomain "github.com/reshetovitsme/catfacts-bot/internal/modules/fact/domain"
	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/plugin"
	"github.com/reshetovitsme/catfacts-bot/internal/scheduler"
	"github.com/reshetovitsme/catfacts-bot/internal/shared/config"
	sloghttp "github.com/samber/slog-http"
)

// PluginRegistry exposes the host's view of plugins
type PluginRegistry interface {
	Active() []string
	PluginConfig(pluginName string) (factDomain.Config, bool)
}

// JobLister exposes scheduled jobs
type JobLister interface {
	Jobs() []scheduler.Job
}

// Status is the body of GET /status
type Status struct {
	AppEnv        string             `json:"app_env"`
	ActivePlugins []string           `json:"active_plugins"`
	Catfacts      *factDomain.Config `json:"catfacts,omitempty"`
	Jobs          []scheduler.Job    `json:"jobs"`
}

// Server exposes health and status endpoints
type Server struct {
	cfg     *config.Config
	plugins PluginRegistry
	jobs    JobLister
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server
func New(cfg *config.Config, plugins PluginRegistry, jobs JobLister) *Server {
	return &Server{
		cfg:     cfg,
		plugins: plugins,
		jobs:    jobs,
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler builds the routed handler with logging and recovery middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)
	return handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop closes the listener
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		AppEnv:        s.cfg.AppEnv.String(),
		ActivePlugins: s.plugins.Active(),
		Jobs:          s.jobs.Jobs(),
	}
	if cfg, ok := s.plugins.PluginConfig(plugin.Name); ok {
		status.Catfacts = &cfg
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Error encoding status", "error", err)
	}
}
