// Package server exposes the decision engine over HTTP so the hosting page
// runtime can enforce verdicts it cannot compute itself. The server never
// redirects anybody; it hands the verdict and the safe URL back to the host,
// which performs the navigation.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/config"
	"github.com/probaccess/sitegate/internal/engine"
	"github.com/probaccess/sitegate/internal/gate"
	"github.com/probaccess/sitegate/internal/model"
)

// Server serves access decisions over HTTP.
type Server struct {
	configPath string
	log        *zap.Logger
	metrics    *Metrics
	registry   *prometheus.Registry
	router     chi.Router
	httpServer *http.Server

	mu      sync.RWMutex
	gate    *gate.Gate
	cfgHash string
}

// New builds a Server from the config at configPath.
func New(configPath string, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg, hash, err := config.LoadWithHash(configPath)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		configPath: configPath,
		log:        log,
		metrics:    NewMetrics(registry),
		registry:   registry,
		gate:       gate.New(cfg, gate.Options{Logger: log}),
		cfgHash:    hash,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/v1/decide", s.handleDecide)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.router = r

	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the context is cancelled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("decision service listening", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Reload rebuilds the gate from the config file. Called by the fsnotify
// watcher on config changes.
func (s *Server) Reload() error {
	cfg, hash, err := config.LoadWithHash(s.configPath)
	if err != nil {
		return err
	}
	g := gate.New(cfg, gate.Options{Logger: s.log})

	s.mu.Lock()
	s.gate = g
	s.cfgHash = hash
	s.mu.Unlock()

	s.log.Info("configuration reloaded", zap.String("config_hash", hash))
	return nil
}

// decideResponse is the wire answer for one evaluation. SafeURL tells the
// host where to navigate on deny.
type decideResponse struct {
	Decision   model.AccessDecision `json:"decision"`
	SafeURL    string               `json:"safe_url"`
	ConfigHash string               `json:"config_hash"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	g := s.gate
	hash := s.cfgHash
	s.mu.RUnlock()

	start := time.Now()
	decision := g.Engine.Decide(r.Context(), req)
	s.metrics.Duration.Observe(time.Since(start).Seconds())
	s.metrics.Decisions.WithLabelValues(string(decision.Verdict), string(decision.Reason)).Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(decideResponse{
		Decision:   decision,
		SafeURL:    g.SafeURL,
		ConfigHash: hash,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	hash := s.cfgHash
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":      "ok",
		"config_hash": hash,
	})
}
