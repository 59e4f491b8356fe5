package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics"
	"github.com/Aryiadm/physio-threat-engine/internal/config"
	"github.com/Aryiadm/physio-threat-engine/internal/db"
)

// Server exposes the analytics engine and the record store over REST.
type Server struct {
	config *config.Config

	// Core components
	engine *analytics.Engine
	store  db.Store
	logger *zap.Logger

	simulateLimiter *clientLimiter
	handler         http.Handler

	// HTTP server
	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup

	// State
	mu      sync.RWMutex
	running bool
}

// NewServer wires the router. logger may be nil.
func NewServer(cfg *config.Config, engine *analytics.Engine, store db.Store, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("analytics engine cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:          cfg,
		engine:          engine,
		store:           store,
		logger:          logger.Named("server"),
		simulateLimiter: newClientLimiter(cfg.Server.SimulateRatePerMin),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(RequestID, accessLog(s.logger))

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/records", s.handleUpsertRecords).Methods(http.MethodPost)
	api.HandleFunc("/records/{user_id}", s.handleListRecords).Methods(http.MethodGet)
	api.HandleFunc("/records/{user_id}/{date}", s.handleGetRecord).Methods(http.MethodGet)

	api.HandleFunc("/trust/{user_id}", s.handleTrust).Methods(http.MethodGet)
	api.HandleFunc("/trust/{user_id}/federated", s.handleFederatedTrust).Methods(http.MethodGet)
	api.HandleFunc("/anomaly/{user_id}", s.handleAnomalies).Methods(http.MethodGet)
	api.HandleFunc("/correlations/{user_id}", s.handleCorrelations).Methods(http.MethodGet)
	api.HandleFunc("/security/{user_id}", s.handleSecurity).Methods(http.MethodGet)

	api.HandleFunc("/simulate", s.simulateLimiter.wrap(s.handleSimulate)).Methods(http.MethodPost)
	api.HandleFunc("/simulations/{user_id}", s.handleListSimulations).Methods(http.MethodGet)

	// Subrouters resolve method mismatches themselves, so both need the handlers.
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "route not found", nil)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeInvalidRequest, "method not allowed", nil)
	})
	for _, rt := range []*mux.Router{router, api} {
		rt.NotFoundHandler = notFound
		rt.MethodNotAllowedHandler = methodNotAllowed
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(router)
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server is already running")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.running = true
	s.logger.Info("Physio threat engine server started",
		zap.String("addr", ln.Addr().String()),
		zap.String("database", s.config.Database.Type),
		zap.Int("simulate_rate_per_min", s.config.Server.SimulateRatePerMin))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Stopping server")
	err := srv.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
