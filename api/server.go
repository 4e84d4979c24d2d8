package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"cosmossdk.io/log"
	"github.com/felixge/httpsnoop"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vaultshield/pools/api/handlers"
	"github.com/vaultshield/pools/api/middleware"
	apitypes "github.com/vaultshield/pools/api/types"
	"github.com/vaultshield/pools/api/websocket"
	"github.com/vaultshield/pools/metrics"
	"github.com/vaultshield/pools/pkg/confidential"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *Config

	ledger      *LedgerService
	hub         *websocket.Hub
	wsServer    *websocket.Server
	rateLimiter *middleware.RateLimiter
	metrics     *metrics.Collector
	logger      log.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new API server backed by an in-memory ledger
func NewServer(config *Config, collector *metrics.Collector, logger log.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var oracle confidential.Oracle
	if config.Oracle.Enabled {
		o, err := confidential.New(config.Oracle)
		if err != nil {
			return nil, fmt.Errorf("failed to create oracle: %w", err)
		}
		oracle = o
		logger.Info("Confidential oracle enabled", "backend", config.Oracle.Backend, "identity", o.Identity())
	} else {
		logger.Info("Confidential oracle disabled; investments and settlement will be refused")
	}

	ledger, err := NewLedgerService(config.Ledger, oracle, collector, logger)
	if err != nil {
		return nil, err
	}

	hubConfig := config.Hub
	hub := websocket.NewHub(&hubConfig, collector, logger)
	ledger.SetSink(hub)

	wsConfig := config.WebSocket
	rateConfig := config.RateLimit

	s := &Server{
		router:      mux.NewRouter(),
		config:      config,
		ledger:      ledger,
		hub:         hub,
		wsServer:    websocket.NewServer(hub, &wsConfig),
		rateLimiter: middleware.NewRateLimiter(&rateConfig, collector),
		metrics:     collector,
		logger:      logger.With("component", "api-server"),
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.instrument)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	s.router.Handle("/ws", s.wsServer)

	handlers.NewInvestpoolHandler(s.ledger, s.logger).RegisterRoutes(s.router)
}

// Handler returns the router wrapped in the middleware chain:
// recovery -> CORS -> rate limit -> router
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if !s.config.DisableRateLimit {
		h = middleware.RateLimitMiddleware(s.rateLimiter)(h)
	}
	h = gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(s.config.CORSOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)
	return gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(recoveryLogger{s.logger}),
	)(h)
}

// instrument records request counts and latency per route template
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(m.Code), float64(m.Duration.Microseconds())/1000.0)
	})
}

// Start starts the ledger, the event hub and the HTTP server. It blocks
// until the server stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.ledger.Run(ctx, s.config.Ledger.BlockTime)
	}()

	s.httpServer = &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("API server listening", "addr", s.config.Addr())
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.rateLimiter.Stop()
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return err
}

// Ledger returns the server's ledger
func (s *Server) Ledger() *LedgerService {
	return s.ledger
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	height, blockTime := s.ledger.Height()
	resp := apitypes.HealthResponse{
		Status:    "healthy",
		Height:    height,
		BlockTime: blockTime.Unix(),
		Clients:   s.hub.GetClientCount(),
	}
	if o := s.ledger.Oracle(); o != nil {
		resp.Oracle = o.Identity()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// recoveryLogger adapts the module logger for the recovery handler
type recoveryLogger struct {
	logger log.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("panic serving request", "panic", fmt.Sprint(v...))
}
