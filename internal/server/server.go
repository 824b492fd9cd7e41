package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/CSroseX/load-degradation-simulator/internal/analytics"
	"github.com/CSroseX/load-degradation-simulator/internal/config"
	"github.com/CSroseX/load-degradation-simulator/internal/middleware"
	"github.com/CSroseX/load-degradation-simulator/internal/simulator"
)

// Server exposes the simulated endpoints and the admin surface.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	sim        *simulator.Simulator
	profiles   []simulator.Profile
	metrics    *middleware.Metrics
	analytics  *analytics.Analytics
	httpServer *http.Server
}

// Options carries the collaborators of a Server. Analytics may be nil.
type Options struct {
	Config    *config.Config
	Logger    *zap.Logger
	Simulator *simulator.Simulator
	Profiles  []simulator.Profile
	Metrics   *middleware.Metrics
	Analytics *analytics.Analytics
}

func New(opts Options) (*Server, error) {
	if err := simulator.ValidateProfiles(opts.Profiles); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}

	s := &Server{
		cfg:       opts.Config,
		logger:    opts.Logger,
		sim:       opts.Simulator,
		profiles:  opts.Profiles,
		metrics:   opts.Metrics,
		analytics: opts.Analytics,
	}
	s.httpServer = &http.Server{
		Addr:              opts.Config.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Tracing)
	r.Use(s.metrics.Middleware)

	for _, p := range s.profiles {
		r.Method(http.MethodGet, p.Path, s.sim.Handler(p))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/admin/simulator/status", simulator.StatusHandler(s.sim, s.profiles))
	if s.analytics != nil {
		r.Get("/admin/analytics", analytics.Handler(s.analytics))
	}

	return r
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("simulator listening",
		zap.String("addr", s.httpServer.Addr),
		zap.Int("profiles", len(s.profiles)))

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.logger.Info("simulator stopped",
		zap.Int64("in_flight", s.sim.InFlight()),
		zap.Int64("total_requests", s.sim.Stats().TotalRequests))
	return err
}
