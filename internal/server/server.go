package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/AgentOS/isolation/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/frametree"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/policy"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/renderer"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	breakers *resilience.Set
	coord    *frametree.Coordinator
	remote   *process.RemoteLauncher
	router   *gin.Engine
}

// Option adjusts server construction
type Option func(*options)

type options struct {
	logger  *logging.Logger
	starter process.Starter
}

// WithLogger replaces the logger built from the configuration
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStarter replaces how remote renderers are started
func WithStarter(start process.Starter) Option {
	return func(o *options) { o.starter = start }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
	}

	logger.Info("Initializing isolation coordinator",
		zap.String("addr", cfg.Addr()),
		zap.String("renderer_mode", cfg.Process.RendererMode),
		zap.Bool("site_per_process", cfg.Isolation.SitePerProcess),
	)

	// Metrics first, everything else reports into them
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	tracer := tracing.New("coordinator", logger.Logger)

	pol, err := policy.Load(cfg.Isolation.PolicyFile)
	if err != nil {
		return nil, err
	}
	resolver, err := site.NewResolver(cfg.Isolation.SitePerProcess, cfg.Isolation.IsolatedOrigins)
	if err != nil {
		return nil, err
	}

	breakers := resilience.NewSet(resilience.Settings{
		Timeout: cfg.Breaker.Cooldown,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("launch breaker state changed",
				zap.String("key", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	s := &Server{
		config:   cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		tracer:   tracer,
		breakers: breakers,
	}

	var launcher process.Launcher
	switch cfg.Process.RendererMode {
	case "remote":
		s.remote = process.NewRemoteLauncher(process.RemoteConfig{
			Path:           cfg.Process.RendererPath,
			CoordinatorURL: cfg.IPCURL(),
			LaunchTimeout:  cfg.Process.LaunchTimeout,
		}, o.starter, logger.Named("process").Logger)
		launcher = s.remote
	default:
		rendererLogger := logger.Named("renderer").Logger
		launcher = process.NewLocalLauncher(func(pid types.ProcessID, key string, reply func(ipc.Message)) process.Endpoint {
			return renderer.New(pid, key, reply, renderer.WithLogger(rendererLogger))
		}, logger.Named("process").Logger)
	}

	s.coord = frametree.New(frametree.Options{
		Launcher:      launcher,
		Resolver:      resolver,
		Policy:        pol,
		UnloadTimeout: cfg.Process.UnloadTimeout,
		MaxProcesses:  cfg.Process.MaxProcesses,
		Breakers:      breakers,
		Logger:        logger.Logger,
		Metrics:       metrics,
		Tracer:        tracer,
	})

	s.router = s.routes()
	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.BodyLimit(middleware.MaxBodySize))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(s.config.Server.CORSOrigins...)))
	if rl := s.config.RateLimit; rl.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", rl.RequestsPerSecond),
			zap.Int("burst", rl.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = rl.RequestsPerSecond
		limit.Burst = rl.Burst
		router.Use(middleware.RateLimit(limit))
	}

	api.NewHandlers(s.coord, s.metrics, s.breakers, s.tracer, s.logger.Logger).Register(router)

	// A nil *RemoteLauncher must not become a non-nil interface
	var attacher ws.Attacher
	if s.remote != nil {
		attacher = s.remote
	}
	router.GET("/ipc", ws.NewHandler(attacher, 0, s.logger.Logger).HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})))
	return router
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// Coordinator returns the frame tree coordinator
func (s *Server) Coordinator() *frametree.Coordinator { return s.coord }

// Run serves HTTP and drives the coordinator until ctx is cancelled, then
// shuts both down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.Close()
	return err
}

// Close terminates content processes and flushes logs
func (s *Server) Close() {
	s.logger.Info("Shutting down server...")
	s.coord.Shutdown()
	s.tracer.Close()
	_ = s.logger.Sync()
}
