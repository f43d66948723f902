package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/periphery/internal/api/http"
	"github.com/GriffinCanCode/periphery/internal/api/middleware"
	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/config"
	"github.com/GriffinCanCode/periphery/internal/logging"
	"github.com/GriffinCanCode/periphery/internal/monitoring"
	"github.com/GriffinCanCode/periphery/internal/persistence"
	"github.com/GriffinCanCode/periphery/internal/providers/fs"
	"github.com/GriffinCanCode/periphery/internal/providers/monitor"
	"github.com/GriffinCanCode/periphery/internal/providers/mounter"
	"github.com/GriffinCanCode/periphery/internal/render"
	"github.com/GriffinCanCode/periphery/internal/script"
	"github.com/GriffinCanCode/periphery/internal/session"
	"github.com/GriffinCanCode/periphery/internal/vfs"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg       *config.Config
	logger    *logging.Logger
	router    *gin.Engine
	metrics   *monitoring.Metrics
	sessions  *session.Manager
	scheduler *render.Scheduler
	store     *persistence.Store
	monitors  []*monitor.Monitor

	closeOnce sync.Once
	closeErr  error
}

// New wires the capability registries, monitors, sessions, redraw scheduler
// and snapshot store behind the host API.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	logger.Info("Initializing periphery",
		zap.String("addr", cfg.Server.Addr()),
		zap.Strings("monitors", cfg.Terminal.Monitors),
		zap.String("default_language", cfg.Script.DefaultLanguage),
	)

	// A private registry lets several servers share one process.
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(promRegistry)

	scheduler := render.NewScheduler(cfg.Render.MaxRedrawsPerSecond,
		render.WithCounter(metrics),
		render.WithLogger(logger.Named("render").Logger),
	)

	capLogger := logger.Named("capability").Logger
	peripherals := capability.NewRegistry(capability.WithLogger(capLogger), capability.WithRecorder(metrics))
	apis := capability.NewRegistry(capability.WithLogger(capLogger), capability.WithRecorder(metrics))

	monitors := make([]*monitor.Monitor, 0, len(cfg.Terminal.Monitors))
	for _, name := range cfg.Terminal.Monitors {
		m := monitor.New(name, cfg.Terminal.MonitorWidth, cfg.Terminal.MonitorHeight, cfg.Terminal.MonitorColour, scheduler.Notify)
		if err := peripherals.Register(name, monitor.NewPeripheral(m)); err != nil {
			return nil, fmt.Errorf("failed to register monitor: %w", err)
		}
		scheduler.Add(m)
		monitors = append(monitors, m)
	}

	if err := apis.Register(mounter.Name, mounter.NewProvider(mounter.FromComputer,
		mounter.WithExposeHostPaths(cfg.Filesystem.ExposeHostPaths))); err != nil {
		return nil, err
	}
	if err := apis.Register(fs.Name, fs.NewProvider(fs.FromComputer)); err != nil {
		return nil, err
	}
	logger.Info("Capabilities registered",
		zap.Strings("peripherals", peripherals.Names()),
		zap.Strings("apis", apis.Names()),
	)

	var store *persistence.Store
	if cfg.Persistence.Enabled {
		var err error
		store, err = persistence.NewStore(cfg.Persistence.Dir,
			persistence.WithLogger(logger.Named("persistence").Logger),
			persistence.WithCounter(metrics),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot store: %w", err)
		}
	}

	sessions := session.NewManager(peripherals, apis, session.Options{
		Opener:          vfs.DirOpener{Roots: cfg.Filesystem.AllowedRoots},
		MountCapacity:   cfg.Filesystem.MountCapacity,
		MaxOpenFiles:    cfg.Filesystem.MaxOpenFiles,
		QueueSize:       cfg.Script.EventQueueSize,
		Timeout:         cfg.Script.Timeout.Std(),
		DefaultLanguage: script.Language(cfg.Script.DefaultLanguage),
		DataDir:         cfg.Filesystem.DataDir,
		ComputerSpace:   cfg.Filesystem.ComputerSpace,
		Logger:          logger.Named("session").Logger,
		MountGauge:      metrics.MountsActive,
		Metrics:         metrics,
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Named("http").Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.BodyLimit(middleware.MaxBodySize))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = float64(cfg.RateLimit.RequestsPerSecond)
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))
	handlers := apihttp.NewHandlers(sessions, scheduler, store, metrics, logger.Named("api").Logger)
	apihttp.RegisterRoutes(router, handlers)

	logger.Info("Server initialized successfully")

	return &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		metrics:   metrics,
		sessions:  sessions,
		scheduler: scheduler,
		store:     store,
		monitors:  monitors,
	}, nil
}

// Handler returns the HTTP handler serving the host API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Monitors returns the configured monitors in configuration order.
func (s *Server) Monitors() []*monitor.Monitor {
	return s.monitors
}

// Run serves HTTP and drives redraws until ctx ends, then shuts the HTTP
// server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = s.scheduler.Run(ctx)
	}()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// RestoreSnapshots loads the saved terminal of every monitor that has one.
// Failures are logged and skipped.
func (s *Server) RestoreSnapshots() int {
	if s.store == nil {
		return 0
	}
	restored := 0
	for _, m := range s.monitors {
		rec, err := s.store.Load(m.Name())
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("Failed to load snapshot", zap.String("monitor", m.Name()), zap.Error(err))
			continue
		}
		if persistence.Restore(m, rec) {
			restored++
		}
	}
	s.logger.Info("Snapshots restored", zap.Int("count", restored))
	return restored
}

// SaveSnapshots persists every attached monitor.
func (s *Server) SaveSnapshots() (int, error) {
	if s.store == nil {
		return 0, nil
	}
	var (
		saved int
		errs  []error
	)
	for _, m := range s.monitors {
		rec, ok := persistence.Capture(m)
		if !ok {
			continue
		}
		if err := s.store.Save(rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
			continue
		}
		saved++
	}
	s.logger.Info("Snapshots saved", zap.Int("count", saved))
	return saved, errors.Join(errs...)
}

// Close shuts every session down and releases the snapshot store. Safe to
// repeat.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down server...")
		s.sessions.CloseAll()
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				s.closeErr = fmt.Errorf("failed to close snapshot store: %w", err)
			}
		}
		_ = s.logger.Sync()
	})
	return s.closeErr
}
