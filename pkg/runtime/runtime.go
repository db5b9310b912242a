package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	appconfig "github.com/saker-ai/realtime-assistant/internal/config"
	apphttp "github.com/saker-ai/realtime-assistant/internal/http"
	applogger "github.com/saker-ai/realtime-assistant/internal/logger"
	"github.com/saker-ai/realtime-assistant/internal/metrics"
	apptools "github.com/saker-ai/realtime-assistant/internal/tools"
	"github.com/saker-ai/realtime-assistant/internal/ws"
	"github.com/saker-ai/realtime-assistant/pkg/tools"
)

// Server is the assembled gateway: browser websocket bridge, tools, metrics.
type Server struct {
	cfg      appconfig.Config
	logger   *zap.Logger
	server   *http.Server
	registry *tools.Registry
	release  func()
}

// Bootstrap loads the configuration and builds the process logger.
func Bootstrap(configPath string) (appconfig.Config, *zap.Logger, error) {
	cfg, err := appconfig.LoadConfig(configPath)
	if err != nil {
		return appconfig.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := applogger.New(cfg.Log)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("logger config rejected; using production defaults", zap.Error(err))
	}
	logger.Info("config loaded",
		zap.String("config_path", configPath),
		zap.String("root_dir", cfg.RootDir),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("log_level", cfg.Log.Level),
	)
	return cfg, logger, nil
}

// BuildTools opens the tool backends and registers the assistant tools. The
// returned func releases the backends.
func BuildTools(ctx context.Context, cfg appconfig.Config, logger *zap.Logger) (*tools.Registry, func(), error) {
	backends, release := apptools.OpenBackends(ctx, cfg.Tools, logger)
	registry, err := apptools.NewRegistry(backends, cfg.Tools, logger)
	if err != nil {
		release()
		return nil, nil, err
	}
	logger.Info("tools registered", zap.Strings("tools", registry.Names()))
	return registry, release, nil
}

// New assembles a Server from the config at configPath.
func New(ctx context.Context, configPath string) (*Server, error) {
	cfg, logger, err := Bootstrap(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Realtime.Validate(); err != nil {
		logger.Warn("realtime endpoint missing; voice sessions will fail to connect", zap.Error(err))
	}

	registry, release, err := BuildTools(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build tools: %w", err)
	}

	m := metrics.New("")
	wsHandler := ws.NewHandler(logger.Named("ws"), cfg, registry, ws.WithMetrics(m))
	router := apphttp.NewRouter(cfg, wsHandler, m.Handler(), logger.Named("http"))

	return &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		release:  release,
		server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: router,
		},
	}, nil
}

// Run serves until Shutdown.
func (s *Server) Run() error {
	if s == nil || s.server == nil {
		return nil
	}
	err := listen(s.server, s.cfg, s.logger)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Logger returns the process logger.
func (s *Server) Logger() *zap.Logger {
	return s.logger
}

// Registry returns the tool registry shared by all sessions.
func (s *Server) Registry() *tools.Registry {
	return s.registry
}

// Shutdown stops the http server and releases the tool backends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if s.release != nil {
		s.release()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
