// Package tools assembles the assistant tool registry from configuration.
package tools

import (
	"context"

	"go.uber.org/zap"

	"github.com/saker-ai/realtime-assistant/internal/config"
	"github.com/saker-ai/realtime-assistant/internal/tools/academics"
	"github.com/saker-ai/realtime-assistant/internal/tools/issues"
	"github.com/saker-ai/realtime-assistant/internal/tools/search"
	pkgtools "github.com/saker-ai/realtime-assistant/pkg/tools"
)

// Backends are the services behind the tools. A nil store or an unconfigured
// client makes its tools answer with their apology text.
type Backends struct {
	Search    *search.Client
	Issues    *issues.Client
	Academics academics.RecordStore
}

// NewRegistry registers every assistant tool over backends.
func NewRegistry(b Backends, cfg config.ToolsConfig, logger *zap.Logger) (*pkgtools.Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if b.Search == nil {
		b.Search = search.New(search.Config{})
	}
	if b.Issues == nil {
		b.Issues = issues.New(issues.Config{})
	}

	registry := pkgtools.NewRegistry(
		pkgtools.WithTimeout(cfg.Timeout),
		pkgtools.WithLogger(logger.Named("tools")),
	)
	all := []*pkgtools.Tool{
		b.Search.Tool(),
		academics.NewTool(b.Academics, logger.Named("academics")),
	}
	all = append(all, b.Issues.Tools()...)
	if err := registry.Register(all...); err != nil {
		return nil, err
	}
	return registry, nil
}

// OpenBackends builds the backends from cfg. Backends that cannot be reached
// are logged and left degraded. The returned func releases them.
func OpenBackends(ctx context.Context, cfg config.ToolsConfig, logger *zap.Logger) (Backends, func()) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := Backends{
		Search: search.New(search.Config{
			URL:            cfg.Search.URL,
			APIKey:         cfg.Search.APIKey,
			Index:          cfg.Search.Index,
			SemanticConfig: cfg.Search.SemanticConfig,
			APIVersion:     cfg.Search.APIVersion,
			Top:            cfg.Search.Top,
		}, search.WithLogger(logger.Named("search"))),
		Issues: issues.New(issues.Config{
			URL:         cfg.Issues.URL,
			Username:    cfg.Issues.Username,
			APIKey:      cfg.Issues.APIKey,
			ProjectKey:  cfg.Issues.ProjectKey,
			ProjectName: cfg.Issues.ProjectName,
			IssueType:   cfg.Issues.IssueType,
		}, issues.WithLogger(logger.Named("issues"))),
	}
	closeFn := func() {}

	if cfg.Issues.URL != "" {
		if err := b.Issues.Ping(ctx); err != nil {
			logger.Warn("issue tracker unreachable", zap.Error(err))
		} else {
			logger.Info("connected to issue tracker")
		}
	}

	if cfg.Academics.DSN != "" {
		store, err := academics.OpenPGStore(ctx, cfg.Academics.DSN, cfg.Academics.Table)
		if err != nil {
			logger.Warn("academic records unavailable", zap.Error(err))
		} else {
			logger.Info("connected to academic records")
			b.Academics = store
			closeFn = store.Close
		}
	}
	return b, closeFn
}
